package handler

import (
	"github.com/buxx/civ/internal/effect"
	"github.com/buxx/civ/internal/message"
	"github.com/buxx/civ/internal/placer"
	"github.com/buxx/civ/internal/rules"
	"github.com/buxx/civ/internal/world"
	"go.uber.org/zap"
)

// Deps holds shared dependencies injected into all message handlers.
type Deps struct {
	Rules  rules.RuleSet
	World  *world.Reader
	Placer placer.Placer
	Log    *zap.Logger
}

var inGame = []SessionState{StateInGame}

// RegisterAll registers all message handlers into the registry.
func RegisterAll(reg *Registry, deps *Deps) {
	// Network
	reg.Register(message.KindHello,
		[]SessionState{StateConnected},
		func(req Request, msg message.ClientMessage) ([]effect.Effect, error) {
			return HandleHello(req, msg.(message.Hello), deps)
		},
	)
	reg.Register(message.KindGoodbye,
		[]SessionState{StateLobby, StateInGame},
		func(req Request, _ message.ClientMessage) ([]effect.Effect, error) {
			return HandleGoodbye(req)
		},
	)

	// Establishment
	reg.Register(message.KindTakePlace,
		[]SessionState{StateLobby},
		func(req Request, msg message.ClientMessage) ([]effect.Effect, error) {
			return HandleTakePlace(req, msg.(message.TakePlace), deps)
		},
	)

	// In game
	reg.Register(message.KindSetWindow, inGame,
		func(req Request, msg message.ClientMessage) ([]effect.Effect, error) {
			return HandleSetWindow(req, msg.(message.SetWindowRequest))
		},
	)
	reg.Register(message.KindUnitSettle, inGame,
		func(req Request, msg message.ClientMessage) ([]effect.Effect, error) {
			return HandleUnitSettle(req, msg.(message.UnitSettle), deps)
		},
	)
	reg.Register(message.KindUnitCancelTask, inGame,
		func(req Request, msg message.ClientMessage) ([]effect.Effect, error) {
			return HandleUnitCancelTask(req, msg.(message.UnitCancelTask))
		},
	)
	reg.Register(message.KindCitySetProduction, inGame,
		func(req Request, msg message.ClientMessage) ([]effect.Effect, error) {
			return HandleCitySetProduction(req, msg.(message.CitySetProduction), deps)
		},
	)
	reg.Register(message.KindCitySetExploitation, inGame,
		func(req Request, msg message.ClientMessage) ([]effect.Effect, error) {
			return HandleCitySetExploitation(req, msg.(message.CitySetExploitation), deps)
		},
	)
}

package handler

import (
	"errors"

	"github.com/buxx/civ/internal/effect"
	"github.com/buxx/civ/internal/game"
	"github.com/buxx/civ/internal/message"
	"github.com/buxx/civ/internal/state"
	"go.uber.org/zap"
)

// Dispatcher turns client messages into effects. Handler errors never reach
// the caller: they become notifications to the client or log lines.
type Dispatcher struct {
	reg *Registry
	log *zap.Logger
}

func NewDispatcher(deps *Deps) *Dispatcher {
	log := deps.Log.With(zap.String("component", "handler"))
	reg := NewRegistry(log)
	RegisterAll(reg, &Deps{
		Rules:  deps.Rules,
		World:  deps.World,
		Placer: deps.Placer,
		Log:    log,
	})
	return &Dispatcher{reg: reg, log: log}
}

// Handle dispatches msg from client against s, which must be read-locked.
func (d *Dispatcher) Handle(s *state.State, client game.ClientID, msg message.ClientMessage) []effect.Effect {
	req := Request{Client: client, State: s}
	effects, err := d.reg.Dispatch(req, SessionStateOf(s, client), msg)
	if err == nil {
		return effects
	}

	switch {
	case errors.Is(err, ErrUnfeasible):
		d.log.Debug("unfeasible request",
			zap.Stringer("client", client),
			zap.Stringer("kind", msg.Kind()),
			zap.Error(err),
		)
		return []effect.Effect{effect.Shining(message.Notification{Level: message.LevelError, Text: err.Error()}, client)}
	case errors.Is(err, ErrUnauthorized):
		d.log.Warn("unauthorized request",
			zap.Stringer("client", client),
			zap.Stringer("kind", msg.Kind()),
		)
		return []effect.Effect{effect.Shining(message.Unauthorized(), client)}
	case errors.Is(err, ErrNoLongerExist):
		d.log.Debug("request on vanished entity",
			zap.Stringer("client", client),
			zap.Stringer("kind", msg.Kind()),
		)
	case errors.Is(err, ErrNotAllowed):
		// already logged by the registry
	default:
		d.log.Error("unexpected error while handling request",
			zap.Stringer("client", client),
			zap.Stringer("kind", msg.Kind()),
			zap.Error(err),
		)
	}
	return nil
}

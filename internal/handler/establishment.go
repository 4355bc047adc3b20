package handler

import (
	"errors"
	"fmt"
	"slices"

	"github.com/buxx/civ/internal/effect"
	"github.com/buxx/civ/internal/game"
	"github.com/buxx/civ/internal/message"
	"github.com/buxx/civ/internal/placer"
	"github.com/buxx/civ/internal/space"
	"github.com/buxx/civ/internal/state"
	"go.uber.org/zap"
)

// HandleTakePlace places a new player under the requested flag: a settlers
// unit on a startup cell and a window centered on it.
func HandleTakePlace(req Request, m message.TakePlace, deps *Deps) ([]effect.Effect, error) {
	clients := req.State.Clients()
	player, ok := clients.Player(req.Client)
	if !ok {
		return nil, state.ErrNoClient
	}
	if !m.Flag.Valid() {
		return nil, unfeasible(fmt.Errorf("unknown flag %d", uint32(m.Flag)))
	}
	if err := m.Resolution.Validate(); err != nil {
		return nil, unfeasible(err)
	}

	if clients.FlagTaken(m.Flag) {
		refused := message.TakePlaceRefused{Reason: message.RefusedFlagAlreadyTaken, Flag: m.Flag}
		return []effect.Effect{effect.Shining(refused, req.Client)}, nil
	}

	point, err := deps.Placer.Startup(deps.Rules, req.State, deps.World)
	if errors.Is(err, placer.ErrNoPlaceFound) {
		deps.Log.Warn("no startup place found", zap.Stringer("player", player), zap.Stringer("flag", m.Flag))
		refused := message.TakePlaceRefused{Reason: message.RefusedNoPlace}
		return []effect.Effect{effect.Shining(refused, req.Client)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("startup placement: %w", err)
	}

	unit := game.Unit{
		ID:    game.NewUnitID(),
		Type:  game.UnitSettlers,
		Flag:  m.Flag,
		Point: point,
		Can:   deps.Rules.UnitCan(game.UnitSettlers),
	}
	window := space.FromAround(point, m.Resolution)

	// The resume is read before the session exists.
	resume := req.State.Resume(deps.Rules.Type())
	resume.Flags = append(resume.Flags, m.Flag)
	slices.Sort(resume.Flags)
	flag := m.Flag
	to := []game.ClientID{req.Client}

	deps.Log.Info("player took place",
		zap.Stringer("player", player),
		zap.Stringer("flag", m.Flag),
		zap.Stringer("point", point),
	)
	return []effect.Effect{
		effect.UnitNew{Unit: unit},
		effect.ClientTookPlace{
			Client:     req.Client,
			Player:     player,
			Flag:       m.Flag,
			Window:     window,
			Resolution: m.Resolution,
		},
		effect.Shines{Items: []effect.Shine{
			{Message: message.SetWindow{Window: window}, Clients: to},
			{Message: message.ServerResume{Resume: resume, Flag: &flag}, Clients: to},
		}},
	}, nil
}

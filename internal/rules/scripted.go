package rules

import (
	"errors"

	"go.uber.org/zap"

	"github.com/buxx/civ/internal/game"
	"github.com/buxx/civ/internal/scripting"
	"github.com/buxx/civ/internal/world"
)

// Lua function names looked up by Scripted.
const (
	fnSettleDuration = "settle_duration"
	fnCanSettle      = "can_settle"
	fnRequiredTons   = "required_tons"
	fnCanBeStartup   = "can_be_startup"
)

// Scripted overrides parts of a base rule set with Lua functions. A function
// the scripts do not define, or one that fails, falls back to the base.
type Scripted struct {
	base    RuleSet
	engine  *scripting.Engine
	log     *zap.Logger
	defined map[string]bool
}

func NewScripted(base RuleSet, engine *scripting.Engine, log *zap.Logger) *Scripted {
	s := &Scripted{
		base:    base,
		engine:  engine,
		log:     log,
		defined: make(map[string]bool),
	}
	for _, fn := range []string{fnSettleDuration, fnCanSettle, fnRequiredTons, fnCanBeStartup} {
		if engine.Defines(fn) {
			s.defined[fn] = true
			log.Info("rule overridden by script", zap.String("func", fn))
		}
	}
	return s
}

func (s *Scripted) Type() uint32 { return s.base.Type() }

func (s *Scripted) Tasks() []game.TaskKind { return s.base.Tasks() }

func (s *Scripted) UnitCan(t game.UnitType) []game.UnitCan { return s.base.UnitCan(t) }

func (s *Scripted) SettleDuration(t game.UnitType) uint64 {
	if s.defined[fnSettleDuration] {
		if n, err := s.engine.CallInt(fnSettleDuration, t.String()); err == nil && n >= 0 {
			return uint64(n)
		} else {
			s.fallback(fnSettleDuration, err)
		}
	}
	return s.base.SettleDuration(t)
}

func (s *Scripted) CanSettle(t game.UnitType) bool {
	if s.defined[fnCanSettle] {
		ok, err := s.engine.CallBool(fnCanSettle, t.String())
		if err == nil {
			return ok
		}
		s.fallback(fnCanSettle, err)
	}
	return s.base.CanSettle(t)
}

func (s *Scripted) RequiredTons(p game.Product) game.Tons {
	if s.defined[fnRequiredTons] {
		if n, err := s.engine.CallInt(fnRequiredTons, p.Unit.String()); err == nil && n > 0 {
			return game.Tons(n)
		} else {
			s.fallback(fnRequiredTons, err)
		}
	}
	return s.base.RequiredTons(p)
}

func (s *Scripted) CanBeStartup(tile world.Tile) bool {
	if s.defined[fnCanBeStartup] {
		ok, err := s.engine.CallBool(fnCanBeStartup, tile.Terrain.String())
		if err == nil {
			return ok
		}
		s.fallback(fnCanBeStartup, err)
	}
	return s.base.CanBeStartup(tile)
}

func (s *Scripted) fallback(fn string, err error) {
	if err == nil {
		err = errors.New("out of range result")
	}
	s.log.Warn("script rule failed, using base rule", zap.String("func", fn), zap.Error(err))
}

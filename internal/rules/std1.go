package rules

import (
	"github.com/buxx/civ/internal/game"
	"github.com/buxx/civ/internal/world"
)

// Std1 is the built-in rule set.
type Std1 struct{}

func (Std1) Type() uint32 { return Std1Type }

func (Std1) Tasks() []game.TaskKind {
	return []game.TaskKind{game.TaskSettle}
}

func (Std1) UnitCan(t game.UnitType) []game.UnitCan {
	switch t {
	case game.UnitSettlers:
		return []game.UnitCan{game.CanSettle}
	default:
		return nil
	}
}

func (Std1) SettleDuration(t game.UnitType) uint64 {
	switch t {
	case game.UnitSettlers:
		return game.GameFramesPerSecond * 10
	default:
		return 0
	}
}

func (Std1) CanSettle(t game.UnitType) bool {
	return t == game.UnitSettlers
}

func (Std1) RequiredTons(p game.Product) game.Tons {
	switch p.Unit {
	case game.UnitSettlers:
		return 40
	case game.UnitWarriors:
		return 8
	default:
		return 0
	}
}

// CanBeStartup refuses water tiles.
func (Std1) CanBeStartup(tile world.Tile) bool {
	return !tile.Terrain.IsWater()
}

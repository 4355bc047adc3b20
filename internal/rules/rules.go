// Package rules holds the rule sets deciding feasibility and durations of
// game actions.
package rules

import (
	"github.com/buxx/civ/internal/game"
	"github.com/buxx/civ/internal/world"
)

// Std1Type is the identifier of the built-in rule set.
const Std1Type uint32 = 1

// RuleSet is shared by the task workers, the placer and the request
// handlers. Implementations must be safe for concurrent use.
type RuleSet interface {
	Type() uint32
	Tasks() []game.TaskKind
	UnitCan(t game.UnitType) []game.UnitCan
	SettleDuration(t game.UnitType) uint64
	CanSettle(t game.UnitType) bool
	RequiredTons(p game.Product) game.Tons
	CanBeStartup(tile world.Tile) bool
}

package rules

import (
	"fmt"

	"github.com/buxx/civ/internal/data"
	"github.com/buxx/civ/internal/game"
	"github.com/buxx/civ/internal/world"
)

type unitRule struct {
	settleDuration uint64
	canSettle      bool
	can            []game.UnitCan
	requiredTons   game.Tons
}

// Table is a rule set loaded from a YAML rule table.
type Table struct {
	ruleSet  uint32
	tasks    []game.TaskKind
	units    map[game.UnitType]unitRule
	startups map[world.Terrain]bool
}

// FromTable validates a raw rule table and resolves its names.
func FromTable(t *data.RuleTable) (*Table, error) {
	r := &Table{
		ruleSet:  t.RuleSet(),
		units:    make(map[game.UnitType]unitRule),
		startups: make(map[world.Terrain]bool),
	}
	for _, name := range t.Tasks() {
		switch name {
		case "Settle":
			r.tasks = append(r.tasks, game.TaskSettle)
		default:
			return nil, fmt.Errorf("rule table: unknown task %q", name)
		}
	}
	for _, ut := range game.UnitTypes() {
		raw := t.Get(ut.String())
		if raw == nil {
			return nil, fmt.Errorf("rule table: missing unit %s", ut)
		}
		rule := unitRule{
			settleDuration: raw.SettleDuration,
			canSettle:      raw.CanSettle,
			requiredTons:   game.Tons(raw.RequiredTons),
		}
		for _, c := range raw.Can {
			switch c {
			case "Settle":
				rule.can = append(rule.can, game.CanSettle)
			default:
				return nil, fmt.Errorf("rule table: unit %s: unknown capability %q", ut, c)
			}
		}
		r.units[ut] = rule
	}
	for i := world.Terrain(0); i.Valid(); i++ {
		if t.StartupAllowed(i.String()) {
			r.startups[i] = true
		}
	}
	return r, nil
}

// LoadTable reads and resolves a YAML rule table file.
func LoadTable(path string) (*Table, error) {
	raw, err := data.LoadRuleTable(path)
	if err != nil {
		return nil, err
	}
	return FromTable(raw)
}

func (r *Table) Type() uint32 { return r.ruleSet }

func (r *Table) Tasks() []game.TaskKind { return r.tasks }

func (r *Table) UnitCan(t game.UnitType) []game.UnitCan {
	return r.units[t].can
}

func (r *Table) SettleDuration(t game.UnitType) uint64 {
	return r.units[t].settleDuration
}

func (r *Table) CanSettle(t game.UnitType) bool {
	return r.units[t].canSettle
}

func (r *Table) RequiredTons(p game.Product) game.Tons {
	return r.units[p.Unit].requiredTons
}

func (r *Table) CanBeStartup(tile world.Tile) bool {
	return r.startups[tile.Terrain]
}

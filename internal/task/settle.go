package task

import (
	"fmt"

	"github.com/buxx/civ/internal/effect"
	"github.com/buxx/civ/internal/game"
	"github.com/buxx/civ/internal/rules"
)

// NewSettle builds the task turning unit into a city named cityName.
func NewSettle(rs rules.RuleSet, unit game.Unit, cityName string, frame game.Frame) (game.Task, error) {
	if !rs.CanSettle(unit.Type) {
		return game.Task{}, fmt.Errorf("%s: %w", unit.Type, ErrCannotSettle)
	}
	if cityName == "" {
		return game.Task{}, ErrEmptyCityName
	}
	return game.Task{
		ID:    game.NewTaskID(),
		Start: frame,
		End:   frame.Add(rs.SettleDuration(unit.Type)),
		Kind:  game.TaskSettle,
		Settle: &game.SettleTask{
			Unit:     unit.Clone(),
			CityName: cityName,
		},
	}, nil
}

func thenSettle(t game.Task, ctx Context) ([]effect.Effect, []game.Task, error) {
	settler, ok := ctx.State.Unit(t.Settle.Unit.ID)
	if !ok {
		return nil, nil, fmt.Errorf("settle %s: unit %s: %w", t.ID, t.Settle.Unit.ID, ErrConcernGone)
	}
	if _, taken := ctx.State.CityAt(settler.Point); taken {
		return nil, nil, fmt.Errorf("settle %s at %s: %w", t.ID, settler.Point, ErrCityThere)
	}
	gen := CityGenerator{Rules: ctx.Rules, Frame: ctx.State.Frame()}
	city, production, err := gen.Generate(Scratch{
		Name:  t.Settle.CityName,
		Flag:  settler.Flag,
		Point: settler.Point,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("settle %s: %w", t.ID, err)
	}
	effects := []effect.Effect{
		effect.UnitRemove{Unit: settler},
		effect.CityNew{City: city},
	}
	return effects, []game.Task{production}, nil
}

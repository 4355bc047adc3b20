package task

import (
	"fmt"

	"github.com/buxx/civ/internal/effect"
	"github.com/buxx/civ/internal/game"
)

// thenProduction delivers the current product of the city, rotates its
// queue and starts the production of the next product.
func thenProduction(t game.Task, ctx Context) ([]effect.Effect, []game.Task, error) {
	city, ok := ctx.State.City(t.Production.City)
	if !ok {
		return nil, nil, fmt.Errorf("production %s: city %s: %w", t.ID, t.Production.City, ErrConcernGone)
	}

	var effects []effect.Effect
	product := city.Production.Current()
	switch product.Kind {
	case game.ProductUnit:
		effects = append(effects, effect.UnitNew{Unit: game.Unit{
			ID:    game.NewUnitID(),
			Type:  product.Unit,
			Flag:  city.Flag,
			Point: city.Point,
			Can:   ctx.Rules.UnitCan(product.Unit),
		}})
	default:
		return nil, nil, fmt.Errorf("production %s: unknown product %s", t.ID, product)
	}

	city.Production = city.Production.Next()
	next, err := ProductionTask(ctx.Rules, ctx.State.Frame(), city, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("production %s: %w", t.ID, err)
	}
	city.Tasks.Production = game.RefOf(next)
	effects = append(effects, effect.CityReplace{City: city})
	return effects, []game.Task{next}, nil
}

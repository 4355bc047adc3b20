package task

import (
	"fmt"

	"github.com/buxx/civ/internal/game"
	"github.com/buxx/civ/internal/rules"
	"github.com/buxx/civ/internal/space"
)

// BuildCityFrom tells a CityGenerator how to build a city.
type BuildCityFrom interface {
	buildCityFrom()
}

// Scratch founds a new city.
type Scratch struct {
	Name  string
	Flag  game.Flag
	Point space.Point
}

// ChangeProduction rebuilds City with a new production queue.
type ChangeProduction struct {
	City       game.City
	Production game.Production
}

// ChangeExploitation rebuilds City with a new production rate.
type ChangeExploitation struct {
	City         game.City
	Exploitation game.Exploitation
}

func (Scratch) buildCityFrom()            {}
func (ChangeProduction) buildCityFrom()   {}
func (ChangeExploitation) buildCityFrom() {}

// defaultExploitation is the rate of a freshly founded city.
var defaultExploitation = game.NewExploitation(1)

// CityGenerator builds city records together with their production task.
type CityGenerator struct {
	Rules rules.RuleSet
	Frame game.Frame
}

// Generate returns the city and its new production task. A changed city
// keeps its identity and location; the tons produced by its previous task
// are carried over.
func (g CityGenerator) Generate(from BuildCityFrom) (game.City, game.Task, error) {
	var (
		city    game.City
		accrued game.Tons
	)
	switch from := from.(type) {
	case Scratch:
		if from.Name == "" {
			return game.City{}, game.Task{}, ErrEmptyCityName
		}
		city = game.City{
			ID:           game.NewCityID(),
			Flag:         from.Flag,
			Name:         from.Name,
			Point:        from.Point,
			Production:   game.DefaultProduction(),
			Exploitation: defaultExploitation,
		}
	case ChangeProduction:
		if len(from.Production.Queue) == 0 {
			return game.City{}, game.Task{}, fmt.Errorf("city %s: empty production", from.City.ID)
		}
		city = from.City.Clone()
		accrued = g.accrued(from.City)
		city.Production = from.Production.Clone()
	case ChangeExploitation:
		city = from.City.Clone()
		accrued = g.accrued(from.City)
		city.Exploitation = from.Exploitation
	default:
		return game.City{}, game.Task{}, fmt.Errorf("build city from %T", from)
	}

	t, err := ProductionTask(g.Rules, g.Frame, city, accrued)
	if err != nil {
		return game.City{}, game.Task{}, err
	}
	city.Tasks.Production = game.RefOf(t)
	return city, t, nil
}

// accrued returns the tons produced by the current production task of city.
func (g CityGenerator) accrued(city game.City) game.Tons {
	return AccruedTons(city.Exploitation.Tons, g.Frame.Since(city.Tasks.Production.Start))
}

// AccruedTons converts frames elapsed at rate into produced tons, rounded
// down.
func AccruedTons(rate game.Tons, elapsed uint64) game.Tons {
	return game.Tons(uint64(rate) * elapsed / game.ProductionFramesPerTons)
}

// RequiredFrames returns the frames needed to produce the tons left at rate,
// rounded down.
func RequiredFrames(required, accrued, rate game.Tons) uint64 {
	if accrued >= required || rate == 0 {
		return 0
	}
	left := required - accrued
	return game.ProductionFramesPerTons * uint64(left) / uint64(rate)
}

// ProductionTask builds the production task of the current product of city,
// starting at frame with accrued tons already produced.
func ProductionTask(rs rules.RuleSet, frame game.Frame, city game.City, accrued game.Tons) (game.Task, error) {
	rate := city.Exploitation.Tons
	if rate == 0 {
		return game.Task{}, fmt.Errorf("city %s: %w", city.ID, ErrNoExploitation)
	}
	required := rs.RequiredTons(city.Production.Current())
	return game.Task{
		ID:    game.NewTaskID(),
		Start: frame,
		End:   frame.Add(RequiredFrames(required, accrued, rate)),
		Kind:  game.TaskProduction,
		Production: &game.ProductionTask{
			City:  city.ID,
			Point: city.Point,
			Tons:  rate,
		},
	}, nil
}

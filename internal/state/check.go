package state

import (
	"errors"
	"fmt"

	"github.com/buxx/civ/internal/game"
	"github.com/buxx/civ/internal/space"
)

// Check verifies the structural invariants of the state and returns every
// violation found.
func (s *State) Check() error {
	var errs []error
	units, cities := 0, 0

	s.units.Each(func(p space.Point, stack *[]game.Unit) {
		if len(*stack) == 0 {
			errs = append(errs, fmt.Errorf("cell %s stores an empty unit stack", p))
		}
		for _, u := range *stack {
			units++
			if u.Point != p {
				errs = append(errs, fmt.Errorf("unit %s at %s stored in %s", u.ID, u.Point, p))
			}
			if ip, ok := s.index.UnitPoint(u.ID); !ok || ip != p {
				errs = append(errs, fmt.Errorf("unit %s indexed at %s, stored in %s", u.ID, ip, p))
			}
		}
	})
	s.cities.Each(func(p space.Point, c *game.City) {
		cities++
		if c.Point != p {
			errs = append(errs, fmt.Errorf("city %s at %s stored in %s", c.ID, c.Point, p))
		}
		if ip, ok := s.index.CityPoint(c.ID); !ok || ip != p {
			errs = append(errs, fmt.Errorf("city %s indexed at %s, stored in %s", c.ID, ip, p))
		}
	})
	if units != s.unitsCount || units != s.index.UnitsCount() {
		errs = append(errs, fmt.Errorf("units: %d stored, %d counted, %d indexed", units, s.unitsCount, s.index.UnitsCount()))
	}
	if cities != s.citiesCount || cities != s.index.CitiesCount() {
		errs = append(errs, fmt.Errorf("cities: %d stored, %d counted, %d indexed", cities, s.citiesCount, s.index.CitiesCount()))
	}

	unitTasks := make(map[game.UnitID]int)
	cityProductions := make(map[game.CityID]int)
	for _, t := range s.tasks {
		switch c := t.Concern(); c.Kind {
		case game.ConcernUnit:
			if _, ok := s.index.UnitPoint(c.Unit); !ok {
				errs = append(errs, fmt.Errorf("task %s concerns missing unit %s", t.ID, c.Unit))
			}
			unitTasks[c.Unit]++
		case game.ConcernCity:
			if _, ok := s.index.CityPoint(c.City); !ok {
				errs = append(errs, fmt.Errorf("task %s concerns missing city %s", t.ID, c.City))
			}
			if t.Kind == game.TaskProduction {
				cityProductions[c.City]++
			}
		}
	}
	for id, n := range unitTasks {
		if n > 1 {
			errs = append(errs, fmt.Errorf("unit %s has %d tasks", id, n))
		}
	}
	s.cities.Each(func(_ space.Point, c *game.City) {
		if n := cityProductions[c.ID]; n != 1 {
			errs = append(errs, fmt.Errorf("city %s has %d production tasks", c.ID, n))
		}
	})

	seen := make(map[game.Flag]game.PlayerID)
	for player, session := range s.clients.Sessions() {
		if other, ok := seen[session.Flag]; ok {
			errs = append(errs, fmt.Errorf("players %s and %s share flag %s", other, player, session.Flag))
		}
		seen[session.Flag] = player
	}
	return errors.Join(errs...)
}

// Package state holds the authoritative game state: the entity grids, the
// task registry, the index and the player sessions.
package state

import (
	"github.com/buxx/civ/internal/game"
	"github.com/buxx/civ/internal/space"
)

// State is mutated only through Apply.
type State struct {
	frame game.Frame
	size  space.Size

	cities      *space.Grid2D[game.City]
	units       *space.Grid2D[[]game.Unit]
	citiesCount int
	unitsCount  int

	tasks   []game.Task
	index   *Index
	clients *Clients

	testing uint64
}

// New returns an empty state for a world of the given size.
func New(size space.Size) *State {
	return &State{
		size:    size,
		cities:  space.NewGrid2D[game.City](size),
		units:   space.NewGrid2D[[]game.Unit](size),
		index:   NewIndex(),
		clients: NewClients(),
	}
}

// Restore rebuilds a state from persisted parts. Counts and the index are
// recomputed from the grids.
func Restore(frame game.Frame, size space.Size, tasks []game.Task, cities []game.City, units []game.Unit, sessions map[game.PlayerID]PlayerState) (*State, error) {
	s := New(size)
	s.frame = frame
	s.tasks = append(s.tasks, tasks...)
	for _, c := range cities {
		if s.cities.Get(c.Point) != nil {
			return nil, errCellTaken(c.Point)
		}
		city := c.Clone()
		if err := s.cities.Set(c.Point, &city); err != nil {
			return nil, err
		}
		s.citiesCount++
	}
	for _, u := range units {
		if !size.Contains(u.Point) {
			return nil, space.ErrOutOfGrid
		}
		s.pushUnit(u.Clone())
	}
	for player, session := range sessions {
		if err := s.clients.TookPlace(player, session.Flag, session.Window, session.Resolution); err != nil {
			return nil, err
		}
	}
	s.index = BuildIndex(s)
	return s, nil
}

func (s *State) Frame() game.Frame      { return s.frame }
func (s *State) Size() space.Size       { return s.size }
func (s *State) CitiesCount() int       { return s.citiesCount }
func (s *State) UnitsCount() int        { return s.unitsCount }
func (s *State) Index() *Index          { return s.index }
func (s *State) Clients() *Clients      { return s.clients }
func (s *State) TestingCounter() uint64 { return s.testing }
func (s *State) TasksCount() int        { return len(s.tasks) }

// Tasks returns the live task list in insertion order. Callers must not
// modify it.
func (s *State) Tasks() []game.Task {
	return s.tasks
}

// Task returns the task with the given id.
func (s *State) Task(id game.TaskID) (game.Task, bool) {
	for _, t := range s.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return game.Task{}, false
}

// Unit returns a copy of the unit with the given id.
func (s *State) Unit(id game.UnitID) (game.Unit, bool) {
	p, ok := s.index.UnitPoint(id)
	if !ok {
		return game.Unit{}, false
	}
	if u := findUnit(s.units.Get(p), id); u != nil {
		return u.Clone(), true
	}
	return game.Unit{}, false
}

// City returns a copy of the city with the given id.
func (s *State) City(id game.CityID) (game.City, bool) {
	p, ok := s.index.CityPoint(id)
	if !ok {
		return game.City{}, false
	}
	c := s.cities.Get(p)
	if c == nil || c.ID != id {
		return game.City{}, false
	}
	return c.Clone(), true
}

func (s *State) CityAt(p space.Point) (game.City, bool) {
	c := s.cities.Get(p)
	if c == nil {
		return game.City{}, false
	}
	return c.Clone(), true
}

// UnitsAt returns a copy of the unit stack at p.
func (s *State) UnitsAt(p space.Point) []game.Unit {
	stack := s.units.Get(p)
	if stack == nil {
		return nil
	}
	out := make([]game.Unit, len(*stack))
	for i, u := range *stack {
		out[i] = u.Clone()
	}
	return out
}

// Occupied reports whether a city or a unit stands at p.
func (s *State) Occupied(p space.Point) bool {
	return s.cities.Get(p) != nil || s.units.Get(p) != nil
}

// UnitsIn lists the ids of units inside the window, in cell order.
func (s *State) UnitsIn(w space.Window) []game.UnitID {
	var ids []game.UnitID
	s.units.EachIn(w, func(_ space.Point, stack *[]game.Unit) {
		for _, u := range *stack {
			ids = append(ids, u.ID)
		}
	})
	return ids
}

// CitiesIn lists the ids of cities inside the window, in cell order.
func (s *State) CitiesIn(w space.Window) []game.CityID {
	var ids []game.CityID
	s.cities.EachIn(w, func(_ space.Point, c *game.City) {
		ids = append(ids, c.ID)
	})
	return ids
}

// AllCities returns copies of every city in cell order.
func (s *State) AllCities() []game.City {
	out := make([]game.City, 0, s.citiesCount)
	s.cities.Each(func(_ space.Point, c *game.City) {
		out = append(out, c.Clone())
	})
	return out
}

// AllUnits returns copies of every unit in cell then stack order.
func (s *State) AllUnits() []game.Unit {
	out := make([]game.Unit, 0, s.unitsCount)
	s.units.Each(func(_ space.Point, stack *[]game.Unit) {
		for _, u := range *stack {
			out = append(out, u.Clone())
		}
	})
	return out
}

func (s *State) pushUnit(u game.Unit) {
	stack := s.units.Get(u.Point)
	if stack == nil {
		stack = &[]game.Unit{}
		_ = s.units.Set(u.Point, stack)
	}
	*stack = append(*stack, u)
	s.unitsCount++
}

// pullUnit removes a unit from the stack at p. An emptied cell becomes nil.
func (s *State) pullUnit(p space.Point, id game.UnitID) (game.Unit, bool) {
	stack := s.units.Get(p)
	if stack == nil {
		return game.Unit{}, false
	}
	for i, u := range *stack {
		if u.ID != id {
			continue
		}
		*stack = append((*stack)[:i], (*stack)[i+1:]...)
		if len(*stack) == 0 {
			_ = s.units.Set(p, nil)
		}
		s.unitsCount--
		return u, true
	}
	return game.Unit{}, false
}

func findUnit(stack *[]game.Unit, id game.UnitID) *game.Unit {
	if stack == nil {
		return nil
	}
	for i := range *stack {
		if (*stack)[i].ID == id {
			return &(*stack)[i]
		}
	}
	return nil
}

package state

import (
	"slices"

	"github.com/buxx/civ/internal/game"
	"github.com/buxx/civ/internal/space"
)

type unitEntry struct {
	point space.Point
	flag  game.Flag
}

type cityEntry struct {
	point space.Point
	flag  game.Flag
}

// Index maps entity ids to their cell and to the tasks concerning them.
type Index struct {
	units      map[game.UnitID]unitEntry
	cities     map[game.CityID]cityEntry
	unitTasks  map[game.UnitID][]game.TaskID
	cityTasks  map[game.CityID][]game.TaskID
	flagUnits  map[game.Flag]map[game.UnitID]struct{}
	flagCities map[game.Flag]map[game.CityID]struct{}
}

func NewIndex() *Index {
	return &Index{
		units:      make(map[game.UnitID]unitEntry),
		cities:     make(map[game.CityID]cityEntry),
		unitTasks:  make(map[game.UnitID][]game.TaskID),
		cityTasks:  make(map[game.CityID][]game.TaskID),
		flagUnits:  make(map[game.Flag]map[game.UnitID]struct{}),
		flagCities: make(map[game.Flag]map[game.CityID]struct{}),
	}
}

// BuildIndex computes the index of a state from its grids and task list.
func BuildIndex(s *State) *Index {
	idx := NewIndex()
	s.units.Each(func(p space.Point, stack *[]game.Unit) {
		for _, u := range *stack {
			idx.setUnit(u.ID, p, u.Flag)
		}
	})
	s.cities.Each(func(p space.Point, c *game.City) {
		idx.setCity(c.ID, p, c.Flag)
	})
	for _, t := range s.tasks {
		idx.addTask(t.Concern(), t.ID)
	}
	return idx
}

func (x *Index) UnitPoint(id game.UnitID) (space.Point, bool) {
	e, ok := x.units[id]
	return e.point, ok
}

func (x *Index) CityPoint(id game.CityID) (space.Point, bool) {
	e, ok := x.cities[id]
	return e.point, ok
}

// ConcernPoint returns the cell of the entity a task concerns.
func (x *Index) ConcernPoint(c game.Concern) (space.Point, bool) {
	switch c.Kind {
	case game.ConcernUnit:
		return x.UnitPoint(c.Unit)
	case game.ConcernCity:
		return x.CityPoint(c.City)
	default:
		return space.Point{}, false
	}
}

func (x *Index) UnitTasks(id game.UnitID) []game.TaskID {
	return slices.Clone(x.unitTasks[id])
}

func (x *Index) CityTasks(id game.CityID) []game.TaskID {
	return slices.Clone(x.cityTasks[id])
}

// FlagUnits returns the units owned by flag, in no particular order.
func (x *Index) FlagUnits(flag game.Flag) []game.UnitID {
	out := make([]game.UnitID, 0, len(x.flagUnits[flag]))
	for id := range x.flagUnits[flag] {
		out = append(out, id)
	}
	return out
}

// FlagCities returns the cities owned by flag, in no particular order.
func (x *Index) FlagCities(flag game.Flag) []game.CityID {
	out := make([]game.CityID, 0, len(x.flagCities[flag]))
	for id := range x.flagCities[flag] {
		out = append(out, id)
	}
	return out
}

func (x *Index) UnitsCount() int  { return len(x.units) }
func (x *Index) CitiesCount() int { return len(x.cities) }

func (x *Index) setUnit(id game.UnitID, p space.Point, flag game.Flag) {
	if old, ok := x.units[id]; ok && old.flag != flag {
		delete(x.flagUnits[old.flag], id)
	}
	x.units[id] = unitEntry{point: p, flag: flag}
	set := x.flagUnits[flag]
	if set == nil {
		set = make(map[game.UnitID]struct{})
		x.flagUnits[flag] = set
	}
	set[id] = struct{}{}
}

func (x *Index) removeUnit(id game.UnitID) {
	if old, ok := x.units[id]; ok {
		delete(x.flagUnits[old.flag], id)
	}
	delete(x.units, id)
	delete(x.unitTasks, id)
}

func (x *Index) setCity(id game.CityID, p space.Point, flag game.Flag) {
	if old, ok := x.cities[id]; ok && old.flag != flag {
		delete(x.flagCities[old.flag], id)
	}
	x.cities[id] = cityEntry{point: p, flag: flag}
	set := x.flagCities[flag]
	if set == nil {
		set = make(map[game.CityID]struct{})
		x.flagCities[flag] = set
	}
	set[id] = struct{}{}
}

func (x *Index) removeCity(id game.CityID) {
	if old, ok := x.cities[id]; ok {
		delete(x.flagCities[old.flag], id)
	}
	delete(x.cities, id)
	delete(x.cityTasks, id)
}

func (x *Index) addTask(c game.Concern, id game.TaskID) {
	switch c.Kind {
	case game.ConcernUnit:
		if !slices.Contains(x.unitTasks[c.Unit], id) {
			x.unitTasks[c.Unit] = append(x.unitTasks[c.Unit], id)
		}
	case game.ConcernCity:
		if !slices.Contains(x.cityTasks[c.City], id) {
			x.cityTasks[c.City] = append(x.cityTasks[c.City], id)
		}
	}
}

func (x *Index) removeTask(c game.Concern, id game.TaskID) {
	switch c.Kind {
	case game.ConcernUnit:
		ids := slices.DeleteFunc(x.unitTasks[c.Unit], func(t game.TaskID) bool { return t == id })
		if len(ids) == 0 {
			delete(x.unitTasks, c.Unit)
		} else {
			x.unitTasks[c.Unit] = ids
		}
	case game.ConcernCity:
		ids := slices.DeleteFunc(x.cityTasks[c.City], func(t game.TaskID) bool { return t == id })
		if len(ids) == 0 {
			delete(x.cityTasks, c.City)
		} else {
			x.cityTasks[c.City] = ids
		}
	}
}

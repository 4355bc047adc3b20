package state

import (
	"errors"
	"fmt"

	"github.com/buxx/civ/internal/effect"
	"github.com/buxx/civ/internal/game"
	"github.com/buxx/civ/internal/space"
)

var (
	ErrUnknownUnit = errors.New("unknown unit")
	ErrUnknownCity = errors.New("unknown city")
	ErrCellTaken   = errors.New("cell already holds a city")
	ErrDuplicateID = errors.New("entity id already exists")
)

func errCellTaken(p space.Point) error {
	return fmt.Errorf("%s: %w", p, ErrCellTaken)
}

// Applied reports what Reflect needs to know about an applied batch.
type Applied struct {
	// Moved holds the cell a replaced unit left during the batch.
	Moved map[game.UnitID]space.Point
	// Dropped lists effects refused because they contradicted the state.
	Dropped []error
}

// MovedFrom returns the cell a unit left during the batch.
func (a Applied) MovedFrom(id game.UnitID) (space.Point, bool) {
	p, ok := a.Moved[id]
	return p, ok
}

type unitSlot struct {
	entry   unitEntry
	deleted bool
}

type citySlot struct {
	entry   cityEntry
	deleted bool
}

type taskOp struct {
	add     bool
	concern game.Concern
	id      game.TaskID
}

// batch overlays the entity moves of the current batch on the index, which
// is only updated once every entity mutation is done.
type batch struct {
	s       *State
	units   map[game.UnitID]unitSlot
	cities  map[game.CityID]citySlot
	taskOps []taskOp
	removed map[game.TaskID]struct{}
	gone    []game.Concern
	applied Applied
}

func (b *batch) unitPoint(id game.UnitID) (space.Point, bool) {
	if slot, ok := b.units[id]; ok {
		return slot.entry.point, !slot.deleted
	}
	return b.s.index.UnitPoint(id)
}

func (b *batch) cityPoint(id game.CityID) (space.Point, bool) {
	if slot, ok := b.cities[id]; ok {
		return slot.entry.point, !slot.deleted
	}
	return b.s.index.CityPoint(id)
}

func (b *batch) drop(err error) {
	b.applied.Dropped = append(b.applied.Dropped, err)
}

// Apply mutates the state with effects, in order. Removed tasks are dropped
// from the registry in one pass at the end, then the index is updated.
// Effects contradicting the state are skipped and reported in Dropped.
func (s *State) Apply(effects []effect.Effect) Applied {
	b := &batch{
		s:       s,
		units:   make(map[game.UnitID]unitSlot),
		cities:  make(map[game.CityID]citySlot),
		removed: make(map[game.TaskID]struct{}),
		applied: Applied{Moved: make(map[game.UnitID]space.Point)},
	}
	var pushed []game.Task

	for _, e := range effects {
		switch e := e.(type) {
		case effect.IncrementGameFrame:
			s.frame++
		case effect.Testing:
			s.testing++
		case effect.Shines:

		case effect.ClientInsert:
			s.clients.Insert(e.Client, e.Player)
		case effect.ClientRemove:
			s.clients.Remove(e.Client)
		case effect.ClientTookPlace:
			if err := s.clients.TookPlace(e.Player, e.Flag, e.Window, e.Resolution); err != nil {
				b.drop(err)
				continue
			}
			s.clients.Insert(e.Client, e.Player)
		case effect.ClientSetWindow:
			player, ok := s.clients.Player(e.Client)
			if !ok {
				b.drop(fmt.Errorf("set window of %s: %w", e.Client, ErrNoClient))
				continue
			}
			if err := s.clients.SetWindow(player, e.Window); err != nil {
				b.drop(err)
			}
		case effect.ClientSetResolution:
			player, ok := s.clients.Player(e.Client)
			if !ok {
				b.drop(fmt.Errorf("set resolution of %s: %w", e.Client, ErrNoClient))
				continue
			}
			if err := s.clients.SetResolution(player, e.Resolution); err != nil {
				b.drop(err)
			}

		case effect.TaskPush:
			pushed = append(pushed, e.Task)
			b.taskOps = append(b.taskOps, taskOp{add: true, concern: e.Task.Concern(), id: e.Task.ID})
		case effect.TasksAdd:
			for _, t := range e.Tasks {
				pushed = append(pushed, t)
				b.taskOps = append(b.taskOps, taskOp{add: true, concern: t.Concern(), id: t.ID})
			}
		case effect.TaskFinished:
			b.removeTask(e.Task.Concern(), e.Task.ID)
		case effect.TaskRemove:
			b.removeTask(e.Concern, e.ID)
		case effect.TasksRemove:
			for _, id := range e.IDs {
				b.removeTask(e.Concern, id)
			}

		case effect.CityNew:
			b.newCity(e.City)
		case effect.CityReplace:
			b.replaceCity(e.City)
		case effect.CityRemove:
			b.removeCity(e.City.ID)

		case effect.UnitNew:
			b.newUnit(e.Unit)
		case effect.UnitReplace:
			b.replaceUnit(e.Unit)
		case effect.UnitRemove:
			b.removeUnit(e.Unit.ID)

		default:
			b.drop(fmt.Errorf("unknown effect %T", e))
		}
	}

	s.tasks = append(s.tasks, pushed...)
	b.flushIndex()
	b.retainTasks()
	b.syncTaskCaches(pushed)
	return b.applied
}

func (b *batch) removeTask(c game.Concern, id game.TaskID) {
	b.removed[id] = struct{}{}
	b.taskOps = append(b.taskOps, taskOp{concern: c, id: id})
}

func (b *batch) newCity(c game.City) {
	s := b.s
	if _, ok := b.cityPoint(c.ID); ok {
		b.drop(fmt.Errorf("new city %s: %w", c.ID, ErrDuplicateID))
		return
	}
	if !s.size.Contains(c.Point) {
		b.drop(fmt.Errorf("new city %s at %s: %w", c.ID, c.Point, space.ErrOutOfGrid))
		return
	}
	if s.cities.Get(c.Point) != nil {
		b.drop(fmt.Errorf("new city %s: %w", c.ID, errCellTaken(c.Point)))
		return
	}
	city := c.Clone()
	_ = s.cities.Set(c.Point, &city)
	s.citiesCount++
	b.cities[c.ID] = citySlot{entry: cityEntry{point: c.Point, flag: c.Flag}}
}

// replaceCity overwrites a city in place. Cities never move.
func (b *batch) replaceCity(c game.City) {
	s := b.s
	p, ok := b.cityPoint(c.ID)
	if !ok {
		b.drop(fmt.Errorf("replace city %s: %w", c.ID, ErrUnknownCity))
		return
	}
	city := c.Clone()
	city.Point = p
	_ = s.cities.Set(p, &city)
	b.cities[c.ID] = citySlot{entry: cityEntry{point: p, flag: c.Flag}}
}

func (b *batch) removeCity(id game.CityID) {
	s := b.s
	p, ok := b.cityPoint(id)
	if !ok {
		b.drop(fmt.Errorf("remove city %s: %w", id, ErrUnknownCity))
		return
	}
	_ = s.cities.Set(p, nil)
	s.citiesCount--
	b.cities[id] = citySlot{entry: cityEntry{point: p}, deleted: true}
	b.gone = append(b.gone, game.ConcernsCity(id))
}

func (b *batch) newUnit(u game.Unit) {
	s := b.s
	if _, ok := b.unitPoint(u.ID); ok {
		b.drop(fmt.Errorf("new unit %s: %w", u.ID, ErrDuplicateID))
		return
	}
	if !s.size.Contains(u.Point) {
		b.drop(fmt.Errorf("new unit %s at %s: %w", u.ID, u.Point, space.ErrOutOfGrid))
		return
	}
	s.pushUnit(u.Clone())
	b.units[u.ID] = unitSlot{entry: unitEntry{point: u.Point, flag: u.Flag}}
}

func (b *batch) replaceUnit(u game.Unit) {
	s := b.s
	old, ok := b.unitPoint(u.ID)
	if !ok {
		b.drop(fmt.Errorf("replace unit %s: %w", u.ID, ErrUnknownUnit))
		return
	}
	if old == u.Point {
		slot := findUnit(s.units.Get(old), u.ID)
		if slot == nil {
			b.drop(fmt.Errorf("replace unit %s: not in cell %s: %w", u.ID, old, ErrUnknownUnit))
			return
		}
		*slot = u.Clone()
	} else {
		if !s.size.Contains(u.Point) {
			b.drop(fmt.Errorf("move unit %s to %s: %w", u.ID, u.Point, space.ErrOutOfGrid))
			return
		}
		if _, ok := s.pullUnit(old, u.ID); !ok {
			b.drop(fmt.Errorf("move unit %s: not in cell %s: %w", u.ID, old, ErrUnknownUnit))
			return
		}
		s.pushUnit(u.Clone())
		if _, seen := b.applied.Moved[u.ID]; !seen {
			b.applied.Moved[u.ID] = old
		}
	}
	b.units[u.ID] = unitSlot{entry: unitEntry{point: u.Point, flag: u.Flag}}
}

func (b *batch) removeUnit(id game.UnitID) {
	s := b.s
	p, ok := b.unitPoint(id)
	if !ok {
		b.drop(fmt.Errorf("remove unit %s: %w", id, ErrUnknownUnit))
		return
	}
	if _, ok := s.pullUnit(p, id); !ok {
		b.drop(fmt.Errorf("remove unit %s: not in cell %s: %w", id, p, ErrUnknownUnit))
		return
	}
	b.units[id] = unitSlot{entry: unitEntry{point: p}, deleted: true}
	b.gone = append(b.gone, game.ConcernsUnit(id))
}

func (b *batch) flushIndex() {
	idx := b.s.index
	for id, slot := range b.units {
		if slot.deleted {
			idx.removeUnit(id)
		} else {
			idx.setUnit(id, slot.entry.point, slot.entry.flag)
		}
	}
	for id, slot := range b.cities {
		if slot.deleted {
			idx.removeCity(id)
		} else {
			idx.setCity(id, slot.entry.point, slot.entry.flag)
		}
	}
	for _, op := range b.taskOps {
		if op.add {
			idx.addTask(op.concern, op.id)
		} else {
			idx.removeTask(op.concern, op.id)
		}
	}
}

// retainTasks drops removed tasks and the tasks of removed entities in a
// single pass over the registry.
func (b *batch) retainTasks() {
	s := b.s
	for _, c := range b.gone {
		for _, t := range s.tasks {
			if t.Concern() == c {
				b.removed[t.ID] = struct{}{}
				s.index.removeTask(c, t.ID)
			}
		}
	}
	if len(b.removed) == 0 {
		return
	}
	kept := s.tasks[:0]
	for _, t := range s.tasks {
		if _, ok := b.removed[t.ID]; !ok {
			kept = append(kept, t)
		}
	}
	clear(s.tasks[len(kept):])
	s.tasks = kept
}

// syncTaskCaches keeps the task refs carried by entities in line with the
// registry, which is the reference.
func (b *batch) syncTaskCaches(pushed []game.Task) {
	s := b.s
	for _, op := range b.taskOps {
		if op.add || op.concern.Kind != game.ConcernUnit {
			continue
		}
		p, ok := s.index.UnitPoint(op.concern.Unit)
		if !ok {
			continue
		}
		if u := findUnit(s.units.Get(p), op.concern.Unit); u != nil && u.Task != nil && u.Task.ID == op.id {
			u.Task = nil
		}
	}
	for _, t := range pushed {
		if _, removed := b.removed[t.ID]; removed {
			continue
		}
		ref := game.RefOf(t)
		switch c := t.Concern(); c.Kind {
		case game.ConcernUnit:
			if p, ok := s.index.UnitPoint(c.Unit); ok {
				if u := findUnit(s.units.Get(p), c.Unit); u != nil {
					u.Task = &ref
				}
			}
		case game.ConcernCity:
			if t.Kind != game.TaskProduction {
				continue
			}
			if p, ok := s.index.CityPoint(c.City); ok {
				if city := s.cities.Get(p); city != nil {
					city.Tasks.Production = ref
				}
			}
		}
	}
}

package game

import (
	"fmt"

	"github.com/buxx/civ/internal/space"
)

// TaskKind tags the variant of a Task. The set is closed.
type TaskKind uint32

const (
	TaskSettle TaskKind = iota + 1
	TaskProduction
	TaskSnapshot
)

func (k TaskKind) String() string {
	switch k {
	case TaskSettle:
		return "Settle"
	case TaskProduction:
		return "CityProduction"
	case TaskSnapshot:
		return "Snapshot"
	default:
		return fmt.Sprintf("TaskKind(%d)", uint32(k))
	}
}

type ConcernKind uint8

const (
	ConcernNothing ConcernKind = iota
	ConcernUnit
	ConcernCity
)

// Concern binds a task to the entity it acts on.
type Concern struct {
	Kind ConcernKind
	Unit UnitID
	City CityID
}

func ConcernsUnit(id UnitID) Concern { return Concern{Kind: ConcernUnit, Unit: id} }
func ConcernsCity(id CityID) Concern { return Concern{Kind: ConcernCity, City: id} }

func (c Concern) String() string {
	switch c.Kind {
	case ConcernUnit:
		return "Unit(" + c.Unit.String() + ")"
	case ConcernCity:
		return "City(" + c.City.String() + ")"
	default:
		return "Nothing"
	}
}

type SettleTask struct {
	Unit     Unit
	CityName string
}

type ProductionTask struct {
	City  CityID
	Point space.Point
	Tons  Tons
}

type SnapshotTask struct {
	Target string
}

// Task is a time bounded activity. Exactly one payload matches Kind.
type Task struct {
	ID    TaskID
	Start Frame
	End   Frame
	Kind  TaskKind

	Settle     *SettleTask
	Production *ProductionTask
	Snapshot   *SnapshotTask
}

func (t Task) Concern() Concern {
	switch t.Kind {
	case TaskSettle:
		return ConcernsUnit(t.Settle.Unit.ID)
	case TaskProduction:
		return ConcernsCity(t.Production.City)
	default:
		return Concern{}
	}
}

// Point returns the cell the task was bound to when created.
func (t Task) Point() (space.Point, bool) {
	switch t.Kind {
	case TaskSettle:
		return t.Settle.Unit.Point, true
	case TaskProduction:
		return t.Production.Point, true
	default:
		return space.Point{}, false
	}
}

// Finished reports whether the task must complete at frame.
func (t Task) Finished(frame Frame) bool {
	return frame >= t.End
}

func (t Task) Validate() error {
	if t.End < t.Start {
		return fmt.Errorf("task %s: end %d before start %d", t.ID, t.End, t.Start)
	}
	switch t.Kind {
	case TaskSettle:
		if t.Settle == nil {
			return fmt.Errorf("task %s: missing settle payload", t.ID)
		}
	case TaskProduction:
		if t.Production == nil {
			return fmt.Errorf("task %s: missing production payload", t.ID)
		}
	case TaskSnapshot:
		if t.Snapshot == nil {
			return fmt.Errorf("task %s: missing snapshot payload", t.ID)
		}
	default:
		return fmt.Errorf("task %s: unknown kind %d", t.ID, t.Kind)
	}
	return nil
}

func (t Task) String() string {
	return fmt.Sprintf("%s[%s %d..%d]", t.Kind, t.ID, t.Start, t.End)
}

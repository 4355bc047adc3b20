package game

import (
	"fmt"

	"github.com/buxx/civ/internal/space"
)

type UnitType uint32

const (
	UnitSettlers UnitType = iota
	UnitWarriors
)

var unitTypeNames = map[UnitType]string{
	UnitSettlers: "Settlers",
	UnitWarriors: "Warriors",
}

// UnitTypes lists every unit type.
func UnitTypes() []UnitType {
	return []UnitType{UnitSettlers, UnitWarriors}
}

func (t UnitType) String() string {
	if n, ok := unitTypeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("UnitType(%d)", uint32(t))
}

func ParseUnitType(name string) (UnitType, error) {
	for t, n := range unitTypeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown unit type %q", name)
}

// UnitCan is a capability a unit exposes to its owner.
type UnitCan uint32

const (
	CanSettle UnitCan = iota
)

func (c UnitCan) String() string {
	switch c {
	case CanSettle:
		return "Settle"
	default:
		return fmt.Sprintf("UnitCan(%d)", uint32(c))
	}
}

// TaskRef is the entity-side cache of a registered task.
type TaskRef struct {
	ID    TaskID
	Kind  TaskKind
	Start Frame
	End   Frame
}

func RefOf(t Task) TaskRef {
	return TaskRef{ID: t.ID, Kind: t.Kind, Start: t.Start, End: t.End}
}

type Unit struct {
	ID    UnitID
	Type  UnitType
	Flag  Flag
	Point space.Point
	Task  *TaskRef
	Can   []UnitCan
}

// Clone returns a copy sharing no memory with u.
func (u Unit) Clone() Unit {
	c := u
	if u.Task != nil {
		t := *u.Task
		c.Task = &t
	}
	c.Can = append([]UnitCan(nil), u.Can...)
	return c
}

// WithTask returns a copy of u whose current task is ref (nil clears it).
func (u Unit) WithTask(ref *TaskRef) Unit {
	c := u.Clone()
	if ref == nil {
		c.Task = nil
		return c
	}
	r := *ref
	c.Task = &r
	return c
}

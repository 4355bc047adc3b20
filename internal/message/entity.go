package message

import (
	"github.com/buxx/civ/internal/game"
	"github.com/buxx/civ/internal/space"
)

// ClientTask is the view of a task sent to clients.
type ClientTask struct {
	ID    game.TaskID
	Kind  game.TaskKind
	Start game.Frame
	End   game.Frame
}

func ClientTaskFrom(ref game.TaskRef) ClientTask {
	return ClientTask{ID: ref.ID, Kind: ref.Kind, Start: ref.Start, End: ref.End}
}

// Progress returns the completed fraction of the task at frame, in [0,1].
func (t ClientTask) Progress(frame game.Frame) float64 {
	total := t.End.Since(t.Start)
	if total == 0 {
		return 1
	}
	return min(float64(frame.Since(t.Start))/float64(total), 1)
}

type ClientUnit struct {
	ID    game.UnitID
	Flag  game.Flag
	Type  game.UnitType
	Point space.Point
	Task  *ClientTask
	Can   []game.UnitCan
}

func ClientUnitFrom(u game.Unit) ClientUnit {
	c := ClientUnit{
		ID:    u.ID,
		Flag:  u.Flag,
		Type:  u.Type,
		Point: u.Point,
		Can:   append([]game.UnitCan(nil), u.Can...),
	}
	if u.Task != nil {
		t := ClientTaskFrom(*u.Task)
		c.Task = &t
	}
	return c
}

type ClientCity struct {
	ID             game.CityID
	Flag           game.Flag
	Name           string
	Point          space.Point
	Production     game.Production
	Exploitation   game.Exploitation
	ProductionTask ClientTask
}

func ClientCityFrom(c game.City) ClientCity {
	return ClientCity{
		ID:             c.ID,
		Flag:           c.Flag,
		Name:           c.Name,
		Point:          c.Point,
		Production:     c.Production.Clone(),
		Exploitation:   c.Exploitation,
		ProductionTask: ClientTaskFrom(c.Tasks.Production),
	}
}

package state

import (
	"slices"

	"github.com/buxx/civ/internal/effect"
	"github.com/buxx/civ/internal/game"
	"github.com/buxx/civ/internal/message"
	"github.com/buxx/civ/internal/space"
	"github.com/buxx/civ/internal/world"
)

// Outbound is a message and the clients it is addressed to.
type Outbound struct {
	Message message.ServerMessage
	Clients []game.ClientID
}

// Reflect computes the messages caused by an applied batch. It must be
// called with the effects just given to Apply, before any other mutation.
// Each effect yields at most one message; Shines forward all their items.
func (s *State) Reflect(effects []effect.Effect, applied Applied, tiles *world.Reader) []Outbound {
	var out []Outbound
	emit := func(msg message.ServerMessage, clients []game.ClientID) {
		if len(clients) > 0 {
			out = append(out, Outbound{Message: msg, Clients: clients})
		}
	}

	for _, e := range effects {
		switch e := e.(type) {
		case effect.IncrementGameFrame:
			emit(message.SetGameFrame{Frame: s.frame}, s.clients.Active())

		case effect.Shines:
			for _, item := range e.Items {
				emit(item.Message, item.Clients)
			}

		case effect.ClientTookPlace:
			s.reflectSlice(e.Client, tiles, emit)
		case effect.ClientSetWindow:
			s.reflectSlice(e.Client, tiles, emit)

		case effect.CityNew:
			emit(message.SetCity{City: s.clientCity(e.City)}, s.clients.Seeing(e.City.Point))
		case effect.CityReplace:
			c := s.clientCity(e.City)
			emit(message.SetCity{City: c}, s.clients.Seeing(c.Point))
		case effect.CityRemove:
			emit(message.RemoveCity{Point: e.City.Point, ID: e.City.ID}, s.clients.Seeing(e.City.Point))

		case effect.UnitNew:
			emit(message.SetUnit{Unit: s.clientUnit(e.Unit)}, s.clients.Seeing(e.Unit.Point))
		case effect.UnitReplace:
			clients := s.clients.Seeing(e.Unit.Point)
			if from, ok := applied.MovedFrom(e.Unit.ID); ok {
				clients = s.mergeClients(clients, s.clients.Seeing(from))
			}
			emit(message.SetUnit{Unit: s.clientUnit(e.Unit)}, clients)
		case effect.UnitRemove:
			emit(message.RemoveUnit{Point: e.Unit.Point, ID: e.Unit.ID}, s.clients.Seeing(e.Unit.Point))

		case effect.TaskFinished:
			if p, ok := s.taskPoint(e.Task); ok {
				emit(message.RemoveTask{Concern: e.Task.Concern(), ID: e.Task.ID}, s.clients.Seeing(p))
			}
		case effect.TaskPush:
			if p, ok := s.taskPoint(e.Task); ok {
				task := message.ClientTaskFrom(game.RefOf(e.Task))
				emit(message.AddTask{Concern: e.Task.Concern(), Task: task}, s.clients.Seeing(p))
			}
		}
	}
	return out
}

func (s *State) reflectSlice(client game.ClientID, tiles *world.Reader, emit func(message.ServerMessage, []game.ClientID)) {
	session, ok := s.clients.SessionOf(client)
	if !ok {
		return
	}
	emit(message.SetGameSlice{Slice: s.GameSlice(tiles, session.Window)}, []game.ClientID{client})
}

// taskPoint locates the entity concerned by t, falling back on the point
// recorded by the task when the entity is gone.
func (s *State) taskPoint(t game.Task) (space.Point, bool) {
	if p, ok := s.index.ConcernPoint(t.Concern()); ok {
		return p, true
	}
	return t.Point()
}

func (s *State) clientUnit(u game.Unit) message.ClientUnit {
	if current, ok := s.Unit(u.ID); ok {
		return message.ClientUnitFrom(current)
	}
	return message.ClientUnitFrom(u)
}

func (s *State) clientCity(c game.City) message.ClientCity {
	if current, ok := s.City(c.ID); ok {
		return message.ClientCityFrom(current)
	}
	return message.ClientCityFrom(c)
}

func (s *State) mergeClients(a, b []game.ClientID) []game.ClientID {
	for _, id := range b {
		if !slices.Contains(a, id) {
			a = append(a, id)
		}
	}
	s.clients.sortBySeq(a)
	return a
}

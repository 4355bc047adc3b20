// Package effect defines the effects: the only way to mutate the state.
// Request handlers and tasks produce effects; the scheduler applies them in
// order and reflects them to the clients.
package effect

import (
	"github.com/buxx/civ/internal/game"
	"github.com/buxx/civ/internal/message"
	"github.com/buxx/civ/internal/space"
)

// Effect is one state mutation or direct outbound emission.
type Effect interface {
	effect()
}

type IncrementGameFrame struct{}

// ClientInsert registers an active client connection for Player.
type ClientInsert struct {
	Client game.ClientID
	Player game.PlayerID
}

// ClientRemove drops an active connection. The player session is kept.
type ClientRemove struct {
	Client game.ClientID
}

// ClientTookPlace creates the session of a freshly placed player.
type ClientTookPlace struct {
	Client     game.ClientID
	Player     game.PlayerID
	Flag       game.Flag
	Window     space.Window
	Resolution space.Resolution
}

type ClientSetWindow struct {
	Client game.ClientID
	Window space.Window
}

type ClientSetResolution struct {
	Client     game.ClientID
	Resolution space.Resolution
}

// TaskPush registers a new task.
type TaskPush struct {
	Task game.Task
}

// TaskFinished removes a task whose end frame was reached.
type TaskFinished struct {
	Task game.Task
}

// TaskRemove cancels a task.
type TaskRemove struct {
	ID      game.TaskID
	Concern game.Concern
}

type TasksAdd struct {
	Tasks []game.Task
}

type TasksRemove struct {
	Concern game.Concern
	IDs     []game.TaskID
}

type CityNew struct {
	City game.City
}

type CityReplace struct {
	City game.City
}

type CityRemove struct {
	City game.City
}

type UnitNew struct {
	Unit game.Unit
}

// UnitReplace overwrites a unit. A different Point moves it between cells.
type UnitReplace struct {
	Unit game.Unit
}

type UnitRemove struct {
	Unit game.Unit
}

// Shine is a message sent as is to some clients.
type Shine struct {
	Message message.ServerMessage
	Clients []game.ClientID
}

// Shines bypass the state and are forwarded verbatim by reflection.
type Shines struct {
	Items []Shine
}

// Testing bumps a counter. Tests use it to observe application order.
type Testing struct{}

func (IncrementGameFrame) effect()  {}
func (ClientInsert) effect()        {}
func (ClientRemove) effect()        {}
func (ClientTookPlace) effect()     {}
func (ClientSetWindow) effect()     {}
func (ClientSetResolution) effect() {}
func (TaskPush) effect()            {}
func (TaskFinished) effect()        {}
func (TaskRemove) effect()          {}
func (TasksAdd) effect()            {}
func (TasksRemove) effect()         {}
func (CityNew) effect()             {}
func (CityReplace) effect()         {}
func (CityRemove) effect()          {}
func (UnitNew) effect()             {}
func (UnitReplace) effect()         {}
func (UnitRemove) effect()          {}
func (Shines) effect()              {}
func (Testing) effect()             {}

// Shining builds a Shines effect with a single message.
func Shining(msg message.ServerMessage, clients ...game.ClientID) Shines {
	return Shines{Items: []Shine{{Message: msg, Clients: clients}}}
}

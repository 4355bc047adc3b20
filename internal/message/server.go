package message

import (
	"fmt"

	"github.com/buxx/civ/internal/game"
	"github.com/buxx/civ/internal/space"
)

// ServerMessage is a message sent by the server to a client.
type ServerMessage interface {
	serverMessage()
}

// Resume describes the server to a client before it takes place.
type Resume struct {
	RuleSet uint32
	Flags   []game.Flag
}

// ServerResume carries the server resume and the flag of the player, nil
// when the player is not placed yet.
type ServerResume struct {
	Resume Resume
	Flag   *game.Flag
}

type RefusedReason uint8

const (
	RefusedFlagAlreadyTaken RefusedReason = iota
	RefusedNoPlace
)

type TakePlaceRefused struct {
	Reason RefusedReason
	Flag   game.Flag // set for RefusedFlagAlreadyTaken
}

func (r TakePlaceRefused) Error() string {
	switch r.Reason {
	case RefusedFlagAlreadyTaken:
		return fmt.Sprintf("flag %s already taken", r.Flag)
	case RefusedNoPlace:
		return "no place found"
	default:
		return "refused"
	}
}

type SetGameFrame struct {
	Frame game.Frame
}

type SetGameSlice struct {
	Slice *GameSlice
}

type SetWindow struct {
	Window space.Window
}

type SetCity struct {
	City ClientCity
}

type RemoveCity struct {
	Point space.Point
	ID    game.CityID
}

type SetUnit struct {
	Unit ClientUnit
}

type RemoveUnit struct {
	Point space.Point
	ID    game.UnitID
}

type AddTask struct {
	Concern game.Concern
	Task    ClientTask
}

type RemoveTask struct {
	Concern game.Concern
	ID      game.TaskID
}

type NotificationLevel uint8

const (
	LevelError NotificationLevel = iota
	LevelWarning
	LevelInfo
)

func (l NotificationLevel) String() string {
	switch l {
	case LevelError:
		return "Error"
	case LevelWarning:
		return "Warning"
	default:
		return "Info"
	}
}

type Notification struct {
	Level NotificationLevel
	Text  string
}

// Unauthorized is the notification sent when a client acts on an entity it
// does not own.
func Unauthorized() Notification {
	return Notification{Level: LevelError, Text: "Unauthorized"}
}

func (ServerResume) serverMessage()     {}
func (TakePlaceRefused) serverMessage() {}
func (SetGameFrame) serverMessage()     {}
func (SetGameSlice) serverMessage()     {}
func (SetWindow) serverMessage()        {}
func (SetCity) serverMessage()          {}
func (RemoveCity) serverMessage()       {}
func (SetUnit) serverMessage()          {}
func (RemoveUnit) serverMessage()       {}
func (AddTask) serverMessage()          {}
func (RemoveTask) serverMessage()       {}
func (Notification) serverMessage()     {}

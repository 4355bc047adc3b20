// Package message defines the client/server wire messages.
package message

import (
	"github.com/buxx/civ/internal/game"
	"github.com/buxx/civ/internal/space"
)

// Kind identifies a client message for dispatch.
type Kind uint16

const (
	KindHello Kind = iota + 1
	KindGoodbye
	KindTakePlace
	KindSetWindow
	KindUnitSettle
	KindUnitCancelTask
	KindCitySetProduction
	KindCitySetExploitation
)

var kindNames = map[Kind]string{
	KindHello:               "Hello",
	KindGoodbye:             "Goodbye",
	KindTakePlace:           "TakePlace",
	KindSetWindow:           "SetWindow",
	KindUnitSettle:          "Unit.Settle",
	KindUnitCancelTask:      "Unit.CancelCurrentTask",
	KindCitySetProduction:   "City.SetProduction",
	KindCitySetExploitation: "City.SetExploitation",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "Unknown"
}

// ClientMessage is a message sent by a client to the server.
type ClientMessage interface {
	Kind() Kind
}

// Hello opens or resumes the session of Player.
type Hello struct {
	Client     game.ClientID
	Player     game.PlayerID
	Resolution space.Resolution
}

type Goodbye struct{}

// TakePlace asks for a startup position under Flag.
type TakePlace struct {
	Flag       game.Flag
	Resolution space.Resolution
}

// SetWindowRequest moves the client window.
type SetWindowRequest struct {
	Window space.Window
}

type UnitSettle struct {
	Unit     game.UnitID
	CityName string
}

type UnitCancelTask struct {
	Unit game.UnitID
}

type CitySetProduction struct {
	City       game.CityID
	Production game.Production
}

type CitySetExploitation struct {
	City         game.CityID
	Exploitation game.Exploitation
}

func (Hello) Kind() Kind               { return KindHello }
func (Goodbye) Kind() Kind             { return KindGoodbye }
func (TakePlace) Kind() Kind           { return KindTakePlace }
func (SetWindowRequest) Kind() Kind    { return KindSetWindow }
func (UnitSettle) Kind() Kind          { return KindUnitSettle }
func (UnitCancelTask) Kind() Kind      { return KindUnitCancelTask }
func (CitySetProduction) Kind() Kind   { return KindCitySetProduction }
func (CitySetExploitation) Kind() Kind { return KindCitySetExploitation }

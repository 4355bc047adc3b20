// Package task implements the behaviour of the task variants: per tick
// effects and the terminal step producing effects and successor tasks.
package task

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/buxx/civ/internal/effect"
	"github.com/buxx/civ/internal/game"
	"github.com/buxx/civ/internal/rules"
	"github.com/buxx/civ/internal/state"
)

var (
	ErrCannotSettle   = errors.New("unit cannot settle")
	ErrEmptyCityName  = errors.New("city name is empty")
	ErrNoExploitation = errors.New("city exploitation produces nothing")
	ErrConcernGone    = errors.New("concerned entity no longer exists")
	ErrCityThere      = errors.New("a city already stands here")
)

// Sink persists the state. It is called from a worker holding the state
// read lock.
type Sink interface {
	WriteSnapshot(s *state.State) error
}

// Context is what a task sees when it completes. State is only valid
// during the call.
type Context struct {
	State *state.State
	Rules rules.RuleSet
	Sink  Sink
	Log   *zap.Logger
}

// Tick returns the effects of t for frame. No variant acts before its end.
func Tick(t game.Task, frame game.Frame) []effect.Effect {
	return nil
}

// Then completes t. It is called once, when the frame reaches t.End.
func Then(t game.Task, ctx Context) ([]effect.Effect, []game.Task, error) {
	switch t.Kind {
	case game.TaskSettle:
		return thenSettle(t, ctx)
	case game.TaskProduction:
		return thenProduction(t, ctx)
	case game.TaskSnapshot:
		return thenSnapshot(t, ctx)
	default:
		return nil, nil, fmt.Errorf("then of %s: unknown kind", t)
	}
}

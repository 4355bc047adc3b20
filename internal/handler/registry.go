package handler

import (
	"fmt"

	"github.com/buxx/civ/internal/effect"
	"github.com/buxx/civ/internal/game"
	"github.com/buxx/civ/internal/message"
	"github.com/buxx/civ/internal/state"
	"go.uber.org/zap"
)

// SessionState represents the protocol phase of a client.
type SessionState int

const (
	StateConnected SessionState = iota // connected, Hello not received yet
	StateLobby                         // hello received, no flag chosen
	StateInGame                        // player placed
)

func (s SessionState) String() string {
	switch s {
	case StateConnected:
		return "Connected"
	case StateLobby:
		return "Lobby"
	case StateInGame:
		return "InGame"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// SessionStateOf derives the phase of client from the client registry.
func SessionStateOf(s *state.State, client game.ClientID) SessionState {
	player, ok := s.Clients().Player(client)
	if !ok {
		return StateConnected
	}
	if _, placed := s.Clients().Session(player); placed {
		return StateInGame
	}
	return StateLobby
}

// Request is what a handler knows about the message it handles. State is
// read-locked for the duration of the call.
type Request struct {
	Client game.ClientID
	State  *state.State
}

// HandlerFunc translates a client message into effects.
type HandlerFunc func(req Request, msg message.ClientMessage) ([]effect.Effect, error)

type handlerEntry struct {
	fn            HandlerFunc
	allowedStates map[SessionState]bool
}

// Registry maps message kinds to handlers with state-based access control.
type Registry struct {
	handlers map[message.Kind]*handlerEntry
	log      *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		handlers: make(map[message.Kind]*handlerEntry),
		log:      log,
	}
}

// Register maps a message kind to a handler, restricted to the given session states.
func (reg *Registry) Register(kind message.Kind, states []SessionState, fn HandlerFunc) {
	allowed := make(map[SessionState]bool, len(states))
	for _, s := range states {
		allowed[s] = true
	}
	reg.handlers[kind] = &handlerEntry{
		fn:            fn,
		allowedStates: allowed,
	}
}

// Dispatch finds the handler for msg, validates the session state and calls
// the handler. Unknown kinds are ignored.
func (reg *Registry) Dispatch(req Request, sessionState SessionState, msg message.ClientMessage) ([]effect.Effect, error) {
	kind := msg.Kind()
	reg.log.Debug("message received",
		zap.Stringer("kind", kind),
		zap.Stringer("client", req.Client),
		zap.Stringer("state", sessionState),
	)

	entry, ok := reg.handlers[kind]
	if !ok {
		reg.log.Debug("unknown message kind", zap.Stringer("kind", kind), zap.Stringer("state", sessionState))
		return nil, nil
	}

	if !entry.allowedStates[sessionState] {
		reg.log.Warn("message not allowed in this state",
			zap.Stringer("kind", kind),
			zap.Stringer("state", sessionState),
		)
		return nil, fmt.Errorf("%w: %s in state %s", ErrNotAllowed, kind, sessionState)
	}

	return reg.safeCall(entry.fn, req, msg)
}

// safeCall executes a handler with panic recovery so a single bad message
// cannot stop the scheduler.
func (reg *Registry) safeCall(fn HandlerFunc, req Request, msg message.ClientMessage) (effects []effect.Effect, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			reg.log.Error("handler panic recovered",
				zap.Stringer("kind", msg.Kind()),
				zap.Any("panic", rec),
			)
			effects = nil
			err = fmt.Errorf("handler panic for %s: %v", msg.Kind(), rec)
		}
	}()
	return fn(req, msg)
}

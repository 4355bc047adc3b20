package system

import (
	"time"

	"go.uber.org/zap"

	coresys "github.com/buxx/civ/internal/core/system"
	"github.com/buxx/civ/internal/effect"
	"github.com/buxx/civ/internal/handler"
	"github.com/buxx/civ/internal/message"
	"github.com/buxx/civ/internal/net"
	"github.com/buxx/civ/internal/state"
)

// InputSystem accepts new sessions, drains the inbound queues and
// dispatches each message through the handler registry. Phase 0 (Input).
type InputSystem struct {
	acceptors  []net.Acceptor
	store      *net.SessionStore
	shared     *state.Shared
	dispatcher *handler.Dispatcher
	pipeline   *Pipeline
	maxPerTick int
	log        *zap.Logger
}

func NewInputSystem(
	acceptors []net.Acceptor,
	store *net.SessionStore,
	shared *state.Shared,
	dispatcher *handler.Dispatcher,
	pipeline *Pipeline,
	maxPerTick int,
	log *zap.Logger,
) *InputSystem {
	return &InputSystem{
		acceptors:  acceptors,
		store:      store,
		shared:     shared,
		dispatcher: dispatcher,
		pipeline:   pipeline,
		maxPerTick: max(maxPerTick, 1),
		log:        log,
	}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *InputSystem) Update(_ time.Duration) {
	for _, a := range s.acceptors {
		s.accept(a)
	}

	for _, sess := range s.store.Sessions() {
		closed := sess.IsClosed()
		s.drain(sess, closed)
		if closed {
			s.disconnect(sess)
		}
	}
}

func (s *InputSystem) accept(a net.Acceptor) {
	for {
		select {
		case sess := <-a.NewSessions():
			s.store.Add(sess)
		default:
			return
		}
	}
}

// drain dispatches up to maxPerTick messages of sess, or every queued
// message once the session is closed so nothing sent before a disconnect
// is lost.
func (s *InputSystem) drain(sess *net.Session, closed bool) {
	for n := 0; closed || n < s.maxPerTick; n++ {
		select {
		case msg := <-sess.InQueue:
			s.handle(sess, msg)
		default:
			return
		}
	}
}

func (s *InputSystem) handle(sess *net.Session, msg message.ClientMessage) {
	s.shared.Write(func(st *state.State) {
		effects := s.dispatcher.Handle(st, sess.Client, msg)
		s.pipeline.Apply(st, effects)
	})
}

// disconnect drops the active client of a closed session. The player
// session stays so the player can resume it.
func (s *InputSystem) disconnect(sess *net.Session) {
	s.shared.Write(func(st *state.State) {
		if _, active := st.Clients().Player(sess.Client); active {
			s.pipeline.Apply(st, []effect.Effect{effect.ClientRemove{Client: sess.Client}})
		}
	})
	s.store.Remove(sess.ID)
	s.log.Info("client disconnected",
		zap.Uint64("session", sess.ID),
		zap.Stringer("client", sess.Client),
		zap.String("ip", sess.IP),
		zap.Uint64("dropped", sess.Dropped()))
}

package system

import (
	"time"

	coresys "github.com/buxx/civ/internal/core/system"
	"github.com/buxx/civ/internal/net"
)

// OutputSystem moves the messages buffered during the tick to the session
// writers. Phase 3 (Output).
type OutputSystem struct {
	store *net.SessionStore
}

func NewOutputSystem(store *net.SessionStore) *OutputSystem {
	return &OutputSystem{store: store}
}

func (s *OutputSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *OutputSystem) Update(_ time.Duration) {
	s.store.ForEach(func(sess *net.Session) {
		sess.FlushOutput()
	})
}

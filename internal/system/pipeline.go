// Package system holds the systems run by the tick runner: input dispatch,
// task workers, game frame, output flushing and stats.
package system

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/buxx/civ/internal/effect"
	"github.com/buxx/civ/internal/game"
	"github.com/buxx/civ/internal/message"
	"github.com/buxx/civ/internal/state"
	"github.com/buxx/civ/internal/world"
)

// Router delivers a message to the session of a client. net.SessionStore
// is the router of the server.
type Router interface {
	Send(client game.ClientID, msg message.ServerMessage) bool
}

// Pipeline is the single write path: it applies effects to the state and
// routes the reflected messages.
type Pipeline struct {
	world  *world.Reader
	router Router
	log    *zap.Logger
}

func NewPipeline(w *world.Reader, router Router, log *zap.Logger) *Pipeline {
	return &Pipeline{world: w, router: router, log: log}
}

// Apply mutates s and reflects effects. The caller holds the write lock.
func (p *Pipeline) Apply(s *state.State, effects []effect.Effect) {
	if len(effects) == 0 {
		return
	}
	applied := s.Apply(effects)
	for _, err := range applied.Dropped {
		p.log.Error("effect dropped", zap.Uint64("frame", uint64(s.Frame())), zap.Error(err))
	}
	for _, out := range s.Reflect(effects, applied, p.world) {
		for _, client := range out.Clients {
			if !p.router.Send(client, out.Message) {
				p.log.Debug("no session for client",
					zap.Stringer("client", client),
					zap.String("message", fmt.Sprintf("%T", out.Message)))
			}
		}
	}
}

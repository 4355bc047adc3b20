package system

import (
	"time"

	coresys "github.com/buxx/civ/internal/core/system"
	"github.com/buxx/civ/internal/effect"
	"github.com/buxx/civ/internal/state"
)

// FrameSystem advances the game frame every ticksPerFrame ticks.
// Phase 2 (PostUpdate).
type FrameSystem struct {
	shared        *state.Shared
	pipeline      *Pipeline
	ticksPerFrame int
	tickCount     int
}

func NewFrameSystem(shared *state.Shared, pipeline *Pipeline, ticksPerFrame int) *FrameSystem {
	return &FrameSystem{
		shared:        shared,
		pipeline:      pipeline,
		ticksPerFrame: max(ticksPerFrame, 1),
	}
}

func (s *FrameSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *FrameSystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount < s.ticksPerFrame {
		return
	}
	s.tickCount = 0
	s.shared.Write(func(st *state.State) {
		s.pipeline.Apply(st, []effect.Effect{effect.IncrementGameFrame{}})
	})
}

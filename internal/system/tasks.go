package system

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	coresys "github.com/buxx/civ/internal/core/system"
	"github.com/buxx/civ/internal/state"
)

// TaskSystem runs a worker pass over the task list and applies the gathered
// effects. Phase 1 (Update).
type TaskSystem struct {
	pool     *Pool
	shared   *state.Shared
	pipeline *Pipeline
	fault    error
	log      *zap.Logger
}

func NewTaskSystem(pool *Pool, shared *state.Shared, pipeline *Pipeline, log *zap.Logger) *TaskSystem {
	return &TaskSystem{pool: pool, shared: shared, pipeline: pipeline, log: log}
}

func (s *TaskSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *TaskSystem) Update(_ time.Duration) {
	if s.fault != nil {
		return
	}
	effects, err := s.pool.Run()
	if err != nil {
		s.fault = fmt.Errorf("task workers: %w", err)
		s.log.Error("task workers failed, stopping", zap.Error(err))
		return
	}
	if len(effects) == 0 {
		return
	}
	s.shared.Write(func(st *state.State) {
		s.pipeline.Apply(st, effects)
	})
}

// Fault returns the worker error that stopped the system, if any.
func (s *TaskSystem) Fault() error {
	return s.fault
}

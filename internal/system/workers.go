package system

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"go.uber.org/zap"

	"github.com/buxx/civ/internal/effect"
	"github.com/buxx/civ/internal/rules"
	"github.com/buxx/civ/internal/state"
	"github.com/buxx/civ/internal/task"
)

// span is a half-open range of the task list.
type span struct {
	from, to int
}

// splitTasks cuts count tasks into n contiguous slices of equal size. The
// last slice absorbs the remainder.
func splitTasks(count, n int) []span {
	if n <= 0 {
		return nil
	}
	size := count / n
	out := make([]span, n)
	for i := range out {
		out[i] = span{from: i * size, to: (i + 1) * size}
	}
	out[n-1].to = count
	return out
}

type workerResult struct {
	effects []effect.Effect
	err     error
}

type worker struct {
	index   int
	start   chan struct{}
	results chan workerResult
}

// Pool runs the tasks on a fixed set of worker goroutines. Each pass every
// worker read-locks the state and ticks its own slice of the task list.
type Pool struct {
	shared  *state.Shared
	rules   rules.RuleSet
	sink    task.Sink
	workers []*worker
	wg      sync.WaitGroup
	log     *zap.Logger
}

// NewPool starts n workers. Stop must be called to release them.
func NewPool(n int, shared *state.Shared, rs rules.RuleSet, sink task.Sink, log *zap.Logger) *Pool {
	n = max(n, 1)
	p := &Pool{
		shared:  shared,
		rules:   rs,
		sink:    sink,
		workers: make([]*worker, n),
		log:     log.With(zap.String("component", "workers")),
	}
	for i := range p.workers {
		w := &worker{
			index:   i,
			start:   make(chan struct{}),
			results: make(chan workerResult, 1),
		}
		p.workers[i] = w
		p.wg.Add(1)
		go p.loop(w)
	}
	return p
}

func (p *Pool) Size() int {
	return len(p.workers)
}

// Run makes one pass over the tasks and returns the effects gathered in
// worker order. Any worker error is returned; the effects are then
// incomplete and must not be applied.
func (p *Pool) Run() ([]effect.Effect, error) {
	for _, w := range p.workers {
		w.start <- struct{}{}
	}
	var (
		effects []effect.Effect
		errs    []error
	)
	for _, w := range p.workers {
		r := <-w.results
		if r.err != nil {
			errs = append(errs, r.err)
			continue
		}
		effects = append(effects, r.effects...)
	}
	return effects, errors.Join(errs...)
}

// Stop releases the workers and waits for them.
func (p *Pool) Stop() {
	for _, w := range p.workers {
		close(w.start)
	}
	p.wg.Wait()
}

func (p *Pool) loop(w *worker) {
	defer p.wg.Done()
	for range w.start {
		effects, err := p.pass(w)
		w.results <- workerResult{effects: effects, err: err}
	}
}

func (p *Pool) pass(w *worker) (effects []effect.Effect, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("worker panic",
				zap.Int("worker", w.index),
				zap.Any("panic", r),
				zap.String("stack", string(debug.Stack())))
			effects, err = nil, fmt.Errorf("worker %d panic: %v", w.index, r)
		}
	}()

	p.shared.Read(func(s *state.State) {
		tasks := s.Tasks()
		part := splitTasks(len(tasks), len(p.workers))[w.index]
		frame := s.Frame()
		ctx := task.Context{State: s, Rules: p.rules, Sink: p.sink, Log: p.log}

		for _, t := range tasks[part.from:part.to] {
			effects = append(effects, task.Tick(t, frame)...)
			if !t.Finished(frame) {
				continue
			}
			effects = append(effects, effect.TaskFinished{Task: t})
			then, next, err := task.Then(t, ctx)
			if err != nil {
				p.log.Error("task completion failed",
					zap.Stringer("task", t.ID),
					zap.Stringer("kind", t.Kind),
					zap.Uint64("frame", uint64(frame)),
					zap.Error(err))
				continue
			}
			effects = append(effects, then...)
			for _, n := range next {
				effects = append(effects, effect.TaskPush{Task: n})
			}
		}
	})
	return effects, nil
}

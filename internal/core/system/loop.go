package system

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Loop runs the runner at a fixed rate. A tick that overruns its period
// adds the overrun to a lag register which later ticks pay back by sleeping
// less.
type Loop struct {
	runner *Runner
	period time.Duration
	lag    time.Duration
	log    *zap.Logger
}

// NewLoop paces runner at ticksPerSecond.
func NewLoop(runner *Runner, ticksPerSecond int, log *zap.Logger) *Loop {
	if ticksPerSecond <= 0 {
		ticksPerSecond = 1
	}
	return &Loop{
		runner: runner,
		period: time.Second / time.Duration(ticksPerSecond),
		log:    log,
	}
}

func (l *Loop) Period() time.Duration {
	return l.period
}

// Lag returns the accumulated overrun not yet paid back.
func (l *Loop) Lag() time.Duration {
	return l.lag
}

// Run ticks until ctx is done or a system faults.
func (l *Loop) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		start := time.Now()
		if err := l.runner.Tick(l.period); err != nil {
			l.log.Error("scheduler stopped", zap.Uint64("tick", l.runner.Ticks()), zap.Error(err))
			return err
		}

		sleep := l.pace(time.Since(start))
		if sleep <= 0 {
			continue
		}
		timer.Reset(sleep)
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
	}
}

// pace returns how long to sleep after a tick that took elapsed, and
// updates the lag register.
func (l *Loop) pace(elapsed time.Duration) time.Duration {
	sleep := l.period - elapsed - l.lag
	if sleep >= 0 {
		l.lag = 0
		return sleep
	}
	l.lag = -sleep
	if l.lag > l.period {
		l.log.Debug("tick overrun", zap.Duration("elapsed", elapsed), zap.Duration("lag", l.lag))
	}
	return 0
}

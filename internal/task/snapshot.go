package task

import (
	"go.uber.org/zap"

	"github.com/buxx/civ/internal/effect"
	"github.com/buxx/civ/internal/game"
)

// NewSnapshot builds a snapshot task completing interval frames after frame.
func NewSnapshot(target string, frame game.Frame, interval uint64) game.Task {
	return game.Task{
		ID:       game.NewTaskID(),
		Start:    frame,
		End:      frame.Add(interval),
		Kind:     game.TaskSnapshot,
		Snapshot: &game.SnapshotTask{Target: target},
	}
}

// thenSnapshot writes the state and schedules the next snapshot. A failed
// write is logged and does not stop the simulation.
func thenSnapshot(t game.Task, ctx Context) ([]effect.Effect, []game.Task, error) {
	if ctx.Sink != nil {
		if err := ctx.Sink.WriteSnapshot(ctx.State); err != nil {
			ctx.Log.Error("snapshot write failed",
				zap.String("target", t.Snapshot.Target),
				zap.Uint64("frame", uint64(ctx.State.Frame())),
				zap.Error(err))
		} else {
			ctx.Log.Info("snapshot written",
				zap.String("target", t.Snapshot.Target),
				zap.Uint64("frame", uint64(ctx.State.Frame())))
		}
	}
	next := NewSnapshot(t.Snapshot.Target, ctx.State.Frame(), uint64(t.End-t.Start))
	return nil, []game.Task{next}, nil
}

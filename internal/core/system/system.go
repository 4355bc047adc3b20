package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: accept sessions, drain and dispatch client messages
	PhaseUpdate                  // 1: task workers
	PhasePostUpdate              // 2: game frame
	PhaseOutput                  // 3: flush outbound messages
	PhaseCleanup                 // 4: stats
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "Input"
	case PhaseUpdate:
		return "Update"
	case PhasePostUpdate:
		return "PostUpdate"
	case PhaseOutput:
		return "Output"
	case PhaseCleanup:
		return "Cleanup"
	default:
		return "Unknown"
	}
}

// System is one step of a tick.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}

// Faulter is implemented by systems that can fail in a way the scheduler
// must not survive.
type Faulter interface {
	Fault() error
}

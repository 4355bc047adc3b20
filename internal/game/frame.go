package game

import "strconv"

const (
	// GameFramesPerSecond is the nominal number of game frames per real second.
	GameFramesPerSecond = 10
	// ProductionFramesPerTons is the number of frames needed to produce one
	// ton at a rate of one ton.
	ProductionFramesPerTons = GameFramesPerSecond * 10 * 60
	// FrameProductionTonsRatio converts produced frames back into tons.
	FrameProductionTonsRatio = 1.0 / float64(ProductionFramesPerTons)
)

// Frame is the logical clock of the simulation. All durations are frames.
type Frame uint64

func (f Frame) Add(frames uint64) Frame {
	return f + Frame(frames)
}

// Since returns the number of frames elapsed from start, zero when start is
// in the future.
func (f Frame) Since(start Frame) uint64 {
	if f < start {
		return 0
	}
	return uint64(f - start)
}

func (f Frame) String() string {
	return strconv.FormatUint(uint64(f), 10)
}

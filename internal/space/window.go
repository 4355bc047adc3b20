package space

import (
	"errors"
	"fmt"
)

// DisplayStep is the zoom level of a window. It decides whether cities and
// units are included in game slices.
type DisplayStep uint8

const (
	StepClose DisplayStep = iota
	StepHigh
	StepMap
)

const (
	closeShapeLimit = 16_384
	highShapeLimit  = 524_288
)

const (
	// MaxWindowSide bounds both sides of a client window or resolution. The
	// largest window slice stays below the frame size limit.
	MaxWindowSide = 1024
	// MaxCoordinate bounds window corners on both axes.
	MaxCoordinate = 1 << 40
)

var (
	ErrWindowTooLarge     = errors.New("window too large")
	ErrWindowOutOfRange   = errors.New("window out of range")
	ErrResolutionTooLarge = errors.New("resolution too large")
)

// StepFromShape derives the display step from a window area.
func StepFromShape(shape uint64) DisplayStep {
	switch {
	case shape < closeShapeLimit:
		return StepClose
	case shape < highShapeLimit:
		return StepHigh
	default:
		return StepMap
	}
}

func (s DisplayStep) IncludeCities() bool {
	return s == StepClose || s == StepHigh
}

func (s DisplayStep) IncludeUnits() bool {
	return s == StepClose || s == StepHigh
}

func (s DisplayStep) String() string {
	switch s {
	case StepClose:
		return "Close"
	case StepHigh:
		return "High"
	case StepMap:
		return "Map"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(s))
	}
}

// Window is an inclusive rectangle of world points.
type Window struct {
	Start Point
	End   Point
	Step  DisplayStep
}

// NewWindow builds a window with its display step derived from its area.
// Start and End are reordered when given reversed.
func NewWindow(start, end Point) Window {
	if end.X < start.X {
		start.X, end.X = end.X, start.X
	}
	if end.Y < start.Y {
		start.Y, end.Y = end.Y, start.Y
	}
	w := Window{Start: start, End: end}
	w.Step = StepFromShape(w.Shape())
	return w
}

// FromAround builds the window of the given resolution centered on center.
func FromAround(center Point, res Resolution) Window {
	width := int64(max(res.Width, 1))
	height := int64(max(res.Height, 1))
	start := Point{X: center.X - width/2, Y: center.Y - height/2}
	end := Point{X: start.X + width - 1, Y: start.Y + height - 1}
	return NewWindow(start, end)
}

// Validate rejects windows a client may not ask for: corners beyond
// MaxCoordinate or a side longer than MaxWindowSide.
func (w Window) Validate() error {
	for _, v := range []int64{w.Start.X, w.Start.Y, w.End.X, w.End.Y} {
		if v > MaxCoordinate || v < -MaxCoordinate {
			return fmt.Errorf("%w: %s", ErrWindowOutOfRange, w)
		}
	}
	if w.End.X < w.Start.X || w.End.Y < w.Start.Y {
		return fmt.Errorf("%w: %s", ErrWindowOutOfRange, w)
	}
	if w.Width() > MaxWindowSide || w.Height() > MaxWindowSide {
		return fmt.Errorf("%w: %dx%d, max %d", ErrWindowTooLarge, w.Width(), w.Height(), MaxWindowSide)
	}
	return nil
}

func (w Window) Width() uint64 {
	return uint64(w.End.X-w.Start.X) + 1
}

func (w Window) Height() uint64 {
	return uint64(w.End.Y-w.Start.Y) + 1
}

func (w Window) Shape() uint64 {
	return w.Width() * w.Height()
}

func (w Window) Contains(p Point) bool {
	return p.X >= w.Start.X && p.X <= w.End.X && p.Y >= w.Start.Y && p.Y <= w.End.Y
}

// Center returns the middle point, rounded toward the start.
func (w Window) Center() Point {
	return Point{
		X: w.Start.X + int64(w.Width()/2),
		Y: w.Start.Y + int64(w.Height()/2),
	}
}

// Clip returns the part of w inside a world of the given size, or false
// when they do not intersect.
func (w Window) Clip(size Size) (Window, bool) {
	if size.Width == 0 || size.Height == 0 {
		return Window{}, false
	}
	start := Point{X: max(w.Start.X, 0), Y: max(w.Start.Y, 0)}
	end := Point{X: min(w.End.X, int64(size.Width)-1), Y: min(w.End.Y, int64(size.Height)-1)}
	if start.X > end.X || start.Y > end.Y {
		return Window{}, false
	}
	return Window{Start: start, End: end, Step: w.Step}, true
}

func (w Window) String() string {
	return fmt.Sprintf("%s:%s(%s)", w.Start, w.End, w.Step)
}

package space

import "errors"

var ErrOutOfGrid = errors.New("point out of grid")

// Grid2D is a dense row-major array of optional values keyed by point.
// A nil cell is an empty cell.
type Grid2D[T any] struct {
	size  Size
	cells []*T
}

func NewGrid2D[T any](size Size) *Grid2D[T] {
	return &Grid2D[T]{
		size:  size,
		cells: make([]*T, size.Shape()),
	}
}

func (g *Grid2D[T]) Size() Size {
	return g.size
}

// Index returns the row-major index of p, or false when p is outside.
func (g *Grid2D[T]) Index(p Point) (int, bool) {
	if !g.size.Contains(p) {
		return 0, false
	}
	return int(uint64(p.Y)*g.size.Width + uint64(p.X)), true
}

func (g *Grid2D[T]) PointOf(index int) Point {
	w := int64(g.size.Width)
	return Point{X: int64(index) % w, Y: int64(index) / w}
}

// Get returns the value stored at p, nil when the cell is empty or p is
// outside the grid.
func (g *Grid2D[T]) Get(p Point) *T {
	i, ok := g.Index(p)
	if !ok {
		return nil
	}
	return g.cells[i]
}

// Set overwrites the cell at p. A nil value empties the cell.
func (g *Grid2D[T]) Set(p Point, value *T) error {
	i, ok := g.Index(p)
	if !ok {
		return ErrOutOfGrid
	}
	g.cells[i] = value
	return nil
}

// Slice returns the cells covered by w, row-major and aligned on w.Start.
// Cells outside the grid are nil.
func (g *Grid2D[T]) Slice(w Window) []*T {
	out := make([]*T, 0, w.Shape())
	for y := w.Start.Y; y <= w.End.Y; y++ {
		for x := w.Start.X; x <= w.End.X; x++ {
			out = append(out, g.Get(Point{X: x, Y: y}))
		}
	}
	return out
}

// Each calls fn for every non-empty cell in index order.
func (g *Grid2D[T]) Each(fn func(Point, *T)) {
	for i, v := range g.cells {
		if v != nil {
			fn(g.PointOf(i), v)
		}
	}
}

// EachIn calls fn for every non-empty cell covered by w.
func (g *Grid2D[T]) EachIn(w Window, fn func(Point, *T)) {
	clipped, ok := w.Clip(g.size)
	if !ok {
		return
	}
	for y := clipped.Start.Y; y <= clipped.End.Y; y++ {
		for x := clipped.Start.X; x <= clipped.End.X; x++ {
			p := Point{X: x, Y: y}
			if v := g.Get(p); v != nil {
				fn(p, v)
			}
		}
	}
}

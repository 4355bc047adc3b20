package space

import "fmt"

// Point is a world position. Coordinates are signed so windows may extend
// past the world edges; real points are the non-negative subset bounded by
// the world Size.
type Point struct {
	X int64
	Y int64
}

func NewPoint(x, y int64) Point {
	return Point{X: x, Y: y}
}

func (p Point) String() string {
	return fmt.Sprintf("%d.%d", p.X, p.Y)
}

// Add returns p translated by (dx, dy).
func (p Point) Add(dx, dy int64) Point {
	return Point{X: p.X + dx, Y: p.Y + dy}
}

// RelativeTo returns the offset of p from origin, or false when p lies
// before origin on either axis.
func (p Point) RelativeTo(origin Point) (Point, bool) {
	x := p.X - origin.X
	y := p.Y - origin.Y
	if x < 0 || y < 0 {
		return Point{}, false
	}
	return Point{X: x, Y: y}, true
}

// Size is the extent of a world or grid, in tiles.
type Size struct {
	Width  uint64
	Height uint64
}

func NewSize(width, height uint64) Size {
	return Size{Width: width, Height: height}
}

func (s Size) Shape() uint64 {
	return s.Width * s.Height
}

// Contains reports whether p is a real point of a world of this size.
func (s Size) Contains(p Point) bool {
	return p.X >= 0 && p.Y >= 0 && uint64(p.X) < s.Width && uint64(p.Y) < s.Height
}

// Resolution is the number of tiles a client displays on each axis.
type Resolution struct {
	Width  uint64
	Height uint64
}

func NewResolution(width, height uint64) Resolution {
	return Resolution{Width: width, Height: height}
}

// Validate rejects resolutions with a side longer than MaxWindowSide.
func (r Resolution) Validate() error {
	if r.Width > MaxWindowSide || r.Height > MaxWindowSide {
		return fmt.Errorf("%w: %dx%d, max %d", ErrResolutionTooLarge, r.Width, r.Height, MaxWindowSide)
	}
	return nil
}

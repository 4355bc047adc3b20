package message

import (
	"github.com/buxx/civ/internal/game"
	"github.com/buxx/civ/internal/space"
	"github.com/buxx/civ/internal/world"
)

// PartialWorld is the dense row-major set of tiles seen through a window.
type PartialWorld struct {
	Origin space.Point
	Width  uint64
	Height uint64
	Tiles  []world.CtxTile
}

// GameSlice is what a client window shows: tiles plus cities and unit
// stacks aligned on the same grid. Empty cells are nil.
type GameSlice struct {
	PartialWorld
	Cities []*ClientCity
	Units  [][]ClientUnit
}

// EmptySlice returns a slice of the given window with every tile outside
// the world and no entity.
func EmptySlice(w space.Window) *GameSlice {
	n := w.Width() * w.Height()
	tiles := make([]world.CtxTile, n)
	for i := range tiles {
		tiles[i] = world.OutsideTile()
	}
	return &GameSlice{
		PartialWorld: PartialWorld{Origin: w.Start, Width: w.Width(), Height: w.Height(), Tiles: tiles},
		Cities:       make([]*ClientCity, n),
		Units:        make([][]ClientUnit, n),
	}
}

func (p PartialWorld) Window() space.Window {
	return space.NewWindow(p.Origin, p.Origin.Add(int64(p.Width)-1, int64(p.Height)-1))
}

// Center returns the world point at the middle of the slice.
func (p PartialWorld) Center() space.Point {
	return p.Origin.Add(int64(p.Width/2), int64(p.Height/2))
}

// TryWorldPointForCenterRel converts an offset from the slice center into a
// real world point. It fails when the point is negative or beyond the slice.
func (p PartialWorld) TryWorldPointForCenterRel(rel space.Point) (space.Point, bool) {
	pt := p.Center().Add(rel.X, rel.Y)
	if pt.X < 0 || pt.Y < 0 ||
		pt.X > p.Origin.X+int64(p.Width)-1 ||
		pt.Y > p.Origin.Y+int64(p.Height)-1 {
		return space.Point{}, false
	}
	return pt, true
}

// RelativeTo returns the offset of a world point from the slice center, or
// false when the point is not covered by the slice.
func (p PartialWorld) RelativeTo(pt space.Point) (space.Point, bool) {
	if !p.Window().Contains(pt) {
		return space.Point{}, false
	}
	c := p.Center()
	return space.Point{X: pt.X - c.X, Y: pt.Y - c.Y}, true
}

func (p PartialWorld) index(pt space.Point) (int, bool) {
	rel, ok := pt.RelativeTo(p.Origin)
	if !ok || uint64(rel.X) >= p.Width || uint64(rel.Y) >= p.Height {
		return 0, false
	}
	return int(uint64(rel.Y)*p.Width + uint64(rel.X)), true
}

// Tile returns the tile at a world point covered by the slice.
func (p PartialWorld) Tile(pt space.Point) (world.CtxTile, bool) {
	i, ok := p.index(pt)
	if !ok || i >= len(p.Tiles) {
		return world.CtxTile{}, false
	}
	return p.Tiles[i], true
}

// City returns the city with the given id, or nil.
func (s *GameSlice) City(id game.CityID) *ClientCity {
	for _, c := range s.Cities {
		if c != nil && c.ID == id {
			return c
		}
	}
	return nil
}

// Unit returns the unit with the given id, or nil.
func (s *GameSlice) Unit(id game.UnitID) *ClientUnit {
	for _, stack := range s.Units {
		for i := range stack {
			if stack[i].ID == id {
				return &stack[i]
			}
		}
	}
	return nil
}

// UnitsAt returns the unit stack at a world point.
func (s *GameSlice) UnitsAt(pt space.Point) []ClientUnit {
	i, ok := s.index(pt)
	if !ok || i >= len(s.Units) {
		return nil
	}
	return s.Units[i]
}

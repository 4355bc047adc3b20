package world

import (
	"github.com/buxx/civ/internal/space"
)

// Reader gives read-only access to the tiles of a loaded world.
// It is never mutated after loading and is safe for concurrent use.
type Reader struct {
	size  space.Size
	tiles []Tile
}

// NewReader wraps row-major tiles of a world of the given size.
func NewReader(size space.Size, tiles []Tile) *Reader {
	return &Reader{size: size, tiles: tiles}
}

// Flat builds a world covered by a single terrain.
func Flat(size space.Size, terrain Terrain) *Reader {
	tiles := make([]Tile, size.Shape())
	for i := range tiles {
		tiles[i] = Tile{Terrain: terrain}
	}
	return NewReader(size, tiles)
}

func (r *Reader) Size() space.Size {
	return r.size
}

func (r *Reader) Width() uint64 {
	return r.size.Width
}

func (r *Reader) Height() uint64 {
	return r.size.Height
}

// Tile returns the tile at p, or false when p is outside the world.
func (r *Reader) Tile(p space.Point) (Tile, bool) {
	if !r.size.Contains(p) {
		return Tile{}, false
	}
	i := uint64(p.Y)*r.size.Width + uint64(p.X)
	if i >= uint64(len(r.tiles)) {
		return Tile{}, false
	}
	return r.tiles[i], true
}

// WindowTiles returns the tiles covered by w, row-major, with points outside
// the world reported as Outside.
func (r *Reader) WindowTiles(w space.Window) []CtxTile {
	out := make([]CtxTile, 0, w.Shape())
	for y := w.Start.Y; y <= w.End.Y; y++ {
		for x := w.Start.X; x <= w.End.X; x++ {
			if t, ok := r.Tile(space.NewPoint(x, y)); ok {
				out = append(out, Visible(t))
			} else {
				out = append(out, OutsideTile())
			}
		}
	}
	return out
}

// Tiles returns the backing row-major tiles.
func (r *Reader) Tiles() []Tile {
	return r.tiles
}

package state

import (
	"github.com/buxx/civ/internal/game"
	"github.com/buxx/civ/internal/space"
)

// windowCellSize is the side of a coarse cell, in tiles.
const windowCellSize = 32

// maxWindowCells bounds the cells a window is registered in. Larger
// windows go to the wide set and are checked on every lookup.
const maxWindowCells = 1024

type windowCell struct {
	cx int64
	cy int64
}

func toWindowCell(v int64) int64 {
	if v < 0 {
		return (v - windowCellSize + 1) / windowCellSize
	}
	return v / windowCellSize
}

// WindowGrid tracks which player windows overlap which coarse cells so
// reflection does not scan every session for every effect.
type WindowGrid struct {
	cells   map[windowCell]map[game.PlayerID]struct{}
	wide    map[game.PlayerID]struct{}
	windows map[game.PlayerID]space.Window
}

func NewWindowGrid() *WindowGrid {
	return &WindowGrid{
		cells:   make(map[windowCell]map[game.PlayerID]struct{}),
		wide:    make(map[game.PlayerID]struct{}),
		windows: make(map[game.PlayerID]space.Window),
	}
}

func cellSpan(w space.Window) (x0, y0, x1, y1 int64) {
	return toWindowCell(w.Start.X), toWindowCell(w.Start.Y), toWindowCell(w.End.X), toWindowCell(w.End.Y)
}

// Add registers a player window.
func (g *WindowGrid) Add(player game.PlayerID, w space.Window) {
	g.windows[player] = w
	x0, y0, x1, y1 := cellSpan(w)
	if (x1-x0+1)*(y1-y0+1) > maxWindowCells {
		g.wide[player] = struct{}{}
		return
	}
	for cy := y0; cy <= y1; cy++ {
		for cx := x0; cx <= x1; cx++ {
			k := windowCell{cx: cx, cy: cy}
			cell := g.cells[k]
			if cell == nil {
				cell = make(map[game.PlayerID]struct{})
				g.cells[k] = cell
			}
			cell[player] = struct{}{}
		}
	}
}

// Remove takes a player window out of the grid.
func (g *WindowGrid) Remove(player game.PlayerID) {
	w, ok := g.windows[player]
	if !ok {
		return
	}
	delete(g.windows, player)
	if _, ok := g.wide[player]; ok {
		delete(g.wide, player)
		return
	}
	x0, y0, x1, y1 := cellSpan(w)
	for cy := y0; cy <= y1; cy++ {
		for cx := x0; cx <= x1; cx++ {
			k := windowCell{cx: cx, cy: cy}
			if cell := g.cells[k]; cell != nil {
				delete(cell, player)
				if len(cell) == 0 {
					delete(g.cells, k)
				}
			}
		}
	}
}

// Move updates a player window.
func (g *WindowGrid) Move(player game.PlayerID, w space.Window) {
	if old, ok := g.windows[player]; ok && old == w {
		return
	}
	g.Remove(player)
	g.Add(player, w)
}

// Seeing returns the players whose window contains p.
func (g *WindowGrid) Seeing(p space.Point) []game.PlayerID {
	var result []game.PlayerID
	k := windowCell{cx: toWindowCell(p.X), cy: toWindowCell(p.Y)}
	for player := range g.cells[k] {
		if g.windows[player].Contains(p) {
			result = append(result, player)
		}
	}
	for player := range g.wide {
		if g.windows[player].Contains(p) {
			result = append(result, player)
		}
	}
	return result
}

// Package placer chooses the startup cell of new players.
package placer

import (
	"errors"
	"math/rand/v2"
	"sync"

	"github.com/buxx/civ/internal/rules"
	"github.com/buxx/civ/internal/space"
	"github.com/buxx/civ/internal/state"
	"github.com/buxx/civ/internal/world"
)

var ErrNoPlaceFound = errors.New("no place found")

// DefaultTrials is the number of random cells tried before giving up.
const DefaultTrials = 1000

// Placer returns a free cell on a tile the rule set accepts for startup.
// It is called with the state read lock held.
type Placer interface {
	Startup(rs rules.RuleSet, s *state.State, w *world.Reader) (space.Point, error)
}

// Random tries uniformly random cells.
type Random struct {
	mu     sync.Mutex
	rng    *rand.Rand
	trials int
}

// NewRandom returns a placer seeded with seed.
func NewRandom(seed uint64) *Random {
	return &Random{
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		trials: DefaultTrials,
	}
}

func (p *Random) Startup(rs rules.RuleSet, s *state.State, w *world.Reader) (space.Point, error) {
	if w.Width() == 0 || w.Height() == 0 {
		return space.Point{}, ErrNoPlaceFound
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for range p.trials {
		pt := space.NewPoint(int64(p.rng.Uint64N(w.Width())), int64(p.rng.Uint64N(w.Height())))
		if Acceptable(rs, s, w, pt) {
			return pt, nil
		}
	}
	return space.Point{}, ErrNoPlaceFound
}

// Acceptable reports whether pt may host a new player.
func Acceptable(rs rules.RuleSet, s *state.State, w *world.Reader, pt space.Point) bool {
	tile, ok := w.Tile(pt)
	if !ok || !rs.CanBeStartup(tile) {
		return false
	}
	return !s.Occupied(pt)
}

// Fixed always answers the same point, or Err when set.
type Fixed struct {
	Point space.Point
	Err   error
}

func (p Fixed) Startup(rules.RuleSet, *state.State, *world.Reader) (space.Point, error) {
	if p.Err != nil {
		return space.Point{}, p.Err
	}
	return p.Point, nil
}

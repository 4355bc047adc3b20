package state

import (
	"github.com/buxx/civ/internal/game"
	"github.com/buxx/civ/internal/message"
	"github.com/buxx/civ/internal/space"
	"github.com/buxx/civ/internal/world"
)

// GameSlice builds the slice seen through w. Cities and units are left out
// when the window display step excludes them.
func (s *State) GameSlice(tiles *world.Reader, w space.Window) *message.GameSlice {
	slice := message.EmptySlice(w)
	if tiles != nil {
		slice.Tiles = tiles.WindowTiles(w)
	}
	if w.Step.IncludeCities() {
		for i, c := range s.cities.Slice(w) {
			if c != nil {
				cc := message.ClientCityFrom(*c)
				slice.Cities[i] = &cc
			}
		}
	}
	if w.Step.IncludeUnits() {
		for i, stack := range s.units.Slice(w) {
			if stack == nil {
				continue
			}
			units := make([]message.ClientUnit, 0, len(*stack))
			for _, u := range *stack {
				units = append(units, message.ClientUnitFrom(u))
			}
			slice.Units[i] = units
		}
	}
	return slice
}

// Resume describes the server to a client: rule set and taken flags.
func (s *State) Resume(ruleSet uint32) message.Resume {
	return message.Resume{RuleSet: ruleSet, Flags: s.clients.Flags()}
}

// PlayerFlag returns the flag of the player behind client, nil when the
// player has not taken place.
func (s *State) PlayerFlag(client game.ClientID) *game.Flag {
	session, ok := s.clients.SessionOf(client)
	if !ok {
		return nil
	}
	f := session.Flag
	return &f
}

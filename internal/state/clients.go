package state

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/buxx/civ/internal/game"
	"github.com/buxx/civ/internal/space"
)

var (
	ErrFlagTaken = errors.New("flag already taken")
	ErrNoSession = errors.New("no player session")
	ErrNoClient  = errors.New("client not connected")
)

// PlayerState is the persisted session of a placed player.
type PlayerState struct {
	Flag       game.Flag
	Window     space.Window
	Resolution space.Resolution
}

type activeClient struct {
	player game.PlayerID
	seq    uint64
}

// Clients tracks the live connections and the player sessions. Sessions
// outlive connections: a player reconnecting with a new client id finds
// its session back.
type Clients struct {
	active  map[game.ClientID]activeClient
	byPlay  map[game.PlayerID][]game.ClientID
	players map[game.PlayerID]*PlayerState
	flags   map[game.Flag]game.PlayerID
	windows *WindowGrid
	seq     uint64
}

func NewClients() *Clients {
	return &Clients{
		active:  make(map[game.ClientID]activeClient),
		byPlay:  make(map[game.PlayerID][]game.ClientID),
		players: make(map[game.PlayerID]*PlayerState),
		flags:   make(map[game.Flag]game.PlayerID),
		windows: NewWindowGrid(),
	}
}

// Insert registers an active connection. Inserting a known client is a no-op.
func (c *Clients) Insert(client game.ClientID, player game.PlayerID) {
	if _, ok := c.active[client]; ok {
		return
	}
	c.seq++
	c.active[client] = activeClient{player: player, seq: c.seq}
	c.byPlay[player] = append(c.byPlay[player], client)
}

func (c *Clients) Remove(client game.ClientID) {
	a, ok := c.active[client]
	if !ok {
		return
	}
	delete(c.active, client)
	ids := slices.DeleteFunc(c.byPlay[a.player], func(id game.ClientID) bool { return id == client })
	if len(ids) == 0 {
		delete(c.byPlay, a.player)
	} else {
		c.byPlay[a.player] = ids
	}
}

// Player returns the player of an active client.
func (c *Clients) Player(client game.ClientID) (game.PlayerID, bool) {
	a, ok := c.active[client]
	return a.player, ok
}

// Session returns a copy of a player session.
func (c *Clients) Session(player game.PlayerID) (PlayerState, bool) {
	s, ok := c.players[player]
	if !ok {
		return PlayerState{}, false
	}
	return *s, true
}

// SessionOf returns the session of the player behind an active client.
func (c *Clients) SessionOf(client game.ClientID) (PlayerState, bool) {
	player, ok := c.Player(client)
	if !ok {
		return PlayerState{}, false
	}
	return c.Session(player)
}

// Sessions returns copies of every player session.
func (c *Clients) Sessions() map[game.PlayerID]PlayerState {
	out := make(map[game.PlayerID]PlayerState, len(c.players))
	for id, s := range c.players {
		out[id] = *s
	}
	return out
}

func (c *Clients) FlagTaken(flag game.Flag) bool {
	_, ok := c.flags[flag]
	return ok
}

// Flags lists the taken flags in ascending order.
func (c *Clients) Flags() []game.Flag {
	out := make([]game.Flag, 0, len(c.flags))
	for f := range c.flags {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}

// TookPlace creates the session of player under flag.
func (c *Clients) TookPlace(player game.PlayerID, flag game.Flag, w space.Window, res space.Resolution) error {
	if owner, ok := c.flags[flag]; ok && owner != player {
		return fmt.Errorf("player %s: %w: %s", player, ErrFlagTaken, flag)
	}
	if old, ok := c.players[player]; ok && old.Flag != flag {
		delete(c.flags, old.Flag)
	}
	c.players[player] = &PlayerState{Flag: flag, Window: w, Resolution: res}
	c.flags[flag] = player
	c.windows.Move(player, w)
	return nil
}

func (c *Clients) SetWindow(player game.PlayerID, w space.Window) error {
	s, ok := c.players[player]
	if !ok {
		return fmt.Errorf("set window of %s: %w", player, ErrNoSession)
	}
	s.Window = w
	c.windows.Move(player, w)
	return nil
}

func (c *Clients) SetResolution(player game.PlayerID, res space.Resolution) error {
	s, ok := c.players[player]
	if !ok {
		return fmt.Errorf("set resolution of %s: %w", player, ErrNoSession)
	}
	s.Resolution = res
	return nil
}

func (c *Clients) ActiveCount() int  { return len(c.active) }
func (c *Clients) PlayersCount() int { return len(c.players) }

// Active lists the active clients in connection order.
func (c *Clients) Active() []game.ClientID {
	out := make([]game.ClientID, 0, len(c.active))
	for id := range c.active {
		out = append(out, id)
	}
	c.sortBySeq(out)
	return out
}

// Seeing lists the active clients whose window contains p, in connection
// order.
func (c *Clients) Seeing(p space.Point) []game.ClientID {
	var out []game.ClientID
	for _, player := range c.windows.Seeing(p) {
		out = append(out, c.byPlay[player]...)
	}
	c.sortBySeq(out)
	return out
}

func (c *Clients) sortBySeq(ids []game.ClientID) {
	slices.SortFunc(ids, func(a, b game.ClientID) int {
		return cmp.Compare(c.active[a].seq, c.active[b].seq)
	})
}

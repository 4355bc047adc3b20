package snapshot

import (
	"bytes"
	"slices"

	"github.com/buxx/civ/internal/game"
	"github.com/buxx/civ/internal/net/packet"
	"github.com/buxx/civ/internal/space"
	"github.com/buxx/civ/internal/state"
)

func writePoint(w *packet.Writer, p space.Point) {
	w.WriteI64(p.X)
	w.WriteI64(p.Y)
}

func readPoint(r *packet.Reader) space.Point {
	return space.NewPoint(r.ReadI64(), r.ReadI64())
}

func writeRef(w *packet.Writer, ref game.TaskRef) {
	w.WriteUUID(ref.ID)
	w.WriteTag(uint32(ref.Kind))
	w.WriteU64(uint64(ref.Start))
	w.WriteU64(uint64(ref.End))
}

func readRef(r *packet.Reader) game.TaskRef {
	return game.TaskRef{
		ID:    game.TaskID(r.ReadUUID()),
		Kind:  game.TaskKind(r.ReadTag()),
		Start: game.Frame(r.ReadU64()),
		End:   game.Frame(r.ReadU64()),
	}
}

func writeUnit(w *packet.Writer, u game.Unit) {
	w.WriteUUID(u.ID)
	w.WriteU32(uint32(u.Type))
	w.WriteU32(uint32(u.Flag))
	writePoint(w, u.Point)
	w.WriteBool(u.Task != nil)
	if u.Task != nil {
		writeRef(w, *u.Task)
	}
	w.WriteU32(uint32(len(u.Can)))
	for _, c := range u.Can {
		w.WriteU32(uint32(c))
	}
}

func readUnit(r *packet.Reader) game.Unit {
	u := game.Unit{
		ID:    game.UnitID(r.ReadUUID()),
		Type:  game.UnitType(r.ReadU32()),
		Flag:  game.Flag(r.ReadU32()),
		Point: readPoint(r),
	}
	if r.ReadBool() {
		ref := readRef(r)
		u.Task = &ref
	}
	n := r.ReadLen(4)
	for range n {
		u.Can = append(u.Can, game.UnitCan(r.ReadU32()))
	}
	return u
}

func writeCity(w *packet.Writer, c game.City) {
	w.WriteUUID(c.ID)
	w.WriteU32(uint32(c.Flag))
	w.WriteString(c.Name)
	writePoint(w, c.Point)
	w.WriteU32(uint32(len(c.Production.Queue)))
	for _, p := range c.Production.Queue {
		w.WriteTag(uint32(p.Kind))
		w.WriteU32(uint32(p.Unit))
	}
	w.WriteU64(uint64(c.Exploitation.Tons))
	writeRef(w, c.Tasks.Production)
}

func readCity(r *packet.Reader) game.City {
	c := game.City{
		ID:    game.CityID(r.ReadUUID()),
		Flag:  game.Flag(r.ReadU32()),
		Name:  r.ReadString(),
		Point: readPoint(r),
	}
	n := r.ReadLen(8)
	for range n {
		kind := game.ProductKind(r.ReadTag())
		c.Production.Queue = append(c.Production.Queue, game.Product{Kind: kind, Unit: game.UnitType(r.ReadU32())})
	}
	if n == 0 {
		r.Failf("city %s: empty production queue", c.ID)
	}
	c.Exploitation = game.NewExploitation(game.Tons(r.ReadU64()))
	c.Tasks.Production = readRef(r)
	return c
}

func writeTask(w *packet.Writer, t game.Task) {
	w.WriteUUID(t.ID)
	w.WriteU64(uint64(t.Start))
	w.WriteU64(uint64(t.End))
	w.WriteTag(uint32(t.Kind))
	switch t.Kind {
	case game.TaskSettle:
		writeUnit(w, t.Settle.Unit)
		w.WriteString(t.Settle.CityName)
	case game.TaskProduction:
		w.WriteUUID(t.Production.City)
		writePoint(w, t.Production.Point)
		w.WriteU64(uint64(t.Production.Tons))
	case game.TaskSnapshot:
		w.WriteString(t.Snapshot.Target)
	}
}

func readTask(r *packet.Reader) game.Task {
	t := game.Task{
		ID:    game.TaskID(r.ReadUUID()),
		Start: game.Frame(r.ReadU64()),
		End:   game.Frame(r.ReadU64()),
		Kind:  game.TaskKind(r.ReadTag()),
	}
	switch t.Kind {
	case game.TaskSettle:
		unit := readUnit(r)
		t.Settle = &game.SettleTask{Unit: unit, CityName: r.ReadString()}
	case game.TaskProduction:
		t.Production = &game.ProductionTask{
			City:  game.CityID(r.ReadUUID()),
			Point: readPoint(r),
			Tons:  game.Tons(r.ReadU64()),
		}
	case game.TaskSnapshot:
		t.Snapshot = &game.SnapshotTask{Target: r.ReadString()}
	default:
		r.Failf("task %s: unknown kind %d", t.ID, uint32(t.Kind))
	}
	return t
}

// sortedPlayers orders sessions so equal states encode to equal bytes.
func sortedPlayers(sessions map[game.PlayerID]state.PlayerState) []game.PlayerID {
	players := make([]game.PlayerID, 0, len(sessions))
	for p := range sessions {
		players = append(players, p)
	}
	slices.SortFunc(players, func(a, b game.PlayerID) int {
		return bytes.Compare(a[:], b[:])
	})
	return players
}

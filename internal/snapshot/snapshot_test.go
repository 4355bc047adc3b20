package snapshot

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap/zaptest"

	"github.com/buxx/civ/internal/effect"
	"github.com/buxx/civ/internal/game"
	"github.com/buxx/civ/internal/rules"
	"github.com/buxx/civ/internal/space"
	"github.com/buxx/civ/internal/state"
	"github.com/buxx/civ/internal/task"
)

// populated builds a state with one player, a settler with a settle task,
// a city with its production task and a snapshot task.
func populated(t *testing.T) *state.State {
	t.Helper()
	s := state.New(space.NewSize(8, 6))
	player := game.NewPlayerID()
	client := game.NewClientID()
	window := space.FromAround(space.NewPoint(2, 2), space.NewResolution(5, 5))

	settler := game.Unit{
		ID:    game.NewUnitID(),
		Type:  game.UnitSettlers,
		Flag:  game.FlagAbkhazia,
		Point: space.NewPoint(1, 1),
		Can:   []game.UnitCan{game.CanSettle},
	}
	settle, err := task.NewSettle(rules.Std1{}, settler, "Gagra", 0)
	if err != nil {
		t.Fatal(err)
	}
	ref := game.RefOf(settle)
	gen := task.CityGenerator{Rules: rules.Std1{}}
	city, production, err := gen.Generate(task.Scratch{Name: "Sokhumi", Flag: game.FlagAbkhazia, Point: space.NewPoint(4, 3)})
	if err != nil {
		t.Fatal(err)
	}

	applied := s.Apply([]effect.Effect{
		effect.ClientTookPlace{Client: client, Player: player, Flag: game.FlagAbkhazia, Window: window, Resolution: space.NewResolution(5, 5)},
		effect.UnitNew{Unit: settler.WithTask(&ref)},
		effect.TaskPush{Task: settle},
		effect.CityNew{City: city},
		effect.TaskPush{Task: production},
		effect.TaskPush{Task: task.NewSnapshot("test", 0, 100)},
		effect.IncrementGameFrame{},
		effect.IncrementGameFrame{},
	})
	if err := errors.Join(applied.Dropped...); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestRoundTrip(t *testing.T) {
	s := populated(t)
	data, err := Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatal(err)
	}

	if got.Frame() != 2 || got.Size() != s.Size() {
		t.Fatalf("frame %d size %+v", got.Frame(), got.Size())
	}
	if !reflect.DeepEqual(got.Tasks(), s.Tasks()) {
		t.Fatalf("tasks = %+v, want %+v", got.Tasks(), s.Tasks())
	}
	if !reflect.DeepEqual(got.AllCities(), s.AllCities()) {
		t.Fatalf("cities = %+v", got.AllCities())
	}
	if !reflect.DeepEqual(got.AllUnits(), s.AllUnits()) {
		t.Fatalf("units = %+v", got.AllUnits())
	}
	if !reflect.DeepEqual(got.Clients().Sessions(), s.Clients().Sessions()) {
		t.Fatalf("sessions = %+v", got.Clients().Sessions())
	}
	if got.Clients().ActiveCount() != 0 {
		t.Fatal("connections must not survive a snapshot")
	}
	if err := got.Check(); err != nil {
		t.Fatalf("restored state: %v", err)
	}

	again, err := Marshal(got)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(again, data) {
		t.Fatal("re-encoding a restored state changed the bytes")
	}
}

func TestDecodeRejects(t *testing.T) {
	s := populated(t)
	var buf bytes.Buffer
	if err := Encode(&buf, s); err != nil {
		t.Fatal(err)
	}

	if _, err := Unmarshal([]byte("not zstd at all")); err == nil {
		t.Fatal("garbage accepted")
	}

	// Corrupt the body inside a valid zstd stream.
	raw := decompress(t, buf.Bytes())
	raw[len(raw)-1] ^= 0xff
	if _, err := Unmarshal(compress(t, raw)); !errors.Is(err, ErrChecksum) {
		t.Fatalf("err = %v, want ErrChecksum", err)
	}

	raw = decompress(t, buf.Bytes())
	copy(raw, "NOPE")
	if _, err := Unmarshal(compress(t, raw)); !errors.Is(err, ErrBadMagic) {
		t.Fatalf("err = %v, want ErrBadMagic", err)
	}

	raw = decompress(t, buf.Bytes())
	raw[len(Magic)+3] = 9
	if _, err := Unmarshal(compress(t, raw)); !errors.Is(err, ErrVersion) {
		t.Fatalf("err = %v, want ErrVersion", err)
	}
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "nested", "civ.snapshot"))

	if _, err := Load(ctx, store); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("err = %v, want ErrNoSnapshot", err)
	}

	s := populated(t)
	sink := &Sink{Store: store, Log: zaptest.NewLogger(t)}
	if err := sink.WriteSnapshot(s); err != nil {
		t.Fatal(err)
	}
	got, err := Load(ctx, store)
	if err != nil {
		t.Fatal(err)
	}
	if got.Frame() != s.Frame() || got.TasksCount() != s.TasksCount() || got.UnitsCount() != 1 || got.CitiesCount() != 1 {
		t.Fatalf("loaded frame %d tasks %d units %d cities %d", got.Frame(), got.TasksCount(), got.UnitsCount(), got.CitiesCount())
	}

	// A second save replaces the first.
	s.Apply([]effect.Effect{effect.IncrementGameFrame{}})
	if err := sink.WriteSnapshot(s); err != nil {
		t.Fatal(err)
	}
	if got, _ := Load(ctx, store); got.Frame() != 3 {
		t.Fatalf("frame after second save = %d", got.Frame())
	}
}

func decompress(t *testing.T, data []byte) []byte {
	t.Helper()
	dec, err := zstd.NewReader(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer dec.Close()
	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func compress(t *testing.T, raw []byte) []byte {
	t.Helper()
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer enc.Close()
	return enc.EncodeAll(raw, nil)
}

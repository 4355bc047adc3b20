// Package snapshot serializes the game state and persists it.
//
// A snapshot is a zstd stream holding the magic "CIVS", a u32 format
// version, the blake3-256 sum of the body and the body itself. The body is
// big-endian binary: frame, world size, tasks, cities, units and player
// sessions.
package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"lukechampine.com/blake3"

	"github.com/buxx/civ/internal/game"
	"github.com/buxx/civ/internal/net/packet"
	"github.com/buxx/civ/internal/space"
	"github.com/buxx/civ/internal/state"
)

const (
	Magic   = "CIVS"
	Version = uint32(1)
)

var (
	ErrBadMagic   = errors.New("not a snapshot")
	ErrVersion    = errors.New("unsupported snapshot version")
	ErrChecksum   = errors.New("snapshot checksum mismatch")
	ErrNoSnapshot = errors.New("no snapshot")
)

// Marshal encodes s. The caller holds at least the state read lock.
func Marshal(s *state.State) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func Unmarshal(data []byte) (*state.State, error) {
	return Decode(bytes.NewReader(data))
}

// Encode writes the snapshot of s to w.
func Encode(w io.Writer, s *state.State) error {
	body := encodeBody(s)
	sum := blake3.Sum256(body)

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("zstd writer: %w", err)
	}
	hw := packet.NewWriter()
	hw.WriteRaw([]byte(Magic))
	hw.WriteU32(Version)
	hw.WriteRaw(sum[:])
	if _, err := enc.Write(hw.Bytes()); err != nil {
		enc.Close()
		return fmt.Errorf("write snapshot header: %w", err)
	}
	if _, err := enc.Write(body); err != nil {
		enc.Close()
		return fmt.Errorf("write snapshot body: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("flush snapshot: %w", err)
	}
	return nil
}

// Decode reads a snapshot from r and rebuilds the state with its index.
func Decode(r io.Reader) (*state.State, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer dec.Close()

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot: %w", err)
	}
	const headerLen = len(Magic) + 4 + 32
	if len(raw) < headerLen || string(raw[:len(Magic)]) != Magic {
		return nil, ErrBadMagic
	}
	hr := packet.NewReader(raw[len(Magic):headerLen])
	if v := hr.ReadU32(); v != Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, v)
	}
	body := raw[headerLen:]
	if sum := blake3.Sum256(body); !bytes.Equal(sum[:], raw[headerLen-32:headerLen]) {
		return nil, ErrChecksum
	}
	return decodeBody(body)
}

func encodeBody(s *state.State) []byte {
	w := packet.NewWriter()
	w.WriteU64(uint64(s.Frame()))
	w.WriteU64(s.Size().Width)
	w.WriteU64(s.Size().Height)

	tasks := s.Tasks()
	w.WriteU32(uint32(len(tasks)))
	for _, t := range tasks {
		writeTask(w, t)
	}

	cities := s.AllCities()
	w.WriteU32(uint32(len(cities)))
	for _, c := range cities {
		writeCity(w, c)
	}

	units := s.AllUnits()
	w.WriteU32(uint32(len(units)))
	for _, u := range units {
		writeUnit(w, u)
	}

	sessions := s.Clients().Sessions()
	w.WriteU32(uint32(len(sessions)))
	for _, player := range sortedPlayers(sessions) {
		session := sessions[player]
		w.WriteUUID(player)
		w.WriteU32(uint32(session.Flag))
		writePoint(w, session.Window.Start)
		writePoint(w, session.Window.End)
		w.WriteU64(session.Resolution.Width)
		w.WriteU64(session.Resolution.Height)
	}
	return w.Bytes()
}

func decodeBody(body []byte) (*state.State, error) {
	r := packet.NewReader(body)
	frame := game.Frame(r.ReadU64())
	size := space.NewSize(r.ReadU64(), r.ReadU64())

	n := r.ReadLen(16)
	tasks := make([]game.Task, 0, n)
	for range n {
		tasks = append(tasks, readTask(r))
	}

	n = r.ReadLen(16)
	cities := make([]game.City, 0, n)
	for range n {
		cities = append(cities, readCity(r))
	}

	n = r.ReadLen(16)
	units := make([]game.Unit, 0, n)
	for range n {
		units = append(units, readUnit(r))
	}

	n = r.ReadLen(16)
	sessions := make(map[game.PlayerID]state.PlayerState, n)
	for range n {
		player := game.PlayerID(r.ReadUUID())
		flag := game.Flag(r.ReadU32())
		start, end := readPoint(r), readPoint(r)
		sessions[player] = state.PlayerState{
			Flag:       flag,
			Window:     space.NewWindow(start, end),
			Resolution: space.NewResolution(r.ReadU64(), r.ReadU64()),
		}
	}

	if err := r.Finish(); err != nil {
		return nil, fmt.Errorf("decode snapshot body: %w", err)
	}
	for _, t := range tasks {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("decode snapshot body: %w", err)
		}
	}
	s, err := state.Restore(frame, size, tasks, cities, units, sessions)
	if err != nil {
		return nil, fmt.Errorf("restore snapshot: %w", err)
	}
	return s, nil
}

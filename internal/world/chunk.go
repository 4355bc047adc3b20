package world

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/buxx/civ/internal/net/packet"
	"github.com/buxx/civ/internal/space"
	"github.com/pierrec/lz4/v4"
	"gopkg.in/yaml.v3"
)

const descriptorFile = "world.yaml"

var ErrInvalidChunkSize = errors.New("chunk size must divide world width and height")

// Descriptor is the world.yaml file of a world directory.
type Descriptor struct {
	Width     uint64 `yaml:"width"`
	Height    uint64 `yaml:"height"`
	ChunkSize uint64 `yaml:"chunk_size"`
}

func (d Descriptor) validate() error {
	if d.Width == 0 || d.Height == 0 {
		return fmt.Errorf("empty world %dx%d", d.Width, d.Height)
	}
	if d.ChunkSize == 0 || d.Width%d.ChunkSize != 0 || d.Height%d.ChunkSize != 0 {
		return fmt.Errorf("%dx%d by %d: %w", d.Width, d.Height, d.ChunkSize, ErrInvalidChunkSize)
	}
	return nil
}

func (d Descriptor) chunks() (uint64, uint64) {
	return d.Width / d.ChunkSize, d.Height / d.ChunkSize
}

// Progress reports world loading advancement.
type Progress struct {
	Loaded uint64
	Total  uint64
}

func chunkName(cx, cy uint64) string {
	return fmt.Sprintf("%d_%d.ct", cx, cy)
}

// Load reads every chunk of the world stored in dir. Progress is reported on
// the optional channel without blocking.
func Load(dir string, progress chan<- Progress) (*Reader, error) {
	raw, err := os.ReadFile(filepath.Join(dir, descriptorFile))
	if err != nil {
		return nil, fmt.Errorf("read world descriptor: %w", err)
	}
	var d Descriptor
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("parse world descriptor: %w", err)
	}
	if err := d.validate(); err != nil {
		return nil, err
	}

	tiles := make([]Tile, d.Width*d.Height)
	cw, ch := d.chunks()
	total := cw * ch
	var loaded uint64
	for cy := uint64(0); cy < ch; cy++ {
		for cx := uint64(0); cx < cw; cx++ {
			chunk, err := readChunk(filepath.Join(dir, chunkName(cx, cy)), d.ChunkSize)
			if err != nil {
				return nil, err
			}
			for i, t := range chunk {
				x := cx*d.ChunkSize + uint64(i)%d.ChunkSize
				y := cy*d.ChunkSize + uint64(i)/d.ChunkSize
				tiles[y*d.Width+x] = t
			}
			loaded++
			if progress != nil {
				select {
				case progress <- Progress{Loaded: loaded, Total: total}:
				default:
				}
			}
		}
	}
	return NewReader(space.NewSize(d.Width, d.Height), tiles), nil
}

func readChunk(path string, chunkSize uint64) ([]Tile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open chunk: %w", err)
	}
	defer f.Close()

	raw, err := io.ReadAll(lz4.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("decompress chunk %s: %w", path, err)
	}
	r := packet.NewReader(raw)
	n := r.ReadLen(4)
	if uint64(n) != chunkSize*chunkSize {
		return nil, fmt.Errorf("chunk %s: %d tiles, want %d", path, n, chunkSize*chunkSize)
	}
	tiles := make([]Tile, n)
	for i := range tiles {
		t := Terrain(r.ReadTag())
		if !t.Valid() {
			r.Failf("chunk %s: invalid terrain %d", path, uint32(t))
		}
		tiles[i] = Tile{Terrain: t}
	}
	if err := r.Finish(); err != nil {
		return nil, fmt.Errorf("decode chunk %s: %w", path, err)
	}
	return tiles, nil
}

// Write stores the world of r into dir, split in chunks of chunkSize tiles.
func Write(dir string, r *Reader, chunkSize uint64) error {
	d := Descriptor{Width: r.Width(), Height: r.Height(), ChunkSize: chunkSize}
	if err := d.validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create world dir: %w", err)
	}
	raw, err := yaml.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode world descriptor: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, descriptorFile), raw, 0o644); err != nil {
		return fmt.Errorf("write world descriptor: %w", err)
	}

	cw, ch := d.chunks()
	for cy := uint64(0); cy < ch; cy++ {
		for cx := uint64(0); cx < cw; cx++ {
			w := packet.NewWriter()
			w.WriteU32(uint32(chunkSize * chunkSize))
			for y := cy * chunkSize; y < (cy+1)*chunkSize; y++ {
				for x := cx * chunkSize; x < (cx+1)*chunkSize; x++ {
					t, _ := r.Tile(space.NewPoint(int64(x), int64(y)))
					w.WriteTag(uint32(t.Terrain))
				}
			}
			if err := writeChunk(filepath.Join(dir, chunkName(cx, cy)), w.Bytes()); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeChunk(path string, payload []byte) error {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(payload); err != nil {
		return fmt.Errorf("compress chunk: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("compress chunk: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write chunk: %w", err)
	}
	return nil
}

package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/buxx/civ/internal/game"
	"github.com/buxx/civ/internal/state"
)

// Store keeps the latest encoded snapshot.
type Store interface {
	// Save stores data as the snapshot of frame.
	Save(ctx context.Context, frame game.Frame, data []byte) error
	// Load returns the latest snapshot, or ErrNoSnapshot.
	Load(ctx context.Context) ([]byte, error)
	// Target names the store in logs and snapshot tasks.
	Target() string
	Close() error
}

// FileStore writes snapshots to a single file, atomically replaced.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Target() string {
	return f.path
}

func (f *FileStore) Save(_ context.Context, _ game.Frame, data []byte) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

func (f *FileStore) Load(context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", f.path, err)
	}
	return data, nil
}

func (f *FileStore) Close() error {
	return nil
}

// Load reads and decodes the latest snapshot of store.
func Load(ctx context.Context, store Store) (*state.State, error) {
	data, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}
	s, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("load snapshot from %s: %w", store.Target(), err)
	}
	return s, nil
}

// Sink writes snapshots of the state to a store. It is what snapshot tasks
// call when they complete.
type Sink struct {
	Store   Store
	Timeout time.Duration
	Log     *zap.Logger
}

// WriteSnapshot encodes s and saves it. The caller holds the state read
// lock for the whole call.
func (k *Sink) WriteSnapshot(s *state.State) error {
	start := time.Now()
	data, err := Marshal(s)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	ctx := context.Background()
	if k.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, k.Timeout)
		defer cancel()
	}
	if err := k.Store.Save(ctx, s.Frame(), data); err != nil {
		return fmt.Errorf("save snapshot to %s: %w", k.Store.Target(), err)
	}
	if k.Log != nil {
		k.Log.Debug("snapshot saved",
			zap.String("target", k.Store.Target()),
			zap.Int("bytes", len(data)),
			zap.Duration("took", time.Since(start)),
		)
	}
	return nil
}

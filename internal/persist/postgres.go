package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/buxx/civ/internal/game"
	"github.com/buxx/civ/internal/snapshot"
)

// DefaultKeep is how many snapshots a database store retains.
const DefaultKeep = 3

// PostgresStore keeps snapshots in the snapshots table.
type PostgresStore struct {
	db   *DB
	keep int
}

func NewPostgresStore(db *DB, keep int) *PostgresStore {
	if keep <= 0 {
		keep = DefaultKeep
	}
	return &PostgresStore{db: db, keep: keep}
}

func (s *PostgresStore) Target() string {
	return "postgres:snapshots"
}

// Save inserts the snapshot and prunes the older ones in one transaction.
func (s *PostgresStore) Save(ctx context.Context, frame game.Frame, data []byte) error {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("snapshot begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO snapshots (frame, data) VALUES ($1, $2)`,
		int64(frame), data,
	); err != nil {
		return fmt.Errorf("snapshot insert: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM snapshots WHERE id NOT IN (
		     SELECT id FROM snapshots ORDER BY id DESC LIMIT $1
		 )`, s.keep,
	); err != nil {
		return fmt.Errorf("snapshot prune: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) Load(ctx context.Context) ([]byte, error) {
	var data []byte
	err := s.db.Pool.QueryRow(ctx,
		`SELECT data FROM snapshots ORDER BY id DESC LIMIT 1`,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, snapshot.ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot select: %w", err)
	}
	return data, nil
}

func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

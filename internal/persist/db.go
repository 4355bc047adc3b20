// Package persist stores encoded snapshots in PostgreSQL or SQLite.
package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/buxx/civ/internal/config"
)

const pingTimeout = 5 * time.Second

// DB is the PostgreSQL pool behind a PostgresStore.
type DB struct {
	Pool *pgxpool.Pool
}

// poolConfig maps the database section onto a pgx pool config. An empty
// DSN leaves pgx to the PG* environment variables. The idle floor never
// exceeds the connection limit.
func poolConfig(cfg config.DatabaseConfig) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres dsn: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		pc.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		pc.MinConns = min(int32(cfg.MaxIdleConns), pc.MaxConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		pc.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	return pc, nil
}

// NewDB opens the pool and checks the server answers.
func NewDB(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*DB, error) {
	pc, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("postgres pool %s/%s: %w", pc.ConnConfig.Host, pc.ConnConfig.Database, err)
	}
	if err := ping(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info("snapshot database ready",
		zap.String("host", pc.ConnConfig.Host),
		zap.String("database", pc.ConnConfig.Database),
		zap.Int32("max_conns", pc.MaxConns),
		zap.Int32("min_conns", pc.MinConns))
	return &DB{Pool: pool}, nil
}

func ping(ctx context.Context, pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		cc := pool.Config().ConnConfig
		return fmt.Errorf("postgres ping %s/%s: %w", cc.Host, cc.Database, err)
	}
	return nil
}

func (db *DB) Close() {
	db.Pool.Close()
}

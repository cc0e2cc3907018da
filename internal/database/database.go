// Package database persists load records and lookup history in PostgreSQL.
//
// The lookup table itself is never stored: it is rebuilt from its source on
// every load. The database only remembers what happened (source_loads) and
// what was asked (lookup_history), so the service runs fine without one.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/serialyear/internal/config"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// TxDB is a DBTX that can also start transactions.
type TxDB interface {
	DBTX
	Begin(context.Context) (pgx.Tx, error)
}

// Open parses cfg.URL, applies the pool limits and verifies the connection.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("connected to database", "name", databaseName(cfg.URL))
	return pool, nil
}

// databaseName extracts the database name from a connection URL for logging.
func databaseName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS source_loads (
		id            UUID PRIMARY KEY,
		source        TEXT NOT NULL,
		loaded_at     TIMESTAMPTZ NOT NULL,
		duration_ms   BIGINT NOT NULL,
		bytes         BIGINT NOT NULL,
		brands        INTEGER NOT NULL,
		breakpoints   INTEGER NOT NULL,
		anomalies     INTEGER NOT NULL,
		lines         INTEGER NOT NULL,
		skipped_blank INTEGER NOT NULL,
		skipped_na    INTEGER NOT NULL,
		skipped_orphan INTEGER NOT NULL,
		error         TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS source_loads_loaded_at_idx ON source_loads (loaded_at DESC)`,
	`CREATE TABLE IF NOT EXISTS lookup_history (
		id          UUID PRIMARY KEY,
		brand       TEXT NOT NULL,
		serial      TEXT NOT NULL,
		year        INTEGER,
		bp_index    INTEGER NOT NULL,
		ip_address  TEXT,
		user_agent  TEXT,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS lookup_history_created_at_idx ON lookup_history (created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS lookup_history_key_idx ON lookup_history (brand, serial)`,
}

// EnsureSchema creates the tables used by this package if they do not exist.
func EnsureSchema(ctx context.Context, db DBTX) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

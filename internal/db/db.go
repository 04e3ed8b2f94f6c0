// Package db provides the PostgreSQL custody store.
package db

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonathan/pathway-advisor/internal/apperr"
)

//go:embed schema.sql
var schemaSQL string

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Options tunes the connection pool. Zero values keep pgxpool defaults.
type Options struct {
	MaxConns int32
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string, opts Options) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Ping verifies the database is reachable
func (db *DB) Ping(ctx context.Context) error {
	if err := db.pool.Ping(ctx); err != nil {
		return classify("ping", err, apperr.CodeReadFailed)
	}
	return nil
}

// EnsureSchema applies the embedded bootstrap DDL. It is safe to run repeatedly.
func (db *DB) EnsureSchema(ctx context.Context) error {
	// Multiple statements require the simple protocol, which Exec uses without arguments.
	if _, err := db.pool.Exec(ctx, schemaSQL); err != nil {
		return classify("ensure_schema", fmt.Errorf("failed to apply schema: %w", err), apperr.CodeWriteFailed)
	}
	return nil
}

// Package postgres stores crawl cursors in a Postgres table so several
// hosts can share resume state.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/iata-code-fetcher/internal/codes"
)

// DefaultTable is used when Config.Table is empty.
const DefaultTable = "crawl_cursors"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for cursor rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// Store implements crawler.Cursor on a single table keyed by kind.
type Store struct {
	pool  pool
	table string
}

// New connects to Postgres and creates the cursor table if it is missing.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("cursor.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store, err := NewWithPool(p, cfg.Table)
	if err != nil {
		p.Close()
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		p.Close()
		return nil, err
	}
	return store, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(p pool, table string) (*Store, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = DefaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Store{pool: p, table: table}, nil
}

// EnsureSchema creates the cursor table when it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	kind TEXT PRIMARY KEY,
	code TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create cursor table: %w", err)
	}
	return nil
}

// Load returns the saved code for kind, if any.
func (s *Store) Load(ctx context.Context, kind codes.Kind) (string, bool, error) {
	query := fmt.Sprintf(`SELECT code FROM %s WHERE kind = $1`, s.table)
	var code string
	err := s.pool.QueryRow(ctx, query, kind.String()).Scan(&code)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load cursor: %w", err)
	}
	return code, true, nil
}

// Save upserts the cursor for kind.
func (s *Store) Save(ctx context.Context, kind codes.Kind, code string) error {
	query := fmt.Sprintf(`
INSERT INTO %s (kind, code, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (kind) DO UPDATE SET code = EXCLUDED.code, updated_at = EXCLUDED.updated_at`, s.table)
	if _, err := s.pool.Exec(ctx, query, kind.String(), code); err != nil {
		return fmt.Errorf("save cursor: %w", err)
	}
	return nil
}

// Reset deletes the cursor for kind.
func (s *Store) Reset(ctx context.Context, kind codes.Kind) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE kind = $1`, s.table)
	if _, err := s.pool.Exec(ctx, query, kind.String()); err != nil {
		return fmt.Errorf("reset cursor: %w", err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

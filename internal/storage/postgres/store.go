// Package postgres provides Postgres-backed repositories.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/binbuddy/internal/store"
)

var validSchemaName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool.
type Config struct {
	DSN string
	// Schema qualifies every table; empty uses the search path.
	Schema          string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// pgxIface is the subset of *pgxpool.Pool the store uses; pgxmock satisfies it.
type pgxIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// Store implements every repository in package store on one pool.
type Store struct {
	pool   pgxIface
	schema string
}

var (
	_ store.ProductRepository  = (*Store)(nil)
	_ store.ScanRepository     = (*Store)(nil)
	_ store.FavoriteRepository = (*Store)(nil)
	_ store.ProgressRepository = (*Store)(nil)
	_ store.CategoryRepository = (*Store)(nil)
)

// New connects a pool using cfg.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	if err := validateSchema(cfg.Schema); err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool, schema: cfg.Schema}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(pool pgxIface, schema string) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if err := validateSchema(schema); err != nil {
		return nil, err
	}
	return &Store{pool: pool, schema: schema}, nil
}

// Repositories exposes the store through the repository bundle.
func (s *Store) Repositories() store.Repositories {
	return store.Repositories{
		Products:   s,
		Scans:      s,
		Favorites:  s,
		Progress:   s,
		Categories: s,
	}
}

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
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

func validateSchema(schema string) error {
	if schema != "" && !validSchemaName.MatchString(schema) {
		return fmt.Errorf("invalid schema name %q", schema)
	}
	return nil
}

func (s *Store) table(name string) string {
	if s.schema == "" {
		return name
	}
	return s.schema + "." + name
}

// limitArg maps a non-positive limit to NULL, which Postgres reads as no limit.
func limitArg(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func rollback(ctx context.Context, tx pgx.Tx) {
	_ = tx.Rollback(ctx)
}

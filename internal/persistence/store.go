// Package persistence is the agent's Postgres-backed durable state: pool
// metadata, strategy configuration, and the execution/position history the
// metrics updater reports from.
package persistence

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/tradingagent/internal/vault"
)

// conn is the subset of *pgxpool.Pool the store needs; narrowing it to an
// interface lets tests substitute pgxmock's pool.
type conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store wraps a Postgres connection pool with the queries the agent's
// pipeline needs: pool discovery for the fetcher, strategy configuration
// for the planner, and execution/position history for the observer and the
// metrics updater. Queries run against the narrow conn interface so tests
// can substitute a pgxmock pool; Close needs the concrete pool and is a
// no-op when the store was built over a mock, and Ping then falls back to
// a `SELECT 1` through the mock.
type Store struct {
	pool     conn
	realPool *pgxpool.Pool
}

// New creates a Store, resolving the connection string from Vault first and
// falling back to DATABASE_URL, matching the rest of the agent's
// Vault-then-env convention.
func New(ctx context.Context) (*Store, error) {
	databaseURL := os.Getenv("DATABASE_URL")

	if vaultClient, err := vault.NewClientFromEnv(); err == nil {
		if dbConfig, err := vaultClient.GetDatabaseConfig(ctx); err == nil {
			databaseURL = dbConfig.ConnectionString()
			log.Info().Msg("database credentials loaded from vault")
		} else {
			log.Debug().Err(err).Msg("could not load database config from vault, falling back to env")
		}
	}

	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL not set and vault credentials not available")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info().Msg("persistence store connected")
	return &Store{pool: pool, realPool: pool}, nil
}

// NewWithPool wraps any conn implementation — a real *pgxpool.Pool or a
// pgxmock stand-in — for tests.
func NewWithPool(pool conn) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying connection pool, if one was opened by New.
func (s *Store) Close() {
	if s.realPool != nil {
		s.realPool.Close()
	}
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if s.realPool != nil {
		return s.realPool.Ping(ctx)
	}
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return err
}

// EnsureSchema creates the tables the store reads and writes if they don't
// already exist. There is no separate migration tool in this repo; the
// agent is expected to own its own small schema.
func (s *Store) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS pools (
			input_mint   TEXT NOT NULL,
			output_mint  TEXT NOT NULL,
			address      TEXT NOT NULL,
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (input_mint, output_mint)
		)`,
		`CREATE TABLE IF NOT EXISTS strategies (
			id         TEXT PRIMARY KEY,
			tag        TEXT NOT NULL,
			config     JSONB NOT NULL,
			is_active  BOOLEAN NOT NULL DEFAULT TRUE,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS executions (
			plan_id            UUID PRIMARY KEY,
			strategy_tag       TEXT NOT NULL,
			status             TEXT NOT NULL,
			tx_signature       TEXT,
			execution_time_ms  BIGINT NOT NULL,
			slippage_bps       INT,
			realized_pnl       DOUBLE PRECISION NOT NULL DEFAULT 0,
			error_message      TEXT,
			executed_at        TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS positions (
			token_id       TEXT PRIMARY KEY,
			quantity       DOUBLE PRECISION NOT NULL,
			entry_price    DOUBLE PRECISION NOT NULL,
			current_price  DOUBLE PRECISION NOT NULL,
			unrealized_pnl DOUBLE PRECISION NOT NULL,
			status         TEXT NOT NULL DEFAULT 'open',
			opened_at      TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

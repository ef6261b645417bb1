// Package postgres stores task list filter state in PostgreSQL for
// deployments that share filters across daemon instances.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/codequest/internal/catalog"
)

// Config holds PostgreSQL connection configuration
type Config struct {
	DSN         string
	MaxConns    int32
	MaxLifetime time.Duration
}

// FilterStore implements catalog.Store on a pgx connection pool
type FilterStore struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS codequest_filter_states (
	user_id    BIGINT PRIMARY KEY,
	state      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// NewFilterStore connects, pings and ensures the table exists
func NewFilterStore(ctx context.Context, cfg Config) (*FilterStore, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}

	poolConfig.MaxConns = 5
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	poolConfig.MaxConnLifetime = 30 * time.Minute
	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create filter table: %w", err)
	}

	return &FilterStore{pool: pool}, nil
}

// Get loads the state for userID
func (s *FilterStore) Get(ctx context.Context, userID int64) (catalog.FilterState, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		"SELECT state FROM codequest_filter_states WHERE user_id = $1", userID,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.DefaultFilterState(), catalog.ErrNotFound
		}
		return catalog.DefaultFilterState(), fmt.Errorf("get filter state: %w", err)
	}
	return catalog.DecodeFilterState(data)
}

// Set upserts st for userID
func (s *FilterStore) Set(ctx context.Context, userID int64, st catalog.FilterState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode filter state: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO codequest_filter_states (user_id, state, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id) DO UPDATE SET state = EXCLUDED.state, updated_at = EXCLUDED.updated_at`,
		userID, data,
	)
	if err != nil {
		return fmt.Errorf("save filter state: %w", err)
	}
	return nil
}

// Clear deletes the state for userID
func (s *FilterStore) Clear(ctx context.Context, userID int64) error {
	if _, err := s.pool.Exec(ctx, "DELETE FROM codequest_filter_states WHERE user_id = $1", userID); err != nil {
		return fmt.Errorf("clear filter state: %w", err)
	}
	return nil
}

// Ping checks database connectivity
func (s *FilterStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool
func (s *FilterStore) Close() error {
	s.pool.Close()
	return nil
}

var _ catalog.Store = (*FilterStore)(nil)

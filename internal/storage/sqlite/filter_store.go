package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/codequest/internal/catalog"
)

// FilterStore persists task list filters in the filter_states table.
type FilterStore struct {
	db *DB
}

// NewFilterStore creates a new SQLite-backed filter store.
func NewFilterStore(db *DB) *FilterStore {
	return &FilterStore{db: db}
}

// Get loads the saved state for userID.
func (s *FilterStore) Get(ctx context.Context, userID int64) (catalog.FilterState, error) {
	var data string
	err := s.db.QueryRowContext(ctx, "SELECT state FROM filter_states WHERE user_id = ?", userID).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return catalog.DefaultFilterState(), catalog.ErrNotFound
		}
		return catalog.DefaultFilterState(), fmt.Errorf("get filter state: %w", err)
	}
	return catalog.DecodeFilterState([]byte(data))
}

// Set upserts the state for userID.
func (s *FilterStore) Set(ctx context.Context, userID int64, st catalog.FilterState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode filter state: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO filter_states (user_id, state, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		userID, string(data), time.Now(),
	)
	if err != nil {
		return fmt.Errorf("save filter state: %w", err)
	}
	return nil
}

// Clear deletes the state for userID.
func (s *FilterStore) Clear(ctx context.Context, userID int64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM filter_states WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("clear filter state: %w", err)
	}
	return nil
}

var _ catalog.Store = (*FilterStore)(nil)

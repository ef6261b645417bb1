package catalog

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/codequest/internal/domain"
	"github.com/felixgeelhaar/codequest/internal/recommend"
)

// ErrNotFound is returned by a Store when no state is saved for a user
var ErrNotFound = errors.New("filter state not found")

// Store persists one FilterState per user. Writes are last-write-wins.
type Store interface {
	Get(ctx context.Context, userID int64) (FilterState, error)
	Set(ctx context.Context, userID int64, st FilterState) error
	Clear(ctx context.Context, userID int64) error
}

// TaskCatalog supplies every task for a user with that user's progress attached
type TaskCatalog interface {
	TasksForUser(ctx context.Context, userID int64) ([]domain.Task, error)
}

// RecommendationSource is an optional server-side ranking
type RecommendationSource interface {
	RecommendedTasks(ctx context.Context, userID int64) ([]domain.Task, error)
}

// Ensure implementations satisfy the interfaces
var (
	_ Store       = (*MemoryStore)(nil)
	_ Store       = (*FileStore)(nil)
	_ Recommender = (*recommend.Scorer)(nil)
)

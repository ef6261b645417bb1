package catalog

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/felixgeelhaar/codequest/internal/domain"
)

// Filters holds one user's FilterState and persists every change.
// Persistence failures are logged and never surface to the caller.
type Filters struct {
	mu     sync.Mutex
	store  Store
	userID int64
	state  FilterState
	loaded bool
}

// NewFilters creates a controller for userID. Call Load before first use.
func NewFilters(store Store, userID int64) *Filters {
	return &Filters{
		store:  store,
		userID: userID,
		state:  DefaultFilterState(),
	}
}

// Load hydrates the state from the store. Absent or corrupt data leaves
// the defaults in place.
func (f *Filters) Load(ctx context.Context) FilterState {
	f.mu.Lock()
	defer f.mu.Unlock()

	st, err := f.store.Get(ctx, f.userID)
	switch {
	case err == nil:
		f.state = st
	case errors.Is(err, ErrNotFound):
		f.state = DefaultFilterState()
	default:
		slog.Warn("failed to load filters, using defaults", "user_id", f.userID, "error", err)
		f.state = DefaultFilterState()
	}
	f.loaded = true
	return f.state
}

// Loaded reports whether Load has completed
func (f *Filters) Loaded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loaded
}

// State returns the current state
func (f *Filters) State() FilterState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// SetType sets the task type filter; "" clears it
func (f *Filters) SetType(ctx context.Context, t domain.TaskType) {
	f.update(ctx, func(s *FilterState) { s.TypeFilter = t })
}

// SetLanguage sets the language filter; "" clears it
func (f *Filters) SetLanguage(ctx context.Context, lang string) {
	f.update(ctx, func(s *FilterState) { s.LangFilter = lang })
}

// SetDifficulty sets the difficulty filter; "" clears it
func (f *Filters) SetDifficulty(ctx context.Context, d domain.Difficulty) {
	f.update(ctx, func(s *FilterState) { s.DiffFilter = d })
}

// SetSort sets the manual sort key. Unknown keys are ignored.
func (f *Filters) SetSort(ctx context.Context, k SortKey) {
	if !k.Valid() {
		return
	}
	f.update(ctx, func(s *FilterState) { s.SortBy = k })
}

// SetSearch sets the title search text
func (f *Filters) SetSearch(ctx context.Context, q string) {
	f.update(ctx, func(s *FilterState) { s.SearchQuery = q })
}

// SetHideCompleted toggles hiding of completed tasks
func (f *Filters) SetHideCompleted(ctx context.Context, hide bool) {
	f.update(ctx, func(s *FilterState) { s.HideCompleted = hide })
}

// SetRecommendation switches between the all and recommended views. Unknown values are ignored.
func (f *Filters) SetRecommendation(ctx context.Context, r RecommendationFilter) {
	if !r.Valid() {
		return
	}
	f.update(ctx, func(s *FilterState) { s.RecommendationFilter = r })
}

// Replace overwrites the whole state
func (f *Filters) Replace(ctx context.Context, st FilterState) {
	f.update(ctx, func(s *FilterState) { *s = st })
}

// Clear resets every field and deletes the persisted record
func (f *Filters) Clear(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.state = DefaultFilterState()
	if err := f.store.Clear(ctx, f.userID); err != nil {
		slog.Warn("failed to clear filters", "user_id", f.userID, "error", err)
	}
}

func (f *Filters) update(ctx context.Context, mutate func(*FilterState)) {
	f.mu.Lock()
	defer f.mu.Unlock()

	mutate(&f.state)
	if err := f.store.Set(ctx, f.userID, f.state); err != nil {
		slog.Warn("failed to persist filters", "user_id", f.userID, "error", err)
	}
}

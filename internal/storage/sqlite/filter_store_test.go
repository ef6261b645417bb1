package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/felixgeelhaar/codequest/internal/catalog"
	"github.com/felixgeelhaar/codequest/internal/domain"
)

func TestFilterStore_RoundTrip(t *testing.T) {
	store := NewFilterStore(openTestDB(t))
	ctx := context.Background()

	if _, err := store.Get(ctx, 1); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("Get() on empty store err = %v; want ErrNotFound", err)
	}

	st := catalog.DefaultFilterState()
	st.LangFilter = "go"
	st.DiffFilter = domain.DifficultyHard
	if err := store.Set(ctx, 1, st); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	st.SortBy = catalog.SortXPDesc
	if err := store.Set(ctx, 1, st); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}

	got, err := store.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != st {
		t.Errorf("Get() = %+v; want %+v", got, st)
	}

	if err := store.Clear(ctx, 1); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, err := store.Get(ctx, 1); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("Get() after Clear err = %v; want ErrNotFound", err)
	}
	if err := store.Clear(ctx, 1); err != nil {
		t.Errorf("Clear() of absent state error = %v", err)
	}
}

func TestFilterStore_CorruptState(t *testing.T) {
	db := openTestDB(t)
	store := NewFilterStore(db)
	ctx := context.Background()

	if _, err := db.Exec("INSERT INTO filter_states (user_id, state, updated_at) VALUES (7, 'not json', datetime('now'))"); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := store.Get(ctx, 7)
	if err == nil {
		t.Error("Get() of corrupt state should return an error")
	}
	if got != catalog.DefaultFilterState() {
		t.Errorf("Get() = %+v; want defaults", got)
	}
}

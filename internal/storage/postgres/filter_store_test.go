package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/felixgeelhaar/codequest/internal/catalog"
)

// openTestStore connects to CODEQUEST_POSTGRES_DSN or skips
func openTestStore(t *testing.T) *FilterStore {
	t.Helper()
	dsn := os.Getenv("CODEQUEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("CODEQUEST_POSTGRES_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := NewFilterStore(ctx, Config{DSN: dsn, MaxConns: 2})
	if err != nil {
		t.Skipf("postgres unavailable: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestFilterStore_RoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	userID := time.Now().UnixNano()
	t.Cleanup(func() { store.Clear(context.Background(), userID) })

	if _, err := store.Get(ctx, userID); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("Get() on empty store err = %v; want ErrNotFound", err)
	}

	st := catalog.DefaultFilterState()
	st.SearchQuery = "channels"
	st.SortBy = catalog.SortAlphaDesc
	if err := store.Set(ctx, userID, st); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	st.RecommendationFilter = catalog.ShowRecommended
	if err := store.Set(ctx, userID, st); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}

	got, err := store.Get(ctx, userID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != st {
		t.Errorf("Get() = %+v; want %+v", got, st)
	}

	if err := store.Clear(ctx, userID); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, err := store.Get(ctx, userID); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("Get() after Clear err = %v; want ErrNotFound", err)
	}
}

func TestNewFilterStore_BadDSN(t *testing.T) {
	_, err := NewFilterStore(context.Background(), Config{DSN: "postgres://%zz"})
	if err == nil {
		t.Error("NewFilterStore() with malformed DSN should fail")
	}
}

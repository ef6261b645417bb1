package redis

import (
	"context"
	"errors"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/felixgeelhaar/codequest/internal/catalog"
	"github.com/felixgeelhaar/codequest/internal/domain"
)

// openTestStore connects to CODEQUEST_REDIS_ADDR or skips
func openTestStore(t *testing.T) *FilterStore {
	t.Helper()
	addr := os.Getenv("CODEQUEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CODEQUEST_REDIS_ADDR not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	prefix := "codequest:test:" + strconv.FormatInt(time.Now().UnixNano(), 10) + ":"
	store, err := NewFilterStore(ctx, Config{Addr: addr, Prefix: prefix, TTL: time.Minute})
	if err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestFilterStore_Key(t *testing.T) {
	s := &FilterStore{prefix: DefaultPrefix}
	if got := s.key(42); got != "codequest:filters:42" {
		t.Errorf("key(42) = %q", got)
	}
}

func TestFilterStore_RoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if _, err := store.Get(ctx, 1); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("Get() on empty store err = %v; want ErrNotFound", err)
	}

	st := catalog.DefaultFilterState()
	st.TypeFilter = domain.TaskTypeFillBlank
	st.HideCompleted = true
	if err := store.Set(ctx, 1, st); err != nil {
		t.Fatalf("Set() error = %v", err)
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
}

func TestFilterStore_CorruptState(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.client.Set(ctx, store.key(9), "{broken", 0).Err(); err != nil {
		t.Fatalf("seed corrupt value: %v", err)
	}
	t.Cleanup(func() { store.client.Del(context.Background(), store.key(9)) })

	got, err := store.Get(ctx, 9)
	if err == nil {
		t.Error("Get() of corrupt state should return an error")
	}
	if got != catalog.DefaultFilterState() {
		t.Errorf("Get() = %+v; want defaults", got)
	}
}

package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/felixgeelhaar/codequest/internal/storage/local"
)

// MemoryStore keeps filter state in process memory
type MemoryStore struct {
	mu     sync.RWMutex
	states map[int64][]byte
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[int64][]byte)}
}

// Get returns the saved state for userID
func (m *MemoryStore) Get(_ context.Context, userID int64) (FilterState, error) {
	m.mu.RLock()
	data, ok := m.states[userID]
	m.mu.RUnlock()
	if !ok {
		return DefaultFilterState(), ErrNotFound
	}
	return DecodeFilterState(data)
}

// Set saves st for userID
func (m *MemoryStore) Set(_ context.Context, userID int64, st FilterState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode filter state: %w", err)
	}
	m.mu.Lock()
	m.states[userID] = data
	m.mu.Unlock()
	return nil
}

// Clear removes the saved state for userID
func (m *MemoryStore) Clear(_ context.Context, userID int64) error {
	m.mu.Lock()
	delete(m.states, userID)
	m.mu.Unlock()
	return nil
}

// FileStore keeps one JSON file per user under the "filters" collection
type FileStore struct {
	store *local.Store
}

const filtersCollection = "filters"

// NewFileStore creates a file store rooted at basePath
func NewFileStore(basePath string) (*FileStore, error) {
	store, err := local.NewStore(basePath)
	if err != nil {
		return nil, err
	}
	return &FileStore{store: store}, nil
}

// Get loads the saved state for userID
func (f *FileStore) Get(_ context.Context, userID int64) (FilterState, error) {
	data, err := f.store.LoadRaw(filtersCollection, fileKey(userID))
	if err != nil {
		if errors.Is(err, local.ErrNotFound) {
			return DefaultFilterState(), ErrNotFound
		}
		return DefaultFilterState(), fmt.Errorf("load filter state: %w", err)
	}
	return DecodeFilterState(data)
}

// Set writes st for userID
func (f *FileStore) Set(_ context.Context, userID int64, st FilterState) error {
	if err := f.store.Save(filtersCollection, fileKey(userID), st); err != nil {
		return fmt.Errorf("save filter state: %w", err)
	}
	return nil
}

// Clear deletes the saved state for userID. Clearing an absent record is not an error.
func (f *FileStore) Clear(_ context.Context, userID int64) error {
	if err := f.store.Delete(filtersCollection, fileKey(userID)); err != nil && !errors.Is(err, local.ErrNotFound) {
		return fmt.Errorf("clear filter state: %w", err)
	}
	return nil
}

func fileKey(userID int64) string {
	return "user-" + strconv.FormatInt(userID, 10)
}

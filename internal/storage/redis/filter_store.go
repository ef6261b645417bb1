// Package redis stores task list filter state in Redis, one key per user.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/codequest/internal/catalog"
)

// DefaultPrefix namespaces filter keys
const DefaultPrefix = "codequest:filters:"

// Config holds Redis connection settings
type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	// TTL expires idle filter state. Zero keeps it forever.
	TTL time.Duration
}

// FilterStore implements catalog.Store on Redis
type FilterStore struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

// NewFilterStore connects to Redis and verifies the connection
func NewFilterStore(ctx context.Context, cfg Config) (*FilterStore, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &FilterStore{client: client, prefix: prefix, ttl: cfg.TTL}, nil
}

// Get loads the state for userID
func (s *FilterStore) Get(ctx context.Context, userID int64) (catalog.FilterState, error) {
	data, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return catalog.DefaultFilterState(), catalog.ErrNotFound
		}
		return catalog.DefaultFilterState(), fmt.Errorf("get filter state: %w", err)
	}
	return catalog.DecodeFilterState(data)
}

// Set stores st for userID
func (s *FilterStore) Set(ctx context.Context, userID int64, st catalog.FilterState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode filter state: %w", err)
	}
	if err := s.client.Set(ctx, s.key(userID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save filter state: %w", err)
	}
	return nil
}

// Clear deletes the state for userID
func (s *FilterStore) Clear(ctx context.Context, userID int64) error {
	if err := s.client.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("clear filter state: %w", err)
	}
	return nil
}

// Ping verifies Redis connectivity
func (s *FilterStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *FilterStore) Close() error {
	return s.client.Close()
}

func (s *FilterStore) key(userID int64) string {
	return s.prefix + strconv.FormatInt(userID, 10)
}

var _ catalog.Store = (*FilterStore)(nil)

package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/split2ynab/backend/internal/models"
)

// Well-known node paths in the key-value state store
const (
	PathLatestUpdate    = "/latest_update"
	PathStartDate       = "/start_date"
	PathSplitwiseAPIKey = "/splitwise/api_key"
	PathYNABAPIKey      = "/ynab/api_key"
)

// RedisStateStore keeps the watermark and bootstrap values as string nodes
type RedisStateStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStateStore creates a store whose node keys are prefixed with prefix
func NewRedisStateStore(client *redis.Client, prefix string) *RedisStateStore {
	return &RedisStateStore{client: client, prefix: prefix}
}

func (s *RedisStateStore) key(path string) string {
	return s.prefix + path
}

// EnsureExists creates the node with an empty value if it is absent
func (s *RedisStateStore) EnsureExists(ctx context.Context, path string) error {
	if err := s.client.SetNX(ctx, s.key(path), "", 0).Err(); err != nil {
		return fmt.Errorf("ensure %s: %w", path, err)
	}
	return nil
}

// Get returns the raw node value, or nil when the node does not exist
func (s *RedisStateStore) Get(ctx context.Context, path string) ([]byte, error) {
	val, err := s.client.Get(ctx, s.key(path)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	return val, nil
}

// Set overwrites the node value
func (s *RedisStateStore) Set(ctx context.Context, path, value string) error {
	if err := s.client.Set(ctx, s.key(path), value, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	return nil
}

// Lookup returns a bootstrap value as a string; a missing node is ""
func (s *RedisStateStore) Lookup(ctx context.Context, path string) (string, error) {
	val, err := s.Get(ctx, path)
	if err != nil {
		return "", err
	}
	return string(val), nil
}

// Latest reads the watermark. ok is false when none has been written yet.
func (s *RedisStateStore) Latest(ctx context.Context) (time.Time, bool, error) {
	if err := s.EnsureExists(ctx, PathLatestUpdate); err != nil {
		return time.Time{}, false, err
	}

	val, err := s.Get(ctx, PathLatestUpdate)
	if err != nil || len(val) == 0 {
		return time.Time{}, false, err
	}

	t, err := models.ParseWatermark(string(val))
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse watermark %q: %w", val, err)
	}
	return t, true, nil
}

// Advance moves the watermark to the newest UpdatedAt in records. An older
// value than the stored one is ignored.
func (s *RedisStateStore) Advance(ctx context.Context, records []models.SyncRecord) error {
	next := models.MaxUpdatedAt(records)
	if next.IsZero() {
		return nil
	}

	current, ok, err := s.Latest(ctx)
	if err != nil {
		return err
	}
	if ok && !next.After(current) {
		return nil
	}

	return s.Set(ctx, PathLatestUpdate, models.FormatWatermark(next))
}

package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.IndexStorage = (*IndexStorage)(nil)

const indexPrefix = keyPrefix + "index:"

// IndexStorage keeps serialized indexes as Redis strings.
// A single SET replaces the value atomically; entries never expire.
type IndexStorage struct {
	client *redis.Client
}

// NewIndexStorage creates a new Redis-backed IndexStorage
func NewIndexStorage(client *redis.Client) *IndexStorage {
	return &IndexStorage{client: client}
}

// Get returns the serialized index
func (s *IndexStorage) Get(ctx context.Context, location string) ([]byte, error) {
	data, err := s.client.Get(ctx, indexPrefix+location).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrIndexNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get index %s: %w", location, err)
	}
	return data, nil
}

// Put replaces the serialized index
func (s *IndexStorage) Put(ctx context.Context, location string, data []byte) error {
	if err := s.client.Set(ctx, indexPrefix+location, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to put index %s: %w", location, err)
	}
	return nil
}

// Exists reports whether an index is stored
func (s *IndexStorage) Exists(ctx context.Context, location string) (bool, error) {
	n, err := s.client.Exists(ctx, indexPrefix+location).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check index %s: %w", location, err)
	}
	return n > 0, nil
}

// Delete removes the index
func (s *IndexStorage) Delete(ctx context.Context, location string) error {
	if err := s.client.Del(ctx, indexPrefix+location).Err(); err != nil {
		return fmt.Errorf("failed to delete index %s: %w", location, err)
	}
	return nil
}

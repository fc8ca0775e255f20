package vectorindex

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driven"
)

// Store persists indexes through an IndexStorage backend
type Store struct {
	storage driven.IndexStorage
}

// NewStore creates a Store over the given storage
func NewStore(storage driven.IndexStorage) *Store {
	return &Store{storage: storage}
}

// Persist writes the index to location, replacing any previous content.
func (s *Store) Persist(ctx context.Context, location string, idx *Index) error {
	data, err := Marshal(idx)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexBuildFailure, err)
	}
	if err := s.storage.Put(ctx, location, data); err != nil {
		return fmt.Errorf("%w: persist %s: %v", domain.ErrIndexBuildFailure, location, err)
	}
	return nil
}

// Load reads the index at location.
// Returns domain.ErrIndexNotFound if nothing is stored there and
// domain.ErrIndexCorrupt if the content cannot be parsed.
func (s *Store) Load(ctx context.Context, location string) (*Index, error) {
	data, err := s.storage.Get(ctx, location)
	if err != nil {
		if errors.Is(err, domain.ErrIndexNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrIndexNotFound, location)
		}
		return nil, fmt.Errorf("load index %s: %w", location, err)
	}
	idx, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("load index %s: %w", location, err)
	}
	return idx, nil
}

// Delete removes the index at location
func (s *Store) Delete(ctx context.Context, location string) error {
	return s.storage.Delete(ctx, location)
}

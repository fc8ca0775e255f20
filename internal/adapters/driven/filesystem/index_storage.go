package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.IndexStorage = (*IndexStorage)(nil)

const indexExt = ".sdqx"

// IndexStorage keeps each index in its own file under a root directory
type IndexStorage struct {
	root string
}

// NewIndexStorage creates the root directory if needed
func NewIndexStorage(root string) (*IndexStorage, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: index directory required", domain.ErrInvalidInput)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}
	return &IndexStorage{root: root}, nil
}

// Root returns the storage directory
func (s *IndexStorage) Root() string {
	return s.root
}

func (s *IndexStorage) path(location string) (string, error) {
	return resolve(s.root, location+indexExt)
}

// Get reads the serialized index
func (s *IndexStorage) Get(_ context.Context, location string) ([]byte, error) {
	path, err := s.path(location)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrIndexNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read index %s: %w", location, err)
	}
	return data, nil
}

// Put atomically replaces the serialized index
func (s *IndexStorage) Put(_ context.Context, location string, data []byte) error {
	path, err := s.path(location)
	if err != nil {
		return err
	}
	if err := writeAtomic(path, data); err != nil {
		return fmt.Errorf("write index %s: %w", location, err)
	}
	return nil
}

// Exists reports whether an index file is present
func (s *IndexStorage) Exists(_ context.Context, location string) (bool, error) {
	path, err := s.path(location)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat index %s: %w", location, err)
	}
	return true, nil
}

// Delete removes the index file
func (s *IndexStorage) Delete(_ context.Context, location string) error {
	path, err := s.path(location)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete index %s: %w", location, err)
	}
	return nil
}

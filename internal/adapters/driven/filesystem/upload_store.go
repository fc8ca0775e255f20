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
var _ driven.UploadStore = (*UploadStore)(nil)

// UploadStore keeps uploaded files flat in one directory
type UploadStore struct {
	root string
}

// NewUploadStore creates the upload directory if needed
func NewUploadStore(root string) (*UploadStore, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: upload directory required", domain.ErrInvalidInput)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &UploadStore{root: root}, nil
}

// Save writes the upload and returns its path
func (s *UploadStore) Save(_ context.Context, name string, data []byte) (string, error) {
	path, err := resolve(s.root, name)
	if err != nil {
		return "", err
	}
	if err := writeAtomic(path, data); err != nil {
		return "", fmt.Errorf("save upload %s: %w", name, err)
	}
	return path, nil
}

// Read returns the upload content
func (s *UploadStore) Read(_ context.Context, name string) ([]byte, error) {
	path, err := resolve(s.root, name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", name, err)
	}
	return data, nil
}

// Delete removes the upload
func (s *UploadStore) Delete(_ context.Context, name string) error {
	path, err := resolve(s.root, name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete upload %s: %w", name, err)
	}
	return nil
}

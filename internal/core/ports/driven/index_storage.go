package driven

import (
	"context"
)

// IndexStorage is durable storage for serialized indexes keyed by an opaque location.
// Put must be atomic: a concurrent Get observes the old content or the new, never a mix.
type IndexStorage interface {
	// Get returns the stored bytes. Returns domain.ErrIndexNotFound if nothing is stored.
	Get(ctx context.Context, location string) ([]byte, error)

	// Put replaces the content at location
	Put(ctx context.Context, location string, data []byte) error

	// Exists reports whether content is stored at location
	Exists(ctx context.Context, location string) (bool, error)

	// Delete removes the content. Deleting a missing location is not an error.
	Delete(ctx context.Context, location string) error
}

// UploadStore keeps the raw uploaded files
type UploadStore interface {
	// Save writes the file and returns the path it was stored at
	Save(ctx context.Context, name string, data []byte) (string, error)

	// Read returns the file content. Returns domain.ErrNotFound if missing.
	Read(ctx context.Context, name string) ([]byte, error)

	// Delete removes the file. Deleting a missing file is not an error.
	Delete(ctx context.Context, name string) error
}

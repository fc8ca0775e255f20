package driving

import (
	"context"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
)

// UploadRequest carries an uploaded file
type UploadRequest struct {
	Filename string
	MimeType string // Detected from the extension when empty
	Content  []byte
}

// DocumentService ingests documents and exposes their records
type DocumentService interface {
	// Upload stores the file, records the document and builds its index.
	// If indexing fails the stored file is removed and the record is left unindexed.
	Upload(ctx context.Context, req UploadRequest) (*domain.Document, error)

	// Ingest builds and persists the index for an already recorded document
	// from its page text, then records the index location.
	Ingest(ctx context.Context, documentID string, pages []domain.PageText) (*domain.IndexLocation, error)

	// Reindex re-extracts the stored file and rebuilds the index
	Reindex(ctx context.Context, documentID string) (*domain.IndexLocation, error)

	// Get retrieves a document by ID
	Get(ctx context.Context, id string) (*domain.Document, error)

	// List returns all documents
	List(ctx context.Context) ([]*domain.Document, error)
}

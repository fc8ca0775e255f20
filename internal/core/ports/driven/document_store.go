package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
)

// DocumentStore persists document records (PostgreSQL or SQLite)
type DocumentStore interface {
	// Save creates a document record
	Save(ctx context.Context, doc *domain.Document) error

	// Get retrieves a document by ID
	Get(ctx context.Context, id string) (*domain.Document, error)

	// List returns all documents, newest upload first
	List(ctx context.Context) ([]*domain.Document, error)

	// SetIndexLocation attaches the index location to a document.
	// Returns domain.ErrNotFound if the document does not exist.
	SetIndexLocation(ctx context.Context, id, location string, indexedAt time.Time) error

	// Ping checks the database connection
	Ping(ctx context.Context) error
}

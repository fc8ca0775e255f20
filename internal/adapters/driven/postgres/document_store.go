package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DocumentStore = (*DocumentStore)(nil)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation
const uniqueViolation = "23505"

const documentColumns = `id, filename, original_name, mime_type, upload_date, vector_store_path, indexed_at`

// DocumentStore implements driven.DocumentStore using PostgreSQL
type DocumentStore struct {
	db *DB
}

// NewDocumentStore creates a new DocumentStore
func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// Save inserts a document record
func (s *DocumentStore) Save(ctx context.Context, doc *domain.Document) error {
	query := `
		INSERT INTO documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	var indexedAt sql.NullTime
	if doc.IndexedAt != nil {
		indexedAt = sql.NullTime{Time: *doc.IndexedAt, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		doc.ID,
		doc.Filename,
		doc.OriginalName,
		doc.MimeType,
		doc.UploadedAt,
		NullString(doc.IndexLocation),
		indexedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return fmt.Errorf("%w: document %s", domain.ErrAlreadyExists, doc.Filename)
	}
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

// Get retrieves a document by ID
func (s *DocumentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

// List returns all documents, newest upload first
func (s *DocumentStore) List(ctx context.Context) ([]*domain.Document, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+documentColumns+` FROM documents ORDER BY upload_date DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// SetIndexLocation records where the document's index lives
func (s *DocumentStore) SetIndexLocation(ctx context.Context, id, location string, indexedAt time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE documents SET vector_store_path = $2, indexed_at = $3 WHERE id = $1`,
		id, location, indexedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to set index location: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Ping checks the database connection
func (s *DocumentStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*domain.Document, error) {
	var doc domain.Document
	var location sql.NullString
	var indexedAt sql.NullTime

	err := row.Scan(
		&doc.ID,
		&doc.Filename,
		&doc.OriginalName,
		&doc.MimeType,
		&doc.UploadedAt,
		&location,
		&indexedAt,
	)
	if err != nil {
		return nil, err
	}

	doc.IndexLocation = location.String
	doc.IndexedAt = TimePtr(indexedAt)
	return &doc, nil
}

// Package sqlite stores document records in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/sercha-docqa/internal/adapters/driven/sqlite/migrations"
	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DocumentStore = (*DocumentStore)(nil)

const documentColumns = `id, filename, original_name, mime_type, upload_date, vector_store_path, indexed_at`

// DocumentStore implements driven.DocumentStore on SQLite
type DocumentStore struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the database file at path and runs migrations
func Open(ctx context.Context, path string) (*DocumentStore, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: sqlite path required", domain.ErrInvalidInput)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// WAL for concurrent readers while an ingest writes
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &DocumentStore{db: db, path: path}, nil
}

// migrate brings the schema up to date with goose. modernc registers as
// "sqlite" but speaks the sqlite3 dialect.
func migrate(ctx context.Context, db *sql.DB) error {
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *DocumentStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *DocumentStore) Path() string {
	return s.path
}

// Save inserts a document record
func (s *DocumentStore) Save(ctx context.Context, doc *domain.Document) error {
	var location sql.NullString
	if doc.IndexLocation != "" {
		location = sql.NullString{String: doc.IndexLocation, Valid: true}
	}
	var indexedAt sql.NullTime
	if doc.IndexedAt != nil {
		indexedAt = sql.NullTime{Time: doc.IndexedAt.UTC(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, doc.ID, doc.Filename, doc.OriginalName, doc.MimeType, doc.UploadedAt.UTC(), location, indexedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: document %s", domain.ErrAlreadyExists, doc.Filename)
		}
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// Get retrieves a document by ID
func (s *DocumentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	return doc, nil
}

// List returns all documents, newest upload first
func (s *DocumentStore) List(ctx context.Context) ([]*domain.Document, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+documentColumns+` FROM documents ORDER BY upload_date DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []*domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// SetIndexLocation records where the document's index lives
func (s *DocumentStore) SetIndexLocation(ctx context.Context, id, location string, indexedAt time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE documents SET vector_store_path = ?, indexed_at = ? WHERE id = ?`,
		location, indexedAt.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("updating document: %w", err)
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
	return s.db.PingContext(ctx)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*domain.Document, error) {
	var doc domain.Document
	var location sql.NullString
	var uploadedAt, indexedAt sql.NullTime

	if err := row.Scan(&doc.ID, &doc.Filename, &doc.OriginalName, &doc.MimeType,
		&uploadedAt, &location, &indexedAt); err != nil {
		return nil, err
	}

	doc.IndexLocation = location.String
	if uploadedAt.Valid {
		doc.UploadedAt = uploadedAt.Time
	}
	if indexedAt.Valid {
		t := indexedAt.Time
		doc.IndexedAt = &t
	}
	return &doc, nil
}

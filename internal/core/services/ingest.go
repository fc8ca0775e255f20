package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-docqa/internal/normalisers"
	"github.com/custodia-labs/sercha-docqa/internal/postprocessors"
	"github.com/custodia-labs/sercha-docqa/internal/runtime"
	"github.com/custodia-labs/sercha-docqa/internal/vectorindex"
)

// Ensure IngestService implements DocumentService
var _ driving.DocumentService = (*IngestService)(nil)

// IngestServiceConfig holds the dependencies of an IngestService
type IngestServiceConfig struct {
	DocumentStore driven.DocumentStore
	UploadStore   driven.UploadStore
	Extractors    driven.TextExtractorRegistry
	Registry      *IndexRegistry
	IndexStore    *vectorindex.Store
	Cache         *vectorindex.Cache // Optional
	Chunker       *postprocessors.Chunker
	Services      *runtime.Services
	BuildOptions  vectorindex.BuildOptions
	Logger        *slog.Logger
}

// IngestService uploads documents and builds their indexes
type IngestService struct {
	documents  driven.DocumentStore
	uploads    driven.UploadStore
	extractors driven.TextExtractorRegistry
	registry   *IndexRegistry
	store      *vectorindex.Store
	cache      *vectorindex.Cache
	chunker    *postprocessors.Chunker
	services   *runtime.Services
	buildOpts  vectorindex.BuildOptions
	logger     *slog.Logger
	now        func() time.Time
}

// NewIngestService creates a new IngestService
func NewIngestService(cfg IngestServiceConfig) *IngestService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	chunker := cfg.Chunker
	if chunker == nil {
		chunker, _ = postprocessors.NewChunker(postprocessors.DefaultChunkConfig())
	}

	return &IngestService{
		documents:  cfg.DocumentStore,
		uploads:    cfg.UploadStore,
		extractors: cfg.Extractors,
		registry:   cfg.Registry,
		store:      cfg.IndexStore,
		cache:      cfg.Cache,
		chunker:    chunker,
		services:   cfg.Services,
		buildOpts:  cfg.BuildOptions,
		logger:     logger.With("service", "ingest"),
		now:        time.Now,
	}
}

// Upload stores the file, records the document and builds its index.
// If indexing fails the stored file is removed and the record stays unindexed.
func (s *IngestService) Upload(ctx context.Context, req driving.UploadRequest) (*domain.Document, error) {
	name := strings.TrimSpace(filepath.Base(req.Filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil, fmt.Errorf("%w: filename required", domain.ErrInvalidInput)
	}
	if len(req.Content) == 0 {
		return nil, fmt.Errorf("%w: file is empty", domain.ErrInvalidInput)
	}

	mimeType := req.MimeType
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = normalisers.MIMETypeForName(name)
	}
	extractor := s.extractors.Get(mimeType)
	if extractor == nil {
		return nil, fmt.Errorf("%w: %q (supported: %s)", domain.ErrUnsupportedType, name, strings.Join(s.extractors.List(), ", "))
	}

	uploaded := s.now().UTC()
	stored := fmt.Sprintf("%d_%s", uploaded.UnixNano(), name)
	if _, err := s.uploads.Save(ctx, stored, req.Content); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	doc := &domain.Document{
		ID:           uuid.NewString(),
		Filename:     stored,
		OriginalName: name,
		MimeType:     mimeType,
		UploadedAt:   uploaded,
	}
	logger := s.logger.With("document_id", doc.ID, "filename", stored)

	pages, err := extractor.Extract(ctx, req.Content)
	if err != nil {
		s.discardUpload(ctx, stored, logger)
		return nil, extractionError(err)
	}

	if err := s.documents.Save(ctx, doc); err != nil {
		s.discardUpload(ctx, stored, logger)
		return nil, fmt.Errorf("save document: %w", err)
	}

	loc, err := s.Ingest(ctx, doc.ID, pages)
	if err != nil {
		logger.Error("indexing failed", "error", err)
		s.discardUpload(ctx, stored, logger)
		return nil, err
	}

	doc.IndexLocation = loc.Key
	indexedAt := loc.Version
	doc.IndexedAt = &indexedAt
	return doc, nil
}

// Ingest builds, persists and registers the index of a recorded document.
// The registry is only updated after the index is durably stored.
func (s *IngestService) Ingest(ctx context.Context, documentID string, pages []domain.PageText) (*domain.IndexLocation, error) {
	doc, err := s.documents.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}

	lease, err := s.registry.AcquireBuild(ctx, documentID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("failed to release build lock", "document_id", documentID, "error", err)
		}
	}()
	buildCtx := lease.Context()

	start := s.now()
	passages := s.chunker.Split(pages)

	idx, err := vectorindex.Build(buildCtx, documentID, passages, s.services.EmbeddingService(), s.buildOpts)
	if err != nil {
		if lost := lease.Lost(); lost != nil {
			return nil, lost
		}
		return nil, err
	}

	key := LocationKey(documentID)
	if err := s.store.Persist(buildCtx, key, idx); err != nil {
		if lost := lease.Lost(); lost != nil {
			return nil, lost
		}
		return nil, err
	}
	if lost := lease.Lost(); lost != nil {
		return nil, lost
	}

	loc, err := s.registry.RecordLocation(ctx, documentID, key)
	if err != nil {
		// A rebuild overwrote the index the record already points at; keep it
		if !doc.IsIndexed() {
			if derr := s.store.Delete(context.WithoutCancel(ctx), key); derr != nil {
				s.logger.Warn("failed to remove unregistered index", "document_id", documentID, "error", derr)
			}
		}
		return nil, err
	}
	s.cache.Invalidate(documentID)

	s.logger.Info("document indexed",
		"document_id", documentID,
		"passages", idx.Len(),
		"model", idx.Model,
		"dimensions", idx.Dimensions,
		"chunk_size", s.chunker.Config().MaxChunkSize,
		"duration", s.now().Sub(start),
	)
	return loc, nil
}

// Reindex rebuilds the index from the stored upload
func (s *IngestService) Reindex(ctx context.Context, documentID string) (*domain.IndexLocation, error) {
	doc, err := s.documents.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}

	content, err := s.uploads.Read(ctx, doc.Filename)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: stored file for document %s", domain.ErrNotFound, documentID)
		}
		return nil, fmt.Errorf("read upload: %w", err)
	}

	extractor := s.extractors.Get(doc.MimeType)
	if extractor == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, doc.MimeType)
	}
	pages, err := extractor.Extract(ctx, content)
	if err != nil {
		return nil, extractionError(err)
	}

	return s.Ingest(ctx, documentID, pages)
}

// Get retrieves a document by ID
func (s *IngestService) Get(ctx context.Context, id string) (*domain.Document, error) {
	return s.documents.Get(ctx, id)
}

// List returns all documents, newest first
func (s *IngestService) List(ctx context.Context) ([]*domain.Document, error) {
	return s.documents.List(ctx)
}

func (s *IngestService) discardUpload(ctx context.Context, name string, logger *slog.Logger) {
	if err := s.uploads.Delete(context.WithoutCancel(ctx), name); err != nil {
		logger.Warn("failed to remove upload", "error", err)
	}
}

func extractionError(err error) error {
	if errors.Is(err, domain.ErrUnsupportedType) {
		return err
	}
	return fmt.Errorf("%w: text extraction: %v", domain.ErrIndexBuildFailure, err)
}

package driven

import (
	"context"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
)

// TextExtractor turns raw file content into page-tagged text.
type TextExtractor interface {
	// Extract returns the text of each page in order, numbered from 1
	Extract(ctx context.Context, content []byte) ([]domain.PageText, error)

	// SupportedTypes returns MIME types this extractor handles.
	// Can include wildcards like "text/*".
	SupportedTypes() []string

	// Priority returns the extractor priority (higher = more specific).
	// Priority ranges:
	//   50-89:  Format-specific (PDF)
	//   10-49:  Generic (plain text)
	//   1-9:    Fallback
	Priority() int
}

// TextExtractorRegistry manages extractors by MIME type.
// When multiple extractors match a MIME type, the highest priority one is used.
type TextExtractorRegistry interface {
	// Get retrieves the best-matching extractor for a MIME type.
	// Returns nil if no extractor is registered for the type.
	Get(mimeType string) TextExtractor

	// Register registers an extractor.
	Register(extractor TextExtractor)

	// List returns all registered MIME types.
	List() []string
}

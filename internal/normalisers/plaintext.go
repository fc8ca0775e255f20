package normalisers

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-docqa/internal/postprocessors"
)

// Verify interface compliance
var _ driven.TextExtractor = (*PlaintextExtractor)(nil)

// PlaintextExtractor treats text files as a single page.
type PlaintextExtractor struct{}

func (e *PlaintextExtractor) Extract(_ context.Context, content []byte) ([]domain.PageText, error) {
	if !utf8.Valid(content) {
		return nil, fmt.Errorf("%w: text is not valid UTF-8", domain.ErrUnsupportedType)
	}
	return []domain.PageText{{Page: 1, Text: postprocessors.NormalizeWhitespace(string(content))}}, nil
}

func (e *PlaintextExtractor) SupportedTypes() []string {
	return []string{"text/plain", "text/markdown", "text/x-markdown"}
}

func (e *PlaintextExtractor) Priority() int {
	return 10
}

package mocks

import (
	"context"
	"strings"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
)

// MockTextExtractor splits content into pages on form feeds
type MockTextExtractor struct {
	Types []string
	Err   error
}

// NewMockTextExtractor creates a MockTextExtractor for application/pdf
func NewMockTextExtractor() *MockTextExtractor {
	return &MockTextExtractor{Types: []string{"application/pdf"}}
}

func (m *MockTextExtractor) Extract(ctx context.Context, content []byte) ([]domain.PageText, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	parts := strings.Split(string(content), "\f")
	pages := make([]domain.PageText, 0, len(parts))
	for i, p := range parts {
		pages = append(pages, domain.PageText{Page: i + 1, Text: p})
	}
	return pages, nil
}

func (m *MockTextExtractor) SupportedTypes() []string {
	return m.Types
}

func (m *MockTextExtractor) Priority() int {
	return 50
}

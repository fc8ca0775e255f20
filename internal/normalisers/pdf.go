package normalisers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-docqa/internal/postprocessors"
)

// Verify interface compliance
var _ driven.TextExtractor = (*PDFExtractor)(nil)

// ErrPDFToolNotFound is returned when pdftotext is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found: install poppler-utils")

// pdfMagic starts every PDF file
var pdfMagic = []byte("%PDF-")

// CommandRunner runs an external command with stdin and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error)
}

// execRunner runs commands with os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, ErrPDFToolNotFound
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// PDFExtractor extracts page text with poppler's pdftotext.
// pdftotext ends each page with a form feed, which is how pages are told apart.
type PDFExtractor struct {
	runner CommandRunner
}

// NewPDFExtractor creates a PDF extractor. A nil runner uses os/exec.
func NewPDFExtractor(runner CommandRunner) *PDFExtractor {
	if runner == nil {
		runner = execRunner{}
	}
	return &PDFExtractor{runner: runner}
}

// Extract returns one PageText per PDF page, including blank pages
func (e *PDFExtractor) Extract(ctx context.Context, content []byte) ([]domain.PageText, error) {
	if !bytes.HasPrefix(bytes.TrimLeft(content, " \t\r\n"), pdfMagic) {
		return nil, fmt.Errorf("%w: content is not a PDF", domain.ErrUnsupportedType)
	}

	out, err := e.runner.Run(ctx, content, "pdftotext", "-enc", "UTF-8", "-", "-")
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	return splitPages(string(out)), nil
}

func (e *PDFExtractor) SupportedTypes() []string {
	return []string{"application/pdf"}
}

func (e *PDFExtractor) Priority() int {
	return 50
}

// splitPages splits pdftotext output on form feeds. Each page is
// normalised and, when non-empty, terminated with a blank line so
// pages stay separate paragraphs once concatenated.
func splitPages(out string) []domain.PageText {
	parts := strings.Split(out, "\f")
	// pdftotext terminates the last page with a form feed as well
	if len(parts) > 1 && strings.TrimSpace(parts[len(parts)-1]) == "" {
		parts = parts[:len(parts)-1]
	}

	pages := make([]domain.PageText, 0, len(parts))
	for i, part := range parts {
		text := postprocessors.NormalizeWhitespace(part)
		if text != "" {
			text += "\n\n"
		}
		pages = append(pages, domain.PageText{Page: i + 1, Text: text})
	}
	return pages
}

// InstallInstructions explains how to get pdftotext.
func InstallInstructions() string {
	return `PDF extraction requires pdftotext (poppler).
  macOS:  brew install poppler
  Debian: apt install poppler-utils
  Alpine: apk add poppler-utils`
}

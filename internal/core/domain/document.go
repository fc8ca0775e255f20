package domain

import (
	"time"
	"unicode/utf8"
)

// Document is the relational record of an uploaded file
type Document struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`      // Stored file name, unique
	OriginalName string    `json:"original_name"` // Name as uploaded
	MimeType     string    `json:"mime_type"`
	UploadedAt   time.Time `json:"upload_date"`

	// Set once the index has been persisted
	IndexLocation string     `json:"index_location,omitempty"`
	IndexedAt     *time.Time `json:"indexed_at,omitempty"`
}

// IsIndexed reports whether the registry has an index location for the document
func (d *Document) IsIndexed() bool {
	return d.IndexLocation != ""
}

// IndexLocation identifies where a document's index is persisted.
// Version changes every time the location is recorded, so cached copies
// of an older build can be detected.
type IndexLocation struct {
	DocumentID string    `json:"document_id"`
	Key        string    `json:"key"`
	Version    time.Time `json:"version"`
}

// PageText is the extracted text of one page, numbered from 1
type PageText struct {
	Page int    `json:"page"`
	Text string `json:"text"`
}

// Passage is a contiguous span of a document's text.
// Offsets are rune offsets into the concatenation of all page texts.
type Passage struct {
	Position    int    `json:"position"`
	Content     string `json:"content"`
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`
	Page        int    `json:"page"`     // Page containing StartOffset
	EndPage     int    `json:"end_page"` // Page containing the last rune
}

// Len returns the passage length in runes
func (p Passage) Len() int {
	return utf8.RuneCountInString(p.Content)
}

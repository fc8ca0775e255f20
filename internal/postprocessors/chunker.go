package postprocessors

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
)

// breakSearchWindow is how far back from a window end a break point is looked for
const breakSearchWindow = 100

// ChunkConfig configures the chunker behavior.
// Sizes are measured in runes.
type ChunkConfig struct {
	// MaxChunkSize is the maximum runes per passage
	MaxChunkSize int `yaml:"max_chunk_size"`

	// Overlap is the rune overlap between consecutive passages
	Overlap int `yaml:"overlap"`

	// PreserveSentences tries to break at sentence boundaries
	PreserveSentences bool `yaml:"preserve_sentences"`

	// PreserveParagraphs tries to break at paragraph boundaries
	PreserveParagraphs bool `yaml:"preserve_paragraphs"`
}

// DefaultChunkConfig returns sensible defaults.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxChunkSize:       1000,
		Overlap:            200,
		PreserveSentences:  true,
		PreserveParagraphs: true,
	}
}

// Validate checks the sizes are usable.
func (c ChunkConfig) Validate() error {
	if c.MaxChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidInput, c.MaxChunkSize)
	}
	if c.Overlap < 0 || c.Overlap >= c.MaxChunkSize {
		return fmt.Errorf("%w: overlap must be in [0, %d), got %d", domain.ErrInvalidInput, c.MaxChunkSize, c.Overlap)
	}
	return nil
}

// Chunker splits page text into overlapping passages.
// Every window after the first starts exactly Overlap runes before the
// previous window's end, so the passages cover the text without gaps.
type Chunker struct {
	config ChunkConfig
}

// NewChunker creates a new chunker with the given config.
func NewChunker(config ChunkConfig) (*Chunker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Chunker{config: config}, nil
}

// Config returns the chunker configuration.
func (c *Chunker) Config() ChunkConfig {
	return c.config
}

// Split concatenates the pages in order and splits the result.
// Each passage is tagged with the page holding its first and last rune.
func (c *Chunker) Split(pages []domain.PageText) []domain.Passage {
	var b strings.Builder
	starts := make([]int, len(pages))
	offset := 0
	for i, p := range pages {
		starts[i] = offset
		offset += utf8.RuneCountInString(p.Text)
		b.WriteString(p.Text)
	}

	runes := []rune(b.String())
	if len(runes) == 0 {
		return nil
	}

	pageAt := func(off int) int {
		i := sort.Search(len(starts), func(i int) bool { return starts[i] > off }) - 1
		if i < 0 {
			i = 0
		}
		return pages[i].Page
	}

	var passages []domain.Passage
	n := len(runes)
	start := 0

	for {
		end := start + c.config.MaxChunkSize
		if end > n {
			end = n
		}

		if end < n && (c.config.PreserveSentences || c.config.PreserveParagraphs) {
			// The next window must still start after this one
			if bp := c.findBreakPoint(runes, start, end); bp-c.config.Overlap > start {
				end = bp
			}
		}

		passages = append(passages, domain.Passage{
			Position:    len(passages),
			Content:     string(runes[start:end]),
			StartOffset: start,
			EndOffset:   end,
			Page:        pageAt(start),
			EndPage:     pageAt(end - 1),
		})

		if end >= n {
			break
		}
		start = end - c.config.Overlap
	}

	return passages
}

// findBreakPoint returns the rune offset just after the best separator in
// the last breakSearchWindow runes of [start, maxEnd), or maxEnd if none.
func (c *Chunker) findBreakPoint(runes []rune, start, maxEnd int) int {
	searchStart := maxEnd - breakSearchWindow
	if searchStart < start {
		searchStart = start
	}

	window := string(runes[searchStart:maxEnd])
	runeIdx := func(byteIdx int) int {
		return searchStart + utf8.RuneCountInString(window[:byteIdx])
	}

	// Try to break at paragraph boundary (double newline)
	if c.config.PreserveParagraphs {
		if idx := strings.LastIndex(window, "\n\n"); idx != -1 {
			return runeIdx(idx) + 2
		}
	}

	// Try to break at sentence boundary
	if c.config.PreserveSentences {
		sentenceEnders := []string{". ", "! ", "? ", ".\n", "!\n", "?\n"}
		best := -1

		for _, ender := range sentenceEnders {
			if idx := strings.LastIndex(window, ender); idx != -1 {
				if endPos := runeIdx(idx) + 2; endPos > best {
					best = endPos
				}
			}
		}

		if best > searchStart {
			return best
		}
	}

	// Try to break at word boundary
	if idx := strings.LastIndexAny(window, " \n\t"); idx != -1 {
		return runeIdx(idx) + 1
	}

	return maxEnd
}

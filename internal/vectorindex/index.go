// Package vectorindex holds the per-document passage index: building it from
// embeddings, nearest-neighbour queries, serialization and caching.
package vectorindex

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driven"
)

// MetricCosine is the only supported similarity metric
const MetricCosine = "cosine"

// DefaultTopK is the number of passages retrieved per question
const DefaultTopK = 3

// BuildOptions tune embedding during Build
type BuildOptions struct {
	// BatchSize is the number of passages sent per Embed call
	BatchSize int `yaml:"batch_size"`

	// Concurrency bounds the number of Embed calls in flight
	Concurrency int `yaml:"concurrency"`
}

// DefaultBuildOptions returns sensible defaults.
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		BatchSize:   32,
		Concurrency: 4,
	}
}

// Index is the searchable set of passages of one document.
// Vectors are L2-normalised and parallel to Passages.
type Index struct {
	DocumentID string
	Model      string
	Dimensions int
	Metric     string
	Passages   []domain.Passage
	Vectors    [][]float32
	BuiltAt    time.Time
}

// Hit is one query result
type Hit struct {
	Passage domain.Passage
	Score   float32
}

// Len returns the number of indexed passages
func (idx *Index) Len() int {
	return len(idx.Passages)
}

// Build embeds every passage and returns the index.
// Fails with domain.ErrIndexBuildFailure for empty input or any
// embedding failure; the latter also matches domain.ErrEmbeddingFailure.
func Build(ctx context.Context, documentID string, passages []domain.Passage, embedder driven.EmbeddingService, opts BuildOptions) (*Index, error) {
	if len(passages) == 0 {
		return nil, fmt.Errorf("%w: document %s has no passages", domain.ErrIndexBuildFailure, documentID)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: %w: no embedding service configured", domain.ErrIndexBuildFailure, domain.ErrEmbeddingFailure)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBuildOptions().BatchSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}

	vectors := make([][]float32, len(passages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for start := 0; start < len(passages); start += opts.BatchSize {
		end := start + opts.BatchSize
		if end > len(passages) {
			end = len(passages)
		}

		g.Go(func() error {
			texts := make([]string, end-start)
			for i := start; i < end; i++ {
				texts[i-start] = passages[i].Content
			}

			batch, err := embedder.Embed(gctx, texts)
			if err != nil {
				return fmt.Errorf("%w: %w: passages %d-%d: %v", domain.ErrIndexBuildFailure, domain.ErrEmbeddingFailure, start, end-1, err)
			}
			if len(batch) != len(texts) {
				return fmt.Errorf("%w: %w: expected %d vectors, got %d", domain.ErrIndexBuildFailure, domain.ErrEmbeddingFailure, len(texts), len(batch))
			}
			copy(vectors[start:end], batch)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	dims := len(vectors[0])
	if dims == 0 {
		return nil, fmt.Errorf("%w: %w: empty embedding vector", domain.ErrIndexBuildFailure, domain.ErrEmbeddingFailure)
	}
	if want := embedder.Dimensions(); want > 0 && want != dims {
		return nil, fmt.Errorf("%w: %w: model %s reports %d dimensions, got %d", domain.ErrIndexBuildFailure, domain.ErrEmbeddingFailure, embedder.Model(), want, dims)
	}
	for i, v := range vectors {
		if len(v) != dims {
			return nil, fmt.Errorf("%w: %w: passage %d has %d dimensions, want %d", domain.ErrIndexBuildFailure, domain.ErrEmbeddingFailure, i, len(v), dims)
		}
		vectors[i] = normalize(v)
	}

	stored := make([]domain.Passage, len(passages))
	copy(stored, passages)

	return &Index{
		DocumentID: documentID,
		Model:      embedder.Model(),
		Dimensions: dims,
		Metric:     MetricCosine,
		Passages:   stored,
		Vectors:    vectors,
		BuiltAt:    time.Now().UTC(),
	}, nil
}

// Query embeds the text and returns the k most similar passages.
func (idx *Index) Query(ctx context.Context, text string, embedder driven.EmbeddingService, k int) ([]Hit, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be at least 1, got %d", domain.ErrInvalidInput, k)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: no embedding service configured", domain.ErrEmbeddingFailure)
	}
	if embedder.Model() != idx.Model {
		return nil, fmt.Errorf("%w: index built with %s, embedder is %s", domain.ErrEmbedderMismatch, idx.Model, embedder.Model())
	}

	vec, err := embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingFailure, err)
	}
	return idx.QueryVector(vec, k)
}

// QueryVector scores a precomputed query vector against every passage.
// Results are ordered by descending score; ties keep passage order.
func (idx *Index) QueryVector(vec []float32, k int) ([]Hit, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be at least 1, got %d", domain.ErrInvalidInput, k)
	}
	if len(vec) != idx.Dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d", domain.ErrEmbedderMismatch, len(vec), idx.Dimensions)
	}

	q := normalize(vec)
	scores := make([]float32, len(idx.Vectors))
	for i, v := range idx.Vectors {
		scores[i] = dot(q, v)
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if k > len(order) {
		k = len(order)
	}
	hits := make([]Hit, k)
	for i := 0; i < k; i++ {
		j := order[i]
		hits[i] = Hit{Passage: idx.Passages[j], Score: scores[j]}
	}
	return hits, nil
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// normalize returns a unit-length copy of v. Zero vectors stay zero.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		return out
	}
	norm := float32(math.Sqrt(sum))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

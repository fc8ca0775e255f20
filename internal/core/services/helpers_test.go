package services

import (
	"context"
	"strings"
	"testing"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-docqa/internal/normalisers"
	"github.com/custodia-labs/sercha-docqa/internal/postprocessors"
	"github.com/custodia-labs/sercha-docqa/internal/runtime"
	"github.com/custodia-labs/sercha-docqa/internal/vectorindex"
)

// testEnv wires the services over in-memory mocks
type testEnv struct {
	documents *mocks.MockDocumentStore
	uploads   *mocks.MockUploadStore
	storage   *mocks.MockIndexStorage
	lock      *mocks.MockDistributedLock
	embedder  *mocks.MockEmbeddingService
	llm       *mocks.MockLLMService
	convs     *mocks.MockConversationStore
	cache     *vectorindex.Cache
	services  *runtime.Services

	registry  *IndexRegistry
	ingest    *IngestService
	generator *AnswerGenerator
	ask       driving.AskService
}

func newTestEnv(t *testing.T, opts AnswerOptions) *testEnv {
	t.Helper()

	env := &testEnv{
		documents: mocks.NewMockDocumentStore(),
		uploads:   mocks.NewMockUploadStore(),
		storage:   mocks.NewMockIndexStorage(),
		lock:      mocks.NewMockDistributedLock(),
		embedder:  mocks.NewMockEmbeddingService(),
		llm:       mocks.NewMockLLMService(),
		convs:     mocks.NewMockConversationStore(),
	}

	cache, err := vectorindex.NewCache(4)
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	env.cache = cache

	env.services = runtime.NewServices(domain.NewRuntimeConfig("memory", "memory", "memory"))
	env.services.SetEmbeddingService(env.embedder)
	env.services.SetLLMService(env.llm)

	extractors := normalisers.NewRegistry()
	extractors.Register(mocks.NewMockTextExtractor())

	chunker, err := postprocessors.NewChunker(postprocessors.DefaultChunkConfig())
	if err != nil {
		t.Fatalf("chunker: %v", err)
	}

	store := vectorindex.NewStore(env.storage)
	env.registry = NewIndexRegistry(env.documents, env.lock)
	env.ingest = NewIngestService(IngestServiceConfig{
		DocumentStore: env.documents,
		UploadStore:   env.uploads,
		Extractors:    extractors,
		Registry:      env.registry,
		IndexStore:    store,
		Cache:         cache,
		Chunker:       chunker,
		Services:      env.services,
		BuildOptions:  vectorindex.DefaultBuildOptions(),
	})
	env.generator = NewAnswerGenerator(AnswerGeneratorConfig{
		Registry:   env.registry,
		IndexStore: store,
		Cache:      cache,
		Services:   env.services,
		Options:    opts,
	})
	env.ask = NewAskService(env.generator, env.convs, domain.DefaultMaxTurns, nil)
	return env
}

// addDocument records an unindexed document
func (e *testEnv) addDocument(t *testing.T, id string) {
	t.Helper()
	doc := &domain.Document{ID: id, Filename: "1_" + id + ".pdf", OriginalName: id + ".pdf", MimeType: "application/pdf"}
	if err := e.documents.Save(context.Background(), doc); err != nil {
		t.Fatalf("save document: %v", err)
	}
}

var (
	enginesVocab = []string{"rocket", "engines", "produce", "thrust", "by", "burning", "liquid", "hydrogen", "fuel", "with", "oxygen", "in", "the", "combustion", "chamber"}
	orbitVocab   = []string{"satellites", "follow", "orbital", "mechanics", "around", "earth", "at", "stable", "altitude", "and", "velocity", "over", "time"}
	budgetVocab  = []string{"mission", "budget", "covers", "launch", "costs", "staff", "schedule", "milestones", "and", "insurance", "for", "each", "year"}
)

// filler repeats vocab words up to exactly n characters
func filler(n int, vocab []string) string {
	var b strings.Builder
	for i := 0; b.Len() < n; i++ {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(vocab[i%len(vocab)])
	}
	return b.String()[:n]
}

// threePageDocument is 2500 characters over three pages.
// With 1000/200 chunking it splits into four passages.
func threePageDocument() []domain.PageText {
	return []domain.PageText{
		{Page: 1, Text: filler(900, enginesVocab) + "\n\n"},
		{Page: 2, Text: filler(700, orbitVocab) + "\n\n"},
		{Page: 3, Text: filler(700, budgetVocab) + "\n\n" + filler(194, budgetVocab)},
	}
}

func pageText(pages []domain.PageText) string {
	var b strings.Builder
	for _, p := range pages {
		b.WriteString(p.Text)
	}
	return b.String()
}

func setExtractorErr(t *testing.T, e driven.TextExtractor, err error) {
	t.Helper()
	m, ok := e.(*mocks.MockTextExtractor)
	if !ok {
		t.Fatalf("expected mock extractor, got %T", e)
	}
	m.Err = err
}

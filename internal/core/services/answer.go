package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
	"github.com/custodia-labs/sercha-docqa/internal/runtime"
	"github.com/custodia-labs/sercha-docqa/internal/vectorindex"
)

// AnswerOptions tune retrieval and generation
type AnswerOptions struct {
	// TopK is the number of passages retrieved per question
	TopK int `yaml:"top_k"`

	// GenerationTimeout bounds the model work of one answer: the optional
	// condense call, retrieval and the answer call share this deadline.
	GenerationTimeout time.Duration `yaml:"generation_timeout"`

	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"` // 0 leaves it to the provider

	// CondenseQuestion rewrites follow-ups into standalone questions before retrieval
	CondenseQuestion bool `yaml:"condense_question"`
}

// DefaultAnswerOptions returns the default answer options
func DefaultAnswerOptions() AnswerOptions {
	return AnswerOptions{
		TopK:              vectorindex.DefaultTopK,
		GenerationTimeout: 120 * time.Second,
		Temperature:       0.7,
	}
}

// AnswerGeneratorConfig holds the dependencies of an AnswerGenerator
type AnswerGeneratorConfig struct {
	Registry   *IndexRegistry
	IndexStore *vectorindex.Store
	Cache      *vectorindex.Cache // Optional
	Services   *runtime.Services
	Options    AnswerOptions
	Logger     *slog.Logger
}

// AnswerGenerator answers a question from a document's index and the
// conversation so far. The conversation is passed in and returned, never stored.
type AnswerGenerator struct {
	registry *IndexRegistry
	store    *vectorindex.Store
	cache    *vectorindex.Cache
	services *runtime.Services
	opts     AnswerOptions
	logger   *slog.Logger
	now      func() time.Time
}

// NewAnswerGenerator creates a new AnswerGenerator
func NewAnswerGenerator(cfg AnswerGeneratorConfig) *AnswerGenerator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := cfg.Options
	defaults := DefaultAnswerOptions()
	if opts.TopK < 1 {
		opts.TopK = defaults.TopK
	}
	if opts.GenerationTimeout <= 0 {
		opts.GenerationTimeout = defaults.GenerationTimeout
	}

	return &AnswerGenerator{
		registry: cfg.Registry,
		store:    cfg.IndexStore,
		cache:    cfg.Cache,
		services: cfg.Services,
		opts:     opts,
		logger:   logger.With("service", "answer"),
		now:      time.Now,
	}
}

// Answer retrieves the passages most relevant to question and asks the LLM.
// On success the returned conversation has the new turn appended; on any
// failure it is conv unchanged.
func (g *AnswerGenerator) Answer(ctx context.Context, documentID, question string, conv domain.Conversation) (*domain.Answer, domain.Conversation, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, conv, fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}
	if conv.DocumentID != "" && conv.DocumentID != documentID {
		return nil, conv, fmt.Errorf("%w: conversation belongs to document %s", domain.ErrInvalidInput, conv.DocumentID)
	}

	loc, err := g.registry.LocationFor(ctx, documentID)
	if err != nil {
		return nil, conv, err
	}

	idx, err := g.loadIndex(ctx, loc)
	if err != nil {
		return nil, conv, err
	}

	embedder := g.services.EmbeddingService()
	if embedder == nil {
		return nil, conv, fmt.Errorf("%w: no embedding service configured", domain.ErrEmbeddingFailure)
	}

	genCtx, cancel := context.WithTimeout(ctx, g.opts.GenerationTimeout)
	defer cancel()

	history := conv.History()
	retrieval := question
	if g.opts.CondenseQuestion && len(history) > 0 {
		retrieval, err = g.condense(genCtx, history, question)
		if err != nil {
			return nil, conv, err
		}
	}

	hits, err := idx.Query(genCtx, retrieval, embedder, g.opts.TopK)
	if err != nil {
		return nil, conv, err
	}

	text, err := g.generate(genCtx, BuildMessages(hits, history, question))
	if err == nil && text == "" {
		err = fmt.Errorf("%w: empty reply", domain.ErrGenerationFailure)
	}
	if err != nil {
		g.logger.Warn("generation failed", "document_id", documentID, "error", err)
		return nil, conv, err
	}

	sources := make([]domain.Source, 0, len(hits))
	for _, h := range hits {
		sources = append(sources, domain.NewSource(h.Passage, h.Score))
	}

	return &domain.Answer{Text: text, Sources: sources}, conv.Append(question, text, g.now().UTC()), nil
}

// loadIndex returns the index through the cache, loading it on a miss
func (g *AnswerGenerator) loadIndex(ctx context.Context, loc *domain.IndexLocation) (*vectorindex.Index, error) {
	if idx, ok := g.cache.Get(loc.DocumentID, loc.Version); ok {
		return idx, nil
	}

	idx, err := g.store.Load(ctx, loc.Key)
	if err != nil {
		return nil, err
	}
	g.cache.Add(loc.DocumentID, loc.Version, idx)
	return idx, nil
}

// generate runs one chat completion under the answer's deadline carried by ctx.
// The reply is trimmed and may be empty.
func (g *AnswerGenerator) generate(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	llm := g.services.LLMService()
	if llm == nil {
		return "", fmt.Errorf("%w: no language model configured", domain.ErrGenerationFailure)
	}

	text, err := llm.Chat(ctx, messages, domain.ChatOptions{
		Temperature: g.opts.Temperature,
		MaxTokens:   g.opts.MaxTokens,
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %w: no reply within %s", domain.ErrGenerationFailure, context.DeadlineExceeded, g.opts.GenerationTimeout)
		}
		return "", fmt.Errorf("%w: %v", domain.ErrGenerationFailure, err)
	}
	return strings.TrimSpace(text), nil
}

// condense asks the LLM to rewrite a follow-up as a standalone question.
// An empty rewrite falls back to the original question.
func (g *AnswerGenerator) condense(ctx context.Context, history []domain.Turn, question string) (string, error) {
	rewritten, err := g.generate(ctx, CondenseMessages(history, question))
	if err != nil {
		return "", err
	}
	if rewritten == "" {
		return question, nil
	}
	return rewritten, nil
}

const answerSystemPrompt = `You answer questions about a single document using only the excerpts below.
If the excerpts do not contain the answer, say that you don't know.
Answer in the language of the question.`

// BuildMessages composes the chat for a question: a system prompt with the
// numbered excerpts, each prior turn as a user/assistant pair, then the question.
func BuildMessages(hits []vectorindex.Hit, history []domain.Turn, question string) []domain.ChatMessage {
	var b strings.Builder
	b.WriteString(answerSystemPrompt)
	b.WriteString("\n\nExcerpts:")
	for i, h := range hits {
		fmt.Fprintf(&b, "\n\n[%d] (%s)\n%s", i+1, pageLabel(h.Passage), strings.TrimSpace(h.Passage.Content))
	}

	messages := make([]domain.ChatMessage, 0, 2+2*len(history))
	messages = append(messages, domain.ChatMessage{Role: domain.ChatRoleSystem, Content: b.String()})
	for _, turn := range history {
		messages = append(messages,
			domain.ChatMessage{Role: domain.ChatRoleUser, Content: turn.Question},
			domain.ChatMessage{Role: domain.ChatRoleAssistant, Content: turn.Answer},
		)
	}
	messages = append(messages, domain.ChatMessage{Role: domain.ChatRoleUser, Content: question})
	return messages
}

const condenseSystemPrompt = `Given the conversation and a follow-up question, rephrase the follow-up
question to be a standalone question. Reply with the question only.`

// CondenseMessages composes the chat that rewrites a follow-up question
func CondenseMessages(history []domain.Turn, question string) []domain.ChatMessage {
	var b strings.Builder
	b.WriteString("Chat history:\n")
	for _, turn := range history {
		fmt.Fprintf(&b, "Human: %s\nAssistant: %s\n", turn.Question, turn.Answer)
	}
	fmt.Fprintf(&b, "\nFollow-up question: %s", question)

	return []domain.ChatMessage{
		{Role: domain.ChatRoleSystem, Content: condenseSystemPrompt},
		{Role: domain.ChatRoleUser, Content: b.String()},
	}
}

func pageLabel(p domain.Passage) string {
	if p.EndPage > p.Page {
		return fmt.Sprintf("pages %d-%d", p.Page, p.EndPage)
	}
	return fmt.Sprintf("page %d", p.Page)
}

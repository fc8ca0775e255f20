package driven

import (
	"context"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
)

// LLMService provides chat completion for answer generation
type LLMService interface {
	// Chat sends the messages in order and returns the model's reply
	Chat(ctx context.Context, messages []domain.ChatMessage, opts domain.ChatOptions) (string, error)

	// Model returns the model name being used
	Model() string

	// Ping verifies the LLM service is available
	Ping(ctx context.Context) error

	// Close releases resources held by the LLM service
	Close() error
}

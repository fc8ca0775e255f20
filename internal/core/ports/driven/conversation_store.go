package driven

import (
	"context"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
)

// ConversationStore keeps conversation sessions between requests (Redis or memory).
// Entries expire; a lost conversation only means an answer has less history.
type ConversationStore interface {
	// Get returns the conversation for the session and document.
	// Returns domain.ErrNotFound if none is stored.
	Get(ctx context.Context, sessionID, documentID string) (*domain.Conversation, error)

	// Save stores the conversation, refreshing its expiry
	Save(ctx context.Context, conv *domain.Conversation) error

	// Delete drops the conversation
	Delete(ctx context.Context, sessionID, documentID string) error
}

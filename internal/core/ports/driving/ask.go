package driving

import (
	"context"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
)

// AskRequest is a question about one document
type AskRequest struct {
	DocumentID string `json:"document_id"`
	Question   string `json:"question"`
	SessionID  string `json:"session_id,omitempty"` // Generated when empty
}

// AskService answers questions, carrying the conversation between calls
type AskService interface {
	// Ask answers the question using the stored conversation for the session
	Ask(ctx context.Context, req AskRequest) (*domain.Answer, error)

	// Forget drops the conversation for a session and document
	Forget(ctx context.Context, sessionID, documentID string) error
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driving"
)

// Ensure askService implements AskService
var _ driving.AskService = (*askService)(nil)

// askService loads and saves conversations around the AnswerGenerator
type askService struct {
	generator     *AnswerGenerator
	conversations driven.ConversationStore
	maxTurns      int
	logger        *slog.Logger
}

// NewAskService creates a new AskService.
// maxTurns bounds new conversations; 0 means unbounded.
func NewAskService(generator *AnswerGenerator, conversations driven.ConversationStore, maxTurns int, logger *slog.Logger) driving.AskService {
	if logger == nil {
		logger = slog.Default()
	}
	return &askService{
		generator:     generator,
		conversations: conversations,
		maxTurns:      maxTurns,
		logger:        logger.With("service", "ask"),
	}
}

// Ask answers the question within the session's conversation about the document.
// The conversation is saved only when an answer was produced.
func (s *askService) Ask(ctx context.Context, req driving.AskRequest) (*domain.Answer, error) {
	documentID := strings.TrimSpace(req.DocumentID)
	if documentID == "" {
		return nil, fmt.Errorf("%w: document_id required", domain.ErrInvalidInput)
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	logger := s.logger.With("session_id", sessionID, "document_id", documentID)

	conv := s.loadConversation(ctx, sessionID, documentID, logger)

	answer, next, err := s.generator.Answer(ctx, documentID, req.Question, conv)
	if err != nil {
		return nil, err
	}

	// Sessions are advisory; a failed save only costs history
	if err := s.conversations.Save(ctx, &next); err != nil {
		logger.Warn("failed to save conversation", "error", err)
	}

	answer.SessionID = sessionID
	return answer, nil
}

// Forget drops the conversation for a session and document
func (s *askService) Forget(ctx context.Context, sessionID, documentID string) error {
	if sessionID == "" || documentID == "" {
		return fmt.Errorf("%w: session_id and document_id required", domain.ErrInvalidInput)
	}
	return s.conversations.Delete(ctx, sessionID, documentID)
}

func (s *askService) loadConversation(ctx context.Context, sessionID, documentID string, logger *slog.Logger) domain.Conversation {
	stored, err := s.conversations.Get(ctx, sessionID, documentID)
	if err == nil {
		conv := *stored
		// A changed limit applies to existing sessions
		conv.MaxTurns = s.maxTurns
		return conv
	}
	if !errors.Is(err, domain.ErrNotFound) {
		logger.Warn("failed to load conversation, starting fresh", "error", err)
	}
	return domain.NewConversation(sessionID, documentID, s.maxTurns)
}

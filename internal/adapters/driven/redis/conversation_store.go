package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ConversationStore = (*ConversationStore)(nil)

const (
	conversationPrefix = keyPrefix + "conversation:"

	// DefaultConversationTTL is how long an idle conversation is kept
	DefaultConversationTTL = 30 * time.Minute
)

// ConversationStore implements driven.ConversationStore using Redis.
// Each save refreshes the TTL, so idle conversations expire on their own.
type ConversationStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewConversationStore creates a new Redis-backed ConversationStore
func NewConversationStore(client *redis.Client, ttl time.Duration) *ConversationStore {
	if ttl <= 0 {
		ttl = DefaultConversationTTL
	}
	return &ConversationStore{client: client, ttl: ttl}
}

func conversationKey(sessionID, documentID string) string {
	return conversationPrefix + sessionID + ":" + documentID
}

// Get retrieves the conversation for a session and document
func (s *ConversationStore) Get(ctx context.Context, sessionID, documentID string) (*domain.Conversation, error) {
	data, err := s.client.Get(ctx, conversationKey(sessionID, documentID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	var conv domain.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conversation: %w", err)
	}

	return &conv, nil
}

// Save stores the conversation and refreshes its TTL
func (s *ConversationStore) Save(ctx context.Context, conv *domain.Conversation) error {
	if conv.SessionID == "" || conv.DocumentID == "" {
		return fmt.Errorf("%w: conversation needs session and document", domain.ErrInvalidInput)
	}

	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}

	if err := s.client.Set(ctx, conversationKey(conv.SessionID, conv.DocumentID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	return nil
}

// Delete drops the conversation
func (s *ConversationStore) Delete(ctx context.Context, sessionID, documentID string) error {
	if err := s.client.Del(ctx, conversationKey(sessionID, documentID)).Err(); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return nil
}

package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ConversationStore = (*ConversationStore)(nil)

type conversationKey struct {
	sessionID  string
	documentID string
}

type conversationEntry struct {
	conv    domain.Conversation
	expires time.Time
}

// ConversationStore keeps conversations in memory and expires idle ones lazily
type ConversationStore struct {
	mu      sync.Mutex
	entries map[conversationKey]conversationEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewConversationStore creates a store. ttl <= 0 disables expiry.
func NewConversationStore(ttl time.Duration) *ConversationStore {
	return &ConversationStore{
		entries: make(map[conversationKey]conversationEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns a copy of the stored conversation
func (s *ConversationStore) Get(_ context.Context, sessionID, documentID string) (*domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := conversationKey{sessionID, documentID}
	entry, ok := s.entries[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if s.ttl > 0 && !s.now().Before(entry.expires) {
		delete(s.entries, key)
		return nil, domain.ErrNotFound
	}

	conv := entry.conv
	conv.Turns = entry.conv.History()
	return &conv, nil
}

// Save stores a copy of the conversation and refreshes its expiry
func (s *ConversationStore) Save(_ context.Context, conv *domain.Conversation) error {
	if conv.SessionID == "" || conv.DocumentID == "" {
		return fmt.Errorf("%w: conversation needs session and document", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *conv
	stored.Turns = conv.History()
	s.entries[conversationKey{conv.SessionID, conv.DocumentID}] = conversationEntry{
		conv:    stored,
		expires: s.now().Add(s.ttl),
	}
	s.sweep()
	return nil
}

// Delete drops the conversation
func (s *ConversationStore) Delete(_ context.Context, sessionID, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, conversationKey{sessionID, documentID})
	return nil
}

// Len returns the number of stored conversations, expired or not
func (s *ConversationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// sweep removes expired entries. Caller holds mu.
func (s *ConversationStore) sweep() {
	if s.ttl <= 0 {
		return
	}
	now := s.now()
	for key, entry := range s.entries {
		if !now.Before(entry.expires) {
			delete(s.entries, key)
		}
	}
}

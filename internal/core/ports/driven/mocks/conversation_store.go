package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
)

// MockConversationStore is a mock implementation of ConversationStore for testing
type MockConversationStore struct {
	mu    sync.RWMutex
	convs map[string]domain.Conversation

	// Custom behavior hooks (optional)
	SaveFn func(conv *domain.Conversation) error
}

// NewMockConversationStore creates a new MockConversationStore
func NewMockConversationStore() *MockConversationStore {
	return &MockConversationStore{convs: make(map[string]domain.Conversation)}
}

func key(sessionID, documentID string) string {
	return sessionID + "/" + documentID
}

func (m *MockConversationStore) Get(ctx context.Context, sessionID, documentID string) (*domain.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conv, ok := m.convs[key(sessionID, documentID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	conv.Turns = conv.History()
	return &conv, nil
}

func (m *MockConversationStore) Save(ctx context.Context, conv *domain.Conversation) error {
	if m.SaveFn != nil {
		if err := m.SaveFn(conv); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *conv
	stored.Turns = conv.History()
	m.convs[key(conv.SessionID, conv.DocumentID)] = stored
	return nil
}

func (m *MockConversationStore) Delete(ctx context.Context, sessionID, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.convs, key(sessionID, documentID))
	return nil
}

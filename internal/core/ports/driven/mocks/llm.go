package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
)

// MockLLMService is a testify mock of LLMService.
// Expectations are set with On("Chat", ...).
type MockLLMService struct {
	mock.Mock
}

// NewMockLLMService creates a new MockLLMService
func NewMockLLMService() *MockLLMService {
	return &MockLLMService{}
}

func (m *MockLLMService) Chat(ctx context.Context, messages []domain.ChatMessage, opts domain.ChatOptions) (string, error) {
	args := m.Called(ctx, messages, opts)
	return args.String(0), args.Error(1)
}

func (m *MockLLMService) Model() string {
	return "mock-llm"
}

func (m *MockLLMService) Ping(ctx context.Context) error {
	return nil
}

func (m *MockLLMService) Close() error {
	return nil
}

// ChatMessages returns the messages of the n-th Chat call
func (m *MockLLMService) ChatMessages(n int) []domain.ChatMessage {
	var seen int
	for _, call := range m.Calls {
		if call.Method != "Chat" {
			continue
		}
		if seen == n {
			return call.Arguments.Get(1).([]domain.ChatMessage)
		}
		seen++
	}
	return nil
}

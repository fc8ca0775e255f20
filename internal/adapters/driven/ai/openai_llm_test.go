package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
)

func TestNewOpenAILLM_RequiresAPIKey(t *testing.T) {
	_, err := NewOpenAILLM("", "", "")
	assert.Error(t, err)
}

func TestOpenAILLM_Chat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req chatCompletionRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		assert.Len(t, req.Messages, 1)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Paris"}}]}`))
	}))
	defer server.Close()

	llm, err := NewOpenAILLM("sk-test", "", server.URL)
	require.NoError(t, err)

	reply, err := llm.Chat(context.Background(), []domain.ChatMessage{{Role: domain.ChatRoleUser, Content: "Capital of France?"}}, domain.ChatOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Paris", reply)
}

func TestOpenAILLM_ChatErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"api error", http.StatusTooManyRequests, `{"error":{"message":"rate limited","type":"requests"}}`},
		{"no choices", http.StatusOK, `{"choices":[]}`},
		{"bad status", http.StatusBadGateway, `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			llm, err := NewOpenAILLM("sk-test", "", server.URL)
			require.NoError(t, err)

			_, err = llm.Chat(context.Background(), nil, domain.ChatOptions{})
			assert.Error(t, err)
		})
	}
}

package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
)

func TestNewOllamaEmbedding_Defaults(t *testing.T) {
	emb, err := NewOllamaEmbedding("", "")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:11434", emb.baseURL)
	assert.Equal(t, "nomic-embed-text", emb.Model())
	assert.Equal(t, 768, emb.Dimensions())
}

func TestOllamaEmbedding_Embed(t *testing.T) {
	var prompts []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)

		var req ollamaEmbeddingRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "custom-embed", req.Model)
		prompts = append(prompts, req.Prompt)

		_, _ = w.Write([]byte(`{"embedding":[` + strings.Repeat("0.5,", 3) + `0.5]}`))
	}))
	defer server.Close()

	emb, err := NewOllamaEmbedding(server.URL, "custom-embed")
	require.NoError(t, err)
	assert.Equal(t, 0, emb.Dimensions())

	vectors, err := emb.Embed(context.Background(), []string{"first", "second"})
	require.NoError(t, err)

	assert.Len(t, vectors, 2)
	assert.Equal(t, []string{"first", "second"}, prompts)
	assert.Equal(t, 4, emb.Dimensions())
}

func TestOllamaEmbedding_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"model missing", http.StatusNotFound, `{"error":"model not found"}`},
		{"error field", http.StatusOK, `{"error":"overloaded"}`},
		{"empty vector", http.StatusOK, `{"embedding":[]}`},
		{"bad json", http.StatusOK, `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			emb, err := NewOllamaEmbedding(server.URL, "")
			require.NoError(t, err)

			_, err = emb.EmbedQuery(context.Background(), "question")
			assert.True(t, errors.Is(err, domain.ErrEmbeddingFailure), "got %v", err)
		})
	}
}

func TestOllamaLLM_Chat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)

		var req ollamaChatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama2", req.Model)
		assert.False(t, req.Stream)
		if assert.NotNil(t, req.Options) {
			assert.InDelta(t, 0.7, req.Options.Temperature, 1e-9)
		}
		if assert.Len(t, req.Messages, 2) {
			assert.Equal(t, "system", req.Messages[0].Role)
			assert.Equal(t, "user", req.Messages[1].Role)
		}

		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"  The answer.  "},"done":true}`))
	}))
	defer server.Close()

	llm, err := NewOllamaLLM(server.URL, "")
	require.NoError(t, err)

	reply, err := llm.Chat(context.Background(), []domain.ChatMessage{
		{Role: domain.ChatRoleSystem, Content: "context"},
		{Role: domain.ChatRoleUser, Content: "question"},
	}, domain.ChatOptions{Temperature: 0.7})
	require.NoError(t, err)

	assert.Equal(t, "The answer.", reply)
}

func TestOllamaLLM_ChatError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer server.Close()

	llm, err := NewOllamaLLM(server.URL, "llama2")
	require.NoError(t, err)

	_, err = llm.Chat(context.Background(), nil, domain.ChatOptions{})
	assert.Error(t, err)
}

func TestOllama_Ping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/version" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
	}))
	defer server.Close()

	llm, err := NewOllamaLLM(server.URL, "")
	require.NoError(t, err)
	assert.NoError(t, llm.Ping(context.Background()))

	emb, err := NewOllamaEmbedding(server.URL, "")
	require.NoError(t, err)
	assert.NoError(t, emb.HealthCheck(context.Background()))

	down, err := NewOllamaLLM("http://localhost:99999", "")
	require.NoError(t, err)
	assert.True(t, errors.Is(down.Ping(context.Background()), domain.ErrServiceUnavailable))
}

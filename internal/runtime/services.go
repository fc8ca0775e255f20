// Package runtime holds the AI clients shared by the services.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driven"
)

// Services holds the embedding and LLM clients built at startup.
// Thread-safe for concurrent access.
type Services struct {
	mu sync.RWMutex

	// Config tracks capability flags
	config *domain.RuntimeConfig

	embeddingService driven.EmbeddingService
	llmService       driven.LLMService
}

// NewServices creates an empty Services holder
func NewServices(config *domain.RuntimeConfig) *Services {
	if config == nil {
		config = domain.NewRuntimeConfig("", "", "")
	}
	return &Services{
		config: config,
	}
}

// Config returns the runtime configuration
func (s *Services) Config() *domain.RuntimeConfig {
	return s.config
}

// EmbeddingService returns the embedding service (may be nil)
func (s *Services) EmbeddingService() driven.EmbeddingService {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.embeddingService
}

// LLMService returns the LLM service (may be nil)
func (s *Services) LLMService() driven.LLMService {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.llmService
}

// SetEmbeddingService replaces the embedding service, closing the old one.
func (s *Services) SetEmbeddingService(svc driven.EmbeddingService) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.embeddingService != nil && s.embeddingService != svc {
		_ = s.embeddingService.Close()
	}

	s.embeddingService = svc
	s.config.SetEmbeddingAvailable(svc != nil)
}

// SetLLMService replaces the LLM service, closing the old one.
func (s *Services) SetLLMService(svc driven.LLMService) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.llmService != nil && s.llmService != svc {
		_ = s.llmService.Close()
	}

	s.llmService = svc
	s.config.SetLLMAvailable(svc != nil)
}

// Close shuts down all services
func (s *Services) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.embeddingService != nil {
		_ = s.embeddingService.Close()
		s.embeddingService = nil
	}
	if s.llmService != nil {
		_ = s.llmService.Close()
		s.llmService = nil
	}

	s.config.SetEmbeddingAvailable(false)
	s.config.SetLLMAvailable(false)
	return nil
}

// Initialize builds both clients through the factory and health-checks them.
// A client that cannot be built is an error. A client that fails its health
// check is still installed, but marked unavailable, so the server can start
// before the model backend is up; a later Refresh flips the flag.
func (s *Services) Initialize(ctx context.Context, factory driven.AIServiceFactory,
	embedding *domain.EmbeddingSettings, llm *domain.LLMSettings, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	emb, err := factory.CreateEmbeddingService(embedding)
	if err != nil {
		return fmt.Errorf("create embedding service: %w", err)
	}
	chat, err := factory.CreateLLMService(llm)
	if err != nil {
		if emb != nil {
			_ = emb.Close()
		}
		return fmt.Errorf("create llm service: %w", err)
	}

	s.SetEmbeddingService(emb)
	s.SetLLMService(chat)
	s.Refresh(ctx, logger)
	return nil
}

// Refresh re-runs the health checks and updates the availability flags
func (s *Services) Refresh(ctx context.Context, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	emb := s.EmbeddingService()
	chat := s.LLMService()

	if emb != nil {
		err := emb.HealthCheck(ctx)
		if err != nil {
			logger.Warn("embedding service unavailable", "model", emb.Model(), "error", err)
		}
		s.config.SetEmbeddingAvailable(err == nil)
	}
	if chat != nil {
		err := chat.Ping(ctx)
		if err != nil {
			logger.Warn("llm service unavailable", "model", chat.Model(), "error", err)
		}
		s.config.SetLLMAvailable(err == nil)
	}
}

// ValidateAndSetEmbedding validates connectivity before setting embedding service
func (s *Services) ValidateAndSetEmbedding(ctx context.Context, svc driven.EmbeddingService) error {
	if svc == nil {
		s.SetEmbeddingService(nil)
		return nil
	}
	if err := svc.HealthCheck(ctx); err != nil {
		_ = svc.Close()
		return err
	}
	s.SetEmbeddingService(svc)
	return nil
}

// ValidateAndSetLLM validates connectivity before setting LLM service
func (s *Services) ValidateAndSetLLM(ctx context.Context, svc driven.LLMService) error {
	if svc == nil {
		s.SetLLMService(nil)
		return nil
	}
	if err := svc.Ping(ctx); err != nil {
		_ = svc.Close()
		return err
	}
	s.SetLLMService(svc)
	return nil
}

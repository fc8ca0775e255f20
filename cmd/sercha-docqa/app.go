package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-docqa/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-docqa/internal/adapters/driven/filesystem"
	"github.com/custodia-labs/sercha-docqa/internal/adapters/driven/memory"
	"github.com/custodia-labs/sercha-docqa/internal/adapters/driven/postgres"
	redisadapter "github.com/custodia-labs/sercha-docqa/internal/adapters/driven/redis"
	"github.com/custodia-labs/sercha-docqa/internal/adapters/driven/sqlite"
	"github.com/custodia-labs/sercha-docqa/internal/adapters/driving/http"
	"github.com/custodia-labs/sercha-docqa/internal/config"
	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-docqa/internal/core/services"
	"github.com/custodia-labs/sercha-docqa/internal/normalisers"
	"github.com/custodia-labs/sercha-docqa/internal/postprocessors"
	"github.com/custodia-labs/sercha-docqa/internal/runtime"
	"github.com/custodia-labs/sercha-docqa/internal/vectorindex"
)

// app holds the wired services shared by every command
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	runtime   *runtime.Services
	documents driving.DocumentService
	ask       driving.AskService
	checks    map[string]http.Pinger

	closers []func() error
}

// newApp connects every backend selected by cfg and builds the services.
// The caller must call close.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{
		cfg:    cfg,
		logger: logger,
		checks: make(map[string]http.Pinger),
	}
	defer func() {
		if err != nil {
			_ = a.close()
		}
	}()

	// ===== Document store =====
	var (
		documents driven.DocumentStore
		lock      driven.DistributedLock
	)
	switch cfg.Database.Driver {
	case config.DatabasePostgres:
		logger.Info("connecting to postgres")
		db, err := postgres.Connect(ctx, postgres.Config{
			URL:             cfg.Database.URL,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			ConnMaxIdleTime: postgres.DefaultConfig("").ConnMaxIdleTime,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		applied, err := db.Migrate(ctx)
		if err != nil {
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		logger.Info("postgres schema up to date", "applied", applied)
		documents = postgres.NewDocumentStore(db)
		lock = postgres.NewAdvisoryLock(db)
		a.checks["postgres"] = db
	default:
		logger.Info("opening sqlite database", "path", cfg.Database.SQLitePath)
		store, err := sqlite.Open(ctx, cfg.Database.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		documents = store
		a.checks["sqlite"] = store
	}

	// ===== Redis (optional) =====
	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		logger.Info("connecting to redis")
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		redisClient = redis.NewClient(opts)
		a.closers = append(a.closers, redisClient.Close)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		redisLock := redisadapter.NewLock(redisClient)
		logger.Info("using redis build locks", "owner", redisLock.OwnerID())
		lock = redisLock
		a.checks["redis"] = redisLock
	}
	if lock == nil {
		lock = memory.NewLock()
	}

	var conversations driven.ConversationStore
	sessionBackend := "memory"
	if redisClient != nil {
		conversations = redisadapter.NewConversationStore(redisClient, cfg.Conversation.TTL)
		sessionBackend = "redis"
	} else {
		conversations = memory.NewConversationStore(cfg.Conversation.TTL)
	}

	// ===== File and index storage =====
	uploads, err := filesystem.NewUploadStore(cfg.Storage.UploadDir)
	if err != nil {
		return nil, fmt.Errorf("open upload store: %w", err)
	}

	var indexStorage driven.IndexStorage
	switch cfg.Storage.IndexBackend {
	case config.IndexStorageRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("%w: redis index storage requires REDIS_URL", domain.ErrInvalidInput)
		}
		indexStorage = redisadapter.NewIndexStorage(redisClient)
	default:
		fsIndex, err := filesystem.NewIndexStorage(cfg.Storage.VectorStoreDir)
		if err != nil {
			return nil, fmt.Errorf("open index storage: %w", err)
		}
		logger.Info("storing indexes on disk", "root", fsIndex.Root())
		indexStorage = fsIndex
	}

	// ===== AI services =====
	a.runtime = runtime.NewServices(domain.NewRuntimeConfig(cfg.Database.Driver, sessionBackend, cfg.Storage.IndexBackend))
	a.closers = append(a.closers, a.runtime.Close)
	if err := a.runtime.Initialize(ctx, ai.NewFactory(), &cfg.Embedding, &cfg.LLM, logger); err != nil {
		return nil, fmt.Errorf("initialize ai services: %w", err)
	}

	// ===== Core services =====
	chunker, err := postprocessors.NewChunker(cfg.Chunking)
	if err != nil {
		return nil, fmt.Errorf("create chunker: %w", err)
	}
	cache, err := vectorindex.NewCache(cfg.Index.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create index cache: %w", err)
	}
	indexStore := vectorindex.NewStore(indexStorage)
	registry := services.NewIndexRegistry(documents, lock)

	a.documents = services.NewIngestService(services.IngestServiceConfig{
		DocumentStore: documents,
		UploadStore:   uploads,
		Extractors:    normalisers.DefaultRegistry(),
		Registry:      registry,
		IndexStore:    indexStore,
		Cache:         cache,
		Chunker:       chunker,
		Services:      a.runtime,
		BuildOptions:  cfg.Index.Build,
		Logger:        logger,
	})

	generator := services.NewAnswerGenerator(services.AnswerGeneratorConfig{
		Registry:   registry,
		IndexStore: indexStore,
		Cache:      cache,
		Services:   a.runtime,
		Options:    cfg.Answer,
		Logger:     logger,
	})
	a.ask = services.NewAskService(generator, conversations, cfg.Conversation.MaxTurns, logger)

	logger.Info("services ready",
		"database", cfg.Database.Driver,
		"sessions", sessionBackend,
		"index_storage", cfg.Storage.IndexBackend,
		"can_ingest", a.runtime.Config().CanIngest(),
		"can_answer", a.runtime.Config().CanAnswer(),
	)
	return a, nil
}

// close releases backends in reverse order of opening
func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

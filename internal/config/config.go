// Package config loads application configuration from defaults, an
// optional YAML file, a .env file and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
	"github.com/custodia-labs/sercha-docqa/internal/core/services"
	"github.com/custodia-labs/sercha-docqa/internal/logging"
	"github.com/custodia-labs/sercha-docqa/internal/postprocessors"
	"github.com/custodia-labs/sercha-docqa/internal/vectorindex"
)

// Backend names
const (
	DatabasePostgres = "postgres"
	DatabaseSQLite   = "sqlite"

	IndexStorageFilesystem = "filesystem"
	IndexStorageRedis      = "redis"
)

// EnvConfigPath names the variable holding the YAML config path
const EnvConfigPath = "DOCQA_CONFIG"

// Config is the root application configuration
type Config struct {
	Server       ServerConfig               `yaml:"server"`
	Database     DatabaseConfig             `yaml:"database"`
	Redis        RedisConfig                `yaml:"redis"`
	Storage      StorageConfig              `yaml:"storage"`
	Embedding    domain.EmbeddingSettings   `yaml:"embedding"`
	LLM          domain.LLMSettings         `yaml:"llm"`
	Chunking     postprocessors.ChunkConfig `yaml:"chunking"`
	Index        IndexConfig                `yaml:"index"`
	Answer       services.AnswerOptions     `yaml:"answer"`
	Conversation ConversationConfig         `yaml:"conversation"`
	Watch        WatchConfig                `yaml:"watch"`
	Log          logging.Config             `yaml:"log"`
}

// ServerConfig configures the HTTP server
type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxUploadMB    int      `yaml:"max_upload_mb"`
}

// DatabaseConfig selects and configures the document store
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"` // postgres or sqlite
	URL             string        `yaml:"url"`
	SQLitePath      string        `yaml:"sqlite_path"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// RedisConfig configures Redis. Sessions and locks fall back to
// in-process implementations when URL is empty.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// StorageConfig configures where uploads and indexes are kept
type StorageConfig struct {
	UploadDir      string `yaml:"upload_dir"`
	VectorStoreDir string `yaml:"vector_store_dir"`
	IndexBackend   string `yaml:"index_backend"` // filesystem or redis
}

// IndexConfig tunes index building and caching
type IndexConfig struct {
	CacheSize int                      `yaml:"cache_size"`
	Build     vectorindex.BuildOptions `yaml:"build"`
}

// ConversationConfig bounds conversation sessions
type ConversationConfig struct {
	MaxTurns int           `yaml:"max_turns"`
	TTL      time.Duration `yaml:"ttl"`
}

// WatchConfig configures watch-directory ingestion
type WatchConfig struct {
	Dir             string        `yaml:"dir"`
	Concurrency     int           `yaml:"concurrency"`
	Settle          time.Duration `yaml:"settle"`
	IncludeExisting bool          `yaml:"include_existing"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8000,
			AllowedOrigins: []string{"*"},
			MaxUploadMB:    50,
		},
		Database: DatabaseConfig{
			Driver:          DatabaseSQLite,
			SQLitePath:      "data/docqa.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Storage: StorageConfig{
			UploadDir:      "uploads",
			VectorStoreDir: "vector_stores",
			IndexBackend:   IndexStorageFilesystem,
		},
		Embedding: domain.EmbeddingSettings{
			Provider: domain.AIProviderOllama,
		},
		LLM: domain.LLMSettings{
			Provider:    domain.AIProviderOllama,
			Model:       "llama2",
			Temperature: 0.7,
			Timeout:     120 * time.Second,
		},
		Chunking: postprocessors.DefaultChunkConfig(),
		Index: IndexConfig{
			CacheSize: 16,
			Build:     vectorindex.DefaultBuildOptions(),
		},
		Answer: services.DefaultAnswerOptions(),
		Conversation: ConversationConfig{
			MaxTurns: domain.DefaultMaxTurns,
			TTL:      30 * time.Minute,
		},
		Watch: WatchConfig{
			Concurrency: 2,
			Settle:      2 * time.Second,
		},
		Log: logging.DefaultConfig(),
	}
}

// Load builds the configuration. path may be empty, in which case
// DOCQA_CONFIG is consulted; a missing file is an error only when a path
// was given explicitly.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvConfigPath)
		explicit = path != ""
	}
	if path == "" {
		path = "config.yaml"
	}

	if err := cfg.loadFile(path, explicit); err != nil {
		return nil, err
	}

	// .env never overrides variables already set in the environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides fields from environment variables
func (c *Config) applyEnv() error {
	e := &envReader{}

	e.getString("DATABASE_DRIVER", &c.Database.Driver)
	if e.getString("DATABASE_URL", &c.Database.URL) && os.Getenv("DATABASE_DRIVER") == "" {
		c.Database.Driver = DatabasePostgres
	}
	e.getString("SQLITE_PATH", &c.Database.SQLitePath)
	e.getInt("DB_MAX_OPEN_CONNS", &c.Database.MaxOpenConns)
	e.getInt("DB_MAX_IDLE_CONNS", &c.Database.MaxIdleConns)

	e.getString("REDIS_URL", &c.Redis.URL)

	e.getString("UPLOAD_DIR", &c.Storage.UploadDir)
	e.getString("VECTOR_STORE_DIR", &c.Storage.VectorStoreDir)
	e.getString("INDEX_STORAGE", &c.Storage.IndexBackend)

	var provider string
	if e.getString("EMBEDDING_PROVIDER", &provider) {
		c.Embedding.Provider = domain.AIProvider(provider)
	}
	e.getString("EMBEDDING_MODEL", &c.Embedding.Model)
	e.getString("EMBEDDING_BASE_URL", &c.Embedding.BaseURL)

	if e.getString("LLM_PROVIDER", &provider) {
		c.LLM.Provider = domain.AIProvider(provider)
	}
	e.getString("LLM_MODEL", &c.LLM.Model)
	e.getString("LLM_BASE_URL", &c.LLM.BaseURL)
	if e.getFloat("LLM_TEMPERATURE", &c.LLM.Temperature) {
		c.Answer.Temperature = c.LLM.Temperature
	}
	if e.getSeconds("LLM_TIMEOUT_SEC", &c.LLM.Timeout) {
		c.Answer.GenerationTimeout = c.LLM.Timeout
	}

	var apiKey string
	if e.getString("OPENAI_API_KEY", &apiKey) {
		if c.Embedding.Provider == domain.AIProviderOpenAI && c.Embedding.APIKey == "" {
			c.Embedding.APIKey = apiKey
		}
		if c.LLM.Provider == domain.AIProviderOpenAI && c.LLM.APIKey == "" {
			c.LLM.APIKey = apiKey
		}
	}

	e.getInt("CHUNK_SIZE", &c.Chunking.MaxChunkSize)
	e.getInt("CHUNK_OVERLAP", &c.Chunking.Overlap)
	e.getInt("RETRIEVAL_TOP_K", &c.Answer.TopK)
	e.getBool("CONDENSE_QUESTION", &c.Answer.CondenseQuestion)
	e.getInt("INDEX_CACHE_SIZE", &c.Index.CacheSize)
	e.getInt("EMBEDDING_BATCH_SIZE", &c.Index.Build.BatchSize)

	e.getInt("CONVERSATION_MAX_TURNS", &c.Conversation.MaxTurns)
	e.getSeconds("CONVERSATION_TTL_SEC", &c.Conversation.TTL)

	e.getString("SERVER_HOST", &c.Server.Host)
	e.getInt("PORT", &c.Server.Port)

	e.getString("LOG_LEVEL", &c.Log.Level)
	e.getString("LOG_FORMAT", &c.Log.Format)

	e.getString("WATCH_DIR", &c.Watch.Dir)
	e.getInt("WORKER_CONCURRENCY", &c.Watch.Concurrency)

	return e.err()
}

// Validate checks the values the pipeline depends on
func (c *Config) Validate() error {
	var errs []error

	if c.Chunking.MaxChunkSize < 1 {
		errs = append(errs, fmt.Errorf("chunking.max_chunk_size must be positive, got %d", c.Chunking.MaxChunkSize))
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.MaxChunkSize {
		errs = append(errs, fmt.Errorf("chunking.overlap must be in [0, %d), got %d", c.Chunking.MaxChunkSize, c.Chunking.Overlap))
	}
	if c.Answer.TopK < 1 {
		errs = append(errs, fmt.Errorf("answer.top_k must be at least 1, got %d", c.Answer.TopK))
	}
	if c.Conversation.MaxTurns < 0 {
		errs = append(errs, fmt.Errorf("conversation.max_turns must not be negative, got %d", c.Conversation.MaxTurns))
	}
	if c.Index.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("index.cache_size must not be negative, got %d", c.Index.CacheSize))
	}

	switch c.Database.Driver {
	case DatabasePostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("database.url is required for postgres"))
		}
	case DatabaseSQLite:
		if c.Database.SQLitePath == "" {
			errs = append(errs, errors.New("database.sqlite_path is required for sqlite"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown database driver %q", c.Database.Driver))
	}

	switch c.Storage.IndexBackend {
	case IndexStorageFilesystem:
	case IndexStorageRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("redis index storage requires redis.url"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown index storage %q", c.Storage.IndexBackend))
	}

	for name, p := range map[string]domain.AIProvider{"embedding": c.Embedding.Provider, "llm": c.LLM.Provider} {
		if p != "" && !p.IsValid() {
			errs = append(errs, fmt.Errorf("%s: %w: %s", name, domain.ErrInvalidProvider, p))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, errors.Join(errs...))
	}
	return nil
}

// envReader reads typed environment variables, collecting parse errors
type envReader struct {
	errs []error
}

func (e *envReader) lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *envReader) getString(key string, dst *string) bool {
	v, ok := e.lookup(key)
	if ok {
		*dst = v
	}
	return ok
}

func (e *envReader) getInt(key string, dst *int) bool {
	v, ok := e.lookup(key)
	if !ok {
		return false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %q is not an integer", key, v))
		return false
	}
	*dst = n
	return true
}

func (e *envReader) getFloat(key string, dst *float64) bool {
	v, ok := e.lookup(key)
	if !ok {
		return false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %q is not a number", key, v))
		return false
	}
	*dst = f
	return true
}

func (e *envReader) getBool(key string, dst *bool) bool {
	v, ok := e.lookup(key)
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		switch strings.ToLower(v) {
		case "yes", "on":
			b = true
		case "no", "off":
			b = false
		default:
			e.errs = append(e.errs, fmt.Errorf("%s: %q is not a boolean", key, v))
			return false
		}
	}
	*dst = b
	return true
}

func (e *envReader) getSeconds(key string, dst *time.Duration) bool {
	var n int
	if !e.getInt(key, &n) {
		return false
	}
	*dst = time.Duration(n) * time.Second
	return true
}

func (e *envReader) err() error {
	if len(e.errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", domain.ErrInvalidInput, errors.Join(e.errs...))
}

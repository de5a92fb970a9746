package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	// Postgres connection (pgvector enabled)
	DatabaseURL string

	// Auth
	APIKey string

	// Site URLs
	BaseURL string

	// Document source
	DocsDir string

	// Embedding provider: "openai" or "ollama"
	EmbeddingProvider string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	OllamaHost  string
	OllamaModel string

	// Embedding dimension must match the pgvector column
	EmbeddingDimension int
	EmbedBatchSize     int

	// Chunking defaults
	TargetChunkSize int
	MaxChunkSize    int
	OverlapSize     int

	// Search defaults
	SearchLimit     int
	SearchThreshold float64
	ContextWindow   int

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Job state
	JobTTL time.Duration

	// News aggregation
	FirecrawlAPIKey     string
	TavilyAPIKey        string
	NewsQuery           string
	NewsRefreshInterval time.Duration
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8091"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		APIKey: os.Getenv("DOCSEARCH_API_KEY"),

		BaseURL: envOr("BASE_URL", "http://localhost:3000"),

		DocsDir: envOr("DOCS_DIR", "content/docs"),

		EmbeddingProvider: envOr("EMBEDDING_PROVIDER", "openai"),

		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: envOr("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:   envOr("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),

		OllamaHost:  envOr("OLLAMA_HOST", "http://127.0.0.1:11434"),
		OllamaModel: envOr("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),

		EmbeddingDimension: envInt("EMBEDDING_DIMENSION", 1536),
		EmbedBatchSize:     envInt("EMBED_BATCH_SIZE", 100),

		TargetChunkSize: envInt("TARGET_CHUNK_SIZE", 400),
		MaxChunkSize:    envInt("MAX_CHUNK_SIZE", 800),
		OverlapSize:     envInt("OVERLAP_SIZE", 75),

		SearchLimit:     envInt("SEARCH_LIMIT", 10),
		SearchThreshold: envFloat("SEARCH_THRESHOLD", 0.2),
		ContextWindow:   envInt("CONTEXT_WINDOW", 2000),

		WorkerCount:  envInt("WORKER_COUNT", 4),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		FirecrawlAPIKey:     os.Getenv("FIRECRAWL_API_KEY"),
		TavilyAPIKey:        os.Getenv("TAVILY_API_KEY"),
		NewsQuery:           envOr("NEWS_QUERY", "A2A protocol agent interoperability"),
		NewsRefreshInterval: envDuration("NEWS_REFRESH_INTERVAL", 6*time.Hour),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.EmbeddingDimension <= 0 {
		cfg.EmbeddingDimension = 1536
	}
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = 100
	}
	if cfg.TargetChunkSize <= 0 {
		cfg.TargetChunkSize = 400
	}
	if cfg.MaxChunkSize <= 0 {
		cfg.MaxChunkSize = 800
	}
	if cfg.OverlapSize < 0 {
		cfg.OverlapSize = 75
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.APIKey == "" {
		return fmt.Errorf("DOCSEARCH_API_KEY is required")
	}
	switch c.EmbeddingProvider {
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when EMBEDDING_PROVIDER=openai")
		}
	case "ollama":
	default:
		return fmt.Errorf("unknown EMBEDDING_PROVIDER %q (want openai or ollama)", c.EmbeddingProvider)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

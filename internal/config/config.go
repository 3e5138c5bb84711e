package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "VOICERAG"

// Embedding providers.
const (
	EmbeddingOpenAI  = "openai"
	EmbeddingGemini  = "gemini"
	EmbeddingHashing = "hashing"
)

// Vector index backends.
const (
	VectorPGVector = "pgvector"
	VectorChromem  = "chromem"
)

// Generation providers. "none" disables grounded generation.
const (
	GenerationOpenAI    = "openai"
	GenerationAnthropic = "anthropic"
	GenerationNone      = "none"
)

type Config struct {
	Port     string `envconfig:"PORT" default:"8080"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL      string `envconfig:"DATABASE_URL" required:"true"`
	DatabaseMaxConns int32  `envconfig:"DATABASE_MAX_CONNS" default:"10"`
	MigrationsDir    string `envconfig:"MIGRATIONS_DIR" default:"migrations"`
	AutoMigrate      bool   `envconfig:"AUTO_MIGRATE" default:"true"`

	IndexName         string `envconfig:"INDEX_NAME" default:"voicerag"`
	VectorBackend     string `envconfig:"VECTOR_BACKEND" default:"pgvector"`
	ChromemPersistDir string `envconfig:"CHROMEM_PERSIST_DIR"`

	EmbeddingProvider   string `envconfig:"EMBEDDING_PROVIDER" default:"openai"`
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-ada-002"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`
	EmbeddingCacheSize  int    `envconfig:"EMBEDDING_CACHE_SIZE" default:"0"`

	OpenAIAPIKey   string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL  string `envconfig:"OPENAI_BASE_URL"`
	GeminiAPIKey   string `envconfig:"GEMINI_API_KEY"`
	GeminiProject  string `envconfig:"GEMINI_PROJECT"`
	GeminiLocation string `envconfig:"GEMINI_LOCATION" default:"us-central1"`

	GenerationProvider string  `envconfig:"GENERATION_PROVIDER" default:"openai"`
	ChatModel          string  `envconfig:"CHAT_MODEL" default:"gpt-4o-mini"`
	ChatTemperature    float32 `envconfig:"CHAT_TEMPERATURE" default:"0.2"`
	AnthropicAPIKey    string  `envconfig:"ANTHROPIC_API_KEY"`
	AnthropicModel     string  `envconfig:"ANTHROPIC_MODEL" default:"claude-3-5-haiku-latest"`

	DefaultTopK      int           `envconfig:"DEFAULT_TOP_K" default:"5"`
	MaxTopK          int           `envconfig:"MAX_TOP_K" default:"50"`
	MaxContextChunks int           `envconfig:"MAX_CONTEXT_CHUNKS" default:"20"`
	MaxContextChars  int           `envconfig:"MAX_CONTEXT_CHARS" default:"12000"`
	QueryLogTimeout  time.Duration `envconfig:"QUERY_LOG_TIMEOUT" default:"5s"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"voicerag-documents"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	BlobDir     string `envconfig:"BLOB_DIR" default:"data/blobs"`

	HTTPWriteTimeout      time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"120s"`
	MaxDocumentBytes      int64         `envconfig:"MAX_DOCUMENT_BYTES" default:"20971520"`
	MaxRequestBytes       int64         `envconfig:"MAX_REQUEST_BYTES" default:"1048576"`
	IngestionPollInterval time.Duration `envconfig:"INGESTION_POLL_INTERVAL" default:"5s"`
	ChunkSize             int           `envconfig:"CHUNK_SIZE" default:"1000"`
	ChunkOverlap          int           `envconfig:"CHUNK_OVERLAP" default:"200"`

	SentryDSN         string  `envconfig:"SENTRY_DSN"`
	SentryEnvironment string  `envconfig:"SENTRY_ENVIRONMENT" default:"development"`
	SentrySampleRate  float64 `envconfig:"SENTRY_TRACES_SAMPLE_RATE" default:"1.0"`

	// Bootstrap: create an initial user and API key on startup
	InitUserEmail string `envconfig:"INIT_USER_EMAIL"`
	InitAPIKey    string `envconfig:"INIT_API_KEY"`
}

func Load() (*Config, error) {
	cfg, err := LoadUnvalidated()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadUnvalidated reads the environment without checking provider
// credentials. Admin commands that only touch the database use it.
func LoadUnvalidated() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	return &cfg, nil
}

// Validate checks provider selections and the credentials they need.
func (c *Config) Validate() error {
	switch c.EmbeddingProvider {
	case EmbeddingOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("%s_OPENAI_API_KEY is required for the openai embedding provider", envPrefix)
		}
	case EmbeddingGemini:
		if c.GeminiAPIKey == "" && c.GeminiProject == "" {
			return fmt.Errorf("%s_GEMINI_API_KEY or %s_GEMINI_PROJECT is required for the gemini embedding provider", envPrefix, envPrefix)
		}
	case EmbeddingHashing:
	default:
		return fmt.Errorf("unknown embedding provider %q", c.EmbeddingProvider)
	}

	switch c.VectorBackend {
	case VectorPGVector, VectorChromem:
	default:
		return fmt.Errorf("unknown vector backend %q", c.VectorBackend)
	}

	switch c.GenerationProvider {
	case GenerationOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("%s_OPENAI_API_KEY is required for the openai generation provider", envPrefix)
		}
	case GenerationAnthropic:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("%s_ANTHROPIC_API_KEY is required for the anthropic generation provider", envPrefix)
		}
	case GenerationNone:
	default:
		return fmt.Errorf("unknown generation provider %q", c.GenerationProvider)
	}

	if c.EmbeddingDimensions <= 0 {
		return fmt.Errorf("%s_EMBEDDING_DIMENSIONS must be positive", envPrefix)
	}
	if c.DefaultTopK <= 0 || c.MaxTopK < c.DefaultTopK {
		return fmt.Errorf("%s_MAX_TOP_K must be at least %s_DEFAULT_TOP_K", envPrefix, envPrefix)
	}
	return nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasGeneration() bool {
	return c.GenerationProvider != GenerationNone
}

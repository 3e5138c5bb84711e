package admin

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/cloo-solutions/voicerag/internal/claude"
	"github.com/cloo-solutions/voicerag/internal/config"
	"github.com/cloo-solutions/voicerag/internal/embedding"
	"github.com/cloo-solutions/voicerag/internal/gemini"
	"github.com/cloo-solutions/voicerag/internal/openai"
	"github.com/cloo-solutions/voicerag/internal/repository"
	"github.com/cloo-solutions/voicerag/internal/service"
	"github.com/cloo-solutions/voicerag/internal/storage"
	"github.com/cloo-solutions/voicerag/internal/vectorstore"
)

// newEmbedder builds the configured embedding provider, wrapped in an
// in-process cache when EMBEDDING_CACHE_SIZE is set. The returned close
// function releases the cache.
func newEmbedder(ctx context.Context, cfg *config.Config) (service.EmbeddingClient, func(), error) {
	var base embedding.Embedder
	switch cfg.EmbeddingProvider {
	case config.EmbeddingOpenAI:
		base = openai.NewClientWithConfig(openai.Config{
			APIKey:              cfg.OpenAIAPIKey,
			BaseURL:             cfg.OpenAIBaseURL,
			EmbeddingModel:      goopenai.EmbeddingModel(cfg.EmbeddingModel),
			EmbeddingDimensions: cfg.EmbeddingDimensions,
		})
	case config.EmbeddingGemini:
		model := cfg.EmbeddingModel
		if model == string(openai.DefaultEmbeddingModel) {
			model = gemini.DefaultEmbeddingModel
		}
		g, err := gemini.NewEmbedder(ctx, gemini.Config{
			APIKey:     cfg.GeminiAPIKey,
			Project:    cfg.GeminiProject,
			Location:   cfg.GeminiLocation,
			Model:      model,
			Dimensions: cfg.EmbeddingDimensions,
		})
		if err != nil {
			return nil, nil, err
		}
		base = g
	case config.EmbeddingHashing:
		base = embedding.NewHashingEmbedder(cfg.EmbeddingDimensions)
	default:
		return nil, nil, fmt.Errorf("unknown embedding provider %q", cfg.EmbeddingProvider)
	}

	if cfg.EmbeddingCacheSize <= 0 {
		return base, func() {}, nil
	}
	cached, err := embedding.NewCachedEmbedder(base, cfg.EmbeddingCacheSize)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create embedding cache: %w", err)
	}
	return cached, cached.Close, nil
}

// newVectorIndex selects the pgvector table or an embedded chromem
// collection. pool may be nil only for the chromem backend.
func newVectorIndex(cfg *config.Config, pool *pgxpool.Pool) (service.VectorIndex, error) {
	switch cfg.VectorBackend {
	case config.VectorPGVector:
		if pool == nil {
			return nil, fmt.Errorf("pgvector backend needs a database pool")
		}
		return repository.NewVectorIndex(pool, cfg.IndexName), nil
	case config.VectorChromem:
		return vectorstore.NewChromemIndex(cfg.IndexName, cfg.ChromemPersistDir)
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.VectorBackend)
	}
}

// newGenerator returns nil when grounded generation is disabled.
func newGenerator(cfg *config.Config) (service.Generator, error) {
	switch cfg.GenerationProvider {
	case config.GenerationOpenAI:
		api := openai.NewAPIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
		return openai.NewChatGenerator(api, cfg.ChatModel, cfg.ChatTemperature), nil
	case config.GenerationAnthropic:
		return claude.NewGenerator(cfg.AnthropicAPIKey, cfg.AnthropicModel), nil
	case config.GenerationNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown generation provider %q", cfg.GenerationProvider)
	}
}

// newBlobStore prefers S3 when credentials are configured and falls back to
// the local filesystem.
func newBlobStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (service.BlobStore, error) {
	if !cfg.HasS3() {
		store, err := storage.NewFileStore(cfg.BlobDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open blob dir: %w", err)
		}
		logger.Info("using filesystem blob store", zap.String("dir", cfg.BlobDir))
		return store, nil
	}

	client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Bucket:          cfg.S3Bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	if err := client.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
	}
	logger.Info("S3 bucket ready", zap.String("bucket", cfg.S3Bucket))
	return client, nil
}

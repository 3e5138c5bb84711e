package service

import (
	"context"

	"github.com/cloo-solutions/voicerag/internal/domain"
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex is the similarity store behind memories and knowledge chunks.
// Every call carries a non-empty metadata filter.
type VectorIndex interface {
	Upsert(ctx context.Context, rec domain.VectorRecord) error
	Query(ctx context.Context, vector []float32, topK int, filter domain.VectorFilter) ([]domain.VectorMatch, error)
	DeleteMany(ctx context.Context, filter domain.VectorFilter) (int, error)
}

// Generator produces a grounded answer from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt domain.Prompt) (string, error)
}

// embed runs the embedding client and makes sure any failure that is not
// already classified reaches the caller as a provider error.
func embed(ctx context.Context, client EmbeddingClient, text string) ([]float32, error) {
	vec, err := client.GenerateEmbedding(ctx, text)
	if err != nil {
		if domain.CodeOf(err) == "" {
			return nil, domain.NewProviderError("failed to generate embedding", err)
		}
		return nil, err
	}
	if len(vec) == 0 {
		return nil, domain.NewProviderError("malformed embedding", domain.ErrMissingRequiredField)
	}
	return vec, nil
}

// indexErr classifies an unclassified vector index failure.
func indexErr(message string, err error) error {
	if domain.CodeOf(err) == "" {
		return domain.NewIndexError(message, err)
	}
	return err
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		limit = def
	}
	if max > 0 && limit > max {
		limit = max
	}
	return limit
}

// Package gemini provides an embedding provider backed by the Gemini API or
// Vertex AI.
package gemini

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/cloo-solutions/voicerag/internal/domain"
)

const DefaultEmbeddingModel = "gemini-embedding-001"

var ErrWrongDimensions = errors.New("embedding has wrong dimensions")

// ModelsAPI is satisfied by *genai.Models.
type ModelsAPI interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

type Config struct {
	APIKey     string
	Project    string
	Location   string
	Model      string
	Dimensions int
}

// Embedder generates embeddings with a Gemini embedding model. The output
// dimensionality is requested explicitly so it lines up with the index.
type Embedder struct {
	models     ModelsAPI
	model      string
	dimensions int
}

// NewEmbedder creates a client. A project selects Vertex AI, otherwise the
// API key is used against the Gemini API.
func NewEmbedder(ctx context.Context, cfg Config) (*Embedder, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.Project != "" {
		clientCfg = &genai.ClientConfig{
			Project:  cfg.Project,
			Location: cfg.Location,
			Backend:  genai.BackendVertexAI,
		}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return NewEmbedderWithAPI(client.Models, cfg.Model, cfg.Dimensions), nil
}

func NewEmbedderWithAPI(models ModelsAPI, model string, dimensions int) *Embedder {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &Embedder{models: models, model: model, dimensions: dimensions}
}

func (e *Embedder) Dimensions() int {
	return e.dimensions
}

func (e *Embedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "text cannot be empty")
	}

	cfg := &genai.EmbedContentConfig{}
	if e.dimensions > 0 {
		dims := int32(e.dimensions)
		cfg.OutputDimensionality = &dims
	}

	resp, err := e.models.EmbedContent(ctx, e.model, genai.Text(text), cfg)
	if err != nil {
		return nil, domain.NewProviderError("failed to embed content", err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, domain.NewProviderError("malformed embedding", errors.New("no embeddings returned"))
	}

	values := resp.Embeddings[0].Values
	if len(values) == 0 || (e.dimensions > 0 && len(values) != e.dimensions) {
		return nil, domain.NewProviderError("malformed embedding",
			fmt.Errorf("%w: got %d, expected %d", ErrWrongDimensions, len(values), e.dimensions))
	}
	return values, nil
}

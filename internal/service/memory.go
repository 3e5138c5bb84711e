package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cloo-solutions/voicerag/internal/domain"
	"github.com/cloo-solutions/voicerag/internal/logging"
	"github.com/cloo-solutions/voicerag/internal/telemetry"
)

const (
	DefaultMemoryLimit = 5
	DefaultMaxTopK     = 50
)

// MemoryConfig bounds memory queries.
type MemoryConfig struct {
	DefaultLimit int
	MaxTopK      int
}

func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		DefaultLimit: DefaultMemoryLimit,
		MaxTopK:      DefaultMaxTopK,
	}
}

// MemoryService saves and recalls free-text memories for an (agent, user)
// pair. It holds no state of its own.
type MemoryService struct {
	embedder EmbeddingClient
	index    VectorIndex
	uuidGen  UUIDGenerator
	cfg      MemoryConfig
	now      func() time.Time
}

func NewMemoryService(embedder EmbeddingClient, index VectorIndex, cfg MemoryConfig) *MemoryService {
	return NewMemoryServiceWithUUIDGen(embedder, index, cfg, &DefaultUUIDGenerator{})
}

// NewMemoryServiceWithUUIDGen creates a MemoryService with custom UUID generator (for testing)
func NewMemoryServiceWithUUIDGen(embedder EmbeddingClient, index VectorIndex, cfg MemoryConfig, uuidGen UUIDGenerator) *MemoryService {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultMemoryLimit
	}
	if cfg.MaxTopK <= 0 {
		cfg.MaxTopK = DefaultMaxTopK
	}
	return &MemoryService{
		embedder: embedder,
		index:    index,
		uuidGen:  uuidGen,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SaveMemoryInput represents the input for saving a memory
type SaveMemoryInput struct {
	AgentID  string
	UserID   string
	Content  string
	Metadata map[string]any
}

// Save embeds the content as given and stores it under a fresh id. Caller metadata is
// kept, but the scope and bookkeeping fields always reflect this call.
func (s *MemoryService) Save(ctx context.Context, input SaveMemoryInput) (*domain.MemoryRecord, error) {
	ctx, span := telemetry.StartSpan(ctx, "MemoryService.Save", telemetry.SpanAttributes{
		UserID:    input.UserID,
		AgentID:   input.AgentID,
		Operation: "save_memory",
	})
	defer span.End()

	record := &domain.MemoryRecord{
		ID:        s.uuidGen.NewString(),
		AgentID:   input.AgentID,
		UserID:    input.UserID,
		Content:   input.Content,
		Metadata:  input.Metadata,
		CreatedAt: s.now(),
	}
	if err := domain.ValidateMemoryRecord(record); err != nil {
		return nil, err
	}

	vec, err := embed(ctx, s.embedder, record.Content)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	record.Embedding = vec

	err = s.index.Upsert(ctx, domain.VectorRecord{
		ID:       record.ID,
		Vector:   vec,
		Metadata: domain.MemoryMetadata(record),
	})
	if err != nil {
		span.SetError(err)
		return nil, indexErr("failed to store memory", err)
	}

	logging.From(ctx).Debug("memory saved",
		zap.String("memory_id", record.ID),
		zap.String("agent_id", record.AgentID),
	)
	return record, nil
}

// Query returns the memories closest to the query text, best first. No
// matches yields an empty slice.
func (s *MemoryService) Query(ctx context.Context, agentID, userID, query string, limit int) ([]domain.MemoryResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "MemoryService.Query", telemetry.SpanAttributes{
		UserID:    userID,
		AgentID:   agentID,
		Operation: "query_memory",
	})
	defer span.End()

	if err := domain.ValidateMemoryScope(agentID, userID); err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "query is required", domain.ErrMissingRequiredField)
	}

	vec, err := embed(ctx, s.embedder, query)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	topK := clampLimit(limit, s.cfg.DefaultLimit, s.cfg.MaxTopK)
	matches, err := s.index.Query(ctx, vec, topK, domain.MemoryFilter(agentID, userID))
	if err != nil {
		span.SetError(err)
		return nil, indexErr("failed to query memories", err)
	}

	results := make([]domain.MemoryResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, domain.MemoryResult{
			ID:       m.ID,
			Content:  domain.MetadataString(m.Metadata, domain.MetaContent),
			Score:    m.Score,
			Metadata: m.Metadata,
		})
	}
	return results, nil
}

// Clear deletes every memory of the (agent, user) pair and reports how many
// records were removed.
func (s *MemoryService) Clear(ctx context.Context, agentID, userID string) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "MemoryService.Clear", telemetry.SpanAttributes{
		UserID:    userID,
		AgentID:   agentID,
		Operation: "clear_memory",
	})
	defer span.End()

	if err := domain.ValidateMemoryScope(agentID, userID); err != nil {
		return 0, err
	}

	deleted, err := s.index.DeleteMany(ctx, domain.MemoryFilter(agentID, userID))
	if err != nil {
		span.SetError(err)
		return 0, indexErr("failed to clear memories", err)
	}

	logging.From(ctx).Info("memories cleared",
		zap.String("agent_id", agentID),
		zap.Int("deleted", deleted),
	)
	return deleted, nil
}

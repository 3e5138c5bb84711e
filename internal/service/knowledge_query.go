package service

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/cloo-solutions/voicerag/internal/domain"
	"github.com/cloo-solutions/voicerag/internal/logging"
	"github.com/cloo-solutions/voicerag/internal/telemetry"
)

const (
	DefaultKnowledgeLimit   = 5
	DefaultMaxContextChunks = 20
	DefaultMaxContextChars  = 12000
	DefaultQueryLogTimeout  = 5 * time.Second
	DefaultAnswerMaxTokens  = 512

	contextSeparator = "\n\n---\n\n"
)

const groundedSystemPrompt = `You answer questions for a voice assistant using only the provided context.
Keep answers short and conversational. If the context does not contain the answer, say you don't know.`

// QueryLogWriter persists grounded generation calls.
type QueryLogWriter interface {
	Create(ctx context.Context, l *domain.RAGQueryLog) error
}

// KnowledgeQueryConfig bounds retrieval and context assembly.
type KnowledgeQueryConfig struct {
	DefaultLimit     int
	MaxTopK          int
	MaxContextChunks int
	MaxContextChars  int
	MaxTokens        int
	LogTimeout       time.Duration
}

func DefaultKnowledgeQueryConfig() KnowledgeQueryConfig {
	return KnowledgeQueryConfig{
		DefaultLimit:     DefaultKnowledgeLimit,
		MaxTopK:          DefaultMaxTopK,
		MaxContextChunks: DefaultMaxContextChunks,
		MaxContextChars:  DefaultMaxContextChars,
		MaxTokens:        DefaultAnswerMaxTokens,
		LogTimeout:       DefaultQueryLogTimeout,
	}
}

// KnowledgeQueryService retrieves knowledge-base chunks and optionally
// grounds a generated answer on them.
type KnowledgeQueryService struct {
	embedder  EmbeddingClient
	index     VectorIndex
	generator Generator
	logs      QueryLogWriter
	uuidGen   UUIDGenerator
	cfg       KnowledgeQueryConfig
	now       func() time.Time

	pending sync.WaitGroup
}

// NewKnowledgeQueryService wires the service. generator and logs may be nil:
// without a generator grounded generation is rejected, without logs the
// analytics record is skipped.
func NewKnowledgeQueryService(
	embedder EmbeddingClient,
	index VectorIndex,
	generator Generator,
	logs QueryLogWriter,
	cfg KnowledgeQueryConfig,
) *KnowledgeQueryService {
	def := DefaultKnowledgeQueryConfig()
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = def.DefaultLimit
	}
	if cfg.MaxTopK <= 0 {
		cfg.MaxTopK = def.MaxTopK
	}
	if cfg.MaxContextChunks <= 0 {
		cfg.MaxContextChunks = def.MaxContextChunks
	}
	if cfg.MaxContextChars <= 0 {
		cfg.MaxContextChars = def.MaxContextChars
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if cfg.LogTimeout <= 0 {
		cfg.LogTimeout = def.LogTimeout
	}
	return &KnowledgeQueryService{
		embedder:  embedder,
		index:     index,
		generator: generator,
		logs:      logs,
		uuidGen:   &DefaultUUIDGenerator{},
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// QueryKnowledgeBase returns the chunks closest to the query, best first.
func (s *KnowledgeQueryService) QueryKnowledgeBase(ctx context.Context, knowledgeBaseID, query string, limit int) ([]domain.KnowledgeResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeQueryService.QueryKnowledgeBase", telemetry.SpanAttributes{
		KnowledgeBaseID: knowledgeBaseID,
		Operation:       "query_knowledge",
	})
	defer span.End()

	results, err := s.retrieve(ctx, knowledgeBaseID, query, clampLimit(limit, s.cfg.DefaultLimit, s.cfg.MaxTopK))
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return results, nil
}

// GenerateInput represents the input for grounded generation
type GenerateInput struct {
	UserID          string
	KnowledgeBaseID string
	Query           string
	ContextLimit    int
}

// GenerateRAGResponse retrieves chunks exactly as QueryKnowledgeBase does,
// answers from a context built from at most MaxContextChunks of them and
// cites every retrieved chunk. The analytics record is written in the background once the answer
// is ready.
func (s *KnowledgeQueryService) GenerateRAGResponse(ctx context.Context, input GenerateInput) (*domain.RAGResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeQueryService.GenerateRAGResponse", telemetry.SpanAttributes{
		UserID:          input.UserID,
		KnowledgeBaseID: input.KnowledgeBaseID,
		Operation:       "generate_rag",
	})
	defer span.End()

	if s.generator == nil {
		return nil, domain.ErrGenerationDisabled
	}

	start := time.Now()
	topK := clampLimit(input.ContextLimit, s.cfg.DefaultLimit, s.cfg.MaxTopK)
	results, err := s.retrieve(ctx, input.KnowledgeBaseID, input.Query, topK)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	prompt := domain.Prompt{
		System:    groundedSystemPrompt,
		User:      buildGroundedPrompt(strings.TrimSpace(input.Query), BuildContext(s.contextChunks(results), s.cfg.MaxContextChars)),
		MaxTokens: s.cfg.MaxTokens,
	}
	answer, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		span.SetError(err)
		if domain.CodeOf(err) == "" {
			err = domain.NewProviderError("failed to generate response", err)
		}
		return nil, err
	}

	sources := make([]domain.SourceRef, 0, len(results))
	for _, r := range results {
		sources = append(sources, r.Source())
	}
	resp := &domain.RAGResponse{Response: answer, Sources: sources}

	s.recordQuery(ctx, &domain.RAGQueryLog{
		ID:              s.uuidGen.NewString(),
		UserID:          input.UserID,
		KnowledgeBaseID: input.KnowledgeBaseID,
		Query:           input.Query,
		Response:        answer,
		Sources:         sources,
		DurationMs:      time.Since(start).Milliseconds(),
		CreatedAt:       s.now(),
	})

	return resp, nil
}

// contextChunks limits how many retrieved chunks go into the prompt. The
// response still cites every retrieved chunk.
func (s *KnowledgeQueryService) contextChunks(results []domain.KnowledgeResult) []domain.KnowledgeResult {
	if len(results) > s.cfg.MaxContextChunks {
		return results[:s.cfg.MaxContextChunks]
	}
	return results
}

// Drain blocks until background log writes finish or ctx is done.
func (s *KnowledgeQueryService) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *KnowledgeQueryService) retrieve(ctx context.Context, knowledgeBaseID, query string, topK int) ([]domain.KnowledgeResult, error) {
	if knowledgeBaseID == "" {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "knowledge base ID is required", domain.ErrMissingRequiredField)
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "query is required", domain.ErrMissingRequiredField)
	}

	vec, err := embed(ctx, s.embedder, query)
	if err != nil {
		return nil, err
	}

	matches, err := s.index.Query(ctx, vec, topK, domain.KnowledgeFilter(knowledgeBaseID))
	if err != nil {
		return nil, indexErr("failed to query knowledge base", err)
	}

	results := make([]domain.KnowledgeResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, domain.KnowledgeResultFromMatch(m))
	}
	return results, nil
}

// recordQuery writes the log entry on a context detached from the request
// so a finished or cancelled request does not abort it. Failures are only
// logged.
func (s *KnowledgeQueryService) recordQuery(ctx context.Context, entry *domain.RAGQueryLog) {
	if s.logs == nil {
		return
	}
	logger := logging.From(ctx)
	bg := logging.With(context.WithoutCancel(ctx), logger)

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer func() {
			if r := recover(); r != nil {
				logger.Error("query log write panicked", zap.Any("panic", r))
			}
		}()

		writeCtx, cancel := context.WithTimeout(bg, s.cfg.LogTimeout)
		defer cancel()

		if err := s.logs.Create(writeCtx, entry); err != nil {
			logger.Warn("failed to record rag query",
				zap.String("knowledge_base_id", entry.KnowledgeBaseID),
				zap.Error(err),
			)
			telemetry.CaptureError(bg, err)
		}
	}()
}

// BuildContext joins chunk contents in order until maxChars runes are used.
// The chunk that crosses the budget is cut to fit and nothing after it is
// included.
func BuildContext(results []domain.KnowledgeResult, maxChars int) string {
	var b strings.Builder
	used := 0
	for i, r := range results {
		content := strings.TrimSpace(r.Content)
		if content == "" {
			continue
		}
		sep := ""
		if b.Len() > 0 {
			sep = contextSeparator
		}
		header := "[" + strconv.Itoa(i+1) + "] "
		cost := utf8.RuneCountInString(sep) + utf8.RuneCountInString(header)
		remaining := maxChars - used - cost
		if maxChars > 0 && remaining <= 0 {
			break
		}

		n := utf8.RuneCountInString(content)
		truncated := false
		if maxChars > 0 && n > remaining {
			content = string([]rune(content)[:remaining])
			n = remaining
			truncated = true
		}

		b.WriteString(sep)
		b.WriteString(header)
		b.WriteString(content)
		used += cost + n
		if truncated {
			break
		}
	}
	return b.String()
}

func buildGroundedPrompt(query, contextText string) string {
	if contextText == "" {
		contextText = "(no relevant context found)"
	}
	return "Context:\n" + contextText + "\n\nQuestion: " + query
}

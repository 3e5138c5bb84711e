package service

import (
	"context"

	"github.com/cloo-solutions/voicerag/internal/domain"
	"github.com/cloo-solutions/voicerag/internal/pagination"
)

type QueryLogRepository interface {
	ListByKnowledgeBase(ctx context.Context, knowledgeBaseID string, cursor *pagination.Cursor, limit int) (*pagination.PageResult[*domain.RAGQueryLog], error)
}

// QueryLogService reads back the grounded generation history of a
// knowledge base, newest first.
type QueryLogService struct {
	logs QueryLogRepository
}

func NewQueryLogService(logs QueryLogRepository) *QueryLogService {
	return &QueryLogService{logs: logs}
}

func (s *QueryLogService) List(ctx context.Context, knowledgeBaseID, cursor string, limit int) (*pagination.PageResult[*domain.RAGQueryLog], error) {
	if knowledgeBaseID == "" {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "knowledge base ID is required", domain.ErrMissingRequiredField)
	}
	c, err := pagination.DecodeCursor(cursor)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
	}
	return s.logs.ListByKnowledgeBase(ctx, knowledgeBaseID, c, limit)
}

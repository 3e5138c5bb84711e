package service

import (
	"context"
	"strings"
	"time"

	"github.com/cloo-solutions/voicerag/internal/domain"
	"github.com/cloo-solutions/voicerag/internal/pagination"
	"github.com/cloo-solutions/voicerag/internal/telemetry"
)

type AgentRepository interface {
	Create(ctx context.Context, a *domain.Agent) error
	GetByID(ctx context.Context, id string) (*domain.Agent, error)
	ListByUser(ctx context.Context, userID string, cursor *pagination.Cursor, limit int) (*pagination.PageResult[*domain.Agent], error)
}

type KnowledgeBaseRepository interface {
	Create(ctx context.Context, kb *domain.KnowledgeBase) error
	GetByID(ctx context.Context, id string) (*domain.KnowledgeBase, error)
	ListByUser(ctx context.Context, userID string, cursor *pagination.Cursor, limit int) (*pagination.PageResult[*domain.KnowledgeBase], error)
}

// CatalogService manages the agents and knowledge bases a user owns.
type CatalogService struct {
	agents  AgentRepository
	kbs     KnowledgeBaseRepository
	uuidGen UUIDGenerator
}

func NewCatalogService(agents AgentRepository, kbs KnowledgeBaseRepository, uuidGen UUIDGenerator) *CatalogService {
	return &CatalogService{agents: agents, kbs: kbs, uuidGen: uuidGen}
}

func (s *CatalogService) CreateAgent(ctx context.Context, userID, name, description string) (*domain.Agent, error) {
	ctx, span := telemetry.StartSpan(ctx, "CatalogService.CreateAgent", telemetry.SpanAttributes{
		UserID:    userID,
		Operation: "create_agent",
	})
	defer span.End()

	agent := domain.NewAgent(s.uuidGen.NewString(), userID, strings.TrimSpace(name), strings.TrimSpace(description), time.Now().UTC())
	if err := domain.ValidateAgent(agent); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid agent", err)
	}
	if err := s.agents.Create(ctx, agent); err != nil {
		return nil, err
	}
	return agent, nil
}

func (s *CatalogService) ListAgents(ctx context.Context, userID, cursor string, limit int) (*pagination.PageResult[*domain.Agent], error) {
	c, err := pagination.DecodeCursor(cursor)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
	}
	return s.agents.ListByUser(ctx, userID, c, limit)
}

func (s *CatalogService) CreateKnowledgeBase(ctx context.Context, userID, name, description string) (*domain.KnowledgeBase, error) {
	ctx, span := telemetry.StartSpan(ctx, "CatalogService.CreateKnowledgeBase", telemetry.SpanAttributes{
		UserID:    userID,
		Operation: "create_knowledge_base",
	})
	defer span.End()

	kb := domain.NewKnowledgeBase(s.uuidGen.NewString(), userID, strings.TrimSpace(name), strings.TrimSpace(description), time.Now().UTC())
	if err := domain.ValidateKnowledgeBase(kb); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid knowledge base", err)
	}
	if err := s.kbs.Create(ctx, kb); err != nil {
		return nil, err
	}
	return kb, nil
}

func (s *CatalogService) ListKnowledgeBases(ctx context.Context, userID, cursor string, limit int) (*pagination.PageResult[*domain.KnowledgeBase], error) {
	c, err := pagination.DecodeCursor(cursor)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
	}
	return s.kbs.ListByUser(ctx, userID, c, limit)
}

// AuthorizeAgent loads the agent and checks that userID owns it.
func (s *CatalogService) AuthorizeAgent(ctx context.Context, userID, agentID string) (*domain.Agent, error) {
	if agentID == "" {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "agent ID is required", domain.ErrMissingRequiredField)
	}
	agent, err := s.agents.GetByID(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if !agent.OwnedBy(userID) {
		return nil, domain.ErrAgentNotOwned
	}
	return agent, nil
}

// AuthorizeKnowledgeBase loads the knowledge base and checks that userID owns it.
func (s *CatalogService) AuthorizeKnowledgeBase(ctx context.Context, userID, knowledgeBaseID string) (*domain.KnowledgeBase, error) {
	if knowledgeBaseID == "" {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "knowledge base ID is required", domain.ErrMissingRequiredField)
	}
	kb, err := s.kbs.GetByID(ctx, knowledgeBaseID)
	if err != nil {
		return nil, err
	}
	if !kb.OwnedBy(userID) {
		return nil, domain.ErrKnowledgeBaseNotOwned
	}
	return kb, nil
}

package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/voicerag/internal/api"
	"github.com/cloo-solutions/voicerag/internal/domain"
	"github.com/cloo-solutions/voicerag/internal/pagination"
)

type CatalogService interface {
	OwnershipChecker
	CreateAgent(ctx context.Context, userID, name, description string) (*domain.Agent, error)
	ListAgents(ctx context.Context, userID, cursor string, limit int) (*pagination.PageResult[*domain.Agent], error)
	CreateKnowledgeBase(ctx context.Context, userID, name, description string) (*domain.KnowledgeBase, error)
	ListKnowledgeBases(ctx context.Context, userID, cursor string, limit int) (*pagination.PageResult[*domain.KnowledgeBase], error)
}

// CatalogHandler manages the agents and knowledge bases of the caller.
type CatalogHandler struct {
	svc CatalogService
}

func NewCatalogHandler(svc CatalogService) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

type CreateCatalogItemRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type CatalogItemResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type ListCatalogResponse struct {
	Items   []*CatalogItemResponse `json:"items"`
	Cursor  string                 `json:"cursor,omitempty"`
	HasMore bool                   `json:"has_more"`
}

func agentToResponse(a *domain.Agent) *CatalogItemResponse {
	return &CatalogItemResponse{
		ID:          a.ID,
		Name:        a.Name,
		Description: a.Description,
		CreatedAt:   a.CreatedAt.Format(timeFormat),
		UpdatedAt:   a.UpdatedAt.Format(timeFormat),
	}
}

func knowledgeBaseToResponse(kb *domain.KnowledgeBase) *CatalogItemResponse {
	return &CatalogItemResponse{
		ID:          kb.ID,
		Name:        kb.Name,
		Description: kb.Description,
		CreatedAt:   kb.CreatedAt.Format(timeFormat),
		UpdatedAt:   kb.UpdatedAt.Format(timeFormat),
	}
}

func (h *CatalogHandler) createRequest(w http.ResponseWriter, r *http.Request) (*CreateCatalogItemRequest, bool) {
	var req CreateCatalogItemRequest
	if !decodeJSON(w, r, &req) {
		return nil, false
	}
	if req.Name == "" {
		api.Error(w, http.StatusBadRequest, "name is required")
		return nil, false
	}
	return &req, true
}

func (h *CatalogHandler) CreateAgent(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	req, ok := h.createRequest(w, r)
	if !ok {
		return
	}

	agent, err := h.svc.CreateAgent(r.Context(), userID, req.Name, req.Description)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}
	api.Success(w, http.StatusCreated, agentToResponse(agent))
}

func (h *CatalogHandler) GetAgent(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	agent, err := h.svc.AuthorizeAgent(r.Context(), userID, chi.URLParam(r, "agentID"))
	if err != nil {
		api.HandleError(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, agentToResponse(agent))
}

func (h *CatalogHandler) ListAgents(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	cursor, limit := pageParams(r)
	page, err := h.svc.ListAgents(r.Context(), userID, cursor, limit)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	items := make([]*CatalogItemResponse, 0, len(page.Items))
	for _, a := range page.Items {
		items = append(items, agentToResponse(a))
	}
	api.Success(w, http.StatusOK, &ListCatalogResponse{Items: items, Cursor: page.Cursor, HasMore: page.HasMore})
}

func (h *CatalogHandler) CreateKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	req, ok := h.createRequest(w, r)
	if !ok {
		return
	}

	kb, err := h.svc.CreateKnowledgeBase(r.Context(), userID, req.Name, req.Description)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}
	api.Success(w, http.StatusCreated, knowledgeBaseToResponse(kb))
}

func (h *CatalogHandler) GetKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	kb, err := h.svc.AuthorizeKnowledgeBase(r.Context(), userID, chi.URLParam(r, "kbID"))
	if err != nil {
		api.HandleError(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, knowledgeBaseToResponse(kb))
}

func (h *CatalogHandler) ListKnowledgeBases(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	cursor, limit := pageParams(r)
	page, err := h.svc.ListKnowledgeBases(r.Context(), userID, cursor, limit)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	items := make([]*CatalogItemResponse, 0, len(page.Items))
	for _, kb := range page.Items {
		items = append(items, knowledgeBaseToResponse(kb))
	}
	api.Success(w, http.StatusOK, &ListCatalogResponse{Items: items, Cursor: page.Cursor, HasMore: page.HasMore})
}

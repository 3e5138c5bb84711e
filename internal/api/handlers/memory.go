package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/voicerag/internal/api"
	"github.com/cloo-solutions/voicerag/internal/domain"
	"github.com/cloo-solutions/voicerag/internal/service"
)

type MemoryService interface {
	Save(ctx context.Context, input service.SaveMemoryInput) (*domain.MemoryRecord, error)
	Query(ctx context.Context, agentID, userID, query string, limit int) ([]domain.MemoryResult, error)
	Clear(ctx context.Context, agentID, userID string) (int, error)
}

// MemoryHandler serves the memories an agent keeps about its owner. Every
// route is checked against agent ownership first.
type MemoryHandler struct {
	svc    MemoryService
	owners OwnershipChecker
}

func NewMemoryHandler(svc MemoryService, owners OwnershipChecker) *MemoryHandler {
	return &MemoryHandler{svc: svc, owners: owners}
}

type SaveMemoryRequest struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type MemoryResponse struct {
	ID        string         `json:"id"`
	AgentID   string         `json:"agent_id"`
	UserID    string         `json:"user_id"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt string         `json:"created_at"`
}

type QueryMemoryRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

type QueryMemoryResponse struct {
	Results []domain.MemoryResult `json:"results"`
}

type ClearMemoryResponse struct {
	Deleted int `json:"deleted"`
}

func (h *MemoryHandler) authorize(w http.ResponseWriter, r *http.Request) (userID, agentID string, ok bool) {
	userID, ok = callerID(w, r)
	if !ok {
		return "", "", false
	}
	agentID = chi.URLParam(r, "agentID")
	if _, err := h.owners.AuthorizeAgent(r.Context(), userID, agentID); err != nil {
		api.HandleError(w, r, err)
		return "", "", false
	}
	return userID, agentID, true
}

func (h *MemoryHandler) Save(w http.ResponseWriter, r *http.Request) {
	userID, agentID, ok := h.authorize(w, r)
	if !ok {
		return
	}

	var req SaveMemoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Content == "" {
		api.Error(w, http.StatusBadRequest, "content is required")
		return
	}

	record, err := h.svc.Save(r.Context(), service.SaveMemoryInput{
		AgentID:  agentID,
		UserID:   userID,
		Content:  req.Content,
		Metadata: req.Metadata,
	})
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusCreated, &MemoryResponse{
		ID:        record.ID,
		AgentID:   record.AgentID,
		UserID:    record.UserID,
		Content:   record.Content,
		Metadata:  record.Metadata,
		CreatedAt: record.CreatedAt.Format(timeFormat),
	})
}

func (h *MemoryHandler) Query(w http.ResponseWriter, r *http.Request) {
	userID, agentID, ok := h.authorize(w, r)
	if !ok {
		return
	}

	var req QueryMemoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	results, err := h.svc.Query(r.Context(), agentID, userID, req.Query, req.Limit)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}
	if results == nil {
		results = []domain.MemoryResult{}
	}

	api.Success(w, http.StatusOK, &QueryMemoryResponse{Results: results})
}

func (h *MemoryHandler) Clear(w http.ResponseWriter, r *http.Request) {
	userID, agentID, ok := h.authorize(w, r)
	if !ok {
		return
	}

	deleted, err := h.svc.Clear(r.Context(), agentID, userID)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusOK, &ClearMemoryResponse{Deleted: deleted})
}

package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/voicerag/internal/api"
	"github.com/cloo-solutions/voicerag/internal/domain"
	"github.com/cloo-solutions/voicerag/internal/pagination"
	"github.com/cloo-solutions/voicerag/internal/service"
)

type KnowledgeQueryService interface {
	QueryKnowledgeBase(ctx context.Context, knowledgeBaseID, query string, limit int) ([]domain.KnowledgeResult, error)
	GenerateRAGResponse(ctx context.Context, input service.GenerateInput) (*domain.RAGResponse, error)
}

type QueryLogService interface {
	List(ctx context.Context, knowledgeBaseID, cursor string, limit int) (*pagination.PageResult[*domain.RAGQueryLog], error)
}

type KnowledgeHandler struct {
	svc    KnowledgeQueryService
	logs   QueryLogService
	owners OwnershipChecker
}

func NewKnowledgeHandler(svc KnowledgeQueryService, logs QueryLogService, owners OwnershipChecker) *KnowledgeHandler {
	return &KnowledgeHandler{svc: svc, logs: logs, owners: owners}
}

type QueryKnowledgeRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

type QueryKnowledgeResponse struct {
	Results []domain.KnowledgeResult `json:"results"`
}

type AskRequest struct {
	Query        string `json:"query"`
	ContextLimit int    `json:"context_limit,omitempty"`
}

type QueryLogResponse struct {
	ID              string             `json:"id"`
	UserID          string             `json:"user_id"`
	KnowledgeBaseID string             `json:"knowledge_base_id"`
	Query           string             `json:"query"`
	Response        string             `json:"response"`
	Sources         []domain.SourceRef `json:"sources"`
	DurationMs      int64              `json:"duration_ms"`
	CreatedAt       string             `json:"created_at"`
}

type ListQueryLogsResponse struct {
	Items   []*QueryLogResponse `json:"items"`
	Cursor  string              `json:"cursor,omitempty"`
	HasMore bool                `json:"has_more"`
}

func (h *KnowledgeHandler) authorize(w http.ResponseWriter, r *http.Request) (userID, knowledgeBaseID string, ok bool) {
	userID, ok = callerID(w, r)
	if !ok {
		return "", "", false
	}
	knowledgeBaseID = chi.URLParam(r, "kbID")
	if _, err := h.owners.AuthorizeKnowledgeBase(r.Context(), userID, knowledgeBaseID); err != nil {
		api.HandleError(w, r, err)
		return "", "", false
	}
	return userID, knowledgeBaseID, true
}

// Query returns the raw chunks closest to the query so the caller can build
// its own prompt.
func (h *KnowledgeHandler) Query(w http.ResponseWriter, r *http.Request) {
	_, knowledgeBaseID, ok := h.authorize(w, r)
	if !ok {
		return
	}

	var req QueryKnowledgeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	results, err := h.svc.QueryKnowledgeBase(r.Context(), knowledgeBaseID, req.Query, req.Limit)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}
	if results == nil {
		results = []domain.KnowledgeResult{}
	}

	api.Success(w, http.StatusOK, &QueryKnowledgeResponse{Results: results})
}

// Ask answers the query from the knowledge base and cites the chunks used.
func (h *KnowledgeHandler) Ask(w http.ResponseWriter, r *http.Request) {
	userID, knowledgeBaseID, ok := h.authorize(w, r)
	if !ok {
		return
	}

	var req AskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	resp, err := h.svc.GenerateRAGResponse(r.Context(), service.GenerateInput{
		UserID:          userID,
		KnowledgeBaseID: knowledgeBaseID,
		Query:           req.Query,
		ContextLimit:    req.ContextLimit,
	})
	if err != nil {
		api.HandleError(w, r, err)
		return
	}
	if resp.Sources == nil {
		resp.Sources = []domain.SourceRef{}
	}

	api.Success(w, http.StatusOK, resp)
}

func (h *KnowledgeHandler) ListQueries(w http.ResponseWriter, r *http.Request) {
	_, knowledgeBaseID, ok := h.authorize(w, r)
	if !ok {
		return
	}

	cursor, limit := pageParams(r)
	page, err := h.logs.List(r.Context(), knowledgeBaseID, cursor, limit)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	items := make([]*QueryLogResponse, 0, len(page.Items))
	for _, l := range page.Items {
		sources := l.Sources
		if sources == nil {
			sources = []domain.SourceRef{}
		}
		items = append(items, &QueryLogResponse{
			ID:              l.ID,
			UserID:          l.UserID,
			KnowledgeBaseID: l.KnowledgeBaseID,
			Query:           l.Query,
			Response:        l.Response,
			Sources:         sources,
			DurationMs:      l.DurationMs,
			CreatedAt:       l.CreatedAt.Format(timeFormat),
		})
	}

	api.Success(w, http.StatusOK, &ListQueryLogsResponse{
		Items:   items,
		Cursor:  page.Cursor,
		HasMore: page.HasMore,
	})
}

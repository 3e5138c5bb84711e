package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/voicerag/internal/api"
	"github.com/cloo-solutions/voicerag/internal/domain"
	"github.com/cloo-solutions/voicerag/internal/pagination"
)

type AuthService interface {
	CreateAPIKey(ctx context.Context, userID, name string) (string, error)
	ListAPIKeys(ctx context.Context, userID, cursor string, limit int) (*pagination.PageResult[*domain.APIKey], error)
	RevokeOwnAPIKey(ctx context.Context, userID, keyID string) error
}

// AuthHandler lets an authenticated caller manage their own API keys. Users
// and first keys are provisioned from voiceragd.
type AuthHandler struct {
	svc AuthService
}

func NewAuthHandler(svc AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type CreateAPIKeyRequest struct {
	Name string `json:"name"`
}

type CreateAPIKeyResponse struct {
	Token string `json:"token"`
	Name  string `json:"name"`
}

type APIKeyResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	RevokedAt string `json:"revoked_at,omitempty"`
}

type ListAPIKeysResponse struct {
	Items   []*APIKeyResponse `json:"items"`
	Cursor  string            `json:"cursor,omitempty"`
	HasMore bool              `json:"has_more"`
}

func (h *AuthHandler) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req CreateAPIKeyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" {
		api.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	token, err := h.svc.CreateAPIKey(r.Context(), userID, req.Name)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusCreated, CreateAPIKeyResponse{
		Token: token,
		Name:  req.Name,
	})
}

func (h *AuthHandler) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	cursor, limit := pageParams(r)
	page, err := h.svc.ListAPIKeys(r.Context(), userID, cursor, limit)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	items := make([]*APIKeyResponse, 0, len(page.Items))
	for _, k := range page.Items {
		item := &APIKeyResponse{
			ID:        k.ID,
			Name:      k.Name,
			CreatedAt: k.CreatedAt.Format(timeFormat),
		}
		if k.RevokedAt != nil {
			item.RevokedAt = k.RevokedAt.Format(timeFormat)
		}
		items = append(items, item)
	}
	api.Success(w, http.StatusOK, &ListAPIKeysResponse{Items: items, Cursor: page.Cursor, HasMore: page.HasMore})
}

func (h *AuthHandler) RevokeAPIKey(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	if err := h.svc.RevokeOwnAPIKey(r.Context(), userID, chi.URLParam(r, "keyID")); err != nil {
		api.HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/cloo-solutions/voicerag/internal/api"
	"github.com/cloo-solutions/voicerag/internal/api/middleware"
	"github.com/cloo-solutions/voicerag/internal/domain"
)

// OwnershipChecker confirms that the caller owns the resource named in the
// route before any retrieval runs.
type OwnershipChecker interface {
	AuthorizeAgent(ctx context.Context, userID, agentID string) (*domain.Agent, error)
	AuthorizeKnowledgeBase(ctx context.Context, userID, knowledgeBaseID string) (*domain.KnowledgeBase, error)
}

const timeFormat = time.RFC3339

func callerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return "", false
	}
	return userID, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// pageParams reads cursor and limit query parameters. An unparsable or
// non-positive limit falls back to the repository default.
func pageParams(r *http.Request) (string, int) {
	q := r.URL.Query()
	limit := 0
	if s := q.Get("limit"); s != "" {
		if parsed, err := strconv.Atoi(s); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	return q.Get("cursor"), limit
}

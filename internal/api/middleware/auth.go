package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/cloo-solutions/voicerag/internal/api"
	"github.com/cloo-solutions/voicerag/internal/logging"
)

type contextKey string

const (
	UserIDKey     contextKey = "user_id"
	userHolderKey contextKey = "user_holder"
)

// AuthValidator resolves a bearer token to the id of the user owning it.
type AuthValidator interface {
	ValidateAPIKey(ctx context.Context, token string) (string, error)
}

func APIKeyAuth(validator AuthValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.Error(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				api.Error(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			userID, err := validator.ValidateAPIKey(r.Context(), strings.TrimSpace(token))
			if err != nil {
				api.Error(w, http.StatusUnauthorized, "invalid api key")
				return
			}

			if h := getUserHolder(r.Context()); h != nil {
				h.userID = userID
			}
			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			ctx = logging.With(ctx, logging.From(ctx).With(zap.String("user_id", userID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetUserID(ctx context.Context) string {
	userID, _ := ctx.Value(UserIDKey).(string)
	return userID
}

// WithUserID returns a context carrying userID as the authenticated caller.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// userHolder lets middleware that wraps auth see the resolved user after
// the inner handlers return.
type userHolder struct {
	userID string
}

func ensureUserHolder(ctx context.Context) (context.Context, *userHolder) {
	if h := getUserHolder(ctx); h != nil {
		return ctx, h
	}
	h := &userHolder{}
	return context.WithValue(ctx, userHolderKey, h), h
}

func getUserHolder(ctx context.Context) *userHolder {
	h, _ := ctx.Value(userHolderKey).(*userHolder)
	return h
}

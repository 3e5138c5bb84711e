package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/voicerag/internal/api"
	"github.com/cloo-solutions/voicerag/internal/api/handlers"
	"github.com/cloo-solutions/voicerag/internal/api/middleware"
)

const (
	defaultMaxBodyBytes      int64 = 1 << 20
	defaultMaxMultipartBytes int64 = 25 << 20
)

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type RouterConfig struct {
	AuthValidator    middleware.AuthValidator
	MemoryHandler    *handlers.MemoryHandler
	KnowledgeHandler *handlers.KnowledgeHandler
	CatalogHandler   *handlers.CatalogHandler
	DocumentHandler  *handlers.DocumentHandler
	AuthHandler      *handlers.AuthHandler

	// Health is optional; without it /health only reports the process is up.
	Health HealthChecker

	MaxBodyBytes      int64
	MaxMultipartBytes int64
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	maxMultipart := cfg.MaxMultipartBytes
	if maxMultipart <= 0 {
		maxMultipart = defaultMaxMultipartBytes
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBody, maxMultipart))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Health != nil {
			if err := cfg.Health.Ping(r.Context()); err != nil {
				api.Error(w, http.StatusServiceUnavailable, "database unavailable")
				return
			}
		}
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.AuthValidator))

		r.Route("/agents", func(r chi.Router) {
			r.Post("/", cfg.CatalogHandler.CreateAgent)
			r.Get("/", cfg.CatalogHandler.ListAgents)
			r.Route("/{agentID}", func(r chi.Router) {
				r.Get("/", cfg.CatalogHandler.GetAgent)
				r.Post("/memories", cfg.MemoryHandler.Save)
				r.Post("/memories/query", cfg.MemoryHandler.Query)
				r.Delete("/memories", cfg.MemoryHandler.Clear)
			})
		})

		r.Route("/knowledge-bases", func(r chi.Router) {
			r.Post("/", cfg.CatalogHandler.CreateKnowledgeBase)
			r.Get("/", cfg.CatalogHandler.ListKnowledgeBases)
			r.Route("/{kbID}", func(r chi.Router) {
				r.Get("/", cfg.CatalogHandler.GetKnowledgeBase)
				r.Post("/query", cfg.KnowledgeHandler.Query)
				r.Post("/ask", cfg.KnowledgeHandler.Ask)
				r.Get("/queries", cfg.KnowledgeHandler.ListQueries)
				r.Post("/documents", cfg.DocumentHandler.Upload)
				r.Post("/documents/text", cfg.DocumentHandler.AddText)
				r.Get("/documents", cfg.DocumentHandler.List)
				r.Get("/documents/{documentID}", cfg.DocumentHandler.Get)
			})
		})

		r.Route("/api-keys", func(r chi.Router) {
			r.Post("/", cfg.AuthHandler.CreateAPIKey)
			r.Get("/", cfg.AuthHandler.ListAPIKeys)
			r.Delete("/{keyID}", cfg.AuthHandler.RevokeAPIKey)
		})
	})

	return r
}

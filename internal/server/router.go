package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/archivist-ai/archivist/internal/api"
	"github.com/archivist-ai/archivist/internal/api/handlers"
	"github.com/archivist-ai/archivist/internal/api/middleware"
)

type RouterConfig struct {
	AuthValidator     middleware.AuthValidator
	DocumentHandler   *handlers.DocumentHandler
	QueryHandler      *handlers.QueryHandler
	TaskHandler       *handlers.TaskHandler
	CollectionHandler *handlers.CollectionHandler
	AuthHandler       *handlers.AuthHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 32 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.AuthValidator))

		r.Route("/documents", func(r chi.Router) {
			r.Post("/", cfg.DocumentHandler.Ingest)
			r.Post("/async", cfg.DocumentHandler.IngestAsync)
			r.Get("/", cfg.DocumentHandler.List)
			r.Get("/{id}", cfg.DocumentHandler.Get)
			r.Delete("/{id}", cfg.DocumentHandler.Delete)
		})

		r.Post("/query", cfg.QueryHandler.Query)
		r.Post("/tasks", cfg.TaskHandler.Execute)
		r.Get("/collections", cfg.CollectionHandler.List)
	})

	r.Post("/users", cfg.AuthHandler.CreateUser)
	r.Post("/apikeys", cfg.AuthHandler.CreateAPIKey)

	return r
}

package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/relaya-ai/relaya/internal/api"
	"github.com/relaya-ai/relaya/internal/api/handlers"
	"github.com/relaya-ai/relaya/internal/api/middleware"
)

type RouterConfig struct {
	KnowledgeHandler *handlers.KnowledgeHandler
	RetrievalHandler *handlers.RetrievalHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 25 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/agents/{agentID}", func(r chi.Router) {
		r.Route("/knowledge", func(r chi.Router) {
			r.Post("/", cfg.KnowledgeHandler.Upload)
			r.Get("/", cfg.KnowledgeHandler.List)
			r.Delete("/", cfg.KnowledgeHandler.DeleteCorpus)
			r.Get("/stats", cfg.KnowledgeHandler.Stats)
		})
		r.Post("/retrieve", cfg.RetrievalHandler.Retrieve)
	})

	r.Route("/knowledge/{id}", func(r chi.Router) {
		r.Get("/", cfg.KnowledgeHandler.Get)
		r.Delete("/", cfg.KnowledgeHandler.Delete)
	})

	return r
}

package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/PeriniM/langsmith-bedrock-agents/internal/config"
	"github.com/PeriniM/langsmith-bedrock-agents/internal/handler"
	appmw "github.com/PeriniM/langsmith-bedrock-agents/internal/middleware"
	"github.com/PeriniM/langsmith-bedrock-agents/internal/registry"
)

func NewRouter(cfg config.Config, sink registry.Sink) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appmw.Auth(cfg))

	// Health probes
	r.Get("/live", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Recorded stream ingest
	r.Route("/v1", func(v1 chi.Router) {
		v1.Post("/stream", handler.StreamHandler(cfg.MaxBodyBytes, sink))
	})

	return r
}

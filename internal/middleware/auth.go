package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/PeriniM/langsmith-bedrock-agents/internal/config"
	"github.com/PeriniM/langsmith-bedrock-agents/internal/contextkey"
)

// Auth resolves the LangSmith credentials for a replay request. Headers win
// over the configured defaults; a request with neither is rejected.
func Auth(cfg config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				apiKey = cfg.APIKey
			}
			if apiKey == "" {
				slog.Warn("missing X-API-Key", "path", r.URL.Path)
				http.Error(w, "missing X-API-Key", http.StatusUnauthorized)
				return
			}

			project := r.Header.Get("Langsmith-Project")
			if project == "" {
				project = cfg.Project
			}

			ctx := context.WithValue(r.Context(), contextkey.APIKeyKey, apiKey)
			ctx = context.WithValue(ctx, contextkey.ProjectKey, project)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

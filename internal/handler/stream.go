// Package handler ingests recorded InvokeAgent completion streams over HTTP.
package handler

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/PeriniM/langsmith-bedrock-agents/internal/contextkey"
	"github.com/PeriniM/langsmith-bedrock-agents/internal/correlator"
	"github.com/PeriniM/langsmith-bedrock-agents/internal/model"
	"github.com/PeriniM/langsmith-bedrock-agents/internal/registry"
)

var (
	errUnsupportedEncoding = errors.New("unsupported Content-Encoding")
	errNoTraceEvents       = errors.New("stream contains no trace events")
)

func handleError(w http.ResponseWriter, r *http.Request, status int, err error) {
	msg := err.Error()

	slog.Default().Warn("request error",
		"status", status,
		"method", r.Method,
		"path", r.URL.Path,
		"err", msg,
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": msg,
	})
}

// StreamHandler replays a recorded completion stream through the correlator.
// The body is a JSON array of stream events or newline-delimited JSON; the
// invocation identity is taken from the first trace event.
func StreamHandler(maxBody int64, sink registry.Sink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBody)
		defer r.Body.Close()
		var reader io.Reader = r.Body
		switch strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Encoding"))) {
		case "", "identity":
		case "gzip":
			gzr, err := gzip.NewReader(reader)
			if err != nil {
				handleError(w, r, http.StatusBadRequest, err)
				return
			}
			defer gzr.Close()
			reader = gzr
		default:
			handleError(w, r, http.StatusUnsupportedMediaType, errUnsupportedEncoding)
			return
		}

		data, err := io.ReadAll(reader)
		if err != nil {
			handleError(w, r, http.StatusBadRequest, err)
			return
		}
		events, err := model.DecodeStreamEvents(data)
		if err != nil {
			handleError(w, r, http.StatusBadRequest, err)
			return
		}

		inv, ok := invocationFrom(events)
		if !ok {
			handleError(w, r, http.StatusBadRequest, errNoTraceEvents)
			return
		}
		inv.InputText = r.URL.Query().Get("input")
		inv.UserID = r.URL.Query().Get("user_id")
		if project, ok := r.Context().Value(contextkey.ProjectKey).(string); ok {
			inv.Project = project
		}

		c := correlator.New(sink)
		output, err := c.Consume(r.Context(), inv, correlator.NewReplay(events))
		if err != nil {
			handleError(w, r, http.StatusUnprocessableEntity, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"output": output,
		})
	}
}

func invocationFrom(events []model.StreamEvent) (correlator.Invocation, bool) {
	for _, ev := range events {
		if ev.Trace == nil {
			continue
		}
		return correlator.Invocation{
			AgentID:      ev.Trace.AgentID,
			AgentAliasID: ev.Trace.AgentAliasID,
			SessionID:    ev.Trace.SessionID,
		}, true
	}
	return correlator.Invocation{}, false
}

package exporter

import (
	"net/http"

	"github.com/PeriniM/langsmith-bedrock-agents/internal/config"
	"github.com/PeriniM/langsmith-bedrock-agents/internal/uploader"
)

// Build assembles the export pipeline named by cfg.Exporter. The returned
// exporter is started and must be stopped and flushed by the caller.
func Build(cfg config.Config) *Exporter {
	var (
		enc Encoder
		url string
	)
	header := http.Header{}
	switch cfg.Exporter {
	case config.ExporterMultipart:
		enc = NewRunsEncoder(cfg.Project)
		url = cfg.LangsmithHost + "/runs/multipart"
		header.Set("X-API-Key", cfg.APIKey)
	default:
		enc = NewOTLPEncoder(cfg.ServiceName)
		url = cfg.OTLPEndpoint + "/v1/traces"
		header.Set("x-api-key", cfg.APIKey)
		header.Set("Langsmith-Project", cfg.Project)
	}

	up := uploader.New(uploader.Config{
		URL:            url,
		Header:         header,
		MaxAttempts:    cfg.MaxRetries,
		BackoffInitial: cfg.BackoffInitial,
		BackoffMax:     10 * cfg.BackoffInitial,
		InFlight:       4,
	})
	e := New(enc, up, Config{
		BatchSize:      cfg.BatchSize,
		FlushInterval:  cfg.FlushInterval,
		MaxBufferBytes: cfg.MaxBufferBytes,
	})
	e.Start()
	return e
}

// Package exporter drains finished spans into upload batches. The worker is
// the only place batching state lives; span production stays single-threaded
// in the correlator and hands off through a buffered channel.
package exporter

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/PeriniM/langsmith-bedrock-agents/internal/registry"
	"github.com/PeriniM/langsmith-bedrock-agents/internal/uploader"
)

// Encoder turns spans into one wire batch. Callers serialize access
// through the exporter's mutex.
type Encoder interface {
	Add(s *registry.Span) error
	// Flush returns the pending batch and resets the encoder. A nil batch
	// means there was nothing to send.
	Flush() (*uploader.Batch, error)
	Count() int
	Bytes() int
}

type Config struct {
	BatchSize      int
	FlushInterval  time.Duration
	MaxBufferBytes int
}

type Exporter struct {
	ch     chan *registry.Span
	enc    Encoder
	up     uploader.Sender
	cfg    Config
	cancel context.CancelFunc
	mu     sync.Mutex
}

func New(enc Encoder, up uploader.Sender, cfg Config) *Exporter {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval == 0 {
		cfg.FlushInterval = 1 * time.Second
	}
	if cfg.MaxBufferBytes == 0 {
		cfg.MaxBufferBytes = 10 * 1024 * 1024 // 10MB
	}
	return &Exporter{
		ch:  make(chan *registry.Span, 1024),
		enc: enc,
		up:  up,
		cfg: cfg,
	}
}

// Export queues a finished span. Implements registry.Sink. A full queue
// drops the span with a diagnostic rather than stalling the stream.
func (e *Exporter) Export(_ context.Context, s *registry.Span) {
	select {
	case e.ch <- s:
	default:
		slog.Warn("export queue full; dropping span", "name", s.Name)
	}
}

func (e *Exporter) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	go e.worker(ctx)
}

func (e *Exporter) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
}

// Flush drains queued spans, ships the pending batch, and waits for all
// in-flight uploads to finish.
func (e *Exporter) Flush(ctx context.Context) error {
	e.drain()
	e.flush()
	return e.up.WaitForCompletion(ctx)
}

func (e *Exporter) worker(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.drain()
			e.flush()
			return
		case s := <-e.ch:
			if s != nil {
				e.add(s)
			}
		case <-ticker.C:
			e.flush()
		}
	}
}

func (e *Exporter) add(s *registry.Span) {
	e.mu.Lock()
	if err := e.enc.Add(s); err != nil {
		slog.Error("failed to queue span", "err", err, "name", s.Name)
		e.mu.Unlock()
		return
	}
	full := e.enc.Count() >= e.cfg.BatchSize || e.enc.Bytes() >= e.cfg.MaxBufferBytes
	e.mu.Unlock()
	if full {
		e.flush()
	}
}

func (e *Exporter) flush() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.enc.Count() == 0 {
		return
	}
	b, err := e.enc.Flush()
	if err != nil {
		slog.Error("failed to flush spans", "err", err)
		return
	}
	if b != nil && len(b.Data) > 0 {
		e.up.Send(context.Background(), *b)
	}
}

func (e *Exporter) drain() {
	for {
		select {
		case s := <-e.ch:
			if s != nil {
				e.add(s)
			}
		default:
			return
		}
	}
}

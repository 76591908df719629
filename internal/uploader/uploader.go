// Package uploader sends finished batches over HTTP with bounded concurrency
// and retries. It is transport only: encoding is the exporter's business,
// batches arrive with their own content headers.
package uploader

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/binary"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"golang.org/x/sync/semaphore"
)

// Batch is one request body plus the headers describing its encoding.
type Batch struct {
	Data   []byte
	Header http.Header
}

type Config struct {
	URL string
	// Header is applied to every request (auth, project).
	Header         http.Header
	MaxAttempts    int
	BackoffInitial time.Duration
	BackoffMax     time.Duration
	InFlight       int
}

// Sender is the boundary the exporter writes to.
type Sender interface {
	Send(ctx context.Context, b Batch)
	WaitForCompletion(ctx context.Context) error
}

// Uploader retries retryable failures with exponential backoff plus jitter,
// up to MaxAttempts, and drops the batch afterwards. Telemetry loss is never
// escalated to the invocation.
type Uploader struct {
	cfg    Config
	sem    *semaphore.Weighted
	weight int64
	client *http.Client
}

func New(cfg Config) *Uploader {
	n := int64(max(1, cfg.InFlight))
	return &Uploader{
		cfg:    cfg,
		sem:    semaphore.NewWeighted(n),
		weight: n,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (u *Uploader) Send(ctx context.Context, b Batch) {
	if err := u.sem.Acquire(ctx, 1); err != nil {
		slog.Warn("uploader ctx cancelled before send")
		return
	}
	go func() {
		defer u.sem.Release(1)
		u.send(ctx, b)
	}()
}

// WaitForCompletion blocks until every in-flight send has finished.
func (u *Uploader) WaitForCompletion(ctx context.Context) error {
	if err := u.sem.Acquire(ctx, u.weight); err != nil {
		return err
	}
	u.sem.Release(u.weight)
	return nil
}

func (u *Uploader) send(ctx context.Context, b Batch) {
	var attempt int
	for {
		req, _ := http.NewRequestWithContext(ctx, http.MethodPost, u.cfg.URL, bytes.NewReader(b.Data))
		for k, vs := range u.cfg.Header {
			for _, v := range vs {
				req.Header.Set(k, v)
			}
		}
		for k, vs := range b.Header {
			for _, v := range vs {
				req.Header.Set(k, v)
			}
		}

		resp, err := u.client.Do(req)
		if err == nil && (resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusAccepted) {
			resp.Body.Close()
			slog.Debug("batch uploaded", "url", u.cfg.URL)
			return
		}

		shouldRetry := err != nil
		if resp != nil {
			switch resp.StatusCode {
			case http.StatusBadGateway,
				http.StatusServiceUnavailable,
				http.StatusGatewayTimeout,
				http.StatusRequestTimeout,
				http.StatusTooEarly,
				http.StatusTooManyRequests,
				http.StatusInternalServerError,
				499: // client closed request
				shouldRetry = true
			}
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			slog.Error("upload failed",
				"attempts", attempt, "err", err,
				"status", resp.StatusCode, "response", string(body),
				"will_retry", shouldRetry)
		}

		if !shouldRetry {
			slog.Error("upload failed; dropping batch (non-retryable error)",
				"attempts", attempt, "err", err)
			return
		}

		attempt++
		if attempt >= u.cfg.MaxAttempts {
			slog.Error("upload failed; dropping batch (max attempts reached)",
				"attempts", attempt, "err", err)
			return
		}
		select {
		case <-time.After(backoff(u.cfg.BackoffInitial, u.cfg.BackoffMax, attempt)):
		case <-ctx.Done():
			return
		}
	}
}

func backoff(base, max time.Duration, attempt int) time.Duration {
	exp := float64(base) * math.Pow(2, float64(attempt-1))
	d := time.Duration(exp)
	if d > max {
		d = max
	}
	if d < 2 {
		return d
	}
	var b [8]byte
	_, _ = rand.Read(b[:])
	r := binary.BigEndian.Uint64(b[:])
	jitter := time.Duration(r % uint64(d/2))
	return d/2 + jitter
}

// Package registry holds the open spans of one invocation, keyed by
// correlation key. The registry is owned by a single correlator and is not
// safe for concurrent use; the stream is consumed strictly sequentially.
package registry

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Sink receives finished spans. Implementations own batching and transport.
type Sink interface {
	Export(ctx context.Context, s *Span)
}

type Registry struct {
	sink   Sink
	log    *slog.Logger
	spans  map[string]*Span
	order  []string
	closed map[string]struct{}
}

func New(sink Sink) *Registry {
	return &Registry{
		sink:   sink,
		log:    slog.Default(),
		spans:  make(map[string]*Span),
		closed: make(map[string]struct{}),
	}
}

// GetOrCreate returns the open span for key, creating it via factory when
// absent. Repeated calls with the same key return the same span while it is
// open. A key that was already closed is terminal: the call returns nil and
// the caller is expected to drop the event.
func (r *Registry) GetOrCreate(key string, factory func() *Span) *Span {
	if s, ok := r.spans[key]; ok {
		return s
	}
	if _, done := r.closed[key]; done {
		r.log.Warn("dropping event for closed span", "key", key)
		return nil
	}
	s := factory()
	s.Key = key
	r.spans[key] = s
	r.order = append(r.order, key)
	return s
}

// Open returns the open span for key, if any.
func (r *Registry) Open(key string) (*Span, bool) {
	s, ok := r.spans[key]
	return s, ok
}

// Len reports the number of open spans.
func (r *Registry) Len() int { return len(r.spans) }

// Close finalizes the span for key, hands it to the sink, and evicts it.
// Closing an absent or already-closed key is a logged no-op.
func (r *Registry) Close(ctx context.Context, key string) {
	s, ok := r.spans[key]
	if !ok {
		r.log.Warn("close on unknown or already closed span", "key", key)
		return
	}
	r.finish(ctx, s)
}

// CloseAll force-closes every open span with an error status. Called when the
// upstream invocation fails, so the exporter never sees a dangling span.
func (r *Registry) CloseAll(ctx context.Context, cause error) {
	for _, key := range append([]string(nil), r.order...) {
		s, ok := r.spans[key]
		if !ok {
			continue
		}
		s.Error = cause.Error()
		r.finish(ctx, s)
	}
}

// Clear discards all entries without exporting them. Called once per
// top-level invocation before processing begins, so no span leaks across
// invocations. The closed-key set is reset too: a new invocation starts a
// fresh key space.
func (r *Registry) Clear() {
	if len(r.spans) > 0 {
		r.log.Debug("discarding open spans", "count", len(r.spans))
	}
	r.spans = make(map[string]*Span)
	r.order = r.order[:0]
	r.closed = make(map[string]struct{})
}

// ChildrenOf returns the open descendants of prefixKey in creation order.
func (r *Registry) ChildrenOf(prefixKey string) []*Span {
	prefix := prefixKey + "/"
	var kids []*Span
	for _, key := range r.order {
		s, ok := r.spans[key]
		if !ok {
			continue
		}
		if strings.HasPrefix(key, prefix) {
			kids = append(kids, s)
		}
	}
	return kids
}

func (r *Registry) finish(ctx context.Context, s *Span) {
	s.status = StatusClosed
	s.EndTime = time.Now().UTC()
	delete(r.spans, s.Key)
	r.closed[s.Key] = struct{}{}
	for i, key := range r.order {
		if key == s.Key {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if r.sink != nil {
		r.sink.Export(ctx, s)
	}
}

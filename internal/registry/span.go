package registry

import (
	"crypto/rand"
	"time"

	"github.com/google/uuid"

	"github.com/PeriniM/langsmith-bedrock-agents/internal/util"
)

type Status int

const (
	StatusOpen Status = iota
	StatusClosed
)

// Kind is the LangSmith run type of a span.
type Kind string

const (
	KindChain Kind = "chain"
	KindLLM   Kind = "llm"
	KindTool  Kind = "tool"
)

// Attr is one attribute of a span. The set is ordered and append-only while
// the span is open; setting an existing key overwrites in place.
type Attr struct {
	Key   string
	Value any
}

// Span is one observability span under construction. Trace/span ids are
// OTel-shaped (16/8 random bytes); RunID and DottedOrder are the LangSmith
// equivalents, assigned at creation so children never have to wait for their
// parent to finish.
type Span struct {
	Key          string
	Name         string
	Kind         Kind
	TraceID      [16]byte
	SpanID       [8]byte
	ParentSpanID []byte
	RunID        string
	ParentRunID  string
	TraceRunID   string
	DottedOrder  string
	StartTime    time.Time
	EndTime      time.Time
	Error        string

	status Status
	attrs  []Attr
	index  map[string]int
}

// NewRoot creates the top-level span of one invocation.
func NewRoot(name string, kind Kind) *Span {
	s := &Span{Name: name, Kind: kind, StartTime: time.Now().UTC()}
	fillRandom(s.TraceID[:])
	fillRandom(s.SpanID[:])
	s.TraceRunID = bytesUUID(s.TraceID[:])
	// The root run reuses the trace uuid so every child points at it via
	// trace_id alone.
	s.RunID = s.TraceRunID
	s.DottedOrder = util.NewDottedOrder(s.RunID)
	return s
}

// NewChild creates a span nested under parent, inheriting its trace identity.
func NewChild(parent *Span, name string, kind Kind) *Span {
	s := &Span{Name: name, Kind: kind, StartTime: time.Now().UTC()}
	s.TraceID = parent.TraceID
	s.ParentSpanID = parent.SpanID[:]
	s.ParentRunID = parent.RunID
	s.TraceRunID = parent.TraceRunID
	fillRandom(s.SpanID[:])
	s.RunID = bytesUUID(s.SpanID[:])
	s.DottedOrder = parent.DottedOrder + "." + util.NewDottedOrder(s.RunID)
	return s
}

func (s *Span) Status() Status { return s.status }

// SetAttr records an attribute. Calls on a closed span are ignored.
func (s *Span) SetAttr(key string, value any) {
	if s.status == StatusClosed {
		return
	}
	if s.index == nil {
		s.index = make(map[string]int)
	}
	if i, ok := s.index[key]; ok {
		s.attrs[i].Value = value
		return
	}
	s.index[key] = len(s.attrs)
	s.attrs = append(s.attrs, Attr{Key: key, Value: value})
}

// Attr returns the value recorded for key.
func (s *Span) Attr(key string) (any, bool) {
	i, ok := s.index[key]
	if !ok {
		return nil, false
	}
	return s.attrs[i].Value, true
}

// Attrs returns the attribute set in insertion order. The returned slice is
// the span's own; callers must not mutate it.
func (s *Span) Attrs() []Attr { return s.attrs }

func fillRandom(b []byte) {
	if _, err := rand.Read(b); err != nil {
		// crypto/rand never fails on supported platforms; fall back to a
		// uuid-derived value rather than all zeroes.
		u := uuid.New()
		copy(b, u[:])
	}
}

// bytesUUID left-pads an id of up to 16 bytes into a uuid string.
func bytesUUID(id []byte) string {
	var buf [16]byte
	if len(id) > 16 {
		id = id[len(id)-16:]
	}
	copy(buf[16-len(id):], id)
	u, err := uuid.FromBytes(buf[:])
	if err != nil {
		return uuid.NewString()
	}
	return u.String()
}

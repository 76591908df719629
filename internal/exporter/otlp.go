package exporter

import (
	"net/http"

	coltracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	resourcepb "go.opentelemetry.io/proto/otlp/resource/v1"
	tracepb "go.opentelemetry.io/proto/otlp/trace/v1"
	"google.golang.org/protobuf/proto"

	"github.com/PeriniM/langsmith-bedrock-agents/internal/registry"
	"github.com/PeriniM/langsmith-bedrock-agents/internal/uploader"
)

// OTLPEncoder batches spans as an OTLP/HTTP protobuf export request for the
// LangSmith OTel ingestion endpoint.
type OTLPEncoder struct {
	service string
	spans   []*tracepb.Span
	bytes   int
}

func NewOTLPEncoder(service string) *OTLPEncoder {
	return &OTLPEncoder{service: service}
}

func (e *OTLPEncoder) Add(s *registry.Span) error {
	p := otlpSpan(s)
	e.spans = append(e.spans, p)
	e.bytes += proto.Size(p)
	return nil
}

func (e *OTLPEncoder) Count() int { return len(e.spans) }

func (e *OTLPEncoder) Bytes() int { return e.bytes }

func (e *OTLPEncoder) Flush() (*uploader.Batch, error) {
	if len(e.spans) == 0 {
		return nil, nil
	}
	req := &coltracepb.ExportTraceServiceRequest{
		ResourceSpans: []*tracepb.ResourceSpans{{
			Resource: &resourcepb.Resource{
				Attributes: []*commonpb.KeyValue{kv("service.name", e.service)},
			},
			ScopeSpans: []*tracepb.ScopeSpans{{
				Scope: &commonpb.InstrumentationScope{Name: "langsmith-bedrock-agents"},
				Spans: e.spans,
			}},
		}},
	}
	e.spans = nil
	e.bytes = 0
	data, err := proto.Marshal(req)
	if err != nil {
		return nil, err
	}
	h := http.Header{}
	h.Set("Content-Type", "application/x-protobuf")
	return &uploader.Batch{Data: data, Header: h}, nil
}

func otlpSpan(s *registry.Span) *tracepb.Span {
	p := &tracepb.Span{
		TraceId:           s.TraceID[:],
		SpanId:            s.SpanID[:],
		ParentSpanId:      s.ParentSpanID,
		Name:              s.Name,
		Kind:              tracepb.Span_SPAN_KIND_SERVER,
		StartTimeUnixNano: uint64(s.StartTime.UnixNano()),
		EndTimeUnixNano:   uint64(s.EndTime.UnixNano()),
		Status:            &tracepb.Status{Code: tracepb.Status_STATUS_CODE_OK},
	}
	if len(s.ParentSpanID) == 0 {
		p.Kind = tracepb.Span_SPAN_KIND_CLIENT
	}
	if s.Error != "" {
		p.Status = &tracepb.Status{
			Code:    tracepb.Status_STATUS_CODE_ERROR,
			Message: s.Error,
		}
	}
	for _, a := range s.Attrs() {
		p.Attributes = append(p.Attributes, kv(a.Key, a.Value))
	}
	return p
}

func kv(key string, value any) *commonpb.KeyValue {
	return &commonpb.KeyValue{Key: key, Value: anyValue(value)}
}

func anyValue(v any) *commonpb.AnyValue {
	switch t := v.(type) {
	case string:
		return &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: t}}
	case bool:
		return &commonpb.AnyValue{Value: &commonpb.AnyValue_BoolValue{BoolValue: t}}
	case int:
		return &commonpb.AnyValue{Value: &commonpb.AnyValue_IntValue{IntValue: int64(t)}}
	case int32:
		return &commonpb.AnyValue{Value: &commonpb.AnyValue_IntValue{IntValue: int64(t)}}
	case int64:
		return &commonpb.AnyValue{Value: &commonpb.AnyValue_IntValue{IntValue: t}}
	case float64:
		return &commonpb.AnyValue{Value: &commonpb.AnyValue_DoubleValue{DoubleValue: t}}
	default:
		return &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: ""}}
	}
}

package exporter

import (
	"testing"

	coltracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	tracepb "go.opentelemetry.io/proto/otlp/trace/v1"
	"google.golang.org/protobuf/proto"

	"github.com/PeriniM/langsmith-bedrock-agents/internal/mapper"
	"github.com/PeriniM/langsmith-bedrock-agents/internal/registry"
)

func TestOTLPEncoderRoundTrip(t *testing.T) {
	enc := NewOTLPEncoder("bedrock-agent")

	root := registry.NewRoot("invoke_agent A1", registry.KindChain)
	root.SetAttr(mapper.KeyAgentID, "A1")
	root.SetAttr(mapper.KeyUsageTotalTokens, int64(46))
	child := registry.NewChild(root, "agent_routing", registry.KindLLM)
	child.Error = "boom"

	if err := enc.Add(root); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := enc.Add(child); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if enc.Count() != 2 {
		t.Errorf("Count() = %d", enc.Count())
	}

	b, err := enc.Flush()
	if err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if b.Header.Get("Content-Type") != "application/x-protobuf" {
		t.Errorf("Content-Type = %q", b.Header.Get("Content-Type"))
	}

	var req coltracepb.ExportTraceServiceRequest
	if err := proto.Unmarshal(b.Data, &req); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if len(req.ResourceSpans) != 1 {
		t.Fatalf("resource spans = %d", len(req.ResourceSpans))
	}
	res := req.ResourceSpans[0]
	if got := res.Resource.Attributes[0]; got.Key != "service.name" || got.Value.GetStringValue() != "bedrock-agent" {
		t.Errorf("resource attr = %v", got)
	}
	spans := res.ScopeSpans[0].Spans
	if len(spans) != 2 {
		t.Fatalf("spans = %d", len(spans))
	}

	first, second := spans[0], spans[1]
	if string(first.TraceId) != string(root.TraceID[:]) {
		t.Error("trace id mismatch")
	}
	if len(first.ParentSpanId) != 0 {
		t.Error("root span has a parent")
	}
	if first.Kind != tracepb.Span_SPAN_KIND_CLIENT {
		t.Errorf("root kind = %v", first.Kind)
	}
	if first.Status.Code != tracepb.Status_STATUS_CODE_OK {
		t.Errorf("root status = %v", first.Status.Code)
	}

	if string(second.ParentSpanId) != string(root.SpanID[:]) {
		t.Error("child parent span id mismatch")
	}
	if second.Kind != tracepb.Span_SPAN_KIND_SERVER {
		t.Errorf("child kind = %v", second.Kind)
	}
	if second.Status.Code != tracepb.Status_STATUS_CODE_ERROR || second.Status.Message != "boom" {
		t.Errorf("child status = %v %q", second.Status.Code, second.Status.Message)
	}

	var sawTokens bool
	for _, a := range first.Attributes {
		if a.Key == mapper.KeyUsageTotalTokens && a.Value.GetIntValue() == 46 {
			sawTokens = true
		}
	}
	if !sawTokens {
		t.Error("token attribute not converted")
	}

	// encoder resets after flush
	if enc.Count() != 0 {
		t.Error("encoder not reset")
	}
	if b2, err := enc.Flush(); err != nil || b2 != nil {
		t.Errorf("empty flush = %v, %v", b2, err)
	}
}

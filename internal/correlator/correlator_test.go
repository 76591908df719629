package correlator

import (
	"context"
	"errors"
	"testing"

	"github.com/PeriniM/langsmith-bedrock-agents/internal/mapper"
	"github.com/PeriniM/langsmith-bedrock-agents/internal/model"
	"github.com/PeriniM/langsmith-bedrock-agents/internal/registry"
)

type captureSink struct {
	spans []*registry.Span
}

func (c *captureSink) Export(_ context.Context, s *registry.Span) {
	c.spans = append(c.spans, s)
}

func (c *captureSink) byName(name string) *registry.Span {
	for _, s := range c.spans {
		if s.Name == name {
			return s
		}
	}
	return nil
}

func chunk(text string) model.StreamEvent {
	return model.StreamEvent{Chunk: &model.Chunk{Bytes: []byte(text)}}
}

func routing(agent, session string, step *model.TraceStep) model.StreamEvent {
	return model.StreamEvent{Trace: &model.TracePart{
		AgentID:   agent,
		SessionID: session,
		Trace:     model.TraceBody{RoutingClassifier: step},
	}}
}

func orchestration(agent, session string, step *model.TraceStep) model.StreamEvent {
	return model.StreamEvent{Trace: &model.TracePart{
		AgentID:   agent,
		SessionID: session,
		Trace:     model.TraceBody{Orchestration: step},
	}}
}

func attr(t *testing.T, s *registry.Span, key string) any {
	t.Helper()
	if s == nil {
		t.Fatal("span is nil")
	}
	v, ok := s.Attr(key)
	if !ok {
		t.Fatalf("attribute %q not set on %q", key, s.Name)
	}
	return v
}

func TestRoutingScenario(t *testing.T) {
	sink := &captureSink{}
	c := New(sink)

	events := []model.StreamEvent{
		routing("A1", "s1", &model.TraceStep{
			ModelInvocationInput: &model.ModelInvocationInput{FoundationModel: "m1"},
		}),
		chunk("Hello "),
		routing("A1", "s1", &model.TraceStep{
			Observation: &model.Observation{FinalResponse: &model.FinalResponse{Text: "hi"}},
		}),
		chunk("world"),
	}

	out, err := c.Consume(context.Background(), Invocation{
		AgentID: "A1", SessionID: "s1", InputText: "greet me",
	}, NewReplay(events))
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if out != "Hello world" {
		t.Errorf("output = %q", out)
	}

	if len(sink.spans) != 2 {
		t.Fatalf("exported %d spans, want 2", len(sink.spans))
	}

	rt := sink.byName("agent_routing")
	if rt == nil {
		t.Fatal("routing span not exported")
	}
	if got := attr(t, rt, mapper.KeyRequestModel); got != "m1" {
		t.Errorf("model = %v", got)
	}
	if got := attr(t, rt, mapper.KeyCompletionPrefix+".0.content"); got != "hi" {
		t.Errorf("completion = %v", got)
	}
	if got := attr(t, rt, mapper.KeyCompletionPrefix+".0.role"); got != "agent" {
		t.Errorf("role = %v", got)
	}

	root := sink.byName("invoke_agent A1")
	if root == nil {
		t.Fatal("root span not exported")
	}
	if rt.ParentRunID != root.RunID {
		t.Error("routing span is not a child of the root")
	}
	if got := attr(t, root, mapper.KeyPromptPrefix+".0.content"); got != "greet me" {
		t.Errorf("root prompt = %v", got)
	}
	if got := attr(t, root, mapper.KeyCompletionPrefix+".0.content"); got != "Hello world" {
		t.Errorf("root completion = %v", got)
	}
	if got := attr(t, root, mapper.KeyCompletionPrefix+".0.role"); got != "agent" {
		t.Errorf("root completion role = %v", got)
	}
}

func TestToolCorrelation(t *testing.T) {
	sink := &captureSink{}
	c := New(sink)

	events := []model.StreamEvent{
		orchestration("A1", "s1", &model.TraceStep{
			InvocationInput: &model.InvocationInput{
				ActionGroupInvocationInput: &model.ActionGroupInvocationInput{
					Function:        "getWeather",
					ActionGroupName: "weather",
					Parameters:      []model.Parameter{{Name: "city", Value: "Rome"}},
				},
				TraceID: "t-1",
			},
		}),
		orchestration("A1", "s1", &model.TraceStep{
			Observation: &model.Observation{
				ActionGroupInvocationOutput: &model.ActionGroupInvocationOutput{Text: "sunny"},
			},
		}),
		orchestration("A1", "s1", &model.TraceStep{
			Observation: &model.Observation{FinalResponse: &model.FinalResponse{Text: "it is sunny"}},
		}),
	}

	if _, err := c.Consume(context.Background(), Invocation{AgentID: "A1", SessionID: "s1"}, NewReplay(events)); err != nil {
		t.Fatalf("Consume failed: %v", err)
	}

	tool := sink.byName("getWeather")
	if tool == nil {
		t.Fatal("tool span not exported")
	}
	if tool.Kind != registry.KindTool {
		t.Errorf("kind = %v", tool.Kind)
	}
	if got := attr(t, tool, mapper.KeyToolOutput); got != "sunny" {
		t.Errorf("tool output = %v", got)
	}
	if got := attr(t, tool, mapper.KeyToolActionGroup); got != "weather" {
		t.Errorf("action group = %v", got)
	}

	scope := sink.byName("agent_orchestration")
	if scope == nil {
		t.Fatal("orchestration span not exported")
	}
	if tool.ParentRunID != scope.RunID {
		t.Error("tool span is not a child of the orchestration span")
	}
	if got := attr(t, scope, mapper.KeyCompletionPrefix+".0.role"); got != "assistant" {
		t.Errorf("orchestration role = %v", got)
	}
	// tool closed before its parent
	if !tool.EndTime.After(tool.StartTime) && !tool.EndTime.Equal(tool.StartTime) {
		t.Error("tool span has no end time")
	}
}

func TestToolResultWithoutInvocationIsDropped(t *testing.T) {
	sink := &captureSink{}
	c := New(sink)

	events := []model.StreamEvent{
		orchestration("A1", "s1", &model.TraceStep{
			Observation: &model.Observation{
				ActionGroupInvocationOutput: &model.ActionGroupInvocationOutput{Text: "orphan"},
			},
		}),
	}
	if _, err := c.Consume(context.Background(), Invocation{AgentID: "A1", SessionID: "s1"}, NewReplay(events)); err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	for _, s := range sink.spans {
		if s.Kind == registry.KindTool {
			t.Error("unexpected tool span for orphan result")
		}
	}
}

func TestLateEventAfterCloseIsDropped(t *testing.T) {
	sink := &captureSink{}
	c := New(sink)

	events := []model.StreamEvent{
		routing("A1", "s1", &model.TraceStep{
			Observation: &model.Observation{FinalResponse: &model.FinalResponse{Text: "first"}},
		}),
		routing("A1", "s1", &model.TraceStep{
			ModelInvocationInput: &model.ModelInvocationInput{FoundationModel: "late"},
		}),
	}
	if _, err := c.Consume(context.Background(), Invocation{AgentID: "A1", SessionID: "s1"}, NewReplay(events)); err != nil {
		t.Fatalf("Consume failed: %v", err)
	}

	var routingSpans int
	for _, s := range sink.spans {
		if s.Name == "agent_routing" {
			routingSpans++
		}
	}
	if routingSpans != 1 {
		t.Errorf("exported %d routing spans, want 1", routingSpans)
	}
}

func TestStreamErrorForceCloses(t *testing.T) {
	sink := &captureSink{}
	c := New(sink)

	events := []model.StreamEvent{
		orchestration("A1", "s1", &model.TraceStep{
			ModelInvocationInput: &model.ModelInvocationInput{FoundationModel: "m1"},
		}),
	}
	streamErr := errors.New("connection reset")
	out, err := c.Consume(context.Background(), Invocation{AgentID: "A1", SessionID: "s1"}, NewReplayErr(events, streamErr))
	if !errors.Is(err, streamErr) {
		t.Fatalf("err = %v", err)
	}
	if out != "" {
		t.Errorf("output = %q", out)
	}

	if len(sink.spans) != 2 {
		t.Fatalf("exported %d spans, want 2", len(sink.spans))
	}
	for _, s := range sink.spans {
		if s.Error != "connection reset" {
			t.Errorf("span %q error = %q", s.Name, s.Error)
		}
	}
	root := sink.byName("invoke_agent A1")
	if got := attr(t, root, mapper.KeyErrorMessage); got != "connection reset" {
		t.Errorf("root error attr = %v", got)
	}
}

func TestNoLeakageAcrossInvocations(t *testing.T) {
	sink := &captureSink{}
	c := New(sink)

	// first invocation leaves an orchestration span open
	first := []model.StreamEvent{
		orchestration("A1", "s1", &model.TraceStep{
			ModelInvocationInput: &model.ModelInvocationInput{FoundationModel: "m1"},
		}),
	}
	if _, err := c.Consume(context.Background(), Invocation{AgentID: "A1", SessionID: "s1"}, NewReplay(first)); err != nil {
		t.Fatalf("first Consume failed: %v", err)
	}
	exported := len(sink.spans)

	second := []model.StreamEvent{
		orchestration("A1", "s1", &model.TraceStep{
			Observation: &model.Observation{FinalResponse: &model.FinalResponse{Text: "done"}},
		}),
	}
	if _, err := c.Consume(context.Background(), Invocation{AgentID: "A1", SessionID: "s1"}, NewReplay(second)); err != nil {
		t.Fatalf("second Consume failed: %v", err)
	}

	scope := sink.spans[exported:]
	var found *registry.Span
	for _, s := range scope {
		if s.Name == "agent_orchestration" {
			found = s
		}
	}
	if found == nil {
		t.Fatal("second invocation exported no orchestration span")
	}
	// the stale model attribute from the first invocation must not leak
	if _, ok := found.Attr(mapper.KeyRequestModel); ok {
		t.Error("span state leaked across invocations")
	}
}

func TestUnknownTraceShapesAreSkipped(t *testing.T) {
	sink := &captureSink{}
	c := New(sink)

	events := []model.StreamEvent{
		orchestration("A1", "s1", &model.TraceStep{}),
		{Trace: &model.TracePart{AgentID: "A1", SessionID: "s1"}},
	}
	out, err := c.Consume(context.Background(), Invocation{AgentID: "A1", SessionID: "s1"}, NewReplay(events))
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if out != "" {
		t.Errorf("output = %q", out)
	}
	// only the root span is exported
	if len(sink.spans) != 1 {
		t.Errorf("exported %d spans, want 1", len(sink.spans))
	}
}

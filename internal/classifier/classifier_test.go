package classifier

import (
	"testing"

	"github.com/PeriniM/langsmith-bedrock-agents/internal/model"
)

func part(agent, session string) *model.TracePart {
	return &model.TracePart{AgentID: agent, SessionID: session}
}

func TestClassifyNil(t *testing.T) {
	if got := Classify(nil); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestClassifyUnknownShape(t *testing.T) {
	p := part("A1", "s1")
	p.Trace.Orchestration = &model.TraceStep{}
	if got := Classify(p); len(got) != 0 {
		t.Fatalf("expected no classifications for empty step, got %d", len(got))
	}
}

func TestClassifyModelInput(t *testing.T) {
	p := part("A1", "s1")
	p.Trace.RoutingClassifier = &model.TraceStep{
		ModelInvocationInput: &model.ModelInvocationInput{FoundationModel: "m1"},
	}
	got := Classify(p)
	if len(got) != 1 {
		t.Fatalf("expected 1 classification, got %d", len(got))
	}
	if got[0].Category != CategoryModelInput {
		t.Errorf("category = %v", got[0].Category)
	}
	if got[0].Scope != ScopeRouting {
		t.Errorf("scope = %v", got[0].Scope)
	}
	if got[0].Key != "A1/s1/routing" {
		t.Errorf("key = %q", got[0].Key)
	}
}

func TestClassifyPriorityOrder(t *testing.T) {
	p := part("A1", "s1")
	p.Trace.Orchestration = &model.TraceStep{
		ModelInvocationInput:  &model.ModelInvocationInput{},
		ModelInvocationOutput: &model.ModelInvocationOutput{},
		Rationale:             &model.Rationale{Text: "because"},
		InvocationInput: &model.InvocationInput{
			ActionGroupInvocationInput: &model.ActionGroupInvocationInput{Function: "f"},
		},
		Observation: &model.Observation{
			ActionGroupInvocationOutput: &model.ActionGroupInvocationOutput{Text: "out"},
			FinalResponse:               &model.FinalResponse{Text: "done"},
		},
	}
	got := Classify(p)
	want := []Category{
		CategoryModelInput,
		CategoryModelOutput,
		CategoryRationale,
		CategoryToolInvocation,
		CategoryToolResult,
		CategoryFinalResponse,
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d classifications, got %d", len(want), len(got))
	}
	for i, w := range want {
		if got[i].Category != w {
			t.Errorf("classification %d = %v, want %v", i, got[i].Category, w)
		}
	}
}

func TestClassifyBothScopes(t *testing.T) {
	p := part("A1", "s1")
	p.Trace.RoutingClassifier = &model.TraceStep{
		Observation: &model.Observation{FinalResponse: &model.FinalResponse{Text: "r"}},
	}
	p.Trace.Orchestration = &model.TraceStep{
		ModelInvocationInput: &model.ModelInvocationInput{},
	}
	got := Classify(p)
	if len(got) != 2 {
		t.Fatalf("expected 2 classifications, got %d", len(got))
	}
	if got[0].Scope != ScopeRouting || got[1].Scope != ScopeOrchestration {
		t.Errorf("scopes = %v, %v", got[0].Scope, got[1].Scope)
	}
}

func TestToolKeyExtendsParent(t *testing.T) {
	p := part("A1", "s1")
	p.Trace.Orchestration = &model.TraceStep{
		InvocationInput: &model.InvocationInput{
			ActionGroupInvocationInput: &model.ActionGroupInvocationInput{Function: "getWeather"},
			TraceID:                    "t-9",
		},
	}
	got := Classify(p)
	if len(got) != 1 {
		t.Fatalf("expected 1 classification, got %d", len(got))
	}
	if got[0].Key != "A1/s1/orchestration/tool/getWeather#t-9" {
		t.Errorf("key = %q", got[0].Key)
	}
}

func TestToolKeyWithoutTraceID(t *testing.T) {
	if got := ToolKey("A1/s1/orchestration", "f", ""); got != "A1/s1/orchestration/tool/f" {
		t.Errorf("key = %q", got)
	}
}

func TestToolName(t *testing.T) {
	cases := []struct {
		in   model.ActionGroupInvocationInput
		want string
	}{
		{model.ActionGroupInvocationInput{Function: "f", APIPath: "/p", ActionGroupName: "g"}, "f"},
		{model.ActionGroupInvocationInput{APIPath: "/weather/today", ActionGroupName: "g"}, "weather/today"},
		{model.ActionGroupInvocationInput{ActionGroupName: "g"}, "g"},
	}
	for _, c := range cases {
		if got := ToolName(&c.in); got != c.want {
			t.Errorf("ToolName(%+v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestScopeKeySkipsEmptySegments(t *testing.T) {
	p := part("A1", "")
	if got := ScopeKey(p, ScopeOrchestration); got != "A1/orchestration" {
		t.Errorf("key = %q", got)
	}
}

func TestScopeSpanNames(t *testing.T) {
	if got := ScopeRouting.SpanName(); got != "agent_routing" {
		t.Errorf("routing span name = %q", got)
	}
	if got := ScopeOrchestration.SpanName(); got != "agent_orchestration" {
		t.Errorf("orchestration span name = %q", got)
	}
}

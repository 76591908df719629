// Package classifier decides what a raw trace payload is. Categorization is
// shape-based: the upstream runtime does not tag events, so we inspect which
// sub-documents are present. A payload that matches no known shape yields no
// classifications, which callers treat as a skip rather than an error — the
// upstream event vocabulary grows over time.
package classifier

import (
	"strings"

	"github.com/PeriniM/langsmith-bedrock-agents/internal/model"
)

type Category int

const (
	CategoryUnknown Category = iota
	CategoryModelInput
	CategoryModelOutput
	CategoryRationale
	CategoryToolInvocation
	CategoryToolResult
	CategoryCollaboratorResult
	CategoryFinalResponse
)

func (c Category) String() string {
	switch c {
	case CategoryModelInput:
		return "model_input"
	case CategoryModelOutput:
		return "model_output"
	case CategoryRationale:
		return "rationale"
	case CategoryToolInvocation:
		return "tool_invocation"
	case CategoryToolResult:
		return "tool_result"
	case CategoryCollaboratorResult:
		return "collaborator_result"
	case CategoryFinalResponse:
		return "final_response"
	}
	return "unknown"
}

// Scope names the trace family a classification belongs to.
type Scope string

const (
	ScopeRouting       Scope = "routing"
	ScopeOrchestration Scope = "orchestration"
)

// SpanName returns the span name used for this scope's span.
func (s Scope) SpanName() string {
	if s == ScopeRouting {
		return "agent_routing"
	}
	return "agent_orchestration"
}

// Classification is one detected sub-shape of a trace payload. Key is the
// correlation key of the span the event targets: for tool invocations that is
// the tool child key, for everything else the scope span's key.
type Classification struct {
	Category Category
	Scope    Scope
	Key      string
	Step     *model.TraceStep
}

// Classify inspects one trace part and returns a classification per detected
// sub-shape, in fixed priority order: model-input, model-output, rationale,
// tool-invocation, tool-result, collaborator-result, final-response.
func Classify(part *model.TracePart) []Classification {
	if part == nil {
		return nil
	}
	var out []Classification
	if step := part.Trace.RoutingClassifier; step != nil {
		out = append(out, classifyStep(part, ScopeRouting, step)...)
	}
	if step := part.Trace.Orchestration; step != nil {
		out = append(out, classifyStep(part, ScopeOrchestration, step)...)
	}
	return out
}

func classifyStep(part *model.TracePart, scope Scope, step *model.TraceStep) []Classification {
	key := ScopeKey(part, scope)
	var out []Classification
	add := func(cat Category, k string) {
		out = append(out, Classification{Category: cat, Scope: scope, Key: k, Step: step})
	}
	if step.ModelInvocationInput != nil {
		add(CategoryModelInput, key)
	}
	if step.ModelInvocationOutput != nil {
		add(CategoryModelOutput, key)
	}
	if step.Rationale != nil {
		add(CategoryRationale, key)
	}
	if in := step.InvocationInput; in != nil && in.ActionGroupInvocationInput != nil {
		add(CategoryToolInvocation, ToolKey(key, ToolName(in.ActionGroupInvocationInput), in.TraceID))
	}
	if obs := step.Observation; obs != nil {
		if obs.ActionGroupInvocationOutput != nil {
			add(CategoryToolResult, key)
		}
		if obs.AgentCollaboratorInvocationOutput != nil {
			add(CategoryCollaboratorResult, key)
		}
		if obs.FinalResponse != nil {
			add(CategoryFinalResponse, key)
		}
	}
	return out
}

// ScopeKey derives the correlation key for a routing or orchestration span.
// The scope span stays open across model-invocation steps until its final
// response, so per-step trace ids are deliberately not part of the key.
func ScopeKey(part *model.TracePart, scope Scope) string {
	return joinKey(part.AgentID, part.SessionID, string(scope))
}

// RootKey derives the correlation key of the top-level invocation span.
func RootKey(agentID, sessionID string) string {
	return joinKey(agentID, sessionID, "invocation")
}

// ToolKey extends a scope key for a tool child span. The upstream trace id,
// when present, keeps repeated calls to the same tool distinct.
func ToolKey(parentKey, toolName, traceID string) string {
	key := parentKey + "/tool/" + toolName
	if traceID != "" {
		key += "#" + traceID
	}
	return key
}

// ToolName picks the best available name for an action-group invocation:
// the function name, then the API path, then the owning action group.
func ToolName(in *model.ActionGroupInvocationInput) string {
	switch {
	case in.Function != "":
		return in.Function
	case in.APIPath != "":
		return strings.TrimPrefix(in.APIPath, "/")
	default:
		return in.ActionGroupName
	}
}

func joinKey(parts ...string) string {
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "/")
}

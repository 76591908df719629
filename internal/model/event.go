package model

import (
	"bytes"
	"encoding/json"
)

// StreamEvent is one element of the agent-runtime completion stream. Exactly
// one of the fields is set: a plain-text chunk of the final reply, or a trace
// part describing one step of the agent's execution.
type StreamEvent struct {
	Chunk *Chunk     `json:"chunk,omitempty"`
	Trace *TracePart `json:"trace,omitempty"`
}

// Chunk carries a UTF-8 fragment of the user-visible reply. The wire encoding
// is base64, which encoding/json handles for []byte.
type Chunk struct {
	Bytes []byte `json:"bytes"`
}

// TracePart is one trace event emitted during an InvokeAgent call.
type TracePart struct {
	AgentID      string    `json:"agentId"`
	AgentAliasID string    `json:"agentAliasId,omitempty"`
	SessionID    string    `json:"sessionId,omitempty"`
	Trace        TraceBody `json:"trace"`
}

// TraceBody holds the scope-level trace payloads. The upstream vocabulary
// also includes pre/post-processing and guardrail traces; those are not
// consumed here and decode to an empty body.
type TraceBody struct {
	RoutingClassifier *TraceStep `json:"routingClassifierTrace,omitempty"`
	Orchestration     *TraceStep `json:"orchestrationTrace,omitempty"`
}

// TraceStep is the payload of a routing or orchestration trace. A single step
// may carry more than one sub-shape.
type TraceStep struct {
	ModelInvocationInput  *ModelInvocationInput  `json:"modelInvocationInput,omitempty"`
	ModelInvocationOutput *ModelInvocationOutput `json:"modelInvocationOutput,omitempty"`
	Rationale             *Rationale             `json:"rationale,omitempty"`
	InvocationInput       *InvocationInput       `json:"invocationInput,omitempty"`
	Observation           *Observation           `json:"observation,omitempty"`
}

type ModelInvocationInput struct {
	FoundationModel        string                  `json:"foundationModel,omitempty"`
	Text                   string                  `json:"text,omitempty"`
	TraceID                string                  `json:"traceId,omitempty"`
	InferenceConfiguration *InferenceConfiguration `json:"inferenceConfiguration,omitempty"`
}

type InferenceConfiguration struct {
	Temperature float64 `json:"temperature,omitempty"`
	TopK        float64 `json:"topK,omitempty"`
	TopP        float64 `json:"topP,omitempty"`
}

type ModelInvocationOutput struct {
	TraceID     string       `json:"traceId,omitempty"`
	Metadata    *Metadata    `json:"metadata,omitempty"`
	RawResponse *RawResponse `json:"rawResponse,omitempty"`
}

type Metadata struct {
	Usage *Usage `json:"usage,omitempty"`
}

type Usage struct {
	InputTokens  int64 `json:"inputTokens,omitempty"`
	OutputTokens int64 `json:"outputTokens,omitempty"`
}

// RawResponse carries the unparsed model response. Content is usually a JSON
// document in the converse shape, but nothing guarantees that.
type RawResponse struct {
	Content string `json:"content,omitempty"`
}

type Rationale struct {
	Text    string `json:"text,omitempty"`
	TraceID string `json:"traceId,omitempty"`
}

type InvocationInput struct {
	ActionGroupInvocationInput *ActionGroupInvocationInput `json:"actionGroupInvocationInput,omitempty"`
	InvocationType             string                      `json:"invocationType,omitempty"`
	TraceID                    string                      `json:"traceId,omitempty"`
}

type ActionGroupInvocationInput struct {
	ActionGroupName string      `json:"actionGroupName,omitempty"`
	Function        string      `json:"function,omitempty"`
	APIPath         string      `json:"apiPath,omitempty"`
	Verb            string      `json:"verb,omitempty"`
	Parameters      []Parameter `json:"parameters,omitempty"`
}

type Parameter struct {
	Name  string `json:"name,omitempty"`
	Type  string `json:"type,omitempty"`
	Value string `json:"value,omitempty"`
}

type Observation struct {
	FinalResponse                     *FinalResponse                     `json:"finalResponse,omitempty"`
	ActionGroupInvocationOutput       *ActionGroupInvocationOutput       `json:"actionGroupInvocationOutput,omitempty"`
	AgentCollaboratorInvocationOutput *AgentCollaboratorInvocationOutput `json:"agentCollaboratorInvocationOutput,omitempty"`
	Type                              string                             `json:"type,omitempty"`
	TraceID                           string                             `json:"traceId,omitempty"`
}

type FinalResponse struct {
	Text string `json:"text,omitempty"`
}

type ActionGroupInvocationOutput struct {
	Text string `json:"text,omitempty"`
}

type AgentCollaboratorInvocationOutput struct {
	AgentCollaboratorName     string `json:"agentCollaboratorName,omitempty"`
	AgentCollaboratorAliasARN string `json:"agentCollaboratorAliasArn,omitempty"`
}

// DecodeStreamEvents parses a recorded completion stream. Both a JSON array
// of events and newline-delimited JSON are accepted.
func DecodeStreamEvents(data []byte) ([]StreamEvent, error) {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		case '[':
			var events []StreamEvent
			if err := json.Unmarshal(data, &events); err != nil {
				return nil, err
			}
			return events, nil
		}
		break
	}
	var events []StreamEvent
	dec := json.NewDecoder(bytes.NewReader(data))
	for dec.More() {
		var ev StreamEvent
		if err := dec.Decode(&ev); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

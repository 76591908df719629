package model

const (
	RunTypeLLM   = "llm"
	RunTypeChain = "chain"
	RunTypeTool  = "tool"
)

// Run is the LangSmith run payload for one finished span.
type Run struct {
	ID          *string        `json:"id"`
	TraceID     *string        `json:"trace_id,omitempty"`
	Name        *string        `json:"name,omitempty"`
	RunType     *string        `json:"run_type,omitempty" validate:"oneof=llm chain tool"`
	StartTime   *string        `json:"start_time,omitempty"`
	EndTime     *string        `json:"end_time,omitempty"`
	SessionName *string        `json:"session_name,omitempty"`
	DottedOrder *string        `json:"dotted_order,omitempty"`
	Status      *string        `json:"status,omitempty"`
	Inputs      map[string]any `json:"inputs,omitempty"`
	Outputs     map[string]any `json:"outputs,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
	Error       *string        `json:"error,omitempty"`
	ParentRunID *string        `json:"parent_run_id,omitempty"`
	Tags        []string       `json:"tags"`
}

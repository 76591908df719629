// Package mapper translates trace-event payloads into span attributes. All
// functions are pure annotations: they never close spans and never fail.
// Embedded documents (prompts, raw model responses) are parsed best-effort;
// a document that does not parse is captured verbatim under a fallback key.
package mapper

import (
	"fmt"
	"strings"

	"github.com/PeriniM/langsmith-bedrock-agents/internal/model"
	"github.com/PeriniM/langsmith-bedrock-agents/internal/registry"
)

// ModelInvocationInput records the target model, the prompt, and the
// generation parameters. Absent parameters default to 0, matching what the
// runtime reports for models that do not use them.
func ModelInvocationInput(s *registry.Span, in *model.ModelInvocationInput) {
	if in.FoundationModel != "" {
		s.SetAttr(KeyRequestModel, in.FoundationModel)
	}
	if msgs, ok := promptMessages(in.Text); ok && len(msgs) > 0 {
		for i, m := range msgs {
			s.SetAttr(fmt.Sprintf("%s.%d.role", KeyPromptPrefix, i), m.role)
			s.SetAttr(fmt.Sprintf("%s.%d.content", KeyPromptPrefix, i), m.content)
		}
	} else if in.Text != "" {
		s.SetAttr(KeyPromptContent, in.Text)
	}

	var temp, topK, topP float64
	if ic := in.InferenceConfiguration; ic != nil {
		temp, topK, topP = ic.Temperature, ic.TopK, ic.TopP
	}
	s.SetAttr(KeyTemperature, temp)
	s.SetAttr(KeyTopK, topK)
	s.SetAttr(KeyTopP, topP)
}

// ModelInvocationOutput records token usage and the completion. Token counts
// default to 0 and the total is always recorded.
func ModelInvocationOutput(s *registry.Span, out *model.ModelInvocationOutput) {
	var in, outTokens int64
	if out.Metadata != nil && out.Metadata.Usage != nil {
		in = out.Metadata.Usage.InputTokens
		outTokens = out.Metadata.Usage.OutputTokens
	}
	s.SetAttr(KeyUsagePromptTokens, in)
	s.SetAttr(KeyUsageCompletionTokens, outTokens)
	s.SetAttr(KeyUsageTotalTokens, in+outTokens)

	if out.RawResponse == nil || out.RawResponse.Content == "" {
		return
	}
	raw := out.RawResponse.Content
	doc, ok := completionDoc(raw)
	if !ok {
		s.SetAttr(KeyCompletionContent, raw)
		return
	}
	role := doc.Output.Message.Role
	if role == "" {
		role = "assistant"
	}
	idx := 0
	for _, c := range doc.Output.Message.Content {
		if c.Text == "" {
			continue
		}
		s.SetAttr(fmt.Sprintf("%s.%d.role", KeyCompletionPrefix, idx), role)
		s.SetAttr(fmt.Sprintf("%s.%d.content", KeyCompletionPrefix, idx), c.Text)
		idx++
	}
	if idx == 0 {
		s.SetAttr(KeyCompletionContent, raw)
	}
	if doc.StopReason != "" {
		s.SetAttr(KeyStopReason, doc.StopReason)
	}
}

// Rationale records the agent's reasoning text verbatim.
func Rationale(s *registry.Span, r *model.Rationale) {
	s.SetAttr(KeyReasoning, r.Text)
}

// ToolInvocation records the tool identity on a tool child span.
func ToolInvocation(s *registry.Span, in *model.ActionGroupInvocationInput, toolName string) {
	s.SetAttr(KeySpanKind, "TOOL")
	s.SetAttr(KeyToolName, toolName)
	if in.ActionGroupName != "" {
		s.SetAttr(KeyToolActionGroup, in.ActionGroupName)
	}
	for i, p := range in.Parameters {
		s.SetAttr(fmt.Sprintf("gen_ai.tool.parameter.%d.%s", i, p.Name), p.Value)
	}
}

// ToolResult records the tool's textual result.
func ToolResult(s *registry.Span, out *model.ActionGroupInvocationOutput) {
	s.SetAttr(KeyToolOutput, out.Text)
}

// FinalResponse records the completion text and role on the span that fired
// it. Routing spans answer as "agent", orchestration spans as "assistant".
func FinalResponse(s *registry.Span, fr *model.FinalResponse, role string) {
	s.SetAttr(KeyCompletionContent, fr.Text)
	s.SetAttr(KeyCompletionPrefix+".0.content", fr.Text)
	s.SetAttr(KeyCompletionPrefix+".0.role", role)
}

// CollaboratorOutput records the delegate agent a step handed off to. The
// alias ARN may be absent or malformed; then only the name is recorded.
func CollaboratorOutput(s *registry.Span, out *model.AgentCollaboratorInvocationOutput) {
	if out.AgentCollaboratorName != "" {
		s.SetAttr(KeyAgentName, out.AgentCollaboratorName)
	}
	if id, ok := CollaboratorAliasID(out.AgentCollaboratorAliasARN); ok {
		s.SetAttr(KeyAgentAliasID, id)
	}
}

const aliasMarker = ":agent-alias/"

// CollaboratorAliasID extracts the delegate agent identifier from an alias
// ARN: the substring after the path separator that follows the
// ":agent-alias/" marker. An ARN without the marker (or without a trailing
// identifier) yields no id.
func CollaboratorAliasID(arn string) (string, bool) {
	pos := strings.Index(arn, aliasMarker)
	if pos < 0 {
		return "", false
	}
	rest := arn[pos+len(aliasMarker):]
	slash := strings.Index(rest, "/")
	if slash < 0 || slash == len(rest)-1 {
		return "", false
	}
	return rest[slash+1:], true
}

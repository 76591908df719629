// Package correlator turns the agent-runtime completion stream into a span
// hierarchy. It is the sole mutator of its span registry: events are consumed
// strictly in arrival order, each one resolved against the registry by
// correlation key, annotated, and closed when its terminal event arrives.
package correlator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PeriniM/langsmith-bedrock-agents/internal/classifier"
	"github.com/PeriniM/langsmith-bedrock-agents/internal/mapper"
	"github.com/PeriniM/langsmith-bedrock-agents/internal/model"
	"github.com/PeriniM/langsmith-bedrock-agents/internal/registry"
)

// Invocation identifies one top-level agent call.
type Invocation struct {
	AgentID      string
	AgentAliasID string
	SessionID    string
	UserID       string
	InputText    string
	// Project overrides the exporter's default LangSmith project for this
	// invocation's spans.
	Project string
}

// Correlator owns the registry of one invocation at a time. Build one per
// invocation; Consume resets state, so reuse is safe but never concurrent.
type Correlator struct {
	reg     *registry.Registry
	log     *slog.Logger
	output  strings.Builder
	project string
}

func New(sink registry.Sink) *Correlator {
	return &Correlator{reg: registry.New(sink), log: slog.Default()}
}

// Registry exposes the underlying registry, for inspection in tests.
func (c *Correlator) Registry() *registry.Registry { return c.reg }

// Consume drains the stream and returns the accumulated reply text. A root
// span covers the whole invocation; routing/orchestration spans open and
// close underneath it as their events arrive. When the stream fails, every
// span still open is force-closed with an error status before the error is
// returned.
func (c *Correlator) Consume(ctx context.Context, inv Invocation, stream EventStream) (string, error) {
	c.reg.Clear()
	c.output.Reset()
	c.project = inv.Project

	rootKey := classifier.RootKey(inv.AgentID, inv.SessionID)
	root := c.reg.GetOrCreate(rootKey, func() *registry.Span {
		s := registry.NewRoot("invoke_agent "+inv.AgentID, registry.KindChain)
		c.annotateProject(s)
		s.SetAttr(mapper.KeySpanKind, "CHAIN")
		s.SetAttr(mapper.KeyRunName, "Bedrock Agent "+inv.AgentID)
		s.SetAttr(mapper.KeyOperationName, mapper.OperationInvokeAgent)
		s.SetAttr(mapper.KeySystem, mapper.SystemBedrock)
		s.SetAttr(mapper.KeyAgentID, inv.AgentID)
		if inv.AgentAliasID != "" {
			s.SetAttr(mapper.KeyAgentAliasID, inv.AgentAliasID)
		}
		if inv.SessionID != "" {
			s.SetAttr(mapper.KeySessionID, inv.SessionID)
		}
		if inv.UserID != "" {
			s.SetAttr(mapper.KeyMetadataUserID, inv.UserID)
		}
		if inv.InputText != "" {
			s.SetAttr(mapper.KeyPromptPrefix+".0.role", "user")
			s.SetAttr(mapper.KeyPromptPrefix+".0.content", inv.InputText)
		}
		return s
	})

	for ev := range stream.Events() {
		switch {
		case ev.Chunk != nil:
			c.output.Write(ev.Chunk.Bytes)
		case ev.Trace != nil:
			c.process(ctx, root, ev.Trace)
		}
	}

	if err := stream.Err(); err != nil {
		root.SetAttr(mapper.KeyErrorMessage, err.Error())
		root.SetAttr(mapper.KeyErrorType, fmt.Sprintf("%T", err))
		c.reg.CloseAll(ctx, err)
		return "", err
	}

	out := c.output.String()
	root.SetAttr(mapper.KeyCompletionPrefix+".0.content", out)
	root.SetAttr(mapper.KeyCompletionPrefix+".0.role", "agent")
	c.reg.Close(ctx, rootKey)

	if n := c.reg.Len(); n > 0 {
		// Terminal events for these spans never arrived; they stay open and
		// are discarded with the correlator.
		c.log.Warn("stream drained with spans still open", "count", n)
	}
	return out, nil
}

func (c *Correlator) process(ctx context.Context, root *registry.Span, part *model.TracePart) {
	for _, cl := range classifier.Classify(part) {
		switch cl.Category {
		case classifier.CategoryModelInput:
			if s := c.scopeSpan(root, part, cl); s != nil {
				mapper.ModelInvocationInput(s, cl.Step.ModelInvocationInput)
			}
		case classifier.CategoryModelOutput:
			if s := c.scopeSpan(root, part, cl); s != nil {
				mapper.ModelInvocationOutput(s, cl.Step.ModelInvocationOutput)
			}
		case classifier.CategoryRationale:
			if s := c.scopeSpan(root, part, cl); s != nil {
				mapper.Rationale(s, cl.Step.Rationale)
			}
		case classifier.CategoryToolInvocation:
			c.openTool(root, part, cl)
		case classifier.CategoryToolResult:
			c.closeTool(ctx, cl)
		case classifier.CategoryCollaboratorResult:
			if s := c.scopeSpan(root, part, cl); s != nil {
				mapper.CollaboratorOutput(s, cl.Step.Observation.AgentCollaboratorInvocationOutput)
			}
		case classifier.CategoryFinalResponse:
			s := c.scopeSpan(root, part, cl)
			if s == nil {
				continue
			}
			role := "assistant"
			if cl.Scope == classifier.ScopeRouting {
				role = "agent"
			}
			mapper.FinalResponse(s, cl.Step.Observation.FinalResponse, role)
			c.reg.Close(ctx, cl.Key)
		}
	}
}

// scopeSpan resolves the routing/orchestration span an event targets,
// opening it under the root when unseen. Nil means the key already closed
// and the event was dropped.
func (c *Correlator) scopeSpan(root *registry.Span, part *model.TracePart, cl classifier.Classification) *registry.Span {
	key := classifier.ScopeKey(part, cl.Scope)
	return c.reg.GetOrCreate(key, func() *registry.Span {
		s := registry.NewChild(root, cl.Scope.SpanName(), registry.KindLLM)
		c.annotateProject(s)
		s.SetAttr(mapper.KeySpanKind, "LLM")
		s.SetAttr(mapper.KeyOperationName, mapper.OperationInvokeAgent)
		s.SetAttr(mapper.KeySystem, mapper.SystemBedrock)
		s.SetAttr(mapper.KeyAgentID, part.AgentID)
		return s
	})
}

func (c *Correlator) openTool(root *registry.Span, part *model.TracePart, cl classifier.Classification) {
	parent := c.scopeSpan(root, part, cl)
	if parent == nil {
		c.log.Warn("dropping tool invocation for closed step", "key", cl.Key)
		return
	}
	in := cl.Step.InvocationInput.ActionGroupInvocationInput
	name := classifier.ToolName(in)
	s := c.reg.GetOrCreate(cl.Key, func() *registry.Span {
		t := registry.NewChild(parent, name, registry.KindTool)
		c.annotateProject(t)
		return t
	})
	if s != nil {
		mapper.ToolInvocation(s, in, name)
	}
}

func (c *Correlator) annotateProject(s *registry.Span) {
	if c.project != "" {
		s.SetAttr(mapper.KeySessionName, c.project)
	}
}

// closeTool matches a tool result back to its invocation span. The result
// carries less correlation context than the invocation did, so resolution
// falls back to the most recently opened open tool child of the step.
func (c *Correlator) closeTool(ctx context.Context, cl classifier.Classification) {
	var target *registry.Span
	for _, kid := range c.reg.ChildrenOf(cl.Key) {
		if kid.Kind == registry.KindTool {
			target = kid
		}
	}
	if target == nil {
		c.log.Warn("dropping tool result with no open tool span", "key", cl.Key)
		return
	}
	mapper.ToolResult(target, cl.Step.Observation.ActionGroupInvocationOutput)
	c.reg.Close(ctx, target.Key)
}

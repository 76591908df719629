package exporter

import (
	"testing"

	"github.com/PeriniM/langsmith-bedrock-agents/internal/mapper"
	"github.com/PeriniM/langsmith-bedrock-agents/internal/registry"
)

func TestRunFromSpanMessages(t *testing.T) {
	s := registry.NewRoot("invoke_agent A1", registry.KindChain)
	s.SetAttr(mapper.KeyRunName, "Bedrock Agent A1")
	s.SetAttr(mapper.KeySystem, mapper.SystemBedrock)
	s.SetAttr(mapper.KeyPromptPrefix+".0.role", "system")
	s.SetAttr(mapper.KeyPromptPrefix+".0.content", "be nice")
	s.SetAttr(mapper.KeyPromptPrefix+".1.role", "user")
	s.SetAttr(mapper.KeyPromptPrefix+".1.content", "hello")
	s.SetAttr(mapper.KeyCompletionPrefix+".0.role", "assistant")
	s.SetAttr(mapper.KeyCompletionPrefix+".0.content", "hi")
	s.SetAttr(mapper.KeyUsagePromptTokens, int64(12))
	s.SetAttr(mapper.KeyUsageCompletionTokens, int64(34))
	s.SetAttr(mapper.KeyUsageTotalTokens, int64(46))

	run := runFromSpan(s, "my-project")

	if *run.ID != s.RunID || *run.TraceID != s.TraceRunID {
		t.Error("run identity mismatch")
	}
	if *run.Name != "Bedrock Agent A1" {
		t.Errorf("name = %q", *run.Name)
	}
	if *run.RunType != "chain" {
		t.Errorf("run type = %q", *run.RunType)
	}
	if *run.SessionName != "my-project" {
		t.Errorf("session name = %q", *run.SessionName)
	}
	if *run.Status != "success" {
		t.Errorf("status = %q", *run.Status)
	}
	if run.ParentRunID != nil {
		t.Error("root run has a parent")
	}

	msgs, ok := run.Inputs["messages"].([]map[string]any)
	if !ok || len(msgs) != 2 {
		t.Fatalf("inputs.messages = %v", run.Inputs["messages"])
	}
	if msgs[1]["role"] != "user" || msgs[1]["content"] != "hello" {
		t.Errorf("inputs.messages[1] = %v", msgs[1])
	}

	out, ok := run.Outputs["messages"].([]map[string]any)
	if !ok || len(out) != 1 || out[0]["content"] != "hi" {
		t.Fatalf("outputs.messages = %v", run.Outputs["messages"])
	}
	usage, ok := run.Outputs["usage_metadata"].(map[string]any)
	if !ok {
		t.Fatal("usage_metadata missing")
	}
	if usage["input_tokens"] != int64(12) || usage["output_tokens"] != int64(34) || usage["total_tokens"] != int64(46) {
		t.Errorf("usage = %v", usage)
	}

	md, ok := run.Extra["metadata"].(map[string]any)
	if !ok {
		t.Fatal("extra.metadata missing")
	}
	if md[mapper.KeySystem] != mapper.SystemBedrock {
		t.Errorf("metadata system = %v", md[mapper.KeySystem])
	}
	if _, leaked := md[mapper.KeyPromptPrefix+".0.role"]; leaked {
		t.Error("indexed prompt attribute leaked into metadata")
	}
	if _, leaked := md[mapper.KeyRunName]; leaked {
		t.Error("run name leaked into metadata")
	}
}

func TestRunFromSpanFallbacksAndError(t *testing.T) {
	root := registry.NewRoot("invoke_agent A1", registry.KindChain)
	s := registry.NewChild(root, "getWeather", registry.KindTool)
	s.SetAttr(mapper.KeyToolOutput, "sunny")
	s.Error = "tool timed out"

	run := runFromSpan(s, "")

	if *run.Status != "error" || *run.Error != "tool timed out" {
		t.Errorf("status = %q, error = %v", *run.Status, run.Error)
	}
	if run.SessionName != nil {
		t.Error("session name set without a project")
	}
	if *run.ParentRunID != root.RunID {
		t.Error("parent run id mismatch")
	}
	if run.Outputs["output"] != "sunny" {
		t.Errorf("outputs = %v", run.Outputs)
	}
	if *run.DottedOrder == "" {
		t.Error("dotted order missing")
	}
}

func TestRunsEncoderBatch(t *testing.T) {
	enc := NewRunsEncoder("proj")
	if err := enc.Add(registry.NewRoot("a", registry.KindChain)); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if enc.Count() != 1 {
		t.Errorf("Count() = %d", enc.Count())
	}
	b, err := enc.Flush()
	if err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if b == nil || len(b.Data) == 0 {
		t.Fatal("empty batch")
	}
	if ct := b.Header.Get("Content-Type"); ct == "" {
		t.Error("missing Content-Type")
	}
	if b.Header.Get("Content-Encoding") != "zstd" {
		t.Error("missing zstd Content-Encoding")
	}
	if enc.Count() != 0 {
		t.Error("encoder not reset after Flush")
	}
}

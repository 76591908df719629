package exporter

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PeriniM/langsmith-bedrock-agents/internal/mapper"
	"github.com/PeriniM/langsmith-bedrock-agents/internal/model"
	"github.com/PeriniM/langsmith-bedrock-agents/internal/registry"
	"github.com/PeriniM/langsmith-bedrock-agents/internal/serializer"
	"github.com/PeriniM/langsmith-bedrock-agents/internal/uploader"
	"github.com/PeriniM/langsmith-bedrock-agents/internal/util"
)

// RunsEncoder batches spans as LangSmith runs in a zstd multipart body for
// the /runs/multipart endpoint.
type RunsEncoder struct {
	comp    *serializer.Compressor
	project string
}

func NewRunsEncoder(project string) *RunsEncoder {
	return &RunsEncoder{comp: serializer.New(), project: project}
}

func (e *RunsEncoder) Add(s *registry.Span) error {
	return e.comp.Add(runFromSpan(s, e.project))
}

func (e *RunsEncoder) Count() int { return e.comp.RunCount() }

func (e *RunsEncoder) Bytes() int { return e.comp.Uncompressed() }

func (e *RunsEncoder) Flush() (*uploader.Batch, error) {
	data, boundary, err := e.comp.Flush()
	if err != nil || data == nil {
		return nil, err
	}
	h := http.Header{}
	h.Set("Content-Type", "multipart/form-data; boundary="+boundary)
	h.Set("Content-Encoding", "zstd")
	return &uploader.Batch{Data: data, Header: h}, nil
}

// runFromSpan lowers a finished span into the LangSmith run payload. Indexed
// gen_ai.prompt.* and gen_ai.completion.* attributes become chat messages;
// everything else lands in extra.metadata.
func runFromSpan(s *registry.Span, project string) *model.Run {
	run := &model.Run{
		ID:          util.StringPtr(s.RunID),
		TraceID:     util.StringPtr(s.TraceRunID),
		Name:        util.StringPtr(s.Name),
		RunType:     util.StringPtr(string(s.Kind)),
		StartTime:   util.StringPtr(s.StartTime.UTC().Format(time.RFC3339Nano)),
		DottedOrder: util.StringPtr(s.DottedOrder),
		Tags:        []string{},
	}
	if !s.EndTime.IsZero() {
		run.EndTime = util.StringPtr(s.EndTime.UTC().Format(time.RFC3339Nano))
	}
	if project != "" {
		run.SessionName = util.StringPtr(project)
	}
	if s.ParentRunID != "" {
		run.ParentRunID = util.StringPtr(s.ParentRunID)
	}
	if s.Error != "" {
		run.Status = util.StringPtr("error")
		run.Error = util.StringPtr(s.Error)
	} else {
		run.Status = util.StringPtr("success")
	}

	if name, ok := stringAttr(s, mapper.KeyRunName); ok {
		run.Name = util.StringPtr(name)
	}
	if session, ok := stringAttr(s, mapper.KeySessionName); ok {
		run.SessionName = util.StringPtr(session)
	}

	inputs := map[string]any{}
	outputs := map[string]any{}
	metadata := map[string]any{}
	usage := map[string]any{}

	if msgs := indexedMessages(s, mapper.KeyPromptPrefix); len(msgs) > 0 {
		inputs["messages"] = msgs
	} else if text, ok := stringAttr(s, mapper.KeyPromptContent); ok {
		inputs["input"] = text
	}
	if msgs := indexedMessages(s, mapper.KeyCompletionPrefix); len(msgs) > 0 {
		outputs["messages"] = msgs
	} else if text, ok := stringAttr(s, mapper.KeyCompletionContent); ok {
		outputs["output"] = text
	}
	if text, ok := stringAttr(s, mapper.KeyReasoning); ok {
		outputs["reasoning"] = text
	}
	if text, ok := stringAttr(s, mapper.KeyToolOutput); ok {
		outputs["output"] = text
	}

	for _, a := range s.Attrs() {
		switch a.Key {
		case mapper.KeyUsagePromptTokens:
			usage["input_tokens"] = a.Value
		case mapper.KeyUsageCompletionTokens:
			usage["output_tokens"] = a.Value
		case mapper.KeyUsageTotalTokens:
			usage["total_tokens"] = a.Value
		case mapper.KeyRunName, mapper.KeySessionName,
			mapper.KeyPromptContent, mapper.KeyCompletionContent,
			mapper.KeyCompletionRole, mapper.KeyReasoning, mapper.KeyToolOutput:
			// already lowered
		default:
			if strings.HasPrefix(a.Key, mapper.KeyPromptPrefix+".") ||
				strings.HasPrefix(a.Key, mapper.KeyCompletionPrefix+".") {
				continue
			}
			metadata[a.Key] = a.Value
		}
	}

	if len(usage) > 0 {
		outputs["usage_metadata"] = usage
	}
	if len(inputs) > 0 {
		run.Inputs = inputs
	}
	if len(outputs) > 0 {
		run.Outputs = outputs
	}
	if len(metadata) > 0 {
		run.Extra = map[string]any{"metadata": metadata}
	}
	return run
}

// indexedMessages assembles <prefix>.<n>.role / <prefix>.<n>.content pairs
// into ordered chat messages. Gaps end the sequence.
func indexedMessages(s *registry.Span, prefix string) []map[string]any {
	var msgs []map[string]any
	for i := 0; ; i++ {
		base := prefix + "." + strconv.Itoa(i) + "."
		role, okRole := stringAttr(s, base+"role")
		content, okContent := stringAttr(s, base+"content")
		if !okRole && !okContent {
			break
		}
		m := map[string]any{}
		if okRole {
			m["role"] = role
		}
		if okContent {
			m["content"] = content
		}
		msgs = append(msgs, m)
	}
	return msgs
}

func stringAttr(s *registry.Span, key string) (string, bool) {
	v, ok := s.Attr(key)
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

package mapper

import "encoding/json"

// promptMessage is one entry of the messages array embedded in a model
// invocation's prompt text.
type promptMessage struct {
	role    string
	content string
}

type promptDoc struct {
	System   string `json:"system"`
	Messages []struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"messages"`
}

// promptMessages parses the prompt text as a JSON document with a messages
// array. The second return value reports whether the parse succeeded; a
// failure is an ordinary recovery path, the caller falls back to the raw
// text.
func promptMessages(text string) ([]promptMessage, bool) {
	var doc promptDoc
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, false
	}
	var msgs []promptMessage
	if doc.System != "" {
		msgs = append(msgs, promptMessage{role: "system", content: doc.System})
	}
	for _, m := range doc.Messages {
		msgs = append(msgs, promptMessage{role: m.Role, content: rawText(m.Content)})
	}
	return msgs, true
}

// completionDoc mirrors the converse-shaped raw model response:
// output.message.content plus a stop reason.
type converseDoc struct {
	Output struct {
		Message struct {
			Role    string `json:"role"`
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
		} `json:"message"`
	} `json:"output"`
	StopReason string `json:"stopReason"`
}

func completionDoc(raw string) (*converseDoc, bool) {
	var doc converseDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, false
	}
	return &doc, true
}

// rawText unquotes a JSON value when it is a string, otherwise returns the
// raw JSON. Message content may be either a string or a structured block.
func rawText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

package pipeline

import (
	"bytes"
	"encoding/json"
	"strings"
)

// toolCall is the reply shape that requests a tool:
// {"tool_call": {"name": "...", "arguments": {...}}}
type toolCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// parseToolCall checks reply for a tool call. Anything that is not exactly
// that shape, including plain prose, reports false.
func parseToolCall(reply string) (toolCall, bool) {
	text := stripCodeFence(strings.TrimSpace(reply))
	if !strings.HasPrefix(text, "{") {
		return toolCall{}, false
	}

	var envelope struct {
		ToolCall *toolCall `json:"tool_call"`
	}
	if err := json.Unmarshal([]byte(text), &envelope); err != nil || envelope.ToolCall == nil {
		return toolCall{}, false
	}
	tc := *envelope.ToolCall
	if tc.Name == "" || !bytes.HasPrefix(bytes.TrimSpace(tc.Arguments), []byte("{")) {
		return toolCall{}, false
	}
	return tc, true
}

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	if nl := strings.IndexByte(inner, '\n'); nl >= 0 && !strings.Contains(inner[:nl], "{") {
		inner = inner[nl+1:]
	}
	return strings.TrimSpace(inner)
}

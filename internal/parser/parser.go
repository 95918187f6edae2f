package parser

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/riftloop/agentcore/pkg/models"
)

// rawCall is the shape a model is expected to emit for a tool call, either
// fenced or inline.
type rawCall struct {
	Name   string          `json:"name"`
	Params json.RawMessage `json:"params"`
	// Some dialects use "arguments" or "input" instead of "params"; these
	// are absorbed by normalizeKeys before unmarshalling into rawCall.
}

// inlinePattern finds where a JSON object literal starting with {"name"
// begins anywhere in the text, as a fallback when the model forgot to fence
// its call; Parse then reads the whole object with a JSON decoder so nested
// params are kept intact.
var inlinePattern = regexp.MustCompile(`\{\s*"name"\s*:\s*"[a-zA-Z0-9_\-]+"[\s\S]*?\}`)

// Result is the outcome of parsing one model response.
type Result struct {
	// ToolCalls are every tool call recognized in the response, fenced,
	// inline, or passed through from a native function-call record.
	ToolCalls []models.ToolCall
	// Text is the response content with tool-call fences stripped, suitable
	// for display or for appending to the transcript as the assistant's
	// visible message.
	Text string
	// Deferred is not populated by Parse; ApplyWriteDeferral returns the
	// write-class calls held back until the end of the batch separately.
	Deferred []models.ToolCall
}

// Parse extracts tool calls from a model's response text. native carries
// any tool calls the backend already returned as structured records (a
// grammar-constrained or native function-calling backend); these are
// trusted as-is and merged with anything recovered from the text.
func Parse(text string, native []models.ToolCall) Result {
	var calls []models.ToolCall
	remaining := text

	for _, f := range scanFences(text) {
		if !isToolFence(f.info) {
			continue
		}
		if call, ok := decodeCall(f.body); ok {
			calls = append(calls, call)
			remaining = strings.Replace(remaining, f.body, "", 1)
			remaining = strings.Replace(remaining, "```"+f.info+"\n```", "", 1)
		}
	}

	if len(calls) == 0 {
		for _, loc := range inlinePattern.FindAllStringIndex(text, -1) {
			var obj json.RawMessage
			if err := json.NewDecoder(strings.NewReader(text[loc[0]:])).Decode(&obj); err != nil {
				continue
			}
			m := string(obj)
			if call, ok := decodeCall(m); ok {
				calls = append(calls, call)
				remaining = strings.Replace(remaining, m, "", 1)
			}
		}
	}

	calls = append(calls, native...)
	calls = normalizeAll(calls)
	calls = dedupe(calls)

	return Result{ToolCalls: calls, Text: strings.TrimSpace(remaining)}
}

func decodeCall(body string) (models.ToolCall, bool) {
	body = strings.TrimSpace(body)
	if body == "" {
		return models.ToolCall{}, false
	}
	normalized := normalizeKeys(body)
	var rc rawCall
	if err := json.Unmarshal([]byte(normalized), &rc); err != nil || rc.Name == "" {
		return models.ToolCall{}, false
	}
	return models.ToolCall{ID: uuid.NewString(), Name: rc.Name, Params: rc.Params}, true
}

// normalizeKeys rewrites the common "arguments"/"input" aliases for the
// params field to the canonical "params" key before unmarshalling, so a
// model that learned a different dialect's field name still parses.
func normalizeKeys(body string) string {
	var generic map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &generic); err != nil {
		return body
	}
	if _, hasParams := generic["params"]; hasParams {
		return body
	}
	for _, alias := range []string{"arguments", "input", "args"} {
		if v, ok := generic[alias]; ok {
			generic["params"] = v
			delete(generic, alias)
			out, err := json.Marshal(generic)
			if err == nil {
				return string(out)
			}
		}
	}
	return body
}

// dedupe drops tool calls that are exact (name, params) duplicates of one
// already seen, keeping the first occurrence.
func dedupe(calls []models.ToolCall) []models.ToolCall {
	seen := make(map[string]bool, len(calls))
	out := make([]models.ToolCall, 0, len(calls))
	for _, c := range calls {
		key := c.Name + "|" + string(c.Params)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

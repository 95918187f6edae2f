// Package parser implements tool-call extraction and repair (component C2):
// pulling structured tool calls out of a model's free-form response text,
// normalizing parameter-name drift, deduping, and deferring writes.
package parser

import "strings"

// fence is one fenced code block found in a response, with its info string
// (the text immediately after the opening ```) and body.
type fence struct {
	info string
	body string
}

// scanFences walks text once, extracting every ``` ... ``` block. It never
// attempts to parse JSON itself — that decision belongs to the caller, which
// can inspect each fence's info string first.
func scanFences(text string) []fence {
	var fences []fence
	lines := strings.Split(text, "\n")
	var inFence bool
	var info string
	var body strings.Builder

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !inFence && strings.HasPrefix(trimmed, "```") {
			inFence = true
			info = strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
			body.Reset()
			continue
		}
		if inFence && strings.HasPrefix(trimmed, "```") {
			fences = append(fences, fence{info: info, body: body.String()})
			inFence = false
			continue
		}
		if inFence {
			body.WriteString(line)
			body.WriteString("\n")
		}
	}
	return fences
}

// isToolFence reports whether a fence's info string marks it as carrying a
// tool call, as opposed to an illustrative code sample the model is simply
// showing the user.
func isToolFence(info string) bool {
	switch strings.ToLower(strings.TrimSpace(info)) {
	case "tool_call", "tool", "json":
		return true
	default:
		return false
	}
}

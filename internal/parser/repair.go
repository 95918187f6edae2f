package parser

import (
	"encoding/json"

	"github.com/riftloop/agentcore/pkg/models"
)

// paramAliases maps a tool name to a table of alias->canonical parameter
// key rewrites, absorbing the small naming drift different model dialects
// introduce for the same tool (e.g. a model trained to call "path" as
// "file_path"). Adding a new dialect quirk is a table entry, not new code.
var paramAliases = map[string]map[string]string{
	"write_file": {"file_path": "path", "filename": "path", "text": "content", "body": "content"},
	"read_file":  {"file_path": "path", "filename": "path"},
	"edit_file":  {"file_path": "path", "filename": "path", "find": "old_text", "replace": "new_text"},
	"run_command": {"cmd": "command", "arguments": "args"},
	"http_request": {"uri": "url", "link": "url"},
}

// normalizeAll applies paramAliases to every call's Params.
func normalizeAll(calls []models.ToolCall) []models.ToolCall {
	for i, c := range calls {
		calls[i].Params = normalizeParams(c.Name, c.Params)
	}
	return calls
}

func normalizeParams(name string, params json.RawMessage) json.RawMessage {
	aliases, ok := paramAliases[name]
	if !ok || len(params) == 0 {
		return params
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(params, &m); err != nil {
		return params
	}
	changed := false
	for alias, canonical := range aliases {
		if v, ok := m[alias]; ok {
			if _, already := m[canonical]; !already {
				m[canonical] = v
			}
			delete(m, alias)
			changed = true
		}
	}
	if !changed {
		return params
	}
	out, err := json.Marshal(m)
	if err != nil {
		return params
	}
	return out
}

// deferredNames are write-class tools whose execution is held until the end
// of a batch, so later calls in the same response (e.g. a read immediately
// followed by a rewrite of the same file) observe a consistent ordering
// instead of racing against concurrent execution.
var deferredNames = map[string]bool{
	"write_file": true,
	"edit_file":  true,
}

// maxBrowserStateChangesPerIteration caps how many state-changing browser
// actions (navigate, click) a single iteration may request, preventing a
// runaway plan from driving the browser through dozens of steps the user
// never approved watching happen at once.
const maxBrowserStateChangesPerIteration = 3

var browserStateChangeNames = map[string]bool{
	"browser_navigate": true,
	"browser_click":    true,
}

// ApplyWriteDeferral splits calls into the set to execute immediately and
// the set to defer to the end of the batch.
func ApplyWriteDeferral(calls []models.ToolCall) (immediate, deferred []models.ToolCall) {
	for _, c := range calls {
		if deferredNames[c.Name] {
			deferred = append(deferred, c)
		} else {
			immediate = append(immediate, c)
		}
	}
	return immediate, deferred
}

// CapBrowserStateChanges truncates state-changing browser calls beyond
// maxBrowserStateChangesPerIteration, returning the capped list and the
// number of calls dropped.
func CapBrowserStateChanges(calls []models.ToolCall) ([]models.ToolCall, int) {
	var out []models.ToolCall
	stateChanges := 0
	dropped := 0
	for _, c := range calls {
		if browserStateChangeNames[c.Name] {
			stateChanges++
			if stateChanges > maxBrowserStateChangesPerIteration {
				dropped++
				continue
			}
		}
		out = append(out, c)
	}
	return out, dropped
}

package session

import "strings"

// Intent classifies an incoming user message before it is handed to the
// scheduler, so the controller can short-circuit control messages (cancel,
// pause) instead of queuing them as a new generation request.
type Intent string

const (
	// IntentTask is a normal request that should start or continue a
	// generation.
	IntentTask Intent = "task"
	// IntentCancel asks the controller to cancel the active request.
	IntentCancel Intent = "cancel"
	// IntentPause asks the controller to pause the active request.
	IntentPause Intent = "pause"
	// IntentResume asks the controller to resume a paused request.
	IntentResume Intent = "resume"
)

var controlPhrases = map[Intent][]string{
	IntentCancel: {"cancel", "stop", "abort"},
	IntentPause:  {"pause", "hold on", "wait"},
	IntentResume: {"resume", "continue", "keep going"},
}

// ClassifyIntent inspects a raw user message and decides whether it is a
// control directive or ordinary task input. Control phrases are only
// recognized as a short, standalone message — a task description that
// happens to contain the word "stop" is still a task.
func ClassifyIntent(text string) Intent {
	trimmed := strings.ToLower(strings.TrimSpace(text))
	if trimmed == "" {
		return IntentTask
	}
	if len(trimmed) > 24 {
		return IntentTask
	}
	for intent, phrases := range controlPhrases {
		for _, p := range phrases {
			if trimmed == p {
				return intent
			}
		}
	}
	return IntentTask
}

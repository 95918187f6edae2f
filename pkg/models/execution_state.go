package models

import "time"

// ExecutionState is the ground-truth record of what a request has actually
// done, maintained by the execution state ledger (C9) and consulted by the
// failure classifier (C5) to catch claims unsupported by action.
type ExecutionState struct {
	URLsVisited     []string            `json:"urls_visited,omitempty"`
	FilesWritten    []string            `json:"files_written,omitempty"`
	FilesEdited     []string            `json:"files_edited,omitempty"`
	Searches        []string            `json:"searches,omitempty"`
	Extractions     int                 `json:"extractions"`
	DomainAttempts  map[string]int      `json:"domain_attempts,omitempty"`
	DomainsBlocked  map[string]bool     `json:"domains_blocked,omitempty"`
	ToolCallCount   int                 `json:"tool_call_count"`
	LastActionAt    time.Time           `json:"last_action_at"`
}

func (s ExecutionState) clone() ExecutionState {
	c := s
	c.URLsVisited = append([]string(nil), s.URLsVisited...)
	c.FilesWritten = append([]string(nil), s.FilesWritten...)
	c.FilesEdited = append([]string(nil), s.FilesEdited...)
	c.Searches = append([]string(nil), s.Searches...)
	if s.DomainAttempts != nil {
		c.DomainAttempts = make(map[string]int, len(s.DomainAttempts))
		for k, v := range s.DomainAttempts {
			c.DomainAttempts[k] = v
		}
	}
	if s.DomainsBlocked != nil {
		c.DomainsBlocked = make(map[string]bool, len(s.DomainsBlocked))
		for k, v := range s.DomainsBlocked {
			c.DomainsBlocked[k] = v
		}
	}
	return c
}

// HasWritten reports whether the state records any write/edit to path.
func (s ExecutionState) HasWritten(path string) bool {
	for _, p := range s.FilesWritten {
		if p == path {
			return true
		}
	}
	for _, p := range s.FilesEdited {
		if p == path {
			return true
		}
	}
	return false
}

// HasVisited reports whether url appears in URLsVisited.
func (s ExecutionState) HasVisited(url string) bool {
	for _, u := range s.URLsVisited {
		if u == url {
			return true
		}
	}
	return false
}

// Ledger is the compacted task memory the summarizer (C3) maintains across
// context rotations: plan steps, completed work, and user-stated context
// that must survive even after raw transcript history is dropped.
type Ledger struct {
	Plan              []PlanStep        `json:"plan,omitempty"`
	UserContext       []string          `json:"user_context,omitempty"`
	ToolCallSummaries []string          `json:"tool_call_summaries,omitempty"`
	RotationCount     int               `json:"rotation_count"`
	LastSummary       string            `json:"last_summary,omitempty"`
}

// PlanStep is one item of the ledger's running task plan.
type PlanStep struct {
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

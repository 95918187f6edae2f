// Package execstate implements the execution state ledger (component C9):
// the ground-truth record of what a request has actually done, used to
// detect hallucinated claims, throttle repeated domain attempts, and — when
// enabled — guarantee promised files exist on disk before the loop reports
// completion.
package execstate

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/riftloop/agentcore/pkg/models"
)

// MaxDomainAttempts is how many times a single domain may be attempted
// before it is blocked for the remainder of the request, preventing a
// model stuck in a retry loop from hammering an unreachable host.
const MaxDomainAttempts = 3

// Ledger wraps a models.ExecutionState with the recording and query
// operations the scheduler and classifier need.
type Ledger struct {
	state   models.ExecutionState
	metrics *Metrics
}

// New returns an empty Ledger, optionally reporting to metrics (nil is
// valid and disables reporting).
func New(metrics *Metrics) *Ledger {
	return &Ledger{
		state: models.ExecutionState{
			DomainAttempts: map[string]int{},
			DomainsBlocked: map[string]bool{},
		},
		metrics: metrics,
	}
}

// State returns the underlying models.ExecutionState for checkpointing.
func (l *Ledger) State() models.ExecutionState { return l.state }

// LoadState restores a Ledger from a previously checkpointed state.
func (l *Ledger) LoadState(s models.ExecutionState) {
	if s.DomainAttempts == nil {
		s.DomainAttempts = map[string]int{}
	}
	if s.DomainsBlocked == nil {
		s.DomainsBlocked = map[string]bool{}
	}
	l.state = s
}

// RecordToolCall updates counters and per-category logs for a completed
// tool call and its result.
func (l *Ledger) RecordToolCall(call models.ToolCall, result *models.ToolResult) {
	l.state.ToolCallCount++
	l.state.LastActionAt = time.Now()

	switch call.Name {
	case "write_file":
		l.state.FilesWritten = append(l.state.FilesWritten, extractStringField(call.Params, "path"))
	case "edit_file":
		l.state.FilesEdited = append(l.state.FilesEdited, extractStringField(call.Params, "path"))
	case "http_request", "browser_navigate":
		u := extractStringField(call.Params, "url")
		l.state.URLsVisited = append(l.state.URLsVisited, u)
		l.recordDomainAttempt(u)
	case "web_search":
		l.state.Searches = append(l.state.Searches, extractStringField(call.Params, "query"))
	}
	if result != nil && result.Artifacts != nil {
		l.state.Extractions += len(result.Artifacts)
	}

	if l.metrics != nil {
		l.metrics.ToolCalls.WithLabelValues(call.Name).Inc()
		if result != nil && result.IsError {
			l.metrics.ToolFailures.WithLabelValues(call.Name).Inc()
		}
	}
}

func (l *Ledger) recordDomainAttempt(rawURL string) {
	domain := domainOf(rawURL)
	if domain == "" {
		return
	}
	l.state.DomainAttempts[domain]++
	if l.state.DomainAttempts[domain] > MaxDomainAttempts {
		if !l.state.DomainsBlocked[domain] {
			l.state.DomainsBlocked[domain] = true
			if l.metrics != nil {
				l.metrics.DomainsBlocked.Inc()
			}
		}
	}
}

// IsDomainBlocked reports whether rawURL's host has exceeded
// MaxDomainAttempts and should be refused without attempting the call.
func (l *Ledger) IsDomainBlocked(rawURL string) bool {
	return l.state.DomainsBlocked[domainOf(rawURL)]
}

func domainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func extractStringField(params []byte, field string) string {
	var m map[string]any
	if err := json.Unmarshal(params, &m); err != nil {
		return ""
	}
	v, _ := m[field].(string)
	return v
}

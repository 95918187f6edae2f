package classifier

import (
	"testing"

	"github.com/riftloop/agentcore/pkg/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		in   Input
		want Result
	}{
		{
			name: "empty response with no tool calls, nudge budget available",
			in:   Input{ResponseText: "   ", NudgesRemaining: 2},
			want: Result{Outcome: OutcomeEmptyResponse, Severity: SeverityNudge},
		},
		{
			name: "empty response with no nudge budget left escalates to stop",
			in:   Input{ResponseText: "   ", NudgesRemaining: 0},
			want: Result{Outcome: OutcomeEmptyResponse, Severity: SeverityStop},
		},
		{
			name: "refusal phrase with nudge budget available",
			in:   Input{ResponseText: "I'm not able to do that.", NudgesRemaining: 1},
			want: Result{Outcome: OutcomeRefusal, Severity: SeverityNudge},
		},
		{
			name: "refusal phrase with no nudge budget left escalates to stop",
			in:   Input{ResponseText: "I'm not able to do that.", NudgesRemaining: 0},
			want: Result{Outcome: OutcomeRefusal, Severity: SeverityStop},
		},
		{
			name: "exact repetition of previous response always stops",
			in: Input{
				ResponseText:     "I have reviewed the file and it looks correct.",
				PreviousResponse: "I have reviewed the file and it looks correct.",
				NudgesRemaining:  5,
			},
			want: Result{Outcome: OutcomeRepetition, Severity: SeverityStop},
		},
		{
			name: "two different short confirmations are not flagged below threshold",
			in: Input{
				ResponseText:     "Done.",
				PreviousResponse: "Okay.",
			},
			want: Result{Outcome: OutcomeNaturalStop, Severity: SeverityNone},
		},
		{
			name: "claims a write with no recorded action",
			in: Input{
				ResponseText:    "I've written the config file for you.",
				State:           models.ExecutionState{},
				NudgesRemaining: 1,
			},
			want: Result{Outcome: OutcomeClaimWithoutAction, Severity: SeverityNudge},
		},
		{
			name: "claims a write with a matching recorded action",
			in: Input{
				ResponseText: "I've written the config file for you.",
				State:        models.ExecutionState{FilesWritten: []string{"config.yaml"}},
			},
			want: Result{Outcome: OutcomeNaturalStop, Severity: SeverityNone},
		},
		{
			name:  "states browser intent without issuing a tool call",
			in:    Input{ResponseText: "Let me search the web for that.", NudgesRemaining: 1},
			want: Result{Outcome: OutcomeMissedBrowserIntent, Severity: SeverityNudge},
		},
		{
			name: "browser intent with a tool call already issued is not flagged",
			in: Input{
				ResponseText: "Let me search the web for that.",
				ToolCalls:    []models.ToolCall{{Name: "web_search"}},
			},
			want: Result{Outcome: OutcomeNaturalStop, Severity: SeverityNone},
		},
		{
			name: "ordinary natural stop",
			in:   Input{ResponseText: "The tests pass and the change is complete."},
			want: Result{Outcome: OutcomeNaturalStop, Severity: SeverityNone},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.in)
			if got != tt.want {
				t.Errorf("Classify() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestJaccardSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{name: "identical strings", a: "the quick brown fox", b: "the quick brown fox", want: 1.0},
		{name: "disjoint strings", a: "alpha beta", b: "gamma delta", want: 0.0},
		{name: "both empty", a: "", b: "", want: 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := jaccardSimilarity(tt.a, tt.b)
			if got != tt.want {
				t.Errorf("jaccardSimilarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestJaccardThresholdCatchesNearDuplicates(t *testing.T) {
	a := "I checked the file and everything looks fine to me"
	b := "I checked the file and everything looks fine to you"
	got := jaccardSimilarity(a, b)
	if got < jaccardThreshold {
		t.Errorf("near-duplicate similarity = %v, want >= %v", got, jaccardThreshold)
	}
}

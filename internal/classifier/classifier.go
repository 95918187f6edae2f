// Package classifier implements the failure classifier (component C5): a
// pure function that looks at a completed generation and decides whether it
// represents a genuine stop, or one of a fixed set of failure modes the
// scheduler should react to (retry, rotate, or surface to the user).
package classifier

import (
	"strings"
	"unicode"

	"github.com/riftloop/agentcore/pkg/models"
)

// Outcome is the closed set of classifications a generation can receive.
type Outcome string

const (
	OutcomeNaturalStop        Outcome = "natural_stop"
	OutcomeEmptyResponse      Outcome = "empty_response"
	OutcomeRefusal            Outcome = "refusal"
	OutcomeRepetition         Outcome = "repetition"
	OutcomeMissedBrowserIntent Outcome = "missed_browser_intent"
	OutcomeClaimWithoutAction Outcome = "claim_without_action"
)

// jaccardThreshold is the word-set similarity at or above which two
// consecutive responses are considered a repetition failure. Chosen at the
// high end of the documented [0.80, 0.90] range so that only near-verbatim
// repeats count; an exact repeat, however short ("Done." / "Done."), scores
// 1.0 and is always flagged.
const jaccardThreshold = 0.87

var refusalPhrases = []string{
	"i can't help with that",
	"i cannot help with that",
	"i'm not able to",
	"i am not able to",
	"i won't be able to",
	"as an ai language model",
}

var browserIntentPhrases = []string{
	"let me check the website",
	"i'll browse to",
	"i'll navigate to",
	"i'll look this up online",
	"let me search the web",
}

var actionClaimPhrases = []string{
	"i've written",
	"i have written",
	"i've created",
	"i have created",
	"i've saved",
	"i have saved",
	"i've updated",
	"i have updated",
	"i've run",
	"i have run",
	"i've executed",
	"i have executed",
}

// Severity is how the scheduler must react to a non-natural Outcome.
// SeverityNone means the outcome needs no reaction at all (natural_stop).
type Severity string

const (
	SeverityNone  Severity = ""
	SeverityNudge Severity = "nudge"
	SeverityStop  Severity = "stop"
)

// Result is the classifier's verdict on a completed generation: what kind of
// outcome it was, and how severely the scheduler should react.
type Result struct {
	Outcome  Outcome
	Severity Severity
}

// Input bundles everything the classifier needs: the current response, the
// previous response (for repetition detection), the ground-truth execution
// state recorded so far in the request, and the nudge budget remaining for
// this request, which gates whether a nudge-eligible outcome still gets a
// nudge or has to escalate to a stop.
type Input struct {
	ResponseText     string
	PreviousResponse string
	ToolCalls        []models.ToolCall
	State            models.ExecutionState
	NudgesRemaining  int
}

// Classify returns the Result that best describes a completed generation.
// Checks run in a fixed priority order: an empty response is checked first
// because nothing else can be inferred from no text at all, then refusal,
// repetition, a claim made without the matching recorded action, a browser
// intent stated but never acted on, and finally natural_stop as the default.
//
// Repetition always stops outright; every other non-natural outcome nudges
// while NudgesRemaining > 0 and escalates to a stop once the budget is
// exhausted. Classify is pure: it decides nothing about rollback or retry,
// only what happened and how badly.
func Classify(in Input) Result {
	text := strings.TrimSpace(in.ResponseText)

	if text == "" && len(in.ToolCalls) == 0 {
		return nudgeOrStop(OutcomeEmptyResponse, in.NudgesRemaining)
	}

	lower := strings.ToLower(text)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return nudgeOrStop(OutcomeRefusal, in.NudgesRemaining)
		}
	}

	if in.PreviousResponse != "" && jaccardSimilarity(text, in.PreviousResponse) >= jaccardThreshold {
		return Result{Outcome: OutcomeRepetition, Severity: SeverityStop}
	}

	if claimsActionWithoutState(lower, in.State) {
		return nudgeOrStop(OutcomeClaimWithoutAction, in.NudgesRemaining)
	}

	if len(in.ToolCalls) == 0 && mentionsBrowserIntent(lower) {
		return nudgeOrStop(OutcomeMissedBrowserIntent, in.NudgesRemaining)
	}

	return Result{Outcome: OutcomeNaturalStop, Severity: SeverityNone}
}

// nudgeOrStop consumes one nudge for a nudge-eligible outcome, or escalates
// to a stop once the request has none left.
func nudgeOrStop(outcome Outcome, nudgesRemaining int) Result {
	if nudgesRemaining > 0 {
		return Result{Outcome: outcome, Severity: SeverityNudge}
	}
	return Result{Outcome: outcome, Severity: SeverityStop}
}

func claimsActionWithoutState(lower string, state models.ExecutionState) bool {
	claimsWrite := false
	for _, phrase := range actionClaimPhrases {
		if strings.Contains(lower, phrase) {
			claimsWrite = true
			break
		}
	}
	if !claimsWrite {
		return false
	}
	return len(state.FilesWritten) == 0 && len(state.FilesEdited) == 0 && state.ToolCallCount == 0
}

func mentionsBrowserIntent(lower string) bool {
	for _, phrase := range browserIntentPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// jaccardSimilarity computes word-set Jaccard similarity between a and b.
func jaccardSimilarity(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1.0
	}
	intersection := 0
	for tok := range setA {
		if setB[tok] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, word := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if word != "" {
			set[word] = true
		}
	}
	return set
}

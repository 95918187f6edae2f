// Package summarizer implements the task ledger (component C3): a compact,
// structured record of plan progress, user-stated context, and completed
// tool work that survives context rotation even after raw transcript
// history is dropped.
package summarizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/riftloop/agentcore/internal/budget"
	"github.com/riftloop/agentcore/pkg/models"
)

// rotationHistoryFloor is the number of transcript steps beyond which the
// ledger's own compacted history takes over from raw messages, matching the
// staged-summarization threshold the budget manager's compaction phases
// converge on.
const rotationHistoryFloor = 40

// Generator produces a natural-language summary of a batch of messages,
// implemented by whichever model engine backs the running session.
type Generator interface {
	Summarize(ctx context.Context, messages []models.Message, instructions string) (string, error)
}

// Ledger accumulates plan steps, user context, and tool-call summaries
// across a request's lifetime, and renders them into a single summary
// message that replaces dropped history on rotation.
type Ledger struct {
	state models.Ledger
}

// NewLedger returns an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// State returns the underlying models.Ledger for persistence.
func (l *Ledger) State() models.Ledger {
	return l.state
}

// LoadState restores a Ledger from a previously persisted models.Ledger.
func (l *Ledger) LoadState(s models.Ledger) {
	l.state = s
}

// RecordPlan replaces the current plan with steps, each initially
// incomplete.
func (l *Ledger) RecordPlan(steps []string) {
	plan := make([]models.PlanStep, len(steps))
	for i, s := range steps {
		plan[i] = models.PlanStep{Description: s}
	}
	l.state.Plan = plan
}

// MarkPlanStepCompleted marks the plan step matching description as done.
func (l *Ledger) MarkPlanStepCompleted(description string) {
	for i := range l.state.Plan {
		if l.state.Plan[i].Description == description {
			l.state.Plan[i].Completed = true
			return
		}
	}
}

// RecordUserContext appends a durable fact the user stated that must
// survive rotation (a preference, a constraint, a correction).
func (l *Ledger) RecordUserContext(fact string) {
	l.state.UserContext = append(l.state.UserContext, fact)
}

// RecordToolCall appends a one-line summary of a completed tool call.
func (l *Ledger) RecordToolCall(call models.ToolCall, result *models.ToolResult) {
	status := "ok"
	if result != nil && result.IsError {
		status = "error"
	}
	l.state.ToolCallSummaries = append(l.state.ToolCallSummaries,
		fmt.Sprintf("%s(%s): %s", call.Name, truncate(string(call.Params), 80), status))
}

// MarkRotation increments the rotation counter, called whenever the
// scheduler rotates context and folds history into the ledger.
func (l *Ledger) MarkRotation() {
	l.state.RotationCount++
}

// ShouldCompactRaw reports whether raw transcript history beyond
// rotationHistoryFloor steps should be folded into the ledger instead of
// kept verbatim.
func ShouldCompactRaw(stepCount int) bool {
	return stepCount > rotationHistoryFloor
}

// GenerateSummary asks gen to summarize history, in chunks if it is large,
// then folds the ledger's own plan/context state in front of the model's
// prose summary and records the result as LastSummary.
func (l *Ledger) GenerateSummary(ctx context.Context, gen Generator, history []models.Message, contextWindow int) (string, error) {
	var prose string
	if len(history) == 0 {
		prose = "No prior history."
	} else {
		chunks := budget.ChunkByMaxTokens(history, int(float64(contextWindow)*budget.BaseChunkRatioFallback))
		var parts []string
		for _, chunk := range chunks {
			s, err := gen.Summarize(ctx, chunk, "Summarize this portion of the conversation, preserving concrete facts and decisions.")
			if err != nil {
				return "", fmt.Errorf("summarizer: %w", err)
			}
			parts = append(parts, s)
		}
		if len(parts) == 1 {
			prose = parts[0]
		} else {
			merged, err := gen.Summarize(ctx, syntheticMessages(parts), "Merge these chunk summaries into one coherent summary, preserving chronological flow.")
			if err != nil {
				return "", fmt.Errorf("summarizer: merging chunks: %w", err)
			}
			prose = merged
		}
	}

	summary := l.render(prose)
	l.state.LastSummary = summary
	return summary, nil
}

func (l *Ledger) render(prose string) string {
	var b strings.Builder
	if len(l.state.Plan) > 0 {
		b.WriteString("Plan:\n")
		for _, step := range l.state.Plan {
			mark := "[ ]"
			if step.Completed {
				mark = "[x]"
			}
			fmt.Fprintf(&b, "%s %s\n", mark, step.Description)
		}
		b.WriteString("\n")
	}
	if len(l.state.UserContext) > 0 {
		b.WriteString("User context:\n")
		for _, c := range l.state.UserContext {
			fmt.Fprintf(&b, "- %s\n", c)
		}
		b.WriteString("\n")
	}
	if len(l.state.ToolCallSummaries) > 0 {
		b.WriteString("Prior tool calls:\n")
		for _, s := range l.state.ToolCallSummaries {
			fmt.Fprintf(&b, "- %s\n", s)
		}
		b.WriteString("\n")
	}
	b.WriteString("Conversation summary:\n")
	b.WriteString(prose)
	return b.String()
}

// ToCompletionMessage renders the ledger's last summary as a synthetic
// system message ready to hand to the model engine on rotation.
func (l *Ledger) ToCompletionMessage() models.Message {
	content := l.state.LastSummary
	if content == "" {
		content = "No prior history."
	}
	return models.Message{Role: models.RoleSystem, Content: content}
}

func syntheticMessages(parts []string) []models.Message {
	msgs := make([]models.Message, len(parts))
	for i, p := range parts {
		msgs[i] = models.Message{Role: models.RoleSystem, Content: fmt.Sprintf("Chunk %d summary:\n%s", i+1, p)}
	}
	return msgs
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

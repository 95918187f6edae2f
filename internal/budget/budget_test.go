package budget

import (
	"strings"
	"testing"

	"github.com/riftloop/agentcore/pkg/models"
)

func TestEstimateTokens(t *testing.T) {
	msg := models.Message{Content: strings.Repeat("a", 7)}
	got := EstimateTokens(msg)
	want := 2 // ceil(7 / 3.5)
	if got != want {
		t.Errorf("EstimateTokens = %d, want %d", got, want)
	}
}

func TestEstimateTokens_Zero(t *testing.T) {
	if got := EstimateTokens(models.Message{}); got != 0 {
		t.Errorf("EstimateTokens(empty) = %d, want 0", got)
	}
}

func TestManager_PromptBudget(t *testing.T) {
	m := NewManager(10000, 2000, 1000)
	if got, want := m.PromptBudget(), 7000; got != want {
		t.Errorf("PromptBudget() = %d, want %d", got, want)
	}
}

func TestManager_PromptBudget_NeverNegative(t *testing.T) {
	m := NewManager(1000, 2000, 1000)
	if got := m.PromptBudget(); got != 0 {
		t.Errorf("PromptBudget() = %d, want 0 when reserves exceed total", got)
	}
}

func TestCompactionPhase(t *testing.T) {
	tests := []struct {
		utilization float64
		want        int
	}{
		{0.10, 0},
		{0.59, 0},
		{0.60, 1},
		{0.75, 2},
		{0.85, 3},
		{0.92, 4},
		{0.99, 4},
	}
	for _, tt := range tests {
		if got := CompactionPhase(tt.utilization); got != tt.want {
			t.Errorf("CompactionPhase(%v) = %d, want %d", tt.utilization, got, tt.want)
		}
	}
}

func TestPruneHistory_KeepsMostRecentWithinBudget(t *testing.T) {
	messages := []models.Message{
		{Content: strings.Repeat("a", 100)},
		{Content: strings.Repeat("b", 100)},
		{Content: strings.Repeat("c", 100)},
	}
	result := PruneHistory(messages, EstimateTokens(messages[2])+1)

	if len(result.Messages) != 1 {
		t.Fatalf("kept %d messages, want 1", len(result.Messages))
	}
	if result.Messages[0].Content != messages[2].Content {
		t.Errorf("kept the wrong message: %q", result.Messages[0].Content)
	}
	if result.DroppedMessages != 2 {
		t.Errorf("DroppedMessages = %d, want 2", result.DroppedMessages)
	}
}

func TestPruneHistory_NoopWhenWithinBudget(t *testing.T) {
	messages := []models.Message{{Content: "short"}}
	result := PruneHistory(messages, 100000)
	if len(result.Messages) != 1 || result.DroppedMessages != 0 {
		t.Errorf("PruneHistory pruned when it should not have: %+v", result)
	}
}

func TestChunkByMaxTokens_SplitsOversizedMessageAlone(t *testing.T) {
	small := models.Message{Content: "hi"}
	big := models.Message{Content: strings.Repeat("x", 1000)}
	chunks := ChunkByMaxTokens([]models.Message{small, big, small}, 10)

	if len(chunks) != 3 {
		t.Fatalf("chunks = %d, want 3 (small, big alone, small)", len(chunks))
	}
	if len(chunks[1]) != 1 {
		t.Errorf("oversized message should be alone in its chunk, got %d messages", len(chunks[1]))
	}
}

func TestIsOversized(t *testing.T) {
	big := models.Message{Content: strings.Repeat("x", 10000)}
	if !IsOversized(big, 1000) {
		t.Errorf("expected message to be oversized for a 1000-token context window")
	}
	small := models.Message{Content: "hi"}
	if IsOversized(small, 1000) {
		t.Errorf("did not expect a tiny message to be oversized")
	}
}

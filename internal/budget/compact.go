package budget

import "github.com/riftloop/agentcore/pkg/models"

// PruneResult reports what PruneHistory kept and dropped.
type PruneResult struct {
	Messages        []models.Message
	DroppedMessages int
	DroppedTokens   int
	KeptTokens      int
	BudgetTokens    int
}

// PruneHistory keeps the most recent messages within budgetTokens, working
// backwards from the end of history so the freshest context is always
// preserved — the cheap phase-1 compaction response to crossing PhaseFloor.
func PruneHistory(messages []models.Message, budgetTokens int) PruneResult {
	result := PruneResult{Messages: messages, BudgetTokens: budgetTokens}
	if len(messages) == 0 || budgetTokens <= 0 {
		return result
	}

	total := EstimateMessagesTokens(messages)
	if total <= budgetTokens {
		result.KeptTokens = total
		return result
	}

	var kept []models.Message
	keptTokens := 0
	for i := len(messages) - 1; i >= 0; i-- {
		tokens := EstimateTokens(messages[i])
		if keptTokens+tokens > budgetTokens {
			break
		}
		kept = append([]models.Message{messages[i]}, kept...)
		keptTokens += tokens
	}

	result.Messages = kept
	result.DroppedMessages = len(messages) - len(kept)
	result.DroppedTokens = total - keptTokens
	result.KeptTokens = keptTokens
	return result
}

// ChunkByMaxTokens splits messages into chunks no larger than maxTokens,
// giving any single oversized message its own chunk — used by the
// summarizer (C3) to batch history before asking the model to compress it.
func ChunkByMaxTokens(messages []models.Message, maxTokens int) [][]models.Message {
	if len(messages) == 0 {
		return nil
	}
	if maxTokens <= 0 {
		return [][]models.Message{messages}
	}

	var chunks [][]models.Message
	var current []models.Message
	currentTokens := 0

	for _, msg := range messages {
		tokens := EstimateTokens(msg)
		if tokens > maxTokens {
			if len(current) > 0 {
				chunks = append(chunks, current)
				current = nil
				currentTokens = 0
			}
			chunks = append(chunks, []models.Message{msg})
			continue
		}
		if currentTokens+tokens > maxTokens && len(current) > 0 {
			chunks = append(chunks, current)
			current = nil
			currentTokens = 0
		}
		current = append(current, msg)
		currentTokens += tokens
	}
	if len(current) > 0 {
		chunks = append(chunks, current)
	}
	return chunks
}

// IsOversized reports whether a single message exceeds half of
// contextWindow tokens, making it too large to usefully summarize alongside
// others.
func IsOversized(msg models.Message, contextWindow int) bool {
	if contextWindow <= 0 {
		return false
	}
	return float64(EstimateTokens(msg)) > float64(contextWindow)*0.5
}

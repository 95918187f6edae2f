package budget

import (
	"encoding/json"

	"github.com/riftloop/agentcore/pkg/models"
)

// Assembler builds a models.PromptAssembly from the request's static
// material (system prompt, tool schemas) and dynamic material (ledger
// summary, recent transcript), applying progressive compaction when the
// dynamic sections would exceed the prompt budget.
type Assembler struct {
	manager *Manager
}

// NewAssembler returns an Assembler backed by manager.
func NewAssembler(manager *Manager) *Assembler {
	return &Assembler{manager: manager}
}

// Input is everything the assembler needs to build one prompt.
type Input struct {
	SystemPrompt  string
	Tools         []models.Definition
	LedgerSummary string
	History       []models.Message
}

// Assemble lays out static sections at fixed priority, then as much dynamic
// content (ledger summary, then recent history) as fits within the
// remaining prompt budget, pruning history first on utilization pressure.
func (a *Assembler) Assemble(in Input) models.PromptAssembly {
	var statics []models.PromptSection

	sysTokens := EstimateText(in.SystemPrompt)
	statics = append(statics, models.PromptSection{Name: "system", Content: in.SystemPrompt, Priority: 100, Tokens: sysTokens})

	toolsJSON, _ := json.Marshal(in.Tools)
	toolsTokens := EstimateText(string(toolsJSON))
	statics = append(statics, models.PromptSection{Name: "tools", Content: string(toolsJSON), Priority: 90, Tokens: toolsTokens})

	staticTokens := sysTokens + toolsTokens
	budget := a.manager.PromptBudget()
	remaining := budget - staticTokens
	if remaining < 0 {
		remaining = 0
	}

	historyTokens := EstimateMessagesTokens(in.History)
	utilization := a.manager.Utilization(staticTokens + historyTokens)
	phase := CompactionPhase(utilization)

	history := in.History
	if phase >= 1 {
		pruneBudget := remaining
		if in.LedgerSummary != "" {
			pruneBudget -= EstimateText(in.LedgerSummary)
		}
		pruned := PruneHistory(history, pruneBudget)
		history = pruned.Messages
	}

	var dynamics []models.PromptSection
	if in.LedgerSummary != "" {
		t := EstimateText(in.LedgerSummary)
		dynamics = append(dynamics, models.PromptSection{Name: "ledger_summary", Content: in.LedgerSummary, Priority: 80, Tokens: t})
	}
	for i, msg := range history {
		dynamics = append(dynamics, models.PromptSection{
			Name:     "history",
			Role:     msg.Role,
			Content:  msg.Content,
			Priority: 10 + i,
			Tokens:   EstimateTokens(msg),
		})
	}

	total := staticTokens
	for _, d := range dynamics {
		total += d.Tokens
	}

	return models.PromptAssembly{
		StaticSections:  statics,
		DynamicSections: dynamics,
		EstimatedTokens: total,
		CompactionPhase: phase,
	}
}

// Package config loads the agentic core's YAML configuration and keeps it
// hot-reloadable: a file watcher reloads and atomically swaps the config on
// change so a running session picks up new limits without a restart.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ModelConfig selects and tunes the model engine (component C6).
type ModelConfig struct {
	Backend       string  `yaml:"backend"` // "cloud" or "local"
	CloudAPIKey   string  `yaml:"cloud_api_key"`
	CloudModel    string  `yaml:"cloud_model"`
	RatePerSecond float64 `yaml:"rate_per_second"`
	LocalBaseURL  string  `yaml:"local_base_url"`
	LocalGrammar  string  `yaml:"local_grammar"`
}

// BudgetConfig tunes the context budget manager (component C4).
type BudgetConfig struct {
	ContextWindowTokens int `yaml:"context_window_tokens"`
	SystemReserveTokens int `yaml:"system_reserve_tokens"`
	ResponseBudgetTokens int `yaml:"response_budget_tokens"`
}

// LoopConfig tunes the agentic loop scheduler (component C7).
type LoopConfig struct {
	MaxIterations     int           `yaml:"max_iterations"`
	MaxToolCalls      int           `yaml:"max_tool_calls"`
	MaxWallTime       time.Duration `yaml:"max_wall_time"`
	MaxRollbacks      int           `yaml:"max_rollbacks"`
	MaxNudges         int           `yaml:"max_nudges"`
	MaxResponseTokens int           `yaml:"max_response_tokens"`
	SystemPrompt      string        `yaml:"system_prompt"`
}

// SafetyConfig tunes tool-execution and execution-state safety behavior
// (components C1, C9).
type SafetyConfig struct {
	Workspace                  string `yaml:"workspace"`
	MaxDomainAttempts          int    `yaml:"max_domain_attempts"`
	DisableCompletionGuarantee bool   `yaml:"disable_completion_guarantee"`
	ShellTimeoutSeconds        int    `yaml:"shell_timeout_seconds"`
	HTTPTimeoutSeconds         int    `yaml:"http_timeout_seconds"`
}

// Config is the root configuration document.
type Config struct {
	Model   ModelConfig  `yaml:"model"`
	Budget  BudgetConfig `yaml:"budget"`
	Loop    LoopConfig   `yaml:"loop"`
	Safety  SafetyConfig `yaml:"safety"`
}

// Default returns conservative defaults matching agent.DefaultConfig and
// budget.Manager's documented defaults.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Backend:       "cloud",
			CloudModel:    "gpt-4o-mini",
			RatePerSecond: 2,
		},
		Budget: BudgetConfig{
			ContextWindowTokens:  32000,
			SystemReserveTokens:  2000,
			ResponseBudgetTokens: 4096,
		},
		Loop: LoopConfig{
			MaxIterations:     10,
			MaxWallTime:       5 * time.Minute,
			MaxRollbacks:      2,
			MaxNudges:         3,
			MaxResponseTokens: 4096,
		},
		Safety: SafetyConfig{
			Workspace:           ".",
			MaxDomainAttempts:   3,
			ShellTimeoutSeconds: 30,
			HTTPTimeoutSeconds:  15,
		},
	}
}

// Load reads and parses the YAML config file at path, filling in defaults
// for anything the file omits.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

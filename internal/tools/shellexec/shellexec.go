// Package shellexec implements the run_command tool: a bounded-timeout
// subprocess runner with a denylist of destructive command patterns.
package shellexec

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/riftloop/agentcore/pkg/models"
)

// deniedPatterns blocks commands with no legitimate place in an
// assistant-driven coding workflow.
var deniedPatterns = []string{
	"rm -rf /",
	":(){:|:&};:",
	"mkfs",
	"dd if=/dev/zero",
}

// Runner implements tools.ShellPort by invoking commands directly via
// os/exec, bounded by a per-call context timeout.
type Runner struct {
	WorkDir string
	Timeout time.Duration
}

// NewRunner returns a Runner rooted at workDir with the given default
// timeout.
func NewRunner(workDir string, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Runner{WorkDir: workDir, Timeout: timeout}
}

// Run implements tools.ShellPort.
func (r *Runner) Run(ctx context.Context, command string, args []string) (string, string, int, error) {
	for _, pattern := range deniedPatterns {
		if strings.Contains(command, pattern) {
			return "", "", -1, fmt.Errorf("shellexec: command matches denied pattern %q", pattern)
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, command, args...)
	cmd.Dir = r.WorkDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if runCtx.Err() != nil {
			return stdout.String(), stderr.String(), -1, fmt.Errorf("shellexec: %w", runCtx.Err())
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
			err = nil
		}
	}
	return stdout.String(), stderr.String(), exitCode, err
}

// Tool is the registry-facing run_command tool.
type Tool struct {
	runner *Runner
}

// NewTool returns a run_command tool backed by runner.
func NewTool(runner *Runner) *Tool { return &Tool{runner: runner} }

// Definition implements tools.Tool.
func (t *Tool) Definition() models.Definition {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{"type": "string", "description": "Executable to run."},
			"args":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Arguments to pass."},
		},
		"required": []string{"command"},
	}
	payload, _ := json.Marshal(schema)
	return models.Definition{Name: "run_command", Description: "Run a shell command in the workspace directory.", Parameters: payload}
}

// Execute implements tools.Tool.
func (t *Tool) Execute(ctx context.Context, params json.RawMessage) (*models.ToolResult, error) {
	var input struct {
		Command string   `json:"command"`
		Args    []string `json:"args"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return &models.ToolResult{Content: fmt.Sprintf("invalid parameters: %v", err), IsError: true}, nil
	}
	stdout, stderr, exitCode, err := t.runner.Run(ctx, input.Command, input.Args)
	if err != nil {
		return &models.ToolResult{Content: err.Error(), IsError: true}, nil
	}
	payload, _ := json.Marshal(map[string]any{
		"stdout":    stdout,
		"stderr":    stderr,
		"exit_code": exitCode,
	})
	return &models.ToolResult{Content: string(payload), IsError: exitCode != 0}, nil
}

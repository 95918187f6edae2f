// Package main provides the CLI entry point for agentcore, the agentic
// inference core driving a desktop coding assistant's tool-using loop.
//
// # Basic Usage
//
// Run one request against a workspace:
//
//	agentcore run --config agentcore.yaml --prompt "add a README"
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/riftloop/agentcore/internal/agent"
	"github.com/riftloop/agentcore/internal/budget"
	"github.com/riftloop/agentcore/internal/config"
	"github.com/riftloop/agentcore/internal/engine"
	"github.com/riftloop/agentcore/internal/execstate"
	"github.com/riftloop/agentcore/internal/session"
	"github.com/riftloop/agentcore/internal/summarizer"
	"github.com/riftloop/agentcore/internal/tools"
	"github.com/riftloop/agentcore/internal/tools/files"
	"github.com/riftloop/agentcore/internal/tools/httpfetch"
	"github.com/riftloop/agentcore/internal/tools/shellexec"
	"github.com/riftloop/agentcore/pkg/models"
)

var (
	version = "dev"
	commit  = "none"

	configPath string
	prompt     string
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	root := &cobra.Command{
		Use:     "agentcore",
		Short:   "Agentic inference core for a desktop coding assistant",
		Version: fmt.Sprintf("%s (%s)", version, commit),
	}
	root.PersistentFlags().StringVar(&configPath, "config", "agentcore.yaml", "path to the YAML config file")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single request through the agentic loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd.Context(), logger)
		},
	}
	runCmd.Flags().StringVar(&prompt, "prompt", "", "user prompt to seed the request")
	_ = runCmd.MarkFlagRequired("prompt")

	root.AddCommand(runCmd)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := root.ExecuteContext(ctx); err != nil {
		logger.Error("agentcore exited with error", "error", err)
		os.Exit(1)
	}
}

func runOnce(ctx context.Context, logger *slog.Logger) error {
	watcher, err := config.NewWatcher(configPath, logger)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := watcher.Start(); err != nil {
		logger.Warn("config hot-reload disabled", "error", err)
	}
	defer watcher.Close()
	cfg := watcher.Current()

	registry := tools.NewRegistry()
	workspace := files.NewWorkspace(files.Config{Workspace: cfg.Safety.Workspace})
	if err := registerFileTools(registry, workspace); err != nil {
		return fmt.Errorf("register file tools: %w", err)
	}

	httpClient := httpfetch.NewClient()
	if err := registry.Register(httpfetch.NewTool(httpClient)); err != nil {
		return fmt.Errorf("register http tool: %w", err)
	}

	shellRunner := shellexec.NewRunner(cfg.Safety.Workspace, secondsOrDefault(cfg.Safety.ShellTimeoutSeconds, 30))
	if err := registry.Register(shellexec.NewTool(shellRunner)); err != nil {
		return fmt.Errorf("register shell tool: %w", err)
	}

	executor := tools.NewExecutor(registry, tools.DefaultExecutorConfig())

	bm := budget.NewManager(cfg.Budget.ContextWindowTokens, cfg.Budget.SystemReserveTokens, cfg.Budget.ResponseBudgetTokens)
	assembler := budget.NewAssembler(bm)

	metrics := execstate.NewMetrics(prometheus.DefaultRegisterer)
	execLedger := execstate.New(metrics)

	var guarantee *execstate.CompletionGuarantee
	if !cfg.Safety.DisableCompletionGuarantee {
		guarantee = execstate.NewCompletionGuarantee(execstate.NewOSFilesystemChecker(cfg.Safety.Workspace), metrics)
	}

	modelEngine, err := buildEngine(cfg)
	if err != nil {
		return fmt.Errorf("build model engine: %w", err)
	}

	schedCfg := agent.Config{
		MaxIterations:     orDefault(cfg.Loop.MaxIterations, 10),
		MaxToolCalls:      cfg.Loop.MaxToolCalls,
		MaxWallTime:       cfg.Loop.MaxWallTime,
		MaxRollbacks:      cfg.Loop.MaxRollbacks,
		MaxNudges:         orDefault(cfg.Loop.MaxNudges, 3),
		Model:             cfg.Model.CloudModel,
		SystemBase:        cfg.Loop.SystemPrompt,
		ContextWindow:     cfg.Budget.ContextWindowTokens,
		MaxResponseTokens: orDefault(cfg.Loop.MaxResponseTokens, 4096),
	}

	scheduler := agent.NewScheduler(modelEngine, registry, executor, assembler, bm, execLedger, schedCfg, logger)
	scheduler.Guarantee = guarantee
	scheduler.Workspace = workspace

	taskLedger := summarizer.NewLedger()
	controller := session.NewController()
	scheduler.Pauser = controller

	done := make(chan error, 1)
	req := controller.Submit(ctx, runnerFunc(func(ctx context.Context, r *models.Request) error {
		return scheduler.Run(ctx, r, taskLedger)
	}), []models.Message{{Role: models.RoleUser, Content: prompt}}, func(err error) {
		done <- err
	})

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("request %s failed: %w", req.ID, err)
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	for _, msg := range req.Messages {
		if msg.Role == models.RoleAssistant {
			fmt.Println(msg.Content)
		}
	}
	return nil
}

func registerFileTools(registry *tools.Registry, ws *files.Workspace) error {
	for _, t := range []tools.Tool{files.NewWriteTool(ws), files.NewReadTool(ws), files.NewEditTool(ws)} {
		if err := registry.Register(t); err != nil {
			return err
		}
	}
	return nil
}

func buildEngine(cfg *config.Config) (engine.ModelEngine, error) {
	switch cfg.Model.Backend {
	case "local":
		return engine.NewLocalEngine(cfg.Model.LocalBaseURL, cfg.Model.LocalGrammar), nil
	case "cloud", "":
		if cfg.Model.CloudAPIKey == "" {
			return nil, fmt.Errorf("model.cloud_api_key is required for the cloud backend")
		}
		rate := cfg.Model.RatePerSecond
		if rate <= 0 {
			rate = 2
		}
		return engine.NewCloudEngine(cfg.Model.CloudAPIKey, rate), nil
	default:
		return nil, fmt.Errorf("unknown model backend %q", cfg.Model.Backend)
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func secondsOrDefault(v, def int) time.Duration {
	if v <= 0 {
		v = def
	}
	return time.Duration(v) * time.Second
}

// runnerFunc adapts a plain function to session.Runner.
type runnerFunc func(ctx context.Context, req *models.Request) error

func (f runnerFunc) Run(ctx context.Context, req *models.Request) error { return f(ctx, req) }

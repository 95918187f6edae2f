package tools

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/riftloop/agentcore/pkg/models"
)

// ErrToolTimeout is returned when a tool execution exceeds its configured
// timeout.
var ErrToolTimeout = errors.New("tools: execution timed out")

// ErrToolPanic is returned when a tool panics during Execute.
var ErrToolPanic = errors.New("tools: execution panicked")

// ToolConfig overrides executor defaults for a single tool.
type ToolConfig struct {
	Timeout      time.Duration
	MaxAttempts  int
	RetryBackoff time.Duration
}

// ExecutorConfig controls the Executor's concurrency and default per-call
// policy.
type ExecutorConfig struct {
	MaxConcurrency  int
	DefaultTimeout  time.Duration
	DefaultRetries  int
	RetryBackoff    time.Duration
	MaxRetryBackoff time.Duration
}

// DefaultExecutorConfig returns the baseline executor configuration.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		MaxConcurrency:  5,
		DefaultTimeout:  30 * time.Second,
		DefaultRetries:  2,
		RetryBackoff:    100 * time.Millisecond,
		MaxRetryBackoff: 5 * time.Second,
	}
}

// ExecutorMetricsSnapshot reports cumulative executor activity.
type ExecutorMetricsSnapshot struct {
	TotalExecutions int64
	TotalRetries    int64
	TotalFailures   int64
	TotalTimeouts   int64
	TotalPanics     int64
}

// Executor runs tool calls against a Registry under bounded concurrency,
// with per-tool timeout, retry, and backoff policy.
type Executor struct {
	registry   *Registry
	config     ExecutorConfig
	sem        chan struct{}
	toolConfig map[string]*ToolConfig

	mu      sync.Mutex
	metrics ExecutorMetricsSnapshot
}

// NewExecutor builds an Executor bounded by config.MaxConcurrency.
func NewExecutor(registry *Registry, config ExecutorConfig) *Executor {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 1
	}
	return &Executor{
		registry:   registry,
		config:     config,
		sem:        make(chan struct{}, config.MaxConcurrency),
		toolConfig: make(map[string]*ToolConfig),
	}
}

// ConfigureTool overrides timeout/retry/backoff for a single tool name.
func (e *Executor) ConfigureTool(name string, cfg ToolConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.toolConfig[name] = &cfg
}

// Metrics returns a snapshot of cumulative executor activity.
func (e *Executor) Metrics() ExecutorMetricsSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.metrics
}

// ExecuteAll runs every call concurrently (bounded by MaxConcurrency) and
// returns results in the same order as calls.
func (e *Executor) ExecuteAll(ctx context.Context, calls []models.ToolCall) []*models.ToolResult {
	results := make([]*models.ToolResult, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call models.ToolCall) {
			defer wg.Done()
			results[i] = e.Execute(ctx, call)
		}(i, call)
	}
	wg.Wait()
	return results
}

// Execute runs a single tool call with retry, backoff, and timeout policy,
// never returning an error itself — failures are encoded in the returned
// ToolResult so the caller's state machine always has something to persist.
func (e *Executor) Execute(ctx context.Context, call models.ToolCall) *models.ToolResult {
	e.sem <- struct{}{}
	defer func() { <-e.sem }()

	e.mu.Lock()
	e.metrics.TotalExecutions++
	cfg := e.toolConfig[call.Name]
	e.mu.Unlock()

	timeout := e.config.DefaultTimeout
	maxAttempts := e.config.DefaultRetries + 1
	backoff := e.config.RetryBackoff
	if cfg != nil {
		if cfg.Timeout > 0 {
			timeout = cfg.Timeout
		}
		if cfg.MaxAttempts > 0 {
			maxAttempts = cfg.MaxAttempts
		}
		if cfg.RetryBackoff > 0 {
			backoff = cfg.RetryBackoff
		}
	}

	if err := e.registry.Validate(call.Name, call.Params); err != nil {
		return &models.ToolResult{ToolCallID: call.ID, Content: err.Error(), IsError: true}
	}

	var lastResult *models.ToolResult
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			e.mu.Lock()
			e.metrics.TotalRetries++
			e.mu.Unlock()
			wait := backoff * time.Duration(1<<uint(attempt-1))
			if e.config.MaxRetryBackoff > 0 && wait > e.config.MaxRetryBackoff {
				wait = e.config.MaxRetryBackoff
			}
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return &models.ToolResult{ToolCallID: call.ID, Content: ctx.Err().Error(), IsError: true}
			}
		}

		result, err := e.executeWithTimeout(ctx, call, timeout)
		if err == nil {
			return result
		}

		lastResult = &models.ToolResult{ToolCallID: call.ID, Content: err.Error(), IsError: true}
		if errors.Is(err, ErrToolTimeout) {
			e.mu.Lock()
			e.metrics.TotalTimeouts++
			e.mu.Unlock()
		}
		if errors.Is(err, ErrToolPanic) {
			e.mu.Lock()
			e.metrics.TotalPanics++
			e.mu.Unlock()
		}
		if ctx.Err() != nil {
			break
		}
	}

	e.mu.Lock()
	e.metrics.TotalFailures++
	e.mu.Unlock()
	return lastResult
}

func (e *Executor) executeWithTimeout(ctx context.Context, call models.ToolCall, timeout time.Duration) (*models.ToolResult, error) {
	t, ok := e.registry.Get(call.Name)
	if !ok {
		return nil, fmt.Errorf("tools: unknown tool %q", call.Name)
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type out struct {
		result *models.ToolResult
		err    error
	}
	done := make(chan out, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- out{err: fmt.Errorf("%w: %v\n%s", ErrToolPanic, r, debug.Stack())}
			}
		}()
		result, err := t.Execute(callCtx, call.Params)
		done <- out{result: result, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			return nil, o.err
		}
		o.result.ToolCallID = call.ID
		return o.result, nil
	case <-callCtx.Done():
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, ErrToolTimeout
		}
		return nil, callCtx.Err()
	}
}

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/riftloop/agentcore/pkg/models"
)

func TestExecutor_ExecuteSuccess(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&stubTool{name: "echo"})
	e := NewExecutor(r, DefaultExecutorConfig())

	result := e.Execute(context.Background(), models.ToolCall{ID: "1", Name: "echo"})
	if result.IsError {
		t.Fatalf("Execute returned an error result: %+v", result)
	}
	if snap := e.Metrics(); snap.TotalExecutions != 1 {
		t.Errorf("TotalExecutions = %d, want 1", snap.TotalExecutions)
	}
}

func TestExecutor_RetriesOnFailureThenSucceeds(t *testing.T) {
	r := NewRegistry()
	attempts := 0
	_ = r.Register(&stubTool{name: "flaky", fn: func(ctx context.Context, params json.RawMessage) (*models.ToolResult, error) {
		attempts++
		if attempts < 2 {
			return nil, errors.New("transient failure")
		}
		return &models.ToolResult{Content: "ok"}, nil
	}})
	cfg := DefaultExecutorConfig()
	cfg.RetryBackoff = time.Millisecond
	e := NewExecutor(r, cfg)

	result := e.Execute(context.Background(), models.ToolCall{ID: "1", Name: "flaky"})
	if result.IsError {
		t.Fatalf("expected eventual success, got error result: %+v", result)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
	if snap := e.Metrics(); snap.TotalRetries != 1 {
		t.Errorf("TotalRetries = %d, want 1", snap.TotalRetries)
	}
}

func TestExecutor_TimeoutIsReportedAsError(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&stubTool{name: "slow", fn: func(ctx context.Context, params json.RawMessage) (*models.ToolResult, error) {
		time.Sleep(100 * time.Millisecond)
		return &models.ToolResult{Content: "too late"}, nil
	}})
	e := NewExecutor(r, ExecutorConfig{MaxConcurrency: 1, DefaultTimeout: 10 * time.Millisecond, DefaultRetries: 0})

	result := e.Execute(context.Background(), models.ToolCall{ID: "1", Name: "slow"})
	if !result.IsError {
		t.Fatalf("expected a timed-out call to return an error result")
	}
	if snap := e.Metrics(); snap.TotalTimeouts != 1 {
		t.Errorf("TotalTimeouts = %d, want 1", snap.TotalTimeouts)
	}
}

func TestExecutor_PanicIsRecovered(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&stubTool{name: "panicky", fn: func(ctx context.Context, params json.RawMessage) (*models.ToolResult, error) {
		panic("boom")
	}})
	e := NewExecutor(r, ExecutorConfig{MaxConcurrency: 1, DefaultTimeout: time.Second, DefaultRetries: 0})

	result := e.Execute(context.Background(), models.ToolCall{ID: "1", Name: "panicky"})
	if !result.IsError {
		t.Fatalf("expected a panicking tool call to return an error result, not crash the test")
	}
	if snap := e.Metrics(); snap.TotalPanics != 1 {
		t.Errorf("TotalPanics = %d, want 1", snap.TotalPanics)
	}
}

func TestExecutor_ExecuteAll_PreservesOrder(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&stubTool{name: "a", fn: func(ctx context.Context, params json.RawMessage) (*models.ToolResult, error) {
		return &models.ToolResult{Content: "a-result"}, nil
	}})
	_ = r.Register(&stubTool{name: "b", fn: func(ctx context.Context, params json.RawMessage) (*models.ToolResult, error) {
		return &models.ToolResult{Content: "b-result"}, nil
	}})
	e := NewExecutor(r, DefaultExecutorConfig())

	results := e.ExecuteAll(context.Background(), []models.ToolCall{{Name: "a"}, {Name: "b"}})
	if len(results) != 2 || results[0].Content != "a-result" || results[1].Content != "b-result" {
		t.Errorf("ExecuteAll results out of order or missing: %+v", results)
	}
}

func TestExecutor_InvalidParamsNeverReachesTheTool(t *testing.T) {
	r := NewRegistry()
	called := false
	schema := `{"type":"object","required":["path"]}`
	_ = r.Register(&stubTool{name: "reader", schema: schema, fn: func(ctx context.Context, params json.RawMessage) (*models.ToolResult, error) {
		called = true
		return &models.ToolResult{}, nil
	}})
	e := NewExecutor(r, DefaultExecutorConfig())

	result := e.Execute(context.Background(), models.ToolCall{Name: "reader", Params: json.RawMessage(`{}`)})
	if !result.IsError {
		t.Fatalf("expected schema validation failure to produce an error result")
	}
	if called {
		t.Errorf("tool should not have been invoked with invalid params")
	}
}

package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/riftloop/agentcore/pkg/models"
)

type stubTool struct {
	name   string
	schema string
	fn     func(ctx context.Context, params json.RawMessage) (*models.ToolResult, error)
}

func (s *stubTool) Definition() models.Definition {
	schema := s.schema
	if schema == "" {
		schema = `{"type":"object"}`
	}
	return models.Definition{Name: s.name, Description: "stub tool", Parameters: json.RawMessage(schema)}
}

func (s *stubTool) Execute(ctx context.Context, params json.RawMessage) (*models.ToolResult, error) {
	if s.fn != nil {
		return s.fn(ctx, params)
	}
	return &models.ToolResult{Content: "ok"}, nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&stubTool{name: "echo"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	tool, ok := r.Get("echo")
	if !ok || tool == nil {
		t.Fatalf("Get(echo) not found")
	}
}

func TestRegistry_RegisterRejectsEmptyName(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&stubTool{name: ""}); err == nil {
		t.Fatalf("expected error registering a tool with an empty name")
	}
}

func TestRegistry_RegisterRejectsInvalidSchema(t *testing.T) {
	r := NewRegistry()
	err := r.Register(&stubTool{name: "broken", schema: `{"type": "not-a-real-type"}`})
	if err == nil {
		t.Fatalf("expected error registering a tool with an invalid schema")
	}
}

func TestRegistry_Validate(t *testing.T) {
	r := NewRegistry()
	schema := `{"type":"object","properties":{"path":{"type":"string"}},"required":["path"]}`
	if err := r.Register(&stubTool{name: "reader", schema: schema}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := r.Validate("reader", json.RawMessage(`{"path":"a.go"}`)); err != nil {
		t.Errorf("Validate(valid params) = %v, want nil", err)
	}
	if err := r.Validate("reader", json.RawMessage(`{}`)); err == nil {
		t.Errorf("Validate(missing required field) = nil, want error")
	}
	if err := r.Validate("unknown", json.RawMessage(`{}`)); err == nil {
		t.Errorf("Validate(unknown tool) = nil, want error")
	}
}

func TestRegistry_Execute(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&stubTool{name: "echo"})

	result, err := r.Execute(context.Background(), models.ToolCall{ID: "call-1", Name: "echo"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.ToolCallID != "call-1" {
		t.Errorf("ToolCallID = %q, want call-1", result.ToolCallID)
	}
}

func TestRegistry_Unregister(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&stubTool{name: "echo"})
	r.Unregister("echo")
	if _, ok := r.Get("echo"); ok {
		t.Errorf("tool still present after Unregister")
	}
}

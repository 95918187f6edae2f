// Package tools implements the tool registry and executor (component C1):
// a concurrency-safe catalog of callable tools plus a bounded-concurrency
// executor with per-tool retry and timeout policy.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/riftloop/agentcore/pkg/models"
)

const (
	// MaxToolNameLength bounds tool names accepted by Register and Execute.
	MaxToolNameLength = 256
	// MaxToolParamsSize bounds the serialized size of tool call parameters.
	MaxToolParamsSize = 10 << 20
)

// Tool is anything the registry can invoke on behalf of the model.
type Tool interface {
	Definition() models.Definition
	Execute(ctx context.Context, params json.RawMessage) (*models.ToolResult, error)
}

type registered struct {
	tool   Tool
	schema *jsonschema.Schema
}

// Registry is a sync.RWMutex-guarded catalog of tools, each with a compiled
// JSON Schema validator built once at Register time.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*registered
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*registered)}
}

// Register adds a tool, compiling its parameter schema immediately so a bad
// schema fails fast at startup rather than on first call.
func (r *Registry) Register(t Tool) error {
	def := t.Definition()
	if def.Name == "" {
		return fmt.Errorf("tools: tool has empty name")
	}
	if len(def.Name) > MaxToolNameLength {
		return fmt.Errorf("tools: tool name %q exceeds max length", def.Name)
	}

	compiler := jsonschema.NewCompiler()
	schemaURL := "mem://tool/" + def.Name
	if len(def.Parameters) > 0 {
		if err := compiler.AddResource(schemaURL, newJSONReader(def.Parameters)); err != nil {
			return fmt.Errorf("tools: compiling schema for %q: %w", def.Name, err)
		}
	} else {
		if err := compiler.AddResource(schemaURL, newJSONReader([]byte(`{}`))); err != nil {
			return fmt.Errorf("tools: compiling empty schema for %q: %w", def.Name, err)
		}
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return fmt.Errorf("tools: compiling schema for %q: %w", def.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[def.Name] = &registered{tool: t, schema: schema}
	return nil
}

// Unregister removes a tool by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// Get returns the tool registered under name, if any.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.tools[name]
	if !ok {
		return nil, false
	}
	return rt.tool, true
}

// Definitions returns the wire-format definitions of every registered tool,
// for handing to the model engine as part of prompt assembly.
func (r *Registry) Definitions() []models.Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]models.Definition, 0, len(r.tools))
	for _, rt := range r.tools {
		defs = append(defs, rt.tool.Definition())
	}
	return defs
}

// Validate checks a tool call's parameters against its compiled schema.
func (r *Registry) Validate(name string, params json.RawMessage) error {
	r.mu.RLock()
	rt, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("tools: unknown tool %q", name)
	}
	if len(params) > MaxToolParamsSize {
		return fmt.Errorf("tools: params for %q exceed max size", name)
	}
	var v any
	if len(params) == 0 {
		v = map[string]any{}
	} else if err := json.Unmarshal(params, &v); err != nil {
		return fmt.Errorf("tools: params for %q are not valid JSON: %w", name, err)
	}
	if err := rt.schema.Validate(v); err != nil {
		return fmt.Errorf("tools: params for %q failed schema validation: %w", name, err)
	}
	return nil
}

// Execute validates and runs a single tool call directly, bypassing the
// Executor's concurrency/retry machinery, for callers that want one
// sequential call.
func (r *Registry) Execute(ctx context.Context, call models.ToolCall) (*models.ToolResult, error) {
	t, ok := r.Get(call.Name)
	if !ok {
		return nil, fmt.Errorf("tools: unknown tool %q", call.Name)
	}
	if err := r.Validate(call.Name, call.Params); err != nil {
		return &models.ToolResult{ToolCallID: call.ID, Content: err.Error(), IsError: true}, nil
	}
	res, err := t.Execute(ctx, call.Params)
	if err != nil {
		return nil, err
	}
	res.ToolCallID = call.ID
	return res, nil
}

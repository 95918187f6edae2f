package files

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/riftloop/agentcore/pkg/models"
)

// Config configures the workspace filesystem port.
type Config struct {
	Workspace string
}

// Workspace implements tools.FilesystemPort rooted at Config.Workspace, with
// every path run through Resolver before touching disk.
type Workspace struct {
	resolver Resolver
}

// NewWorkspace returns a Workspace rooted at cfg.Workspace.
func NewWorkspace(cfg Config) *Workspace {
	return &Workspace{resolver: Resolver{Root: cfg.Workspace}}
}

// Write implements tools.FilesystemPort.
func (w *Workspace) Write(ctx context.Context, path string, content []byte, appendMode bool) error {
	_ = ctx
	resolved, err := w.resolver.Resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	flags := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(resolved, flags, 0o644)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(content); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// Read implements tools.FilesystemPort.
func (w *Workspace) Read(ctx context.Context, path string) ([]byte, error) {
	_ = ctx
	resolved, err := w.resolver.Resolve(path)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(resolved)
}

// Edit implements tools.FilesystemPort: replaces the first occurrence of
// oldText with newText within the file at path.
func (w *Workspace) Edit(ctx context.Context, path string, oldText, newText string) error {
	_ = ctx
	resolved, err := w.resolver.Resolve(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	content := string(data)
	if !strings.Contains(content, oldText) {
		return fmt.Errorf("old_text not found in %s", path)
	}
	updated := strings.Replace(content, oldText, newText, 1)
	return os.WriteFile(resolved, []byte(updated), 0o644)
}

// WriteTool is the registry-facing write_file tool.
type WriteTool struct {
	ws *Workspace
}

// NewWriteTool returns a write_file tool backed by ws.
func NewWriteTool(ws *Workspace) *WriteTool { return &WriteTool{ws: ws} }

// Definition implements tools.Tool.
func (t *WriteTool) Definition() models.Definition {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path":    map[string]any{"type": "string", "description": "Path to write, relative to the workspace."},
			"content": map[string]any{"type": "string", "description": "File contents to write."},
			"append":  map[string]any{"type": "boolean", "description": "Append instead of overwrite (default false)."},
		},
		"required": []string{"path", "content"},
	}
	payload, _ := json.Marshal(schema)
	return models.Definition{Name: "write_file", Description: "Write content to a file in the workspace.", Parameters: payload}
}

// Execute implements tools.Tool.
func (t *WriteTool) Execute(ctx context.Context, params json.RawMessage) (*models.ToolResult, error) {
	var input struct {
		Path    string `json:"path"`
		Content string `json:"content"`
		Append  bool   `json:"append"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if strings.TrimSpace(input.Path) == "" {
		return toolError("path is required"), nil
	}
	if err := t.ws.Write(ctx, input.Path, []byte(input.Content), input.Append); err != nil {
		return toolError(err.Error()), nil
	}
	payload, _ := json.MarshalIndent(map[string]any{
		"path":          input.Path,
		"bytes_written": len(input.Content),
		"append":        input.Append,
	}, "", "  ")
	return &models.ToolResult{Content: string(payload)}, nil
}

// ReadTool is the registry-facing read_file tool.
type ReadTool struct {
	ws *Workspace
}

// NewReadTool returns a read_file tool backed by ws.
func NewReadTool(ws *Workspace) *ReadTool { return &ReadTool{ws: ws} }

// Definition implements tools.Tool.
func (t *ReadTool) Definition() models.Definition {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{"type": "string", "description": "Path to read, relative to the workspace."},
		},
		"required": []string{"path"},
	}
	payload, _ := json.Marshal(schema)
	return models.Definition{Name: "read_file", Description: "Read a file from the workspace.", Parameters: payload}
}

// Execute implements tools.Tool.
func (t *ReadTool) Execute(ctx context.Context, params json.RawMessage) (*models.ToolResult, error) {
	var input struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	data, err := t.ws.Read(ctx, input.Path)
	if err != nil {
		return toolError(err.Error()), nil
	}
	return &models.ToolResult{Content: string(data)}, nil
}

// EditTool is the registry-facing edit_file tool.
type EditTool struct {
	ws *Workspace
}

// NewEditTool returns an edit_file tool backed by ws.
func NewEditTool(ws *Workspace) *EditTool { return &EditTool{ws: ws} }

// Definition implements tools.Tool.
func (t *EditTool) Definition() models.Definition {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path":     map[string]any{"type": "string", "description": "Path to edit, relative to the workspace."},
			"old_text": map[string]any{"type": "string", "description": "Exact text to replace."},
			"new_text": map[string]any{"type": "string", "description": "Replacement text."},
		},
		"required": []string{"path", "old_text", "new_text"},
	}
	payload, _ := json.Marshal(schema)
	return models.Definition{Name: "edit_file", Description: "Replace text within a workspace file.", Parameters: payload}
}

// Execute implements tools.Tool.
func (t *EditTool) Execute(ctx context.Context, params json.RawMessage) (*models.ToolResult, error) {
	var input struct {
		Path    string `json:"path"`
		OldText string `json:"old_text"`
		NewText string `json:"new_text"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if err := t.ws.Edit(ctx, input.Path, input.OldText, input.NewText); err != nil {
		return toolError(err.Error()), nil
	}
	payload, _ := json.Marshal(map[string]any{"path": input.Path, "edited": true})
	return &models.ToolResult{Content: string(payload)}, nil
}

func toolError(msg string) *models.ToolResult {
	return &models.ToolResult{Content: msg, IsError: true}
}

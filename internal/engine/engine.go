// Package engine implements the model engine port (component C6): a
// uniform interface over local and cloud LLM backends, each streaming
// response chunks over a channel and supporting mid-generation cancellation.
package engine

import (
	"context"

	"github.com/riftloop/agentcore/pkg/models"
)

// Chunk is one piece of a streamed generation. The final Chunk has Done set
// and carries the StopReason the backend terminated with; StopReason on any
// earlier Chunk is unset.
type Chunk struct {
	Text       string
	ToolCall   *models.ToolCall
	Done       bool
	StopReason models.StopReason
	Err        error
}

// Request is a single generation request sent to a ModelEngine.
type Request struct {
	Model       string
	System      string
	Messages    []models.Message
	Tools       []models.Definition
	MaxTokens   int
	Temperature float64

	// ForceTools asks the backend to require a tool call in its response
	// rather than permitting a free-text reply, used for the scheduler's
	// grammar-constrained retry after a refusal.
	ForceTools bool
}

// ModelEngine is the uniform port the scheduler (C7) calls through,
// regardless of whether the backend is a local grammar-constrained model or
// a cloud chat-completions API.
type ModelEngine interface {
	// Generate starts a streamed generation and returns a channel of
	// Chunks, closed when the generation finishes, fails, or is cancelled.
	Generate(ctx context.Context, req Request) (<-chan Chunk, error)

	// Name identifies the backend for logging/diagnostics.
	Name() string

	// SupportsTools reports whether this backend can emit native
	// function-call records, versus requiring the parser to recover tool
	// calls from free text.
	SupportsTools() bool
}

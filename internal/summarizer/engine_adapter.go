package summarizer

import (
	"context"
	"fmt"

	"github.com/riftloop/agentcore/internal/engine"
	"github.com/riftloop/agentcore/pkg/models"
)

// EngineGenerator adapts a model engine into a Generator, driving a
// non-streaming summarization call by draining the engine's chunk stream
// into one string.
type EngineGenerator struct {
	Engine engine.ModelEngine
	Model  string
}

// NewEngineGenerator returns a Generator backed by eng, using model for
// every summarization call.
func NewEngineGenerator(eng engine.ModelEngine, model string) *EngineGenerator {
	return &EngineGenerator{Engine: eng, Model: model}
}

// Summarize implements Generator.
func (g *EngineGenerator) Summarize(ctx context.Context, messages []models.Message, instructions string) (string, error) {
	chunks, err := g.Engine.Generate(ctx, engine.Request{
		Model:     g.Model,
		System:    instructions,
		Messages:  messages,
		MaxTokens: 512,
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("summarizer engine adapter: %w", err)
	}

	var out string
	for chunk := range chunks {
		if chunk.Err != nil {
			return "", fmt.Errorf("summarizer engine adapter: %w", chunk.Err)
		}
		out += chunk.Text
		if chunk.Done {
			break
		}
	}
	return out, nil
}

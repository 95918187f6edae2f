package summarizer

import (
	"context"
	"errors"
	"testing"

	"github.com/riftloop/agentcore/internal/engine"
	"github.com/riftloop/agentcore/pkg/models"
)

type fakeEngine struct {
	chunks []engine.Chunk
	err    error
}

func (e *fakeEngine) Generate(ctx context.Context, req engine.Request) (<-chan engine.Chunk, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make(chan engine.Chunk, len(e.chunks))
	for _, c := range e.chunks {
		out <- c
	}
	close(out)
	return out, nil
}

func (e *fakeEngine) Name() string            { return "fake" }
func (e *fakeEngine) SupportsTools() bool     { return false }

func TestEngineGenerator_Summarize_ConcatenatesChunks(t *testing.T) {
	eng := &fakeEngine{chunks: []engine.Chunk{
		{Text: "Hello"},
		{Text: ", world"},
		{Done: true},
	}}
	g := NewEngineGenerator(eng, "test-model")

	out, err := g.Summarize(context.Background(), []models.Message{{Role: models.RoleUser, Content: "hi"}}, "summarize")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if out != "Hello, world" {
		t.Errorf("Summarize() = %q, want %q", out, "Hello, world")
	}
}

func TestEngineGenerator_Summarize_PropagatesStartError(t *testing.T) {
	eng := &fakeEngine{err: errors.New("engine unavailable")}
	g := NewEngineGenerator(eng, "test-model")
	if _, err := g.Summarize(context.Background(), nil, "summarize"); err == nil {
		t.Fatalf("expected an error when Generate fails to start")
	}
}

func TestEngineGenerator_Summarize_PropagatesChunkError(t *testing.T) {
	eng := &fakeEngine{chunks: []engine.Chunk{
		{Text: "partial"},
		{Err: errors.New("stream broke")},
	}}
	g := NewEngineGenerator(eng, "test-model")
	if _, err := g.Summarize(context.Background(), nil, "summarize"); err == nil {
		t.Fatalf("expected an error when a chunk carries Err")
	}
}

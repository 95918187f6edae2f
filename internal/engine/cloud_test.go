package engine

import (
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/riftloop/agentcore/pkg/models"
)

func TestBuildOpenAIRequest(t *testing.T) {
	req := Request{
		Model:  "gpt-4o-mini",
		System: "You are helpful.",
		Messages: []models.Message{
			{Role: models.RoleUser, Content: "hi"},
		},
		Tools:     []models.Definition{{Name: "read_file", Description: "reads a file", Parameters: []byte(`{"type":"object"}`)}},
		MaxTokens: 256,
	}

	out := buildOpenAIRequest(req)

	if out.Model != "gpt-4o-mini" {
		t.Errorf("Model = %q", out.Model)
	}
	if len(out.Messages) != 2 {
		t.Fatalf("Messages = %d, want 2 (system + user)", len(out.Messages))
	}
	if out.Messages[0].Role != openai.ChatMessageRoleSystem {
		t.Errorf("Messages[0].Role = %q, want system", out.Messages[0].Role)
	}
	if len(out.Tools) != 1 || out.Tools[0].Function.Name != "read_file" {
		t.Errorf("Tools not translated correctly: %+v", out.Tools)
	}
	if !out.Stream {
		t.Errorf("expected Stream to be true")
	}
}

func TestBuildOpenAIRequest_NoSystemPrompt(t *testing.T) {
	out := buildOpenAIRequest(Request{Messages: []models.Message{{Role: models.RoleUser, Content: "hi"}}})
	if len(out.Messages) != 1 {
		t.Fatalf("Messages = %d, want 1 when no system prompt is set", len(out.Messages))
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "rate limited", err: &openai.APIError{HTTPStatusCode: 429}, want: true},
		{name: "server error", err: &openai.APIError{HTTPStatusCode: 503}, want: true},
		{name: "bad request", err: &openai.APIError{HTTPStatusCode: 400}, want: false},
		{name: "non-api error", err: errors.New("network blip"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retryable(tt.err); got != tt.want {
				t.Errorf("retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/riftloop/agentcore/pkg/models"
)

// LocalEngine implements ModelEngine against a local OpenAI-protocol
// server-sent-events endpoint (the shape llama.cpp's server and similar
// local runners expose), with an optional grammar constraint applied to
// force well-formed tool-call JSON out of models that don't support native
// function calling.
type LocalEngine struct {
	baseURL    string
	httpClient *http.Client
	grammar    string
}

// NewLocalEngine returns a LocalEngine talking to baseURL (e.g.
// "http://127.0.0.1:8080"). grammar, if non-empty, is sent as a GBNF
// grammar constraint on every request.
func NewLocalEngine(baseURL string, grammar string) *LocalEngine {
	return &LocalEngine{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 0},
		grammar:    grammar,
	}
}

// Name implements ModelEngine.
func (e *LocalEngine) Name() string { return "local" }

// SupportsTools implements ModelEngine: local backends rely on the parser
// to recover tool calls from text rather than emitting native records,
// unless a grammar constraint is configured to force structured output.
func (e *LocalEngine) SupportsTools() bool { return e.grammar != "" }

type localChatRequest struct {
	Model     string         `json:"model"`
	Messages  []localMessage `json:"messages"`
	MaxTokens int            `json:"max_tokens,omitempty"`
	Stream    bool           `json:"stream"`
	Grammar   string         `json:"grammar,omitempty"`
}

type localMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type localStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// Generate implements ModelEngine by posting a streaming chat-completion
// request and parsing the server-sent-events response line by line.
func (e *LocalEngine) Generate(ctx context.Context, req Request) (<-chan Chunk, error) {
	messages := make([]localMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, localMessage{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		messages = append(messages, localMessage{Role: string(m.Role), Content: m.Content})
	}

	body, err := json.Marshal(localChatRequest{
		Model:     req.Model,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
		Stream:    true,
		Grammar:   e.grammar,
	})
	if err != nil {
		return nil, fmt.Errorf("engine: encode local request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("engine: build local request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("engine: local request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("engine: local server returned status %d", resp.StatusCode)
	}

	out := make(chan Chunk)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		var lastFinish string
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || !strings.HasPrefix(line, "data:") {
				continue
			}
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if payload == "[DONE]" {
				out <- Chunk{Done: true, StopReason: mapFinishReason(lastFinish)}
				return
			}
			var chunk localStreamChunk
			if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
				continue
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			if content := chunk.Choices[0].Delta.Content; content != "" {
				out <- Chunk{Text: content}
			}
			if fr := chunk.Choices[0].FinishReason; fr != nil && *fr != "" {
				lastFinish = *fr
			}
		}
		if err := scanner.Err(); err != nil {
			if ctx.Err() != nil {
				out <- Chunk{Done: true, StopReason: models.StopCancelled}
				return
			}
			out <- Chunk{Err: fmt.Errorf("engine: reading local stream: %w", err), Done: true, StopReason: models.StopError}
			return
		}
		out <- Chunk{Done: true, StopReason: mapFinishReason(lastFinish)}
	}()

	return out, nil
}

// mapFinishReason translates an OpenAI-protocol finish_reason string into a
// StopReason. An empty or unrecognized reason is treated as a natural stop.
func mapFinishReason(reason string) models.StopReason {
	switch reason {
	case "length":
		return models.StopMaxTokens
	case "tool_calls", "function_call":
		return models.StopTools
	case "stop", "":
		return models.StopNatural
	default:
		return models.StopNatural
	}
}

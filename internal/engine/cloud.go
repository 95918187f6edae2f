package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/riftloop/agentcore/pkg/models"
)

// CloudEngine implements ModelEngine against an OpenAI-protocol-compatible
// chat-completions API, paced by a rate.Limiter so the scheduler never
// bursts past the backend's recommended call rate.
type CloudEngine struct {
	client     *openai.Client
	limiter    *rate.Limiter
	maxRetries int
	retryDelay time.Duration
}

// NewCloudEngine returns a CloudEngine using apiKey, allowing ratePerSecond
// calls per second (burst of 1).
func NewCloudEngine(apiKey string, ratePerSecond float64) *CloudEngine {
	if ratePerSecond <= 0 {
		ratePerSecond = 2
	}
	return &CloudEngine{
		client:     openai.NewClient(apiKey),
		limiter:    rate.NewLimiter(rate.Limit(ratePerSecond), 1),
		maxRetries: 3,
		retryDelay: time.Second,
	}
}

// Name implements ModelEngine.
func (e *CloudEngine) Name() string { return "cloud" }

// SupportsTools implements ModelEngine.
func (e *CloudEngine) SupportsTools() bool { return true }

// Generate implements ModelEngine, streaming chat completion deltas and
// reassembling any native tool-call records the backend emits.
func (e *CloudEngine) Generate(ctx context.Context, req Request) (<-chan Chunk, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("engine: rate limiter: %w", err)
	}

	out := make(chan Chunk)
	go func() {
		defer close(out)

		var stream *openai.ChatCompletionStream
		var err error
		for attempt := 0; attempt <= e.maxRetries; attempt++ {
			stream, err = e.client.CreateChatCompletionStream(ctx, buildOpenAIRequest(req))
			if err == nil {
				break
			}
			if !retryable(err) || attempt == e.maxRetries {
				break
			}
			select {
			case <-time.After(e.retryDelay * time.Duration(attempt+1)):
			case <-ctx.Done():
				out <- Chunk{Err: ctx.Err(), Done: true, StopReason: models.StopCancelled}
				return
			}
		}
		if err != nil {
			out <- Chunk{Err: fmt.Errorf("engine: cloud generate: %w", err), Done: true, StopReason: models.StopError}
			return
		}
		defer stream.Close()

		toolCallsByIndex := map[int]*models.ToolCall{}
		var lastFinish openai.FinishReason
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				if ctx.Err() != nil {
					out <- Chunk{Err: ctx.Err(), Done: true, StopReason: models.StopCancelled}
					return
				}
				out <- Chunk{Err: fmt.Errorf("engine: stream recv: %w", err), Done: true, StopReason: models.StopError}
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			delta := resp.Choices[0].Delta
			if delta.Content != "" {
				out <- Chunk{Text: delta.Content}
			}
			if resp.Choices[0].FinishReason != "" {
				lastFinish = resp.Choices[0].FinishReason
			}
			for _, tc := range delta.ToolCalls {
				idx := 0
				if tc.Index != nil {
					idx = *tc.Index
				}
				existing, ok := toolCallsByIndex[idx]
				if !ok {
					existing = &models.ToolCall{ID: tc.ID, Name: tc.Function.Name}
					toolCallsByIndex[idx] = existing
				}
				if tc.Function.Name != "" {
					existing.Name = tc.Function.Name
				}
				existing.Params = append(existing.Params, json.RawMessage(tc.Function.Arguments)...)
			}
		}
		for _, tc := range toolCallsByIndex {
			out <- Chunk{ToolCall: tc}
		}
		out <- Chunk{Done: true, StopReason: mapOpenAIFinishReason(lastFinish, len(toolCallsByIndex) > 0)}
	}()

	return out, nil
}

func buildOpenAIRequest(req Request) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}

	tools := make([]openai.Tool, 0, len(req.Tools))
	for _, t := range req.Tools {
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  json.RawMessage(t.Parameters),
			},
		})
	}

	request := openai.ChatCompletionRequest{
		Model:     req.Model,
		Messages:  messages,
		Tools:     tools,
		MaxTokens: req.MaxTokens,
		Stream:    true,
	}
	if req.ForceTools && len(tools) > 0 {
		request.ToolChoice = "required"
	}
	return request
}

// mapOpenAIFinishReason translates go-openai's per-choice finish reason into
// a StopReason. A reassembled native tool call with no finish_reason at all
// (some backends omit it on the final chunk) still counts as a tools stop.
func mapOpenAIFinishReason(reason openai.FinishReason, hasToolCalls bool) models.StopReason {
	switch reason {
	case openai.FinishReasonLength:
		return models.StopMaxTokens
	case openai.FinishReasonToolCalls, openai.FinishReasonFunctionCall:
		return models.StopTools
	case openai.FinishReasonStop, "":
		if hasToolCalls {
			return models.StopTools
		}
		return models.StopNatural
	default:
		return models.StopNatural
	}
}

func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	return false
}

// Package httpfetch implements the http_request tool, fetching a URL with
// SSRF protection applied to the target host before any connection is
// opened.
package httpfetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/riftloop/agentcore/internal/net/ssrf"
	"github.com/riftloop/agentcore/pkg/models"
)

const maxBodyBytes = 2 << 20 // 2 MiB

// Client implements tools.HTTPPort.
type Client struct {
	guard      *ssrf.Guard
	httpClient *http.Client
}

// NewClient returns an HTTP fetch client guarded against SSRF, with a
// conservative default request timeout.
func NewClient() *Client {
	return &Client{
		guard:      ssrf.NewGuard(),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Fetch implements tools.HTTPPort.
func (c *Client) Fetch(ctx context.Context, rawURL string) (int, []byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, nil, fmt.Errorf("httpfetch: invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return 0, nil, fmt.Errorf("httpfetch: unsupported scheme %q", u.Scheme)
	}
	if err := c.guard.CheckHost(ctx, u.Hostname()); err != nil {
		return 0, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, nil, fmt.Errorf("httpfetch: build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("httpfetch: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("httpfetch: read body: %w", err)
	}
	return resp.StatusCode, body, nil
}

// Tool is the registry-facing http_request tool.
type Tool struct {
	client *Client
}

// NewTool returns an http_request tool backed by client.
func NewTool(client *Client) *Tool { return &Tool{client: client} }

// Definition implements tools.Tool.
func (t *Tool) Definition() models.Definition {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{"type": "string", "description": "HTTP(S) URL to fetch."},
		},
		"required": []string{"url"},
	}
	payload, _ := json.Marshal(schema)
	return models.Definition{Name: "http_request", Description: "Fetch a URL over HTTP(S), subject to SSRF protection.", Parameters: payload}
}

// Execute implements tools.Tool.
func (t *Tool) Execute(ctx context.Context, params json.RawMessage) (*models.ToolResult, error) {
	var input struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return &models.ToolResult{Content: fmt.Sprintf("invalid parameters: %v", err), IsError: true}, nil
	}
	if strings.TrimSpace(input.URL) == "" {
		return &models.ToolResult{Content: "url is required", IsError: true}, nil
	}
	status, body, err := t.client.Fetch(ctx, input.URL)
	if err != nil {
		return &models.ToolResult{Content: err.Error(), IsError: true}, nil
	}
	payload, _ := json.Marshal(map[string]any{"status": status, "body": string(body)})
	return &models.ToolResult{Content: string(payload)}, nil
}

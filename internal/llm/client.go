package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tidehunter/translog/internal/config"
	"github.com/tidehunter/translog/internal/httpkit"
)

// requestTimeout bounds one completion round trip.
const requestTimeout = 30 * time.Second

// APIError is a non-2xx response from a completions endpoint. The
// status code drives candidate negotiation.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("completions endpoint returned %d: %s", e.Status, e.Body)
}

// Client sends chat completions to any OpenAI-compatible endpoint.
// The endpoint and model are per-request so the negotiator can move
// between candidates on a single client.
type Client struct {
	httpClient *http.Client
	apiKey     string
	logger     *slog.Logger
}

// NewClient builds a Client. A nil logger means slog.Default.
func NewClient(logger *slog.Logger, apiKey string) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: httpkit.NewClient(httpkit.WithTimeout(requestTimeout)),
		apiKey:     apiKey,
		logger:     logger.With("component", "llm"),
	}
}

// Request is one completion request.
type Request struct {
	BaseURL     string
	Model       string
	Messages    []Message
	Tools       []map[string]any
	Temperature float64
	MaxTokens   int
}

// wireRequest is the outbound JSON body.
type wireRequest struct {
	Model       string           `json:"model"`
	Messages    []Message        `json:"messages"`
	Tools       []map[string]any `json:"tools,omitempty"`
	Temperature float64          `json:"temperature,omitempty"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
}

// Chat performs one completion round trip.
func (c *Client) Chat(ctx context.Context, req Request) (*ChatResponse, error) {
	if c.apiKey == "" {
		return nil, &APIError{Status: http.StatusUnauthorized, Body: "no API key configured"}
	}

	body, err := json.Marshal(wireRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Tools:       req.Tools,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("encode completion request: %w", err)
	}

	url := strings.TrimSuffix(req.BaseURL, "/") + "/chat/completions"
	c.logger.Log(ctx, config.LevelTrace, "completion request",
		"url", url, "model", req.Model, "body", string(body))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("completion request to %s: %w", req.BaseURL, err)
	}
	defer httpkit.DrainAndClose(resp.Body, 4096)

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{
			Status: resp.StatusCode,
			Body:   httpkit.ReadErrorBody(resp.Body, 4096),
		}
	}

	var wire wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decode completion response: %w", err)
	}
	if wire.Error != nil {
		// Some endpoints report failures inside a 200 body.
		return nil, &APIError{Status: http.StatusOK, Body: wire.Error.Message}
	}

	out, err := wire.normalize()
	if err != nil {
		return nil, err
	}
	c.logger.Log(ctx, config.LevelTrace, "completion response",
		"model", out.Model, "tool_call", out.ToolCall != nil)
	return out, nil
}

// Package llm provides the chat-completions client for the text generation
// backend (OpenAI-compatible wire shape; OpenRouter by default).
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/opensource-finance/capintel/internal/domain"
)

// maxErrorBodyBytes bounds the response body carried in a StatusError.
const maxErrorBodyBytes = 500

// Client is the long-lived handle to the text generation backend. It holds
// only fixed connection configuration, never per-request state, so it is safe
// to share across concurrent requests.
type Client struct {
	cfg     domain.LLMConfig
	baseURL string
	http    *http.Client
}

// NewClient creates a chat-completions client from configuration.
func NewClient(cfg domain.LLMConfig) *Client {
	return &Client{
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout: cfg.Timeout(),
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
	MaxTokens   int           `json:"max_tokens"`
	Messages    []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Chat performs a single chat-completions call and returns the trimmed
// generated text. There is exactly one attempt: no retries, no backoff.
// Cancellation of ctx propagates into the outstanding HTTP request. The four
// failure modes are distinguishable: *TransportError, *StatusError,
// ErrUnexpectedSchema, and ErrEmptyContent.
func (c *Client) Chat(ctx context.Context, system, user string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.cfg.Model,
		Temperature: c.cfg.Temperature,
		TopP:        c.cfg.TopP,
		MaxTokens:   c.cfg.MaxTokens,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return "", &TransportError{Err: fmt.Errorf("encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", &TransportError{Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.AppTitle != "" {
		req.Header.Set("X-Title", c.cfg.AppTitle)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		truncated, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return "", &StatusError{StatusCode: resp.StatusCode, Body: string(truncated)}
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnexpectedSchema, err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == nil {
		return "", ErrUnexpectedSchema
	}

	content := strings.TrimSpace(*parsed.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyContent
	}

	return content, nil
}

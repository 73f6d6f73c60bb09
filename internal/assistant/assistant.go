// Package assistant sends prepared conversation state to the chat
// completions endpoint and parses the reply.
//
// The client holds no credential. It only ever talks to the forwarding
// server, which injects the upstream API key; a direct-to-provider path
// with an embedded key deliberately does not exist.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mfierros/routina/internal/conversation"
)

// FallbackReply is returned when the endpoint answers with success but an
// unexpected shape.
const FallbackReply = "Sorry, I could not get a response from the API."

// CallError is a failed completion call. Status is the upstream HTTP
// status, or 0 for transport-level failures.
type CallError struct {
	Status int
	Detail string
}

func (e *CallError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("assistant call failed: %s", e.Detail)
	}
	return fmt.Sprintf("assistant call failed: HTTP %d: %s", e.Status, e.Detail)
}

// completionRequest is the OpenAI chat-completions request shape.
type completionRequest struct {
	Model     string                 `json:"model"`
	Messages  []conversation.Message `json:"messages"`
	MaxTokens int                    `json:"max_tokens"`
}

// completionResponse covers the slice of the response we consume.
type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Client calls the chat completions endpoint.
type Client struct {
	endpoint   string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates an assistant client for the given completions endpoint
// and model identifier.
func NewClient(endpoint, model string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		endpoint:   endpoint,
		model:      model,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		logger:     logger,
	}
}

// Complete sends messages with the fixed model and output limit and returns
// the first choice's content. An unexpected success shape yields
// FallbackReply; any non-success status or transport failure yields a
// *CallError.
func (c *Client) Complete(ctx context.Context, messages []conversation.Message, maxTokens int) (string, error) {
	body, err := json.Marshal(completionRequest{
		Model:     c.model,
		Messages:  messages,
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("completion request failed", "error", err)
		return "", &CallError{Detail: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &CallError{Status: resp.StatusCode, Detail: fmt.Sprintf("read response: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("completion endpoint returned error",
			"status", resp.StatusCode, "body", truncate(string(raw), 200))
		return "", &CallError{Status: resp.StatusCode, Detail: string(raw)}
	}

	var parsed completionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		c.logger.Warn("unexpected completion response shape", "error", err)
		return FallbackReply, nil
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		c.logger.Warn("completion response missing choices")
		return FallbackReply, nil
	}

	return parsed.Choices[0].Message.Content, nil
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen < 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

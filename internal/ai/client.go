package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// FallbackReply replaces a successful response that carries no generated text.
const FallbackReply = "I apologize, but I couldn't generate a response."

const maxResponseBytes = 4 << 20

// Params are the per-call generation settings.
type Params struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// Client talks to a single OpenAI-compatible chat completion endpoint.
// It performs exactly one request per call and keeps no state between calls.
type Client struct {
	URL        string
	APIKey     string
	CustomerID string
	Model      string
	HTTP       *http.Client
}

func New(url, apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		URL:    url,
		APIKey: apiKey,
		Model:  model,
		HTTP:   &http.Client{Timeout: timeout},
	}
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Role    string  `json:"role"`
			Content Content `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends messages and returns the first generated alternative.
func (c *Client) Complete(ctx context.Context, messages []Message, p Params) (string, error) {
	if err := Validate(messages); err != nil {
		return "", err
	}

	model := p.Model
	if model == "" {
		model = c.Model
	}

	body, err := json.Marshal(completionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
	})
	if err != nil {
		return "", &RequestError{Reason: "encode request"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return "", &RequestError{Reason: "build request"}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	if c.CustomerID != "" {
		req.Header.Set("customerId", c.CustomerID)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", newTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return "", &RemoteServiceError{StatusCode: resp.StatusCode, Reason: http.StatusText(resp.StatusCode)}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", newTransportError(err)
	}

	var out completionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		slog.Warn("completion response not decodable, using fallback", "model", model, "error", err)
		return FallbackReply, nil
	}

	if len(out.Choices) == 0 {
		return FallbackReply, nil
	}
	text := out.Choices[0].Message.Content.PlainText()
	if strings.TrimSpace(text) == "" {
		return FallbackReply, nil
	}
	return text, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"ceprud-chatbot/internal/logger"
)

// Message is one turn of a chat-completions conversation.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// ToolCall is a model-requested tool invocation.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall carries the tool name and its JSON-encoded arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Tool describes a callable function offered to the model.
type Tool struct {
	Type     string         `json:"type"`
	Function ToolDefinition `json:"function"`
}

type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Generator is the surface the agent needs from a language model.
type Generator interface {
	Generate(ctx context.Context, messages []Message, tools []Tool) (*Message, error)
}

// Client calls an OpenAI-compatible /v1/chat/completions endpoint.
// Transient failures are retried with backoff; sustained failures trip
// a circuit breaker so a dead model host fails fast instead of tying
// up request handlers.
type Client struct {
	baseURL     string
	model       string
	temperature float64
	maxRetries  int
	httpClient  *http.Client
	breaker     *gobreaker.CircuitBreaker
}

func NewClient(name, baseURL, model string) *Client {
	return &Client{
		baseURL:     baseURL,
		model:       model,
		temperature: 0.2,
		maxRetries:  3,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 2,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			},
		}),
	}
}

// Configured reports whether the client points at a real endpoint.
func (c *Client) Configured() bool {
	return c != nil && c.baseURL != ""
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Tools       []Tool    `json:"tools,omitempty"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate runs one chat completion and returns the assistant message.
func (c *Client) Generate(ctx context.Context, messages []Message, tools []Tool) (*Message, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.generateWithRetry(ctx, messages, tools)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("generation service unavailable: %w", err)
		}
		return nil, err
	}
	return result.(*Message), nil
}

func (c *Client) generateWithRetry(ctx context.Context, messages []Message, tools []Tool) (*Message, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		msg, retryable, err := c.generateOnce(ctx, messages, tools)
		if err == nil {
			return msg, nil
		}
		lastErr = err
		if !retryable || attempt == c.maxRetries {
			break
		}
		logger.Warn("generation attempt failed, retrying", "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}
	return nil, lastErr
}

func (c *Client) generateOnce(ctx context.Context, messages []Message, tools []Tool) (msg *Message, retryable bool, err error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Tools:       tools,
		Temperature: c.temperature,
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read chat response: %w", err)
	}
	if resp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("generation service returned status %d: %s", resp.StatusCode, string(raw))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("generation service returned status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, false, fmt.Errorf("failed to parse chat response: %w", err)
	}
	if parsed.Error != nil {
		return nil, false, fmt.Errorf("generation service error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return nil, false, errors.New("generation service returned no choices")
	}
	return &parsed.Choices[0].Message, false, nil
}

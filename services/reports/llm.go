package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pavitra93/go-property-management/shared/config"
	"github.com/pavitra93/go-property-management/shared/utils"
)

// ErrEmptyCompletion is returned when the model answers without any text
var ErrEmptyCompletion = errors.New("model returned an empty completion")

// Prompt is what gets sent to the model: fixed instructions plus the facts
type Prompt struct {
	System string
	User   string
}

// Generator turns a prompt into free text
type Generator interface {
	Generate(ctx context.Context, p Prompt) (string, error)
}

// LLMClient talks to an OpenAI-compatible chat completions endpoint
type LLMClient struct {
	endpoint   string
	apiKey     string
	model      string
	maxTokens  int
	httpClient *http.Client
	breaker    *utils.CircuitBreaker

	mutex       sync.RWMutex
	lastSuccess time.Time
	lastError   error
}

// LLMStatus is the health of the model connection
type LLMStatus struct {
	Model       string             `json:"model"`
	Circuit     utils.CircuitStats `json:"circuit"`
	LastSuccess *time.Time         `json:"last_success,omitempty"`
	LastError   string             `json:"last_error,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens,omitempty"`
	Messages  []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewLLMClient creates a model client guarded by a circuit breaker
func NewLLMClient(cfg *config.LLMConfig) *LLMClient {
	return &LLMClient{
		endpoint:  cfg.Endpoint,
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		breaker: utils.NewCircuitBreaker("llm", cfg.MaxFailures, cfg.ResetAfter),
	}
}

// Generate sends the prompt and returns the first completion
func (c *LLMClient) Generate(ctx context.Context, p Prompt) (string, error) {
	var text string
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		text, err = c.complete(ctx, p)
		return err
	})

	c.mutex.Lock()
	defer c.mutex.Unlock()
	if err != nil {
		c.lastError = err
		return "", err
	}
	c.lastSuccess = time.Now()
	c.lastError = nil
	return text, nil
}

func (c *LLMClient) complete(ctx context.Context, p Prompt) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []chatMessage{
			{Role: "system", Content: p.System},
			{Role: "user", Content: p.User},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call model: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read model response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil && resp.StatusCode < 300 {
		return "", fmt.Errorf("failed to decode model response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if parsed.Error != nil && parsed.Error.Message != "" {
			return "", fmt.Errorf("model returned status %d: %s", resp.StatusCode, parsed.Error.Message)
		}
		return "", fmt.Errorf("model returned status %d", resp.StatusCode)
	}

	if len(parsed.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

// Status returns the breaker state and the outcome of the last call
func (c *LLMClient) Status() LLMStatus {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	status := LLMStatus{Model: c.model, Circuit: c.breaker.Stats()}
	if !c.lastSuccess.IsZero() {
		t := c.lastSuccess
		status.LastSuccess = &t
	}
	if c.lastError != nil {
		status.LastError = c.lastError.Error()
	}
	return status
}

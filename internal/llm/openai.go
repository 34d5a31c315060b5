// Package llm talks to an OpenAI-compatible chat completion endpoint.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"crerag/internal/config"
	"crerag/internal/domain"
)

// Client is a chat model backed by go-openai with retries.
type Client struct {
	client     *openai.Client
	model      string
	timeout    time.Duration
	maxRetries int
	baseDelay  time.Duration
	logger     *zap.Logger
}

// NewClient creates a client from configuration. The API key is read from
// the environment variable named by cfg.APIKeyEnv.
func NewClient(cfg config.LLMConfig, logger *zap.Logger) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	return newClient(key, cfg, logger), nil
}

func newClient(key string, cfg config.LLMConfig, logger *zap.Logger) *Client {
	oc := openai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT3Dot5Turbo
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		client:     openai.NewClientWithConfig(oc),
		model:      cfg.Model,
		timeout:    timeout,
		maxRetries: cfg.MaxRetries,
		baseDelay:  200 * time.Millisecond,
		logger:     logger.Named("llm"),
	}
}

var _ domain.ChatModel = (*Client)(nil)

// Complete sends the conversation and returns the assistant's reply.
func (c *Client) Complete(ctx context.Context, messages []domain.Message) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: make([]openai.ChatCompletionMessage, len(messages)),
	}
	for i, m := range messages {
		req.Messages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, c.retryDelay(attempt-1)); err != nil {
				return "", err
			}
		}
		reply, err := c.complete(ctx, req)
		if err == nil {
			return reply, nil
		}
		lastErr = err
		if !retryable(err) || ctx.Err() != nil {
			break
		}
		c.logger.Warn("chat completion failed, retrying", zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return "", fmt.Errorf("chat completion: %w", lastErr)
}

func (c *Client) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// retryDelay is exponential from baseDelay, capped at 5s.
func (c *Client) retryDelay(attempt int) time.Duration {
	d := c.baseDelay << attempt
	if d > 5*time.Second || d <= 0 {
		d = 5 * time.Second
	}
	return d
}

// retryable reports whether a failure is worth another attempt: rate
// limits, server errors and transport failures are; client errors are not.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	default:
		return true
	}
	return status == http.StatusTooManyRequests || status >= 500
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

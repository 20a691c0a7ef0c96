package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"aus-news/config"
)

// Client wraps an OpenAI-compatible chat API for the filter checks and the
// summarizer.
type Client struct {
	client   *openai.Client
	model    string
	maxInput int
	timeout  time.Duration
	logger   *slog.Logger
}

// NewClient creates an AI client from configuration. callTimeout bounds every
// individual completion request.
func NewClient(cfg *config.OpenAIConfig, callTimeout time.Duration, logger *slog.Logger) *Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &Client{
		client:   openai.NewClientWithConfig(clientConfig),
		model:    cfg.Model,
		maxInput: cfg.MaxTokens * 40,
		timeout:  callTimeout,
		logger:   logger,
	}
}

// Complete sends one system+user exchange and returns the trimmed response
// text. maxTokens bounds the completion only; the input is bounded by the
// client-wide cap so oversized scrapes cannot blow the context window.
// Requests are retried with backoff on transport errors and empty responses.
func (c *Client) Complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	if c.maxInput > 0 && len(user) > c.maxInput {
		user = user[:c.maxInput]
	}

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		MaxTokens:   maxTokens,
		Temperature: 0.3,
	}

	const maxRetries = 3
	for i := 0; i < maxRetries; i++ {
		timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
		resp, err := c.client.CreateChatCompletion(timeoutCtx, req)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			if i < maxRetries-1 {
				c.logger.Warn("completion failed, retrying", "attempt", i+1, "error", err)
				time.Sleep(time.Duration(i+1) * 2 * time.Second)
				continue
			}
			return "", fmt.Errorf("create completion: %w", err)
		}

		if len(resp.Choices) == 0 {
			if i < maxRetries-1 {
				c.logger.Warn("empty completion response, retrying", "attempt", i+1)
				time.Sleep(time.Duration(i+1) * 2 * time.Second)
				continue
			}
			return "", fmt.Errorf("completion response has no choices")
		}

		return strings.TrimSpace(resp.Choices[0].Message.Content), nil
	}

	return "", fmt.Errorf("completion retries exhausted")
}

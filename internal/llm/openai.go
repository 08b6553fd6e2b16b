// Copyright 2024 Candidate Screener Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/your-org/candidate-screener/internal/resilience"
	"go.uber.org/zap"
)

// RetryableError represents an error that can be retried
type RetryableError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, e.Message)
}

// RetryDelay lets the backoff loop honour a server supplied delay
func (e *RetryableError) RetryDelay() time.Duration {
	return e.RetryAfter
}

// IsRetryable reports whether err is a transient backend failure
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint
type OpenAIClient struct {
	client  *openai.Client
	logger  *zap.Logger
	model   string
	name    string
	backoff resilience.BackoffConfig
}

// NewOpenAIClient creates a client for OpenAI or Perplexity
func NewOpenAIClient(cfg Config, logger *zap.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	name := string(cfg.Provider)
	if name == "" {
		name = string(ProviderOpenAI)
	}

	return NewOpenAIClientWithConfig(clientConfig, name, cfg.Model, cfg.MaxRetries, cfg.RetryBaseDelay, logger), nil
}

// NewOpenAIClientWithConfig creates a client from a prepared go-openai configuration
func NewOpenAIClientWithConfig(clientConfig openai.ClientConfig, name, model string, maxRetries int, baseDelay time.Duration, logger *zap.Logger) *OpenAIClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if model == "" {
		model = DefaultModel(Provider(name))
	}

	backoff := resilience.DefaultBackoffConfig()
	backoff.MaxRetries = maxRetries
	if baseDelay > 0 {
		backoff.BaseDelay = baseDelay
	}
	backoff.Jitter = false
	backoff.RetryOnFunc = IsRetryable

	client := &OpenAIClient{
		client:  openai.NewClientWithConfig(clientConfig),
		logger:  logger,
		model:   model,
		name:    name,
		backoff: backoff,
	}

	logger.Info("Chat completion client initialized",
		zap.String("provider", name),
		zap.String("model", model),
		zap.String("base_url", clientConfig.BaseURL),
		zap.Int("max_retries", maxRetries),
	)

	return client
}

// Name implements Client
func (c *OpenAIClient) Name() string {
	return c.name
}

// Model implements Client
func (c *OpenAIClient) Model() string {
	return c.model
}

// Complete creates a chat completion with retry on rate limits and server errors
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (*Response, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.UserPrompt,
	})

	openaiReq := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}

	c.logger.Debug("Creating chat completion",
		zap.String("provider", c.name),
		zap.String("model", c.model),
		zap.Int("max_tokens", req.MaxTokens),
		zap.Float64("temperature", float64(req.Temperature)),
		zap.String("prompt_preview", truncateText(req.UserPrompt, 100)),
	)

	var resp openai.ChatCompletionResponse
	err := resilience.WithExponentialBackoff(ctx, c.logger, c.backoff, func(ctx context.Context) error {
		var callErr error
		resp, callErr = c.client.CreateChatCompletion(ctx, openaiReq)
		if callErr != nil {
			return c.handleAPIError(callErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned from %s: %w", c.name, ErrEmptyResponse)
	}

	c.logger.Debug("Chat completion successful",
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)

	return &Response{
		Content:          resp.Choices[0].Message.Content,
		FinishReason:     string(resp.Choices[0].FinishReason),
		Model:            resp.Model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// handleAPIError classifies API errors into retryable and permanent failures
func (c *OpenAIClient) handleAPIError(err error) error {
	status := 0
	message := err.Error()

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
		message = apiErr.Message
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	default:
		return fmt.Errorf("%s client error: %w", c.name, err)
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("invalid API key or unauthorized access: %w", err)
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		c.logger.Warn("Retryable error from chat completion API",
			zap.String("provider", c.name),
			zap.Int("status_code", status),
			zap.String("message", message),
		)
		return &RetryableError{StatusCode: status, Message: message}
	default:
		return fmt.Errorf("%s API error (status %d): %s", c.name, status, message)
	}
}

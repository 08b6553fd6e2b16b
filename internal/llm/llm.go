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

// Package llm provides text-generation backends behind a single Client
// interface. OpenAI-compatible endpoints (OpenAI, Perplexity, local gateways),
// Anthropic and Gemini are supported.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Provider identifies a text-generation service
type Provider string

const (
	// ProviderPerplexity targets the Perplexity chat completions API
	ProviderPerplexity Provider = "perplexity"
	// ProviderOpenAI targets the OpenAI chat completions API
	ProviderOpenAI Provider = "openai"
	// ProviderAnthropic targets the Anthropic messages API
	ProviderAnthropic Provider = "anthropic"
	// ProviderGemini targets the Gemini API
	ProviderGemini Provider = "gemini"
)

const (
	// DefaultMaxRetries keeps one backend request per generation.
	// Retries on transient failures are opt-in.
	DefaultMaxRetries = 0
	// DefaultRetryBaseDelay is the first backoff delay between retries
	DefaultRetryBaseDelay = time.Second
)

var (
	// ErrMissingAPIKey is returned when no credential is configured
	ErrMissingAPIKey = errors.New("API key is required")
	// ErrUnsupportedProvider is returned for unknown provider names
	ErrUnsupportedProvider = errors.New("unsupported provider")
	// ErrEmptyResponse is returned when the service replies without text
	ErrEmptyResponse = errors.New("empty response from model")
)

// Request is a single-turn completion request
type Request struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float32
	MaxTokens    int
}

// Response carries the generated text of a completion
type Response struct {
	Content          string
	FinishReason     string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// Client is implemented by every backend
type Client interface {
	// Complete sends one request and returns the generated text
	Complete(ctx context.Context, req Request) (*Response, error)
	// Name identifies the backend for logging and metrics
	Name() string
	// Model returns the model identifier sent with each request
	Model() string
}

// Config selects and configures a backend
type Config struct {
	Provider       Provider
	APIKey         string
	BaseURL        string
	Model          string
	MaxRetries     int
	RetryBaseDelay time.Duration
}

// ParseProvider converts a configuration string into a Provider
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case ProviderPerplexity, ProviderOpenAI, ProviderAnthropic, ProviderGemini:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedProvider, s)
	}
}

// Providers lists the supported provider names
func Providers() []string {
	return []string{
		string(ProviderPerplexity),
		string(ProviderOpenAI),
		string(ProviderAnthropic),
		string(ProviderGemini),
	}
}

// DefaultModel returns the model used when none is configured
func DefaultModel(p Provider) string {
	switch p {
	case ProviderOpenAI:
		return "gpt-4o-mini"
	case ProviderAnthropic:
		return "claude-sonnet-4-20250514"
	case ProviderGemini:
		return "gemini-2.5-flash"
	default:
		return "sonar"
	}
}

// DefaultBaseURL returns the endpoint used when none is configured.
// An empty string means the SDK default.
func DefaultBaseURL(p Provider) string {
	switch p {
	case ProviderPerplexity:
		return "https://api.perplexity.ai"
	case ProviderOpenAI:
		return "https://api.openai.com/v1"
	default:
		return ""
	}
}

// New creates the backend selected by cfg.Provider
func New(cfg Config, logger *zap.Logger) (Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel(cfg.Provider)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL(cfg.Provider)
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	switch cfg.Provider {
	case ProviderPerplexity, ProviderOpenAI:
		return NewOpenAIClient(cfg, logger)
	case ProviderAnthropic:
		return NewAnthropicClient(cfg, logger)
	case ProviderGemini:
		return NewGeminiClient(cfg, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, cfg.Provider)
	}
}

// truncateText truncates text to a maximum length for logging
func truncateText(text string, maxLength int) string {
	if len(text) <= maxLength {
		return text
	}
	return text[:maxLength] + "..."
}

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

package questions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/your-org/candidate-screener/internal/llm"
	"github.com/your-org/candidate-screener/internal/resilience"
	"go.uber.org/zap"
)

// Source records where a question set came from
type Source string

const (
	// SourceModel means the questions were parsed from the model reply
	SourceModel Source = "model"
	// SourceFallback means the fixed fallback set was substituted
	SourceFallback Source = "fallback"
)

var (
	// ErrNoClient is reported when the generator has no backend
	ErrNoClient = errors.New("no text generation client configured")
	// ErrNoQuestions is reported when the reply had no numbered lines
	ErrNoQuestions = errors.New("no numbered questions in model reply")
)

// Result is the outcome of a generation attempt. Questions is always
// populated; Err explains why the fallback was used.
type Result struct {
	Questions []string
	Source    Source
	Err       error
}

// Fallback reports whether the fixed question set was substituted
func (r Result) Fallback() bool {
	return r.Source == SourceFallback
}

// Observer is notified after every generation attempt
type Observer func(result Result, elapsed time.Duration)

// Option configures a Generator
type Option func(*Generator)

// WithTimeout bounds each completion call
func WithTimeout(timeout time.Duration) Option {
	return func(g *Generator) {
		g.timeout = timeout
	}
}

// WithCircuitBreaker short-circuits calls while the backend keeps failing
func WithCircuitBreaker(cb *resilience.CircuitBreaker) Option {
	return func(g *Generator) {
		g.breaker = cb
	}
}

// WithMaxTokens caps the reply length
func WithMaxTokens(maxTokens int) Option {
	return func(g *Generator) {
		if maxTokens > 0 {
			g.maxTokens = maxTokens
		}
	}
}

// WithObserver registers a callback for metrics
func WithObserver(observer Observer) Option {
	return func(g *Generator) {
		g.observer = observer
	}
}

// Generator produces interview questions for a tech stack
type Generator struct {
	client    llm.Client
	breaker   *resilience.CircuitBreaker
	timeout   time.Duration
	maxTokens int
	observer  Observer
	logger    *zap.Logger
}

// NewGenerator creates a generator backed by client
func NewGenerator(client llm.Client, logger *zap.Logger, opts ...Option) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}

	g := &Generator{
		client:    client,
		timeout:   resilience.DefaultTimeoutSeconds * time.Second,
		maxTokens: DefaultMaxTokens,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns up to five questions for techStack. It never fails:
// errors are logged and the fallback set is returned instead.
func (g *Generator) Generate(ctx context.Context, techStack []string) Result {
	start := time.Now()
	result := g.generate(ctx, techStack)

	if result.Err != nil {
		g.logger.Warn("Question generation failed, using fallback questions",
			zap.Error(result.Err),
			zap.Strings("tech_stack", techStack))
	} else {
		g.logger.Info("Generated technical questions",
			zap.Int("count", len(result.Questions)),
			zap.Duration("elapsed", time.Since(start)))
	}

	if g.observer != nil {
		g.observer(result, time.Since(start))
	}
	return result
}

func (g *Generator) generate(ctx context.Context, techStack []string) Result {
	if g == nil || g.client == nil {
		return fallback(techStack, ErrNoClient)
	}

	req := llm.Request{
		SystemPrompt: SystemPrompt,
		UserPrompt:   BuildPrompt(techStack),
		Temperature:  Temperature,
		MaxTokens:    g.maxTokens,
	}

	var resp *llm.Response
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		return resilience.WithTimeout(ctx, g.timeout, g.logger, func(ctx context.Context) error {
			var callErr error
			resp, callErr = g.client.Complete(ctx, req)
			return callErr
		})
	})
	if err != nil {
		return fallback(techStack, fmt.Errorf("%s completion failed: %w", g.client.Name(), err))
	}

	questions := ParseQuestions(resp.Content)
	if len(questions) == 0 {
		return fallback(techStack, ErrNoQuestions)
	}

	return Result{Questions: questions, Source: SourceModel}
}

func fallback(techStack []string, err error) Result {
	return Result{
		Questions: FallbackQuestions(techStack),
		Source:    SourceFallback,
		Err:       err,
	}
}

// Breaker exposes the circuit breaker for health reporting, nil if none
func (g *Generator) Breaker() *resilience.CircuitBreaker {
	return g.breaker
}

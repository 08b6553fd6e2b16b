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

package main

import (
	"context"
	"fmt"

	"github.com/your-org/candidate-screener/internal/config"
	"github.com/your-org/candidate-screener/internal/conversation"
	"github.com/your-org/candidate-screener/internal/llm"
	"github.com/your-org/candidate-screener/internal/metrics"
	"github.com/your-org/candidate-screener/internal/questions"
	"github.com/your-org/candidate-screener/internal/resilience"
	"github.com/your-org/candidate-screener/internal/screening"
	"github.com/your-org/candidate-screener/internal/session"
	"github.com/your-org/candidate-screener/internal/techstack"
	"go.uber.org/zap"
)

// app holds the wired components shared by serve and chat
type app struct {
	config        *config.Config
	logger        *zap.Logger
	client        llm.Client
	breaker       *resilience.CircuitBreaker
	recorder      *metrics.Recorder
	sessions      *session.Manager
	conversations *conversation.Manager
}

// buildApp creates the configured backend and wires the application around it
func buildApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	client, err := llm.New(cfg.LLMClientConfig(), logger.Named("llm"))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", cfg.LLM.Provider, err)
	}
	return newApp(cfg, client, logger)
}

// newApp wires the application around client. A nil client serves only
// fallback questions.
func newApp(cfg *config.Config, client llm.Client, logger *zap.Logger) (*app, error) {
	recorder := metrics.NewRecorder()

	var breaker *resilience.CircuitBreaker
	if cbConfig, ok := cfg.BreakerConfig(); ok {
		breaker = resilience.NewCircuitBreaker(cbConfig, logger.Named("circuit_breaker"))
		recorder.RegisterCircuitBreaker(breaker)
	}

	generator := questions.NewGenerator(client, logger.Named("questions"),
		questions.WithTimeout(cfg.LLM.Timeout),
		questions.WithMaxTokens(cfg.LLM.MaxTokens),
		questions.WithCircuitBreaker(breaker),
		questions.WithObserver(recorder.Observer()),
	)

	engine := screening.NewEngine(generator, logger.Named("screening"),
		screening.WithExitMatch(screening.ExitMatch(cfg.Screening.ExitMatch)),
		screening.WithTechStackParser(techstack.NewParser(techstack.WithKnownOnly(cfg.Screening.KnownTechOnly))),
	)

	sessions, err := session.NewManager(cfg.SessionManagerConfig(), logger.Named("session"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session manager: %w", err)
	}
	recorder.RegisterSessionGauge(func() float64 {
		n, err := sessions.Count(context.Background())
		if err != nil {
			return 0
		}
		return float64(n)
	})

	conversations := conversation.NewManager(sessions, engine, logger.Named("conversation"),
		conversation.WithRecorder(recorder))

	return &app{
		config:        cfg,
		logger:        logger,
		client:        client,
		breaker:       breaker,
		recorder:      recorder,
		sessions:      sessions,
		conversations: conversations,
	}, nil
}

// providerInfo returns the backend name and model for logs and health
func (a *app) providerInfo() (string, string) {
	if a.client == nil {
		return "none", ""
	}
	return a.client.Name(), a.client.Model()
}

// Close stops background work
func (a *app) Close() error {
	return a.sessions.Close()
}

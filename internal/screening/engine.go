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

// Package screening implements the candidate screening conversation: a
// fixed sequence of stages that collect and validate contact details,
// gather a tech stack and present generated interview questions.
package screening

import (
	"context"
	"strings"
	"unicode"

	"github.com/your-org/candidate-screener/internal/candidate"
	"github.com/your-org/candidate-screener/internal/questions"
	"github.com/your-org/candidate-screener/internal/techstack"
	"github.com/your-org/candidate-screener/internal/validation"
	"go.uber.org/zap"
)

// ExitMatch selects how exit keywords are detected in user input
type ExitMatch string

const (
	// ExitMatchSubstring triggers on a keyword anywhere in the input,
	// including inside longer words ("frontend" contains "end")
	ExitMatchSubstring ExitMatch = "substring"
	// ExitMatchWord triggers only on a keyword standing as its own word
	ExitMatchWord ExitMatch = "word"
)

// ExitKeywords end the conversation from any non-terminal stage
var ExitKeywords = []string{
	"quit", "exit", "bye", "goodbye", "end", "stop",
	"terminate", "close", "finish", "done",
}

const moreKeyword = "more"

// QuestionSource generates interview questions for a tech stack
type QuestionSource interface {
	Generate(ctx context.Context, techStack []string) questions.Result
}

// Option configures an Engine
type Option func(*Engine)

// WithExitMatch sets the exit keyword matching mode
func WithExitMatch(mode ExitMatch) Option {
	return func(e *Engine) {
		if mode == ExitMatchWord {
			e.exitMatch = ExitMatchWord
		}
	}
}

// WithTechStackParser replaces the default tech stack parser
func WithTechStackParser(p *techstack.Parser) Option {
	return func(e *Engine) {
		if p != nil {
			e.parser = p
		}
	}
}

// Engine drives one turn of the screening conversation at a time. It holds
// no per-session state and may be shared across sessions.
type Engine struct {
	generator QuestionSource
	parser    *techstack.Parser
	exitMatch ExitMatch
	logger    *zap.Logger
}

// NewEngine creates an engine that uses generator for interview questions
func NewEngine(generator QuestionSource, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Engine{
		generator: generator,
		parser:    techstack.NewParser(),
		exitMatch: ExitMatchSubstring,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Greeting returns the opening message. The conversation then waits in
// StageCollectName.
func (e *Engine) Greeting() string {
	return greetingMessage
}

// GoodbyeMessage is shown when the candidate ends the conversation early
func (e *Engine) GoodbyeMessage() string {
	return goodbyeMessage
}

// ExitRequested reports whether input asks to end the conversation
func (e *Engine) ExitRequested(input string) bool {
	text := strings.ToLower(strings.TrimSpace(input))
	if text == "" {
		return false
	}

	if e.exitMatch == ExitMatchWord {
		words := strings.FieldsFunc(text, func(r rune) bool {
			return !unicode.IsLetter(r)
		})
		for _, w := range words {
			for _, kw := range ExitKeywords {
				if w == kw {
					return true
				}
			}
		}
		return false
	}

	for _, kw := range ExitKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// ProcessStage handles one candidate message at stage, writing accepted
// answers into data. It returns the reply and the next stage. Invalid input
// never fails: the reply is a reprompt and the stage is unchanged.
func (e *Engine) ProcessStage(ctx context.Context, stage Stage, input string, data *candidate.Data) (string, Stage) {
	if data == nil {
		data = candidate.New()
	}

	if !stage.IsTerminal() && e.ExitRequested(input) {
		e.logger.Debug("Exit requested", zap.String("stage", string(stage)))
		return goodbyeMessage, StageConclusion
	}

	answer := strings.TrimSpace(input)

	switch stage {
	case StageCollectName:
		if !validation.ValidateName(answer) {
			return invalidName, stage
		}
		data.SetName(answer)
		return nameAccepted(answer), StageCollectEmail

	case StageCollectEmail:
		if !validation.ValidateEmail(answer) {
			return invalidEmail, stage
		}
		data.SetEmail(answer)
		return emailAccepted, StageCollectPhone

	case StageCollectPhone:
		if !validation.ValidatePhone(answer) {
			return invalidPhone, stage
		}
		data.SetPhone(answer)
		return phoneAccepted, StageCollectExperience

	case StageCollectExperience:
		years, ok := validation.ParseExperience(answer)
		if !ok {
			return invalidExperience, stage
		}
		data.SetExperience(years)
		return experienceAccepted, StageCollectPosition

	case StageCollectPosition:
		data.SetPosition(answer)
		return positionAccepted, StageCollectLocation

	case StageCollectLocation:
		data.SetLocation(answer)
		return techStackPrompt, StageCollectTechStack

	case StageCollectTechStack:
		stack := e.parser.Parse(input)
		data.SetTechStack(stack)

		result := e.generate(ctx, stack)
		data.SetQuestions(result.Questions)

		e.logger.Info("Tech stack collected",
			zap.Strings("tech_stack", stack),
			zap.String("question_source", string(result.Source)))

		return questionsMessage(stack, result.Questions), StageTechnicalQuestions

	case StageTechnicalQuestions:
		if strings.Contains(strings.ToLower(answer), moreKeyword) {
			// displayed only, the stored question set is unchanged
			result := e.generate(ctx, data.TechStack)
			return moreQuestionsMessage(result.Questions), StageTechnicalQuestions
		}
		return SummaryMessage(data), StageConclusion
	}

	e.logger.Debug("No handler for stage", zap.String("stage", string(stage)))
	return Reprompt(stage), stage
}

func (e *Engine) generate(ctx context.Context, techStack []string) questions.Result {
	if e.generator == nil {
		return questions.Result{
			Questions: questions.FallbackQuestions(techStack),
			Source:    questions.SourceFallback,
			Err:       questions.ErrNoClient,
		}
	}
	return e.generator.Generate(ctx, techStack)
}

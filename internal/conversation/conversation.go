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

// Package conversation runs screening sessions: it feeds candidate messages
// through the screening engine, keeps the transcript and exposes the result
// over a REST API.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/your-org/candidate-screener/internal/candidate"
	"github.com/your-org/candidate-screener/internal/screening"
	"github.com/your-org/candidate-screener/internal/session"
	"go.uber.org/zap"
)

var (
	// ErrSessionConcluded is returned when input arrives after the conclusion
	ErrSessionConcluded = errors.New("screening session has concluded")
	// ErrEmptyMessage is returned for blank candidate input
	ErrEmptyMessage = errors.New("message cannot be empty")
)

// Outcome describes how a turn ended the conversation, if it did
type Outcome string

const (
	// OutcomeContinued means the conversation is still running
	OutcomeContinued Outcome = "continued"
	// OutcomeCompleted means the candidate reached the summary
	OutcomeCompleted Outcome = "completed"
	// OutcomeExited means the candidate ended the conversation early
	OutcomeExited Outcome = "exited"
)

// Recorder receives conversation events, typically for metrics
type Recorder interface {
	SessionStarted()
	TurnProcessed(from, to screening.Stage, elapsed time.Duration)
	SessionEnded(outcome Outcome)
}

type nopRecorder struct{}

func (nopRecorder) SessionStarted()                                     {}
func (nopRecorder) TurnProcessed(_, _ screening.Stage, _ time.Duration) {}
func (nopRecorder) SessionEnded(_ Outcome)                              {}

// Turn is the assistant's answer to one candidate message
type Turn struct {
	SessionID string          `json:"session_id"`
	Reply     string          `json:"reply"`
	Stage     screening.Stage `json:"stage"`
	Status    session.Status  `json:"status"`
	Outcome   Outcome         `json:"outcome"`
}

// Option configures a Manager
type Option func(*Manager)

// WithRecorder registers a recorder for conversation events
func WithRecorder(r Recorder) Option {
	return func(m *Manager) {
		if r != nil {
			m.recorder = r
		}
	}
}

// Manager serialises turns per session and persists their results
type Manager struct {
	sessions *session.Manager
	engine   *screening.Engine
	recorder Recorder
	logger   *zap.Logger

	mu    sync.Mutex
	locks map[string]*sessionLock
}

// sessionLock is dropped from the map once no turn holds or waits on it
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// NewManager creates a conversation manager
func NewManager(sessions *session.Manager, engine *screening.Engine, logger *zap.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Manager{
		sessions: sessions,
		engine:   engine,
		recorder: nopRecorder{},
		logger:   logger,
		locks:    make(map[string]*sessionLock),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// lock serialises work on one session and returns the unlock func
func (m *Manager) lock(sessionID string) func() {
	m.mu.Lock()
	l, ok := m.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		m.locks[sessionID] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, sessionID)
		}
		m.mu.Unlock()
	}
}

// Start opens a new screening session and returns the greeting
func (m *Manager) Start(ctx context.Context) (*Turn, error) {
	sess, err := m.sessions.CreateSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start screening: %w", err)
	}

	turn := m.greet(sess)
	if err := m.sessions.UpdateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save greeting: %w", err)
	}

	m.recorder.SessionStarted()
	m.logger.Info("Screening started", zap.String("session_id", sess.ID))

	return turn, nil
}

// greet emits the greeting and moves the session to the first question
func (m *Manager) greet(sess *session.Session) *Turn {
	greeting := m.engine.Greeting()
	sess.AddMessage(m.sessions.NewMessage(session.AssistantRole, greeting, screening.StageGreeting))
	sess.Stage = screening.StageCollectName

	return &Turn{
		SessionID: sess.ID,
		Reply:     greeting,
		Stage:     sess.Stage,
		Status:    sess.Status,
		Outcome:   OutcomeContinued,
	}
}

// Reply processes one candidate message
func (m *Manager) Reply(ctx context.Context, sessionID, input string) (*Turn, error) {
	unlock := m.lock(sessionID)
	defer unlock()

	sess, err := m.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if sess.Status == session.StatusConcluded || sess.Stage.IsTerminal() {
		return nil, ErrSessionConcluded
	}

	input = session.SanitizeUserInput(input)
	if input == "" {
		return nil, ErrEmptyMessage
	}

	start := time.Now()
	from := sess.Stage
	exiting := m.engine.ExitRequested(input)

	sess.AddMessage(m.sessions.NewMessage(session.UserRole, input, from))
	reply, next := m.engine.ProcessStage(ctx, from, input, sess.Candidate)
	sess.AddMessage(m.sessions.NewMessage(session.AssistantRole, reply, next))
	sess.Stage = next

	outcome := OutcomeContinued
	if next.IsTerminal() {
		sess.Status = session.StatusConcluded
		outcome = OutcomeCompleted
		if exiting {
			outcome = OutcomeExited
		}
	}

	if err := m.sessions.UpdateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save turn: %w", err)
	}

	elapsed := time.Since(start)
	m.recorder.TurnProcessed(from, next, elapsed)
	if outcome != OutcomeContinued {
		m.recorder.SessionEnded(outcome)
		m.logger.Info("Screening concluded",
			zap.String("session_id", sessionID),
			zap.String("outcome", string(outcome)),
			zap.Strings("missing_fields", fieldNames(sess.Candidate.Missing())))
	}

	m.logger.Debug("Processed turn",
		zap.String("session_id", sessionID),
		zap.String("from", string(from)),
		zap.String("to", string(next)),
		zap.Duration("elapsed", elapsed))

	return &Turn{
		SessionID: sessionID,
		Reply:     reply,
		Stage:     next,
		Status:    sess.Status,
		Outcome:   outcome,
	}, nil
}

// Restart discards collected data and starts the screening over
func (m *Manager) Restart(ctx context.Context, sessionID string) (*Turn, error) {
	unlock := m.lock(sessionID)
	defer unlock()

	sess, err := m.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	sess.Reset()
	turn := m.greet(sess)

	if err := m.sessions.UpdateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to restart screening: %w", err)
	}

	m.recorder.SessionStarted()
	m.logger.Info("Screening restarted",
		zap.String("session_id", sessionID),
		zap.Int("restarts", sess.Restarts))

	return turn, nil
}

// Get returns the full state of a session
func (m *Manager) Get(ctx context.Context, sessionID string) (*View, error) {
	sess, err := m.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return NewView(sess), nil
}

// List summarises every session, oldest first
func (m *Manager) List(ctx context.Context) ([]Summary, error) {
	sessions, err := m.sessions.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list screenings: %w", err)
	}

	summaries := make([]Summary, 0, len(sessions))
	for _, sess := range sessions {
		summaries = append(summaries, NewSummary(sess))
	}
	return summaries, nil
}

// Candidate returns the structured record collected so far
func (m *Manager) Candidate(ctx context.Context, sessionID string) (*CandidateExport, error) {
	sess, err := m.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return NewCandidateExport(sess), nil
}

// Delete removes a session
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	unlock := m.lock(sessionID)
	defer unlock()

	if err := m.sessions.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	return nil
}

// load fetches a session, treating expired sessions as gone
func (m *Manager) load(ctx context.Context, sessionID string) (*session.Session, error) {
	if !session.ValidateSessionID(sessionID) {
		return nil, fmt.Errorf("%w: invalid id %q", session.ErrSessionNotFound, sessionID)
	}

	return m.sessions.GetSession(ctx, sessionID)
}

func fieldNames(fields []candidate.Field) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return names
}

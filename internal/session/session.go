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

// Package session keeps screening sessions in memory: the current stage, the
// collected candidate data and the conversation transcript. Sessions expire
// after a period of inactivity.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/your-org/candidate-screener/internal/candidate"
	"github.com/your-org/candidate-screener/internal/screening"
	"go.uber.org/zap"
)

// StorageType represents the type of storage backend for sessions
type StorageType string

const (
	// MemoryStorageType uses in-memory storage for sessions
	MemoryStorageType StorageType = "memory"
)

var (
	// ErrSessionNotFound is returned for unknown or evicted sessions
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired is returned when a session outlived its TTL
	ErrSessionExpired = errors.New("session expired")
)

// Config holds configuration for session management
type Config struct {
	StorageType     StorageType   `json:"storage_type"`
	DefaultTTL      time.Duration `json:"default_ttl"`
	MaxSessions     int           `json:"max_sessions"`
	CleanupInterval time.Duration `json:"cleanup_interval"`
	TokenizerModel  string        `json:"tokenizer_model"`
}

// DefaultConfig returns default session configuration
func DefaultConfig() Config {
	return Config{
		StorageType:     MemoryStorageType,
		DefaultTTL:      30 * time.Minute,
		MaxSessions:     1000,
		CleanupInterval: 5 * time.Minute,
	}
}

// Status represents the lifecycle state of a session
type Status string

const (
	// StatusActive accepts candidate input
	StatusActive Status = "active"
	// StatusConcluded finished normally or by an exit request
	StatusConcluded Status = "concluded"
	// StatusExpired outlived its TTL
	StatusExpired Status = "expired"
)

// Session is one candidate's screening conversation
type Session struct {
	ID         string          `json:"id"`
	Stage      screening.Stage `json:"stage"`
	Status     Status          `json:"status"`
	Candidate  *candidate.Data `json:"-"`
	Messages   []Message       `json:"messages"`
	TokenCount int             `json:"token_count"`
	Restarts   int             `json:"restarts"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	ExpiresAt  time.Time       `json:"expires_at"`
}

// Clone returns a deep copy of the session
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Candidate = s.Candidate.Clone()
	c.Messages = make([]Message, len(s.Messages))
	copy(c.Messages, s.Messages)
	return &c
}

// AddMessage appends a message to the transcript
func (s *Session) AddMessage(msg Message) {
	s.Messages = append(s.Messages, msg)
	s.TokenCount += msg.TokenCount
}

// Reset returns the session to a fresh conversation, keeping its ID
func (s *Session) Reset() {
	s.Stage = screening.StageGreeting
	s.Status = StatusActive
	s.Candidate = candidate.New()
	s.Messages = []Message{}
	s.TokenCount = 0
	s.Restarts++
}

// Message is a single turn of the transcript
type Message struct {
	ID         string          `json:"id"`
	Role       MessageRole     `json:"role"`
	Content    string          `json:"content"`
	Stage      screening.Stage `json:"stage"`
	Timestamp  time.Time       `json:"timestamp"`
	TokenCount int             `json:"token_count"`
}

// MessageRole represents the role of a message sender
type MessageRole string

const (
	// UserRole indicates a message from the candidate
	UserRole MessageRole = "user"
	// AssistantRole indicates a message from the assistant
	AssistantRole MessageRole = "assistant"
)

// Storage defines the interface for session storage backends
type Storage interface {
	// Get retrieves a session by ID
	Get(ctx context.Context, sessionID string) (*Session, error)
	// Set stores a session
	Set(ctx context.Context, session *Session) error
	// Delete removes a session
	Delete(ctx context.Context, sessionID string) error
	// List returns every stored session
	List(ctx context.Context) ([]*Session, error)
	// Count returns the number of stored sessions
	Count(ctx context.Context) (int, error)
	// Cleanup removes expired sessions and reports how many were removed
	Cleanup(ctx context.Context, now time.Time) (int, error)
	// Close closes the storage backend
	Close() error
}

// Stats summarises the sessions currently held
type Stats struct {
	StorageType StorageType `json:"storage_type"`
	Total       int         `json:"total"`
	Active      int         `json:"active"`
	Concluded   int         `json:"concluded"`
	MaxSessions int         `json:"max_sessions"`
	DefaultTTL  string      `json:"default_ttl"`
}

// Manager handles session lifecycle and storage operations
type Manager struct {
	storage  Storage
	config   Config
	counter  *TokenCounter
	logger   *zap.Logger
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewManager creates a session manager and starts the expiry cleanup loop
func NewManager(config Config, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.StorageType == "" {
		config.StorageType = MemoryStorageType
	}

	var storage Storage
	switch config.StorageType {
	case MemoryStorageType:
		storage = NewMemoryStorage(config.MaxSessions)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", config.StorageType)
	}

	return NewManagerWithStorage(config, storage, logger), nil
}

// NewManagerWithStorage creates a session manager over an existing backend
func NewManagerWithStorage(config Config, storage Storage, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = DefaultConfig().DefaultTTL
	}

	counter, err := NewTokenCounter(config.TokenizerModel)
	if err != nil {
		logger.Warn("Tokenizer unavailable, estimating token counts", zap.Error(err))
	}

	manager := &Manager{
		storage: storage,
		config:  config,
		counter: counter,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}

	if config.CleanupInterval > 0 {
		manager.wg.Add(1)
		go manager.cleanupLoop()
	}

	return manager
}

// CreateSession stores a new session positioned at the greeting stage
func (m *Manager) CreateSession(ctx context.Context) (*Session, error) {
	now := time.Now()

	session := &Session{
		ID:        GenerateSessionID(),
		Stage:     screening.StageGreeting,
		Status:    StatusActive,
		Candidate: candidate.New(),
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(m.config.DefaultTTL),
	}

	if err := m.storage.Set(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	m.logger.Info("Created new session", zap.String("session_id", session.ID))

	return session, nil
}

// GetSession retrieves a session by ID. Sessions past their expiry are
// reported with ErrSessionExpired.
func (m *Manager) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	session, err := m.storage.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if IsExpired(session) {
		session.Status = StatusExpired
		return session, ErrSessionExpired
	}

	return session, nil
}

// UpdateSession saves session and extends its expiry
func (m *Manager) UpdateSession(ctx context.Context, session *Session) error {
	now := time.Now()
	session.UpdatedAt = now
	if session.Status == StatusActive {
		session.ExpiresAt = now.Add(m.config.DefaultTTL)
	}

	if err := m.storage.Set(ctx, session); err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	return nil
}

// NewMessage builds a transcript entry with its token count
func (m *Manager) NewMessage(role MessageRole, content string, stage screening.Stage) Message {
	return Message{
		ID:         GenerateMessageID(),
		Role:       role,
		Content:    content,
		Stage:      stage,
		Timestamp:  time.Now(),
		TokenCount: m.counter.CountTokens(content),
	}
}

// ListSessions returns all sessions, oldest first
func (m *Manager) ListSessions(ctx context.Context) ([]*Session, error) {
	sessions, err := m.storage.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	now := time.Now()
	for _, s := range sessions {
		if s.ExpiresAt.Before(now) {
			s.Status = StatusExpired
		}
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
	return sessions, nil
}

// DeleteSession removes a session
func (m *Manager) DeleteSession(ctx context.Context, sessionID string) error {
	if err := m.storage.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	m.logger.Info("Deleted session", zap.String("session_id", sessionID))
	return nil
}

// Count returns the number of stored sessions
func (m *Manager) Count(ctx context.Context) (int, error) {
	return m.storage.Count(ctx)
}

// cleanupLoop runs periodic cleanup of expired sessions
func (m *Manager) cleanupLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanup()
		case <-m.stopCh:
			return
		}
	}
}

func (m *Manager) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	removed, err := m.storage.Cleanup(ctx, time.Now())
	if err != nil {
		m.logger.Error("Failed to cleanup expired sessions", zap.Error(err))
		return
	}
	if removed > 0 {
		m.logger.Info("Removed expired sessions", zap.Int("count", removed))
	}
}

// Close stops the cleanup loop and closes the storage. It is safe to call
// more than once.
func (m *Manager) Close() error {
	var err error
	m.stopOnce.Do(func() {
		close(m.stopCh)
		m.wg.Wait()

		if closeErr := m.storage.Close(); closeErr != nil {
			err = fmt.Errorf("failed to close storage: %w", closeErr)
		}
	})
	return err
}

// GetStats returns session statistics
func (m *Manager) GetStats(ctx context.Context) (Stats, error) {
	sessions, err := m.ListSessions(ctx)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{
		StorageType: m.config.StorageType,
		Total:       len(sessions),
		MaxSessions: m.config.MaxSessions,
		DefaultTTL:  m.config.DefaultTTL.String(),
	}
	for _, s := range sessions {
		switch s.Status {
		case StatusActive:
			stats.Active++
		case StatusConcluded:
			stats.Concluded++
		}
	}

	return stats, nil
}

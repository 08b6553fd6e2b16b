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

package session

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStorage provides in-memory session storage with LRU eviction.
// Sessions are copied on the way in and out so callers never share state.
type MemoryStorage struct {
	sessions    map[string]*Session
	accessTime  map[string]time.Time
	maxSessions int
	mutex       sync.Mutex
}

// NewMemoryStorage creates a new in-memory session storage. A non-positive
// maxSessions disables eviction.
func NewMemoryStorage(maxSessions int) *MemoryStorage {
	return &MemoryStorage{
		sessions:    make(map[string]*Session),
		accessTime:  make(map[string]time.Time),
		maxSessions: maxSessions,
	}
}

// Get retrieves a session by ID
func (m *MemoryStorage) Get(_ context.Context, sessionID string) (*Session, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	session, exists := m.sessions[sessionID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	m.accessTime[sessionID] = time.Now()
	return session.Clone(), nil
}

// Set stores a copy of session
func (m *MemoryStorage) Set(_ context.Context, session *Session) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("session ID is required")
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.sessions[session.ID]; !exists && m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		m.evictOldestSession()
	}

	m.sessions[session.ID] = session.Clone()
	m.accessTime[session.ID] = time.Now()

	return nil
}

// Delete removes a session
func (m *MemoryStorage) Delete(_ context.Context, sessionID string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.sessions[sessionID]; !exists {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	delete(m.sessions, sessionID)
	delete(m.accessTime, sessionID)

	return nil
}

// List returns copies of every stored session
func (m *MemoryStorage) List(_ context.Context) ([]*Session, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	sessions := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, session.Clone())
	}

	return sessions, nil
}

// Count returns the number of stored sessions
func (m *MemoryStorage) Count(_ context.Context) (int, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.sessions), nil
}

// Cleanup removes sessions that expired before now
func (m *MemoryStorage) Cleanup(_ context.Context, now time.Time) (int, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	removed := 0
	for sessionID, session := range m.sessions {
		if session.ExpiresAt.Before(now) {
			delete(m.sessions, sessionID)
			delete(m.accessTime, sessionID)
			removed++
		}
	}

	return removed, nil
}

// Close drops all sessions
func (m *MemoryStorage) Close() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.sessions = make(map[string]*Session)
	m.accessTime = make(map[string]time.Time)

	return nil
}

// evictOldestSession removes the least recently used session. Callers hold
// the mutex.
func (m *MemoryStorage) evictOldestSession() {
	var oldestSessionID string
	var oldestTime time.Time

	for sessionID, accessTime := range m.accessTime {
		if oldestSessionID == "" || accessTime.Before(oldestTime) {
			oldestSessionID = sessionID
			oldestTime = accessTime
		}
	}

	if oldestSessionID != "" {
		delete(m.sessions, oldestSessionID)
		delete(m.accessTime, oldestSessionID)
	}
}

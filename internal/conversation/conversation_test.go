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

package conversation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/candidate-screener/internal/candidate"
	"github.com/your-org/candidate-screener/internal/questions"
	"github.com/your-org/candidate-screener/internal/screening"
	"github.com/your-org/candidate-screener/internal/session"
	"go.uber.org/zap/zaptest"
)

// stubSource returns fixed questions
type stubSource struct{}

func (stubSource) Generate(_ context.Context, techStack []string) questions.Result {
	qs := make([]string, 0, len(techStack))
	for _, tech := range techStack {
		qs = append(qs, "How do you test "+tech+" code?")
	}
	return questions.Result{Questions: qs, Source: questions.SourceModel}
}

// fakeRecorder counts conversation events
type fakeRecorder struct {
	mu       sync.Mutex
	started  int
	turns    int
	outcomes []Outcome
}

func (r *fakeRecorder) SessionStarted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
}

func (r *fakeRecorder) TurnProcessed(_, _ screening.Stage, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.turns++
}

func (r *fakeRecorder) SessionEnded(outcome Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func createTestSessionManager(t *testing.T) *session.Manager {
	t.Helper()
	config := session.Config{
		StorageType:     session.MemoryStorageType,
		DefaultTTL:      30 * time.Minute,
		MaxSessions:     100,
		CleanupInterval: 0, // Disable cleanup for tests
	}

	manager, err := session.NewManager(config, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Close() })
	return manager
}

func newTestManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	logger := zaptest.NewLogger(t)
	engine := screening.NewEngine(stubSource{}, logger)
	return NewManager(createTestSessionManager(t), engine, logger, opts...)
}

var fullScreening = []string{
	"Ada Lovelace",
	"ada@example.com",
	"+1 (555) 123-4567",
	"5",
	"Software Engineer",
	"Berlin, Germany",
	"Go, PostgreSQL, Kubernetes",
}

func replyAll(t *testing.T, m *Manager, id string, inputs []string) *Turn {
	t.Helper()
	var turn *Turn
	for _, input := range inputs {
		var err error
		turn, err = m.Reply(context.Background(), id, input)
		require.NoError(t, err, "input %q", input)
	}
	return turn
}

func TestStart(t *testing.T) {
	rec := &fakeRecorder{}
	m := newTestManager(t, WithRecorder(rec))

	turn, err := m.Start(context.Background())
	require.NoError(t, err)

	assert.True(t, session.ValidateSessionID(turn.SessionID))
	assert.Contains(t, turn.Reply, "Welcome to the Candidate Screening Assistant")
	assert.Equal(t, screening.StageCollectName, turn.Stage)
	assert.Equal(t, session.StatusActive, turn.Status)
	assert.Equal(t, OutcomeContinued, turn.Outcome)
	assert.Equal(t, 1, rec.started)

	view, err := m.Get(context.Background(), turn.SessionID)
	require.NoError(t, err)
	require.Len(t, view.Messages, 1)
	assert.Equal(t, session.AssistantRole, view.Messages[0].Role)
	assert.Equal(t, screening.StageGreeting, view.Messages[0].Stage)
}

func TestFullScreening(t *testing.T) {
	rec := &fakeRecorder{}
	m := newTestManager(t, WithRecorder(rec))
	ctx := context.Background()

	start, err := m.Start(ctx)
	require.NoError(t, err)
	id := start.SessionID

	turn := replyAll(t, m, id, fullScreening)
	assert.Equal(t, screening.StageTechnicalQuestions, turn.Stage)
	assert.Contains(t, turn.Reply, "How do you test Go code?")

	turn, err = m.Reply(ctx, id, "Looks good")
	require.NoError(t, err)
	assert.Equal(t, screening.StageConclusion, turn.Stage)
	assert.Equal(t, session.StatusConcluded, turn.Status)
	assert.Equal(t, OutcomeCompleted, turn.Outcome)
	assert.Contains(t, turn.Reply, "Thank you, Ada Lovelace!")

	view, err := m.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 100, view.Percent)
	assert.Len(t, view.Messages, 1+2*(len(fullScreening)+1))
	assert.Greater(t, view.TokenCount, 0)
	assert.Equal(t, "5", view.Collected["experience"])
	assert.Equal(t, "Go, Postgresql, Kubernetes", view.Collected["tech_stack"])
	assert.Len(t, view.Questions, 3)

	export, err := m.Candidate(ctx, id)
	require.NoError(t, err)
	assert.True(t, export.Complete)
	assert.Empty(t, export.Missing)
	assert.Empty(t, export.Problems)
	assert.Equal(t, "ada@example.com", export.Candidate.Email)

	assert.Equal(t, []Outcome{OutcomeCompleted}, rec.outcomes)
	assert.Equal(t, len(fullScreening)+1, rec.turns)
}

func TestReply_AfterConclusion(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	start, err := m.Start(ctx)
	require.NoError(t, err)

	turn, err := m.Reply(ctx, start.SessionID, "bye")
	require.NoError(t, err)
	assert.Equal(t, screening.StageConclusion, turn.Stage)
	assert.Equal(t, OutcomeExited, turn.Outcome)

	_, err = m.Reply(ctx, start.SessionID, "Ada Lovelace")
	assert.ErrorIs(t, err, ErrSessionConcluded)

	view, err := m.Get(ctx, start.SessionID)
	require.NoError(t, err)
	assert.Len(t, view.Messages, 3)
}

func TestReply_EmptyMessage(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	start, err := m.Start(ctx)
	require.NoError(t, err)

	for _, input := range []string{"", "   ", "\x00\x01"} {
		_, err := m.Reply(ctx, start.SessionID, input)
		assert.ErrorIs(t, err, ErrEmptyMessage, "input %q", input)
	}

	view, err := m.Get(ctx, start.SessionID)
	require.NoError(t, err)
	assert.Len(t, view.Messages, 1)
	assert.Equal(t, screening.StageCollectName, view.Stage)
}

func TestReply_InvalidInputKeepsStage(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	start, err := m.Start(ctx)
	require.NoError(t, err)
	replyAll(t, m, start.SessionID, fullScreening[:1])

	turn, err := m.Reply(ctx, start.SessionID, "not-an-email")
	require.NoError(t, err)
	assert.Equal(t, screening.StageCollectEmail, turn.Stage)
	assert.Equal(t, OutcomeContinued, turn.Outcome)
	assert.Contains(t, turn.Reply, "valid email")
}

func TestReply_UnknownSession(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	_, err := m.Reply(ctx, uuid.NewString(), "hello")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	_, err = m.Reply(ctx, "not-a-session-id", "hello")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	_, err = m.Get(ctx, "../../etc/passwd")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestReply_ExpiredSession(t *testing.T) {
	logger := zaptest.NewLogger(t)
	sessions, err := session.NewManager(session.Config{DefaultTTL: time.Millisecond}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sessions.Close() })

	m := NewManager(sessions, screening.NewEngine(stubSource{}, logger), logger)
	ctx := context.Background()

	start, err := m.Start(ctx)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	_, err = m.Reply(ctx, start.SessionID, "Ada Lovelace")
	assert.ErrorIs(t, err, session.ErrSessionExpired)
}

func TestRestart(t *testing.T) {
	rec := &fakeRecorder{}
	m := newTestManager(t, WithRecorder(rec))
	ctx := context.Background()

	start, err := m.Start(ctx)
	require.NoError(t, err)
	replyAll(t, m, start.SessionID, fullScreening[:3])

	_, err = m.Reply(ctx, start.SessionID, "quit")
	require.NoError(t, err)

	turn, err := m.Restart(ctx, start.SessionID)
	require.NoError(t, err)
	assert.Equal(t, screening.StageCollectName, turn.Stage)
	assert.Equal(t, session.StatusActive, turn.Status)

	export, err := m.Candidate(ctx, start.SessionID)
	require.NoError(t, err)
	assert.False(t, export.Complete)
	assert.Len(t, export.Missing, len(candidate.Fields()))

	view, err := m.Get(ctx, start.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Restarts)

	turn, err = m.Reply(ctx, start.SessionID, "Grace Hopper")
	require.NoError(t, err)
	assert.Equal(t, screening.StageCollectEmail, turn.Stage)

	assert.Equal(t, 2, rec.started)
	assert.Equal(t, []Outcome{OutcomeExited}, rec.outcomes)
}

func TestProgress(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	start, err := m.Start(ctx)
	require.NoError(t, err)
	replyAll(t, m, start.SessionID, fullScreening[:2])

	view, err := m.Get(ctx, start.SessionID)
	require.NoError(t, err)

	states := make(map[screening.Stage]ProgressState)
	for _, p := range view.Progress {
		states[p.Stage] = p.State
	}
	assert.Equal(t, ProgressComplete, states[screening.StageGreeting])
	assert.Equal(t, ProgressComplete, states[screening.StageCollectName])
	assert.Equal(t, ProgressComplete, states[screening.StageCollectEmail])
	assert.Equal(t, ProgressCurrent, states[screening.StageCollectPhone])
	assert.Equal(t, ProgressPending, states[screening.StageCollectLocation])
	assert.Equal(t, ProgressPending, states[screening.StageConclusion])
	assert.Equal(t, 30, view.Percent)

	assert.Equal(t, map[string]string{
		"name":  "Ada Lovelace",
		"email": "ada@example.com",
	}, view.Collected)

	_, err = m.Reply(ctx, start.SessionID, "stop")
	require.NoError(t, err)

	view, err = m.Get(ctx, start.SessionID)
	require.NoError(t, err)
	for _, p := range view.Progress {
		states[p.Stage] = p.State
	}
	assert.Equal(t, ProgressSkipped, states[screening.StageCollectPhone])
	assert.Equal(t, ProgressSkipped, states[screening.StageTechnicalQuestions])
	assert.Equal(t, ProgressComplete, states[screening.StageConclusion])
}

func TestListAndDelete(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	first, err := m.Start(ctx)
	require.NoError(t, err)
	replyAll(t, m, first.SessionID, fullScreening[:1])
	second, err := m.Start(ctx)
	require.NoError(t, err)

	summaries, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	byID := make(map[string]Summary)
	for _, s := range summaries {
		byID[s.SessionID] = s
	}
	assert.Equal(t, "Ada Lovelace", byID[first.SessionID].CandidateName)
	assert.Equal(t, 3, byID[first.SessionID].MessageCount)
	assert.Empty(t, byID[second.SessionID].CandidateName)

	require.NoError(t, m.Delete(ctx, first.SessionID))

	_, err = m.Get(ctx, first.SessionID)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	summaries, err = m.List(ctx)
	require.NoError(t, err)
	assert.Len(t, summaries, 1)
}

func TestConcurrentRepliesAreSerialised(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	start, err := m.Start(ctx)
	require.NoError(t, err)

	const workers = 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Reply(ctx, start.SessionID, "Ada Lovelace")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	view, err := m.Get(ctx, start.SessionID)
	require.NoError(t, err)

	// one reply filled the name, the rest were rejected as emails
	assert.Len(t, view.Messages, 1+2*workers)
	assert.Equal(t, screening.StageCollectEmail, view.Stage)
	assert.Equal(t, "Ada Lovelace", view.Collected["name"])

	accepted := 0
	for _, msg := range view.Messages {
		if strings.HasPrefix(msg.Content, "Nice to meet you") {
			accepted++
		}
	}
	assert.Equal(t, 1, accepted)
}

func lockCount(m *Manager) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}

func TestSessionLocksAreReleased(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		_, err := m.Reply(ctx, fmt.Sprintf("bogus-%d", i), "hello")
		assert.ErrorIs(t, err, session.ErrSessionNotFound)

		_, err = m.Restart(ctx, uuid.NewString())
		assert.ErrorIs(t, err, session.ErrSessionNotFound)

		assert.Error(t, m.Delete(ctx, uuid.NewString()))
	}
	assert.Zero(t, lockCount(m))

	start, err := m.Start(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.Reply(ctx, start.SessionID, "Ada Lovelace")
		}()
	}
	wg.Wait()
	assert.Zero(t, lockCount(m))

	require.NoError(t, m.Delete(ctx, start.SessionID))
	assert.Zero(t, lockCount(m))
}

func TestCandidateExport_Incomplete(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	start, err := m.Start(ctx)
	require.NoError(t, err)
	replyAll(t, m, start.SessionID, fullScreening[:2])

	export, err := m.Candidate(ctx, start.SessionID)
	require.NoError(t, err)
	assert.False(t, export.Complete)
	assert.Contains(t, export.Missing, candidate.FieldPhone)
	assert.NotEmpty(t, export.Problems)
	assert.Equal(t, "Ada Lovelace", export.Candidate.Name)
}

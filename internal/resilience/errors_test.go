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

package resilience

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func TestServiceErrorConstructors(t *testing.T) {
	internal := errors.New("root cause")

	tests := []struct {
		name           string
		err            *ServiceError
		expectedCode   ErrorCode
		expectedStatus int
	}{
		{"bad request", NewBadRequestError("bad", internal), ErrorCodeBadRequest, http.StatusBadRequest},
		{"not found", NewNotFoundError("missing", internal), ErrorCodeNotFound, http.StatusNotFound},
		{"session not found", NewSessionNotFoundError("abc", internal), ErrorCodeSessionNotFound, http.StatusNotFound},
		{"session concluded", NewSessionConcludedError("abc", internal), ErrorCodeSessionConcluded, http.StatusConflict},
		{"internal", NewInternalError("boom", internal), ErrorCodeInternalError, http.StatusInternalServerError},
		{"unavailable", NewServiceUnavailableError("down", internal), ErrorCodeServiceUnavailable, http.StatusServiceUnavailable},
		{"timeout", NewTimeoutError("slow", internal), ErrorCodeTimeout, http.StatusRequestTimeout},
		{"dependency", NewDependencyFailureError("upstream", internal), ErrorCodeDependencyFailure, http.StatusBadGateway},
		{"rate limited", NewTooManyRequestsError("slow down", internal), ErrorCodeTooManyRequests, http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectedCode, tt.err.Code)
			assert.Equal(t, tt.expectedStatus, tt.err.StatusCode)
			assert.ErrorIs(t, tt.err, internal)
		})
	}
}

func TestSessionErrorMessagesNameTheSession(t *testing.T) {
	assert.Contains(t, NewSessionNotFoundError("s-1", nil).Error(), "s-1")
	assert.Contains(t, NewSessionConcludedError("s-2", nil).Error(), "s-2")
}

func TestServiceErrorToErrorResponse(t *testing.T) {
	err := NewBadRequestError("message is required", nil)

	response := err.ToErrorResponse("req-1")

	assert.Equal(t, "message is required", response.Error)
	assert.Equal(t, "BAD_REQUEST", response.Code)
	assert.Equal(t, "req-1", response.RequestID)
	assert.WithinDuration(t, time.Now(), response.Timestamp, time.Second)
}

func TestErrorHandler_WrapError(t *testing.T) {
	handler := NewErrorHandler(zaptest.NewLogger(t))

	tests := []struct {
		name         string
		err          error
		expectedCode ErrorCode
	}{
		{"deadline", fmt.Errorf("generate: %w", context.DeadlineExceeded), ErrorCodeTimeout},
		{"open circuit", fmt.Errorf("generate: %w", ErrCircuitBreakerOpen), ErrorCodeServiceUnavailable},
		{"connection refused", errors.New("dial tcp: connection refused"), ErrorCodeDependencyFailure},
		{"rate limit", errors.New("rate limit reached"), ErrorCodeTooManyRequests},
		{"not found", errors.New("session not found"), ErrorCodeNotFound},
		{"invalid", errors.New("invalid stage"), ErrorCodeBadRequest},
		{"unknown", errors.New("something odd"), ErrorCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := handler.WrapError(tt.err, "processing turn")
			require.NotNil(t, wrapped)
			assert.Equal(t, tt.expectedCode, wrapped.Code)
			assert.ErrorIs(t, wrapped, tt.err)
			assert.NotEmpty(t, wrapped.Message)
		})
	}
}

func TestErrorHandler_WrapError_NilAndExisting(t *testing.T) {
	handler := NewErrorHandler(nil)
	assert.Nil(t, handler.WrapError(nil, "anything"))

	original := NewSessionConcludedError("abc", nil)
	wrapped := handler.WrapError(fmt.Errorf("reply: %w", original), "replying")
	assert.Same(t, original, wrapped)
}

func TestErrorHandler_WriteErrorResponse(t *testing.T) {
	handler := NewErrorHandler(zaptest.NewLogger(t))

	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{"service error", NewSessionNotFoundError("abc", nil), http.StatusNotFound, "SESSION_NOT_FOUND"},
		{"plain error", errors.New("request timeout"), http.StatusRequestTimeout, "TIMEOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			handler.WriteErrorResponse(w, tt.err, "request-123")

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.expectedCode, body.Code)
			assert.Equal(t, "request-123", body.RequestID)
		})
	}
}

func TestErrorHandler_LogError(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	handler := NewErrorHandler(zap.New(core))

	handler.LogError(nil, "ignored")
	handler.LogError(NewTimeoutError("slow", nil), "generating questions", zap.String("session_id", "abc"))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "generating questions", fields["operation"])
	assert.Equal(t, "TIMEOUT", fields["error_code"])
	assert.Equal(t, "abc", fields["session_id"])
}

func TestWithTimeout(t *testing.T) {
	logger := zaptest.NewLogger(t)

	t.Run("completes in time", func(t *testing.T) {
		err := WithTimeout(context.Background(), time.Second, logger, func(_ context.Context) error {
			return nil
		})
		assert.NoError(t, err)
	})

	t.Run("times out", func(t *testing.T) {
		err := WithTimeout(context.Background(), 10*time.Millisecond, logger, func(ctx context.Context) error {
			<-ctx.Done()
			time.Sleep(50 * time.Millisecond)
			return ctx.Err()
		})
		var serviceErr *ServiceError
		require.True(t, AsServiceError(err, &serviceErr))
		assert.Equal(t, ErrorCodeTimeout, serviceErr.Code)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("caller cancellation is not a timeout", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := WithTimeout(ctx, time.Second, logger, func(ctx context.Context) error {
			<-ctx.Done()
			time.Sleep(5 * time.Millisecond)
			return ctx.Err()
		})
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("zero timeout runs directly", func(t *testing.T) {
		sentinel := errors.New("direct")
		err := WithTimeout(context.Background(), 0, logger, func(_ context.Context) error {
			return sentinel
		})
		assert.ErrorIs(t, err, sentinel)
	})
}

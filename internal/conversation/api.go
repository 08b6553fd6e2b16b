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
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/your-org/candidate-screener/internal/resilience"
	"github.com/your-org/candidate-screener/internal/session"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// RequestIDHeader carries the request ID in and out of the API
const RequestIDHeader = "X-Request-ID"

// APIHandler handles HTTP requests for screening sessions
type APIHandler struct {
	manager *Manager
	errors  *resilience.ErrorHandler
	logger  *zap.Logger
}

// NewAPIHandler creates a new screening API handler
func NewAPIHandler(manager *Manager, logger *zap.Logger) *APIHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{
		manager: manager,
		errors:  resilience.NewErrorHandler(logger),
		logger:  logger,
	}
}

// RegisterRoutes registers screening API routes with the Gin router
func (h *APIHandler) RegisterRoutes(router gin.IRouter) {
	api := router.Group("/api/v1/screenings")
	api.Use(RequestIDMiddleware())
	{
		api.POST("", h.startScreening)
		api.GET("", h.listScreenings)
		api.GET("/:id", h.getScreening)
		api.POST("/:id/messages", h.postMessage)
		api.POST("/:id/restart", h.restartScreening)
		api.GET("/:id/candidate", h.getCandidate)
		api.DELETE("/:id", h.deleteScreening)
	}
}

// MessageRequest is the body of POST /api/v1/screenings/:id/messages
type MessageRequest struct {
	Message string `json:"message" binding:"required"`
}

// startScreening handles POST /api/v1/screenings
func (h *APIHandler) startScreening(c *gin.Context) {
	turn, err := h.manager.Start(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, turn)
}

// listScreenings handles GET /api/v1/screenings
func (h *APIHandler) listScreenings(c *gin.Context) {
	summaries, err := h.manager.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"screenings": summaries,
		"count":      len(summaries),
	})
}

// getScreening handles GET /api/v1/screenings/:id
func (h *APIHandler) getScreening(c *gin.Context) {
	view, err := h.manager.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// postMessage handles POST /api/v1/screenings/:id/messages
func (h *APIHandler) postMessage(c *gin.Context) {
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, resilience.NewBadRequestError("Request body must be JSON with a non-empty \"message\" field", err))
		return
	}

	turn, err := h.manager.Reply(c.Request.Context(), c.Param("id"), req.Message)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, turn)
}

// restartScreening handles POST /api/v1/screenings/:id/restart
func (h *APIHandler) restartScreening(c *gin.Context) {
	turn, err := h.manager.Restart(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, turn)
}

// getCandidate handles GET /api/v1/screenings/:id/candidate
func (h *APIHandler) getCandidate(c *gin.Context) {
	export, err := h.manager.Candidate(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	switch c.DefaultQuery("format", "json") {
	case "json":
		c.JSON(http.StatusOK, export)
	case "yaml":
		out, err := yaml.Marshal(export)
		if err != nil {
			h.writeError(c, resilience.NewInternalError("Failed to encode candidate record", err))
			return
		}
		c.Data(http.StatusOK, "application/yaml; charset=utf-8", out)
	default:
		h.writeError(c, resilience.NewBadRequestError("format must be json or yaml", nil))
	}
}

// deleteScreening handles DELETE /api/v1/screenings/:id
func (h *APIHandler) deleteScreening(c *gin.Context) {
	if err := h.manager.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// writeError maps domain errors onto the API error envelope
func (h *APIHandler) writeError(c *gin.Context, err error) {
	id := c.Param("id")

	switch {
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, session.ErrSessionExpired):
		err = resilience.NewSessionNotFoundError(id, err)
	case errors.Is(err, ErrSessionConcluded):
		err = resilience.NewSessionConcludedError(id, err)
	case errors.Is(err, ErrEmptyMessage):
		err = resilience.NewBadRequestError("Message cannot be empty", err)
	}

	var serviceErr *resilience.ServiceError
	if !resilience.AsServiceError(err, &serviceErr) || serviceErr.StatusCode >= http.StatusInternalServerError {
		h.errors.LogError(err, c.FullPath(), zap.String("session_id", id))
	}

	h.errors.WriteErrorResponse(c.Writer, err, c.GetString(RequestIDHeader))
	c.Abort()
}

// RequestIDMiddleware propagates or assigns a request ID
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(RequestIDHeader, requestID)
		c.Header(RequestIDHeader, requestID)
		c.Next()
	}
}

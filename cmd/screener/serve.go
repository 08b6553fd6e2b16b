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
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/your-org/candidate-screener/internal/config"
	"github.com/your-org/candidate-screener/internal/conversation"
	"github.com/your-org/candidate-screener/internal/health"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the screening REST API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := config.LoadOptions{ConfigPath: configPath, ValidateRequired: true}
			cfg, err := config.LoadWithOptions(opts)
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}

			logger, level, err := newLogger(cfg.Logging)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			a, err := buildApp(cfg, logger)
			if err != nil {
				logger.Error("Failed to start", zap.Error(err))
				return err
			}
			defer func() { _ = a.Close() }()

			err = config.WatchConfig(opts, logger.Named("config"), func(updated *config.Config) {
				if updated.Logging.Level == level.String() {
					return
				}
				if err := level.UnmarshalText([]byte(updated.Logging.Level)); err != nil {
					logger.Warn("Ignoring invalid log level", zap.String("level", updated.Logging.Level))
					return
				}
				logger.Info("Log level changed", zap.String("level", updated.Logging.Level))
			})
			if err != nil && !errors.Is(err, config.ErrNoConfigFile) {
				logger.Warn("Config hot reload disabled", zap.Error(err))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, a)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port (overrides server.port)")
	return cmd
}

// newRouter builds the HTTP surface: screening API, health and metrics
func newRouter(a *app) *gin.Engine {
	gin.SetMode(a.config.Server.Mode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(a.logger.Named("http")))
	router.Use(requestTimeout(a.config.Server.RequestTimeout))
	if a.config.Metrics.Enabled {
		router.Use(a.recorder.GinMiddleware())
		router.GET(a.config.Metrics.Path, gin.WrapH(a.recorder.Handler()))
	}

	checks := health.NewManager(serviceName, version, a.config.Environment, a.logger.Named("health"))
	provider, model := a.providerInfo()
	checks.AddChecker("question_generator", health.GeneratorChecker(provider, model, a.breaker))
	checks.AddChecker("session_store", health.SessionStoreChecker(a.sessions))
	router.GET("/health", gin.WrapF(checks.HTTPHandler()))

	conversation.NewAPIHandler(a.conversations, a.logger.Named("api")).RegisterRoutes(router)

	return router
}

// serve runs the HTTP server until ctx is cancelled, then drains it
func serve(ctx context.Context, a *app) error {
	server := &http.Server{
		Addr:              ":" + strconv.Itoa(a.config.Server.Port),
		Handler:           newRouter(a),
		ReadHeaderTimeout: 10 * time.Second,
	}

	provider, model := a.providerInfo()
	a.logger.Info("Starting screening server",
		zap.String("addr", server.Addr),
		zap.String("provider", provider),
		zap.String("model", model),
		zap.String("version", version))

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// requestLogger logs one line per request
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if id := c.GetString(conversation.RequestIDHeader); id != "" {
			fields = append(fields, zap.String("request_id", id))
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Error("Request failed", fields...)
		default:
			logger.Debug("Request handled", fields...)
		}
	}
}

// requestTimeout bounds the context of every request, which in turn bounds
// question generation
func requestTimeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

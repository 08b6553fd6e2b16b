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

// Package metrics exposes Prometheus metrics for screening sessions, turns,
// question generation and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/your-org/candidate-screener/internal/conversation"
	"github.com/your-org/candidate-screener/internal/questions"
	"github.com/your-org/candidate-screener/internal/resilience"
	"github.com/your-org/candidate-screener/internal/screening"
)

const namespace = "screener"

// Recorder implements conversation.Recorder and questions.Observer on a
// private registry
type Recorder struct {
	registry *prometheus.Registry

	sessionsStarted    prometheus.Counter
	sessionsEnded      *prometheus.CounterVec
	turnsTotal         *prometheus.CounterVec
	turnDuration       prometheus.Histogram
	generationsTotal   *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

var _ conversation.Recorder = (*Recorder)(nil)

// NewRecorder creates a recorder with its own registry, including the Go
// runtime and process collectors
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Recorder{
		registry: registry,
		sessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Screenings started, including restarts",
		}),
		sessionsEnded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_ended_total",
			Help:      "Screenings that reached the conclusion stage by outcome",
		}, []string{"outcome"}),
		turnsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Candidate messages processed by stage and whether the stage advanced",
		}, []string{"stage", "advanced"}),
		turnDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Time to process one candidate message",
			Buckets:   prometheus.DefBuckets,
		}),
		generationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "question_generations_total",
			Help:      "Question generation attempts by source (model or fallback)",
		}, []string{"source"}),
		generationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "question_generation_duration_seconds",
			Help:      "Duration of question generation attempts",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"source"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code",
		}, []string{"method", "route", "code"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// SessionStarted implements conversation.Recorder
func (r *Recorder) SessionStarted() {
	r.sessionsStarted.Inc()
}

// TurnProcessed implements conversation.Recorder
func (r *Recorder) TurnProcessed(from, to screening.Stage, elapsed time.Duration) {
	r.turnsTotal.WithLabelValues(string(from), strconv.FormatBool(from != to)).Inc()
	r.turnDuration.Observe(elapsed.Seconds())
}

// SessionEnded implements conversation.Recorder
func (r *Recorder) SessionEnded(outcome conversation.Outcome) {
	r.sessionsEnded.WithLabelValues(string(outcome)).Inc()
}

// ObserveGeneration has the questions.Observer signature
func (r *Recorder) ObserveGeneration(result questions.Result, elapsed time.Duration) {
	source := string(result.Source)
	r.generationsTotal.WithLabelValues(source).Inc()
	r.generationDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// Observer returns ObserveGeneration as a questions.Observer
func (r *Recorder) Observer() questions.Observer {
	return r.ObserveGeneration
}

// RegisterSessionGauge exports the number of stored sessions, read on scrape
func (r *Recorder) RegisterSessionGauge(count func() float64) {
	r.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions",
		Help:      "Sessions currently held in the session store",
	}, count))
}

// RegisterCircuitBreaker exports the breaker state as 0 closed, 1 open and
// 2 half-open
func (r *Recorder) RegisterCircuitBreaker(cb *resilience.CircuitBreaker) {
	r.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "generator_circuit_state",
		Help:      "Question generator circuit breaker state (0 closed, 1 open, 2 half-open)",
	}, func() float64 {
		return float64(cb.GetState())
	}))
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// GinMiddleware counts and times requests by matched route
func (r *Recorder) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		r.httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		r.httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

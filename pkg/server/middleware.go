// Package server implements the Agent and Skill Engine HTTP surfaces
// (spec.md §6), grounded on the teacher's chi-based metrics middleware
// (pkg/transport/http_metrics_middleware.go): structured request logging, a
// Prometheus histogram, and one OpenTelemetry span per request.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/raven-ai/assistant/pkg/tracing"
)

var tracer = tracing.Tracer("github.com/raven-ai/assistant/pkg/server")

var (
	requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "assistant_http_request_duration_seconds",
		Help: "HTTP request latency by route and status class.",
	}, []string{"route", "status"})

	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assistant_http_requests_total",
		Help: "HTTP requests by route and status class.",
	}, []string{"route", "status"})
)

func init() {
	prometheus.MustRegister(requestDuration, requestsTotal)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// instrumentation wraps a handler with structured request logging, an
// OpenTelemetry span, and Prometheus counters, keyed by chi's matched route
// pattern.
func instrumentation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), r.Method+" "+routePattern(r))
		defer span.End()
		r = r.WithContext(ctx)

		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		route := routePattern(r)
		statusClass := statusClassOf(wrapped.status)
		duration := time.Since(start)
		requestDuration.WithLabelValues(route, statusClass).Observe(duration.Seconds())
		requestsTotal.WithLabelValues(route, statusClass).Inc()

		span.SetAttributes(attribute.String("http.route", route), attribute.Int("http.status_code", wrapped.status))
		if wrapped.status >= 500 {
			span.SetStatus(codes.Error, statusClass)
		}

		slog.Info("http request",
			"method", r.Method, "route", route, "status", wrapped.status,
			"durationMs", duration.Milliseconds(), "requestId", middleware.GetReqID(r.Context()))
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

// metricsHandler exposes the package's Prometheus registry for scraping;
// mounted at /metrics by both AgentServer and SkillEngineServer.
func metricsHandler() http.Handler {
	return promhttp.Handler()
}

func statusClassOf(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	default:
		return "2xx"
	}
}

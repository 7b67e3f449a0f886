// Package metrics wires the OpenTelemetry Metrics API to a Prometheus
// exporter registered into the process's default registerer, so the same
// /metrics endpoint the HTTP middleware's client_golang counters use also
// serves agent/learner instrumentation recorded through otel's API, the way
// the teacher's pkg/observability/recorder.go models metric instruments
// against the otel/metric interface.
package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Recorder records agent-turn and learn-attempt outcomes. A nil *Recorder is
// valid and every method is a no-op, so callers that didn't wire metrics
// (tests, or a disabled deployment) don't need nil checks at every call site.
type Recorder struct {
	agentCalls    metric.Int64Counter
	agentDuration metric.Float64Histogram
	agentErrors   metric.Int64Counter

	learnAttempts metric.Int64Counter
	learnOutcomes metric.Int64Counter
}

// Init registers a Prometheus exporter with the default registerer (the same
// one promhttp.Handler serves at /metrics) and builds the instruments used
// throughout the Agent Orchestrator and Skill Learner.
func Init() (*Recorder, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("metrics: create prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter("github.com/raven-ai/assistant/pkg/agentcore")

	agentCalls, err := meter.Int64Counter("assistant_agent_calls_total",
		metric.WithDescription("Agent Orchestrator turns, by model."))
	if err != nil {
		return nil, fmt.Errorf("metrics: agent calls counter: %w", err)
	}
	agentDuration, err := meter.Float64Histogram("assistant_agent_call_duration_seconds",
		metric.WithDescription("Agent Orchestrator turn latency, by model."))
	if err != nil {
		return nil, fmt.Errorf("metrics: agent duration histogram: %w", err)
	}
	agentErrors, err := meter.Int64Counter("assistant_agent_errors_total",
		metric.WithDescription("Agent Orchestrator turns that returned an error, by model."))
	if err != nil {
		return nil, fmt.Errorf("metrics: agent errors counter: %w", err)
	}
	learnAttempts, err := meter.Int64Counter("assistant_learn_attempts_total",
		metric.WithDescription("Skill Learner attempts dispatched."))
	if err != nil {
		return nil, fmt.Errorf("metrics: learn attempts counter: %w", err)
	}
	learnOutcomes, err := meter.Int64Counter("assistant_learn_outcomes_total",
		metric.WithDescription("Skill Learner attempts, by terminal outcome (inserted, merged, rejected, failed)."))
	if err != nil {
		return nil, fmt.Errorf("metrics: learn outcomes counter: %w", err)
	}

	return &Recorder{
		agentCalls: agentCalls, agentDuration: agentDuration, agentErrors: agentErrors,
		learnAttempts: learnAttempts, learnOutcomes: learnOutcomes,
	}, nil
}

// RecordAgentCall records one Agent Orchestrator turn's latency and outcome.
func (r *Recorder) RecordAgentCall(ctx context.Context, model string, duration time.Duration, err error) {
	if r == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("model", model))
	r.agentCalls.Add(ctx, 1, attrs)
	r.agentDuration.Record(ctx, duration.Seconds(), attrs)
	if err != nil {
		r.agentErrors.Add(ctx, 1, attrs)
	}
}

// RecordLearnAttempt marks one Skill Learner dispatch.
func (r *Recorder) RecordLearnAttempt(ctx context.Context) {
	if r == nil {
		return
	}
	r.learnAttempts.Add(ctx, 1)
}

// RecordLearnOutcome marks one Skill Learner attempt's terminal state:
// "inserted", "merged", "rejected", or "failed" (spec.md §4.8 step 10).
func (r *Recorder) RecordLearnOutcome(ctx context.Context, outcome string) {
	if r == nil {
		return
	}
	r.learnOutcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

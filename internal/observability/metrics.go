// Package observability records message-handling metrics with OpenTelemetry.
package observability

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcomes reported for a handled message.
const (
	OutcomeOK        = "ok"
	OutcomeRetry     = "retry"
	OutcomePermanent = "permanent"
)

const meterName = "jobmate/profile-service"

// Recorder records consumer metrics.
// Use NewMetricsRecorder for OTel metrics or Noop{} when disabled.
type Recorder interface {
	// RecordMessage records one handled inbound message.
	RecordMessage(ctx context.Context, channel, outcome string, duration time.Duration)

	// RecordDeadLetter records a message moved to the dead-letter stream.
	RecordDeadLetter(ctx context.Context, channel string)

	// RecordReaped records posts failed by the stale PENDING reaper.
	RecordReaped(ctx context.Context, n int)
}

type otelMetrics struct {
	messages    metric.Int64Counter
	latency     metric.Float64Histogram
	deadLetters metric.Int64Counter
	reaped      metric.Int64Counter
}

func newOtelMetrics(mp metric.MeterProvider) (*otelMetrics, error) {
	meter := mp.Meter(meterName)

	messages, err := meter.Int64Counter("profile.messages.handled",
		metric.WithDescription("Number of inbound messages handled, by outcome"),
	)
	if err != nil {
		return nil, err
	}

	latency, err := meter.Float64Histogram("profile.messages.latency_ms",
		metric.WithDescription("Inbound message handling latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	deadLetters, err := meter.Int64Counter("profile.messages.dead_lettered",
		metric.WithDescription("Number of messages moved to a dead-letter stream"),
	)
	if err != nil {
		return nil, err
	}

	reaped, err := meter.Int64Counter("profile.posts.reaped",
		metric.WithDescription("Number of PENDING posts failed after the upload timeout"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{messages: messages, latency: latency, deadLetters: deadLetters, reaped: reaped}, nil
}

// NewMetricsRecorder returns a Recorder backed by mp. If instrument creation
// fails it logs and returns Noop{}.
func NewMetricsRecorder(mp metric.MeterProvider, log *slog.Logger) Recorder {
	m, err := newOtelMetrics(mp)
	if err != nil {
		log.Warn("metrics initialization failed, using no-op recorder", "err", err)
		return Noop{}
	}
	return m
}

func (m *otelMetrics) RecordMessage(ctx context.Context, channel, outcome string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("channel", channel),
		attribute.String("outcome", outcome),
	)
	m.messages.Add(ctx, 1, attrs)
	m.latency.Record(ctx, float64(duration.Microseconds())/1000, attrs)
}

func (m *otelMetrics) RecordDeadLetter(ctx context.Context, channel string) {
	m.deadLetters.Add(ctx, 1, metric.WithAttributes(attribute.String("channel", channel)))
}

func (m *otelMetrics) RecordReaped(ctx context.Context, n int) {
	if n > 0 {
		m.reaped.Add(ctx, int64(n))
	}
}

// Noop discards everything.
type Noop struct{}

func (Noop) RecordMessage(context.Context, string, string, time.Duration) {}
func (Noop) RecordDeadLetter(context.Context, string)                     {}
func (Noop) RecordReaped(context.Context, int)                            {}

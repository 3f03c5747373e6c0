package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/jwebster45206/combat-engine/pkg/combat"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/jwebster45206/combat-engine/internal/telemetry"

// Metrics counts combat events and pulse work. With no meter provider
// configured the global OTel meter is a no-op.
type Metrics struct {
	events   metric.Int64Counter
	moves    metric.Int64Counter
	requests metric.Int64Counter
	pulse    metric.Float64Histogram
}

// New builds the instruments from the global meter provider.
func New() (*Metrics, error) {
	return NewWithMeter(otel.Meter(instrumentationName))
}

func NewWithMeter(m metric.Meter) (*Metrics, error) {
	var (
		out Metrics
		err error
	)
	out.events, err = m.Int64Counter(
		"combat.events",
		metric.WithDescription("Combat events emitted by the engine"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating events counter: %w", err)
	}
	out.moves, err = m.Int64Counter(
		"combat.moves.selected",
		metric.WithDescription("Moves attempted, by move name"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating moves counter: %w", err)
	}
	out.requests, err = m.Int64Counter(
		"combat.requests.processed",
		metric.WithDescription("Queued requests handled by the worker"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating requests counter: %w", err)
	}
	out.pulse, err = m.Float64Histogram(
		"combat.pulse.duration",
		metric.WithDescription("Wall time of one worker pulse"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pulse histogram: %w", err)
	}
	return &out, nil
}

// Notifier wraps next so every event is counted before being forwarded.
func (m *Metrics) Notifier(next combat.Notifier) combat.Notifier {
	return combat.NotifierFunc(func(ctx context.Context, ev combat.Event) {
		m.events.Add(ctx, 1, metric.WithAttributes(attribute.String("type", string(ev.Type))))
		if ev.Type == combat.EventMoveAttempted && ev.Move != "" {
			m.moves.Add(ctx, 1, metric.WithAttributes(attribute.String("move", ev.Move)))
		}
		if next != nil {
			next.Notify(ctx, ev)
		}
	})
}

// RecordRequest counts one processed request and whether it failed.
func (m *Metrics) RecordRequest(ctx context.Context, requestType string, failed bool) {
	m.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", requestType),
		attribute.Bool("failed", failed),
	))
}

// RecordPulse records how long one pulse took.
func (m *Metrics) RecordPulse(ctx context.Context, d time.Duration) {
	m.pulse.Record(ctx, float64(d.Microseconds())/1000)
}

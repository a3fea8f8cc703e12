package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "parley"

// Metrics holds all pipeline metric instruments.
type Metrics struct {
	TurnsStarted   metric.Int64Counter
	TurnsCompleted metric.Int64Counter
	StageFallbacks metric.Int64Counter
	StageDuration  metric.Float64Histogram
	TurnDuration   metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.TurnsStarted, err = meter.Int64Counter("parley.turns.started",
		metric.WithDescription("Number of turns started"))
	if err != nil {
		return nil, err
	}

	m.TurnsCompleted, err = meter.Int64Counter("parley.turns.completed",
		metric.WithDescription("Number of turns completed"))
	if err != nil {
		return nil, err
	}

	m.StageFallbacks, err = meter.Int64Counter("parley.stage.fallbacks",
		metric.WithDescription("Number of stage calls replaced by their neutral fallback"))
	if err != nil {
		return nil, err
	}

	m.StageDuration, err = meter.Float64Histogram("parley.stage.duration_seconds",
		metric.WithDescription("Stage call duration in seconds"))
	if err != nil {
		return nil, err
	}

	m.TurnDuration, err = meter.Float64Histogram("parley.turn.duration_seconds",
		metric.WithDescription("Turn duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

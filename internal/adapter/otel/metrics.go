package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "artificer"

// Metrics holds the engine's metric instruments. It satisfies the
// orchestrator's Metrics interface.
type Metrics struct {
	runs        metric.Int64Counter
	runDuration metric.Float64Histogram
	generations metric.Int64Counter
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.runs, err = meter.Int64Counter("artificer.runs",
		metric.WithDescription("Tool executions by tool and outcome"))
	if err != nil {
		return nil, err
	}

	m.runDuration, err = meter.Float64Histogram("artificer.run.duration_seconds",
		metric.WithDescription("Tool execution duration in seconds"))
	if err != nil {
		return nil, err
	}

	m.generations, err = meter.Int64Counter("artificer.generations",
		metric.WithDescription("Tool generation attempts by outcome"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// ObserveRun records one tool execution.
func (m *Metrics) ObserveRun(ctx context.Context, toolName string, success bool, durationMS int64) {
	attrs := metric.WithAttributes(
		attribute.String("tool", toolName),
		attribute.Bool("success", success),
	)
	m.runs.Add(ctx, 1, attrs)
	m.runDuration.Record(ctx, float64(durationMS)/1000.0, attrs)
}

// ObserveGeneration records one generation attempt.
func (m *Metrics) ObserveGeneration(ctx context.Context, success bool) {
	m.generations.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}

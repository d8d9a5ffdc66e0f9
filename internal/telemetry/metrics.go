package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Generation outcomes
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds the generation pipeline instruments
type Metrics struct {
	generations     metric.Int64Counter
	segments        metric.Int64Counter
	failures        metric.Int64Counter
	segmentDuration metric.Float64Histogram
}

// NewMetrics registers the instruments on meter
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	generations, err := meter.Int64Counter("music_ai_generations",
		metric.WithDescription("Completed generation requests by outcome"))
	if err != nil {
		return nil, fmt.Errorf("failed to create generations counter: %w", err)
	}

	segments, err := meter.Int64Counter("music_ai_segments",
		metric.WithDescription("Segments rendered by the provider"))
	if err != nil {
		return nil, fmt.Errorf("failed to create segments counter: %w", err)
	}

	failures, err := meter.Int64Counter("music_ai_generation_failures",
		metric.WithDescription("Failed generations by error kind"))
	if err != nil {
		return nil, fmt.Errorf("failed to create failures counter: %w", err)
	}

	segmentDuration, err := meter.Float64Histogram("music_ai_segment_duration",
		metric.WithDescription("Provider latency per segment"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("failed to create segment histogram: %w", err)
	}

	return &Metrics{
		generations:     generations,
		segments:        segments,
		failures:        failures,
		segmentDuration: segmentDuration,
	}, nil
}

func (m *Metrics) RecordGeneration(ctx context.Context, outcome string) {
	m.generations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) RecordSegment(ctx context.Context, elapsed time.Duration) {
	m.segments.Add(ctx, 1)
	m.segmentDuration.Record(ctx, elapsed.Seconds())
}

func (m *Metrics) RecordFailure(ctx context.Context, kind string) {
	m.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

package retrieval

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/recalld/internal/retrieval"

// Metrics holds retrieval-related metrics.
type Metrics struct {
	meter    metric.Meter
	logger   *zap.Logger
	duration metric.Float64Histogram
	results  metric.Int64Histogram
	errors   metric.Int64Counter
}

// NewMetrics creates a new Metrics instance for retrieval.
func NewMetrics(logger *zap.Logger) *Metrics {
	m := &Metrics{
		meter:  otel.Meter(instrumentationName),
		logger: logger,
	}
	m.init()
	return m
}

func (m *Metrics) init() {
	var err error

	m.duration, err = m.meter.Float64Histogram(
		"recalld.retrieval.query_duration_seconds",
		metric.WithDescription("Duration of retrieval queries in seconds, labeled by operation (top_k, latest)"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	)
	if err != nil {
		m.logger.Warn("failed to create duration histogram", zap.Error(err))
	}

	m.results, err = m.meter.Int64Histogram(
		"recalld.retrieval.result_count",
		metric.WithDescription("Number of documents returned per retrieval query"),
		metric.WithUnit("{document}"),
		metric.WithExplicitBucketBoundaries(0, 1, 2, 3, 5, 10, 25),
	)
	if err != nil {
		m.logger.Warn("failed to create result count histogram", zap.Error(err))
	}

	m.errors, err = m.meter.Int64Counter(
		"recalld.retrieval.errors_total",
		metric.WithDescription("Total retrieval query errors by operation"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		m.logger.Warn("failed to create errors counter", zap.Error(err))
	}
}

// RecordQuery records retrieval query metrics.
func (m *Metrics) RecordQuery(ctx context.Context, operation string, duration time.Duration, results int, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
	}

	if m.duration != nil {
		m.duration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	}
	if m.results != nil {
		m.results.Record(ctx, int64(results), metric.WithAttributes(attrs...))
	}
	if err != nil && m.errors != nil {
		m.errors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

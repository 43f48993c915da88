package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics
type Metrics struct {
	RequestCounter    metric.Int64Counter
	RequestDuration   metric.Float64Histogram
	QueriesAnswered   metric.Int64Counter
	QueriesRejected   metric.Int64Counter
	StrategyAttempts  metric.Int64Counter
	FallbackResponses metric.Int64Counter
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("college-chatbot-platform")

	requestCounter, err := meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	queriesAnswered, err := meter.Int64Counter(
		"pipeline.queries.answered",
		metric.WithDescription("Queries answered, labeled by strategy"),
	)
	if err != nil {
		return nil, err
	}

	queriesRejected, err := meter.Int64Counter(
		"pipeline.queries.rejected",
		metric.WithDescription("Queries rejected before routing, labeled by reason"),
	)
	if err != nil {
		return nil, err
	}

	strategyAttempts, err := meter.Int64Counter(
		"pipeline.strategy.attempts",
		metric.WithDescription("Strategy executions, labeled by strategy and outcome"),
	)
	if err != nil {
		return nil, err
	}

	fallbackResponses, err := meter.Int64Counter(
		"pipeline.fallback.responses",
		metric.WithDescription("Queries where no strategy reached its confidence threshold"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:    requestCounter,
		RequestDuration:   requestDuration,
		QueriesAnswered:   queriesAnswered,
		QueriesRejected:   queriesRejected,
		StrategyAttempts:  strategyAttempts,
		FallbackResponses: fallbackResponses,
	}, nil
}

// RecordRequest records HTTP request metrics
func (m *Metrics) RecordRequest(method, path, status string, duration float64) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("http.status", status),
	}

	m.RequestCounter.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.RequestDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordAnswered records a query answered by a strategy
func (m *Metrics) RecordAnswered(strategy string) {
	m.QueriesAnswered.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("strategy", strategy),
	))
}

// RecordRejected records a query rejected by validation or scope checks
func (m *Metrics) RecordRejected(reason string) {
	m.QueriesRejected.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("reason", reason),
	))
}

// RecordStrategyAttempt records one strategy execution and its outcome
func (m *Metrics) RecordStrategyAttempt(strategy string, confident bool) {
	m.StrategyAttempts.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("strategy", strategy),
		attribute.Bool("confident", confident),
	))
}

// RecordFallback records a query that exhausted its strategy chain
func (m *Metrics) RecordFallback() {
	m.FallbackResponses.Add(context.Background(), 1)
}

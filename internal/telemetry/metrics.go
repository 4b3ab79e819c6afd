package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics
type Metrics struct {
	RequestCounter     metric.Int64Counter
	RequestDuration    metric.Float64Histogram
	DocumentsIngested  metric.Int64Counter
	PartialIngestions  metric.Int64Counter
	IngestDuration     metric.Float64Histogram
	SearchRequests     metric.Int64Counter
	InconsistentHits   metric.Int64Counter
	StoreRetries       metric.Int64Counter
	CircuitBreakerState metric.Int64Counter
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("document-search-platform")

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

	documentsIngested, err := meter.Int64Counter(
		"documents.ingested.total",
		metric.WithDescription("Documents that completed ingestion"),
	)
	if err != nil {
		return nil, err
	}

	partialIngestions, err := meter.Int64Counter(
		"documents.ingested.partial",
		metric.WithDescription("Ingestions that left a degraded document (missing vector or metadata entry)"),
	)
	if err != nil {
		return nil, err
	}

	ingestDuration, err := meter.Float64Histogram(
		"ingest.duration",
		metric.WithDescription("Single-document ingestion duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	searchRequests, err := meter.Int64Counter(
		"search.requests.total",
		metric.WithDescription("Search requests by mode"),
	)
	if err != nil {
		return nil, err
	}

	inconsistentHits, err := meter.Int64Counter(
		"search.inconsistent_hits_dropped",
		metric.WithDescription("Semantic hits dropped because no metadata record exists for the id"),
	)
	if err != nil {
		return nil, err
	}

	storeRetries, err := meter.Int64Counter(
		"store.retries.total",
		metric.WithDescription("Retried calls to backing stores"),
	)
	if err != nil {
		return nil, err
	}

	circuitBreakerState, err := meter.Int64Counter(
		"circuit_breaker.state_changes",
		metric.WithDescription("Circuit breaker state changes"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:      requestCounter,
		RequestDuration:     requestDuration,
		DocumentsIngested:   documentsIngested,
		PartialIngestions:   partialIngestions,
		IngestDuration:      ingestDuration,
		SearchRequests:      searchRequests,
		InconsistentHits:    inconsistentHits,
		StoreRetries:        storeRetries,
		CircuitBreakerState: circuitBreakerState,
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

// RecordIngest records the outcome of one document ingestion
func (m *Metrics) RecordIngest(duration float64, complete, degraded bool) {
	status := "complete"
	if !complete {
		status = "failed"
	}
	attrs := []attribute.KeyValue{
		attribute.String("ingest.status", status),
	}

	m.DocumentsIngested.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.IngestDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
	if degraded {
		m.PartialIngestions.Add(context.Background(), 1)
	}
}

// RecordSearch records a search request by mode ("metadata" or "semantic")
func (m *Metrics) RecordSearch(mode string, success bool) {
	attrs := []attribute.KeyValue{
		attribute.String("search.mode", mode),
		attribute.Bool("search.success", success),
	}

	m.SearchRequests.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// RecordInconsistentHit records a semantic hit dropped for lack of metadata
func (m *Metrics) RecordInconsistentHit(documentID string) {
	attrs := []attribute.KeyValue{
		attribute.String("document.id", documentID),
	}

	m.InconsistentHits.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// RecordStoreRetry records a retried call against a backing store
func (m *Metrics) RecordStoreRetry(store, operation string) {
	attrs := []attribute.KeyValue{
		attribute.String("store.name", store),
		attribute.String("store.operation", operation),
	}

	m.StoreRetries.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// RecordCircuitBreakerState records circuit breaker state changes
func (m *Metrics) RecordCircuitBreakerState(service, state string) {
	attrs := []attribute.KeyValue{
		attribute.String("service", service),
		attribute.String("state", state),
	}

	m.CircuitBreakerState.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

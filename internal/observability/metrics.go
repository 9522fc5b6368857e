// Package observability provides OpenTelemetry instrumentation for tracing and metrics.
package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// InitMetrics initializes the OpenTelemetry metrics provider with a Prometheus exporter.
// It returns the HTTP handler for the /metrics endpoint and a shutdown function.
// The shutdown function should be called on application exit for graceful cleanup.
func InitMetrics() (http.Handler, func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)

	otel.SetMeterProvider(provider)

	return promhttp.Handler(), provider.Shutdown, nil
}

// Metrics bundles the pipeline counters. A nil *Metrics is safe to skip at
// call sites; the helper methods assume a non-nil receiver.
type Metrics struct {
	uploadEvents      metric.Int64Counter
	reportResolutions metric.Int64Counter
	historyReconciles metric.Int64Counter
}

// NewMetrics registers the pipeline counters on the global meter provider.
// InitMetrics must have been called first.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("farmgate")

	uploads, err := meter.Int64Counter("farmgate_upload_events_total",
		metric.WithDescription("Upload engine events by kind and event"))
	if err != nil {
		return nil, err
	}

	resolutions, err := meter.Int64Counter("farmgate_report_resolutions_total",
		metric.WithDescription("Report resolutions by source"))
	if err != nil {
		return nil, err
	}

	reconciles, err := meter.Int64Counter("farmgate_history_reconciles_total",
		metric.WithDescription("History reconciliation outcomes"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		uploadEvents:      uploads,
		reportResolutions: resolutions,
		historyReconciles: reconciles,
	}, nil
}

// RecordUpload counts one upload engine event (created, poll, succeeded,
// failed, timeout) for the given upload kind.
func (m *Metrics) RecordUpload(event, kind string) {
	m.uploadEvents.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("event", event),
		attribute.String("kind", kind),
	))
}

// RecordResolution counts one report resolution by source (cached,
// direct_html, extracted_zip, manual, none).
func (m *Metrics) RecordResolution(source string) {
	m.reportResolutions.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("source", source),
	))
}

// RecordReconcile counts one history reconciliation.
func (m *Metrics) RecordReconcile(outcome string) {
	m.historyReconciles.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics holds all application metrics for materialization runs:
// - Latency: run and control-plane request duration
// - Traffic: runs, poll ticks, uploaded bytes
// - Errors: failed runs, failed notifications
// - Saturation: in-flight runs, notifier queue depth
type Metrics struct {
	meter metric.Meter

	// Run metrics
	RunDuration metric.Float64Histogram
	RunsTotal   metric.Int64Counter
	RunsActive  metric.Int64UpDownCounter
	PollTicks   metric.Int64Counter
	CancelsSent metric.Int64Counter

	// Control-plane client metrics
	RequestDuration metric.Float64Histogram

	// Staging metrics
	UploadBytes metric.Int64Counter

	// Notifier metrics
	NotifierDelivered metric.Int64Counter
	NotifierFailed    metric.Int64Counter
	NotifierDropped   metric.Int64Counter
	NotifierQueueSize metric.Int64Gauge
}

// NewMetrics creates and registers all metrics with a Prometheus exporter.
func NewMetrics(ctx context.Context) (*Metrics, http.Handler, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter("tecton-materialize")
	m := &Metrics{meter: meter}

	m.RunDuration, err = meter.Float64Histogram(
		"materialization_run_duration_seconds",
		metric.WithDescription("End-to-end run duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(1, 5, 15, 60, 300, 900, 1800, 3600, 7200, 14400),
	)
	if err != nil {
		return nil, nil, err
	}

	m.RunsTotal, err = meter.Int64Counter(
		"materialization_runs_total",
		metric.WithDescription("Total number of orchestrator runs by outcome"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.RunsActive, err = meter.Int64UpDownCounter(
		"materialization_runs_active",
		metric.WithDescription("Number of runs currently in flight (saturation)"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.PollTicks, err = meter.Int64Counter(
		"materialization_poll_ticks_total",
		metric.WithDescription("Total job status fetches while waiting for a terminal state"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.CancelsSent, err = meter.Int64Counter(
		"materialization_cancel_requests_total",
		metric.WithDescription("Total cancel requests issued to the control plane"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.RequestDuration, err = meter.Float64Histogram(
		"control_plane_request_duration_seconds",
		metric.WithDescription("Control-plane request latency in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, nil, err
	}

	m.UploadBytes, err = meter.Int64Counter(
		"staging_upload_bytes_total",
		metric.WithDescription("Total bytes uploaded to staged dataframe destinations"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.NotifierDelivered, err = meter.Int64Counter(
		"notifier_delivered_total",
		metric.WithDescription("Total run events successfully delivered"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.NotifierFailed, err = meter.Int64Counter(
		"notifier_failed_total",
		metric.WithDescription("Total run events failed after retries"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.NotifierDropped, err = meter.Int64Counter(
		"notifier_dropped_total",
		metric.WithDescription("Total run events dropped (buffer full or circuit open)"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.NotifierQueueSize, err = meter.Int64Gauge(
		"notifier_queue_size",
		metric.WithDescription("Current number of run events queued for delivery (saturation)"),
	)
	if err != nil {
		return nil, nil, err
	}

	return m, promhttp.Handler(), nil
}

// RecordRunStarted records a run entering flight.
func (m *Metrics) RecordRunStarted(ctx context.Context, workspace, target string) {
	m.RunsActive.Add(ctx, 1, metric.WithAttributes(workspaceAttr(workspace), targetAttr(target)))
}

// RecordRunFinished records a run leaving flight with its outcome
// ("completed", "skipped", or "failed") and duration.
func (m *Metrics) RecordRunFinished(ctx context.Context, workspace, target, outcome string, durationSeconds float64) {
	scope := metric.WithAttributes(workspaceAttr(workspace), targetAttr(target))
	m.RunsActive.Add(ctx, -1, scope)
	m.RunsTotal.Add(ctx, 1, metric.WithAttributes(workspaceAttr(workspace), targetAttr(target), outcomeAttr(outcome)))
	m.RunDuration.Record(ctx, durationSeconds, metric.WithAttributes(outcomeAttr(outcome)))
}

// RecordPollTick records one status fetch of a non-terminal job.
func (m *Metrics) RecordPollTick(ctx context.Context, workspace, target string) {
	m.PollTicks.Add(ctx, 1, metric.WithAttributes(workspaceAttr(workspace), targetAttr(target)))
}

// RecordCancelRequested records a cancel request issued to the control plane.
func (m *Metrics) RecordCancelRequested(ctx context.Context, workspace, target string) {
	m.CancelsSent.Add(ctx, 1, metric.WithAttributes(workspaceAttr(workspace), targetAttr(target)))
}

// RecordRequest records one control-plane request by operation and grouped
// HTTP status.
func (m *Metrics) RecordRequest(ctx context.Context, op string, statusCode int, durationSeconds float64) {
	m.RequestDuration.Record(ctx, durationSeconds, metric.WithAttributes(opAttr(op), statusAttr(statusCode)))
}

// RecordUpload records bytes staged at a signed destination.
func (m *Metrics) RecordUpload(ctx context.Context, workspace string, bytes int64) {
	m.UploadBytes.Add(ctx, bytes, metric.WithAttributes(workspaceAttr(workspace)))
}

// RecordNotifierDelivered records a successful run-event delivery.
func (m *Metrics) RecordNotifierDelivered(ctx context.Context) {
	m.NotifierDelivered.Add(ctx, 1)
}

// RecordNotifierFailed records a run-event delivery that failed after retries.
func (m *Metrics) RecordNotifierFailed(ctx context.Context) {
	m.NotifierFailed.Add(ctx, 1)
}

// RecordNotifierDropped records a dropped run event.
func (m *Metrics) RecordNotifierDropped(ctx context.Context) {
	m.NotifierDropped.Add(ctx, 1)
}

// RecordNotifierQueueSize records the current notifier queue depth.
func (m *Metrics) RecordNotifierQueueSize(ctx context.Context, size int64) {
	m.NotifierQueueSize.Record(ctx, size)
}

package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"salespulse/pkg/contracts"
)

const (
	ServiceName    = "salespulse"
	ServiceVersion = contracts.Version
	MeterName      = "salespulse"
)

// OTelConfig selects the exporters and sampling for the process.
// TraceExporter accepts "stdout" or "none", MetricExporter accepts
// "prometheus" or "none".
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	TraceExporter  string
	MetricExporter string
	EnableMetrics  bool
	EnableTracing  bool
	SampleRatio    float64
}

// OTelProviders bundles everything InitializeOTel set up. Providers
// stay nil when the corresponding signal is disabled.
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// DefaultOTelConfig traces to stdout and exposes metrics through the
// Prometheus endpoint, with the environment taken from ENVIRONMENT.
func DefaultOTelConfig() *OTelConfig {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	return &OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: ServiceVersion,
		Environment:    env,
		TraceExporter:  "stdout",
		MetricExporter: "prometheus",
		EnableMetrics:  true,
		EnableTracing:  true,
		SampleRatio:    1.0,
	}
}

// InitializeOTel wires up tracing, metrics and propagation per cfg.
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = DefaultOTelConfig()
	}
	ctx := context.Background()

	logger.InfoContext(ctx, "initializing OpenTelemetry",
		slog.String("service", cfg.ServiceName),
		slog.String("version", cfg.ServiceVersion),
		slog.String("environment", cfg.Environment),
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	res := newResource(cfg)
	providers := &OTelProviders{Logger: logger}

	if cfg.EnableTracing {
		tp, err := newTracerProvider(cfg, res)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
		if tp != nil {
			providers.TracerProvider = tp
			providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))
			otel.SetTracerProvider(tp)
			logger.InfoContext(ctx, "tracing initialized",
				slog.String("exporter", cfg.TraceExporter),
				slog.Float64("sample_ratio", cfg.SampleRatio))
		}
	}

	if cfg.EnableMetrics {
		mp, scrape, err := newMeterProvider(cfg, res)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
		if mp != nil {
			providers.MeterProvider = mp
			providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))
			providers.PrometheusHTTP = scrape
			otel.SetMeterProvider(mp)
			logger.InfoContext(ctx, "metrics initialized",
				slog.String("exporter", cfg.MetricExporter))
		}
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.InfoContext(ctx, "OpenTelemetry initialization complete",
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	return providers, nil
}

// newResource identifies this process in exported telemetry. The
// nanosecond suffix keeps two providers created back to back apart,
// which matters for Prometheus target_info.
func newResource(cfg *OTelConfig) *resource.Resource {
	hostname, _ := os.Hostname()
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", fmt.Sprintf("%s-%d", hostname, time.Now().UnixNano())),
	)
}

func newTracerProvider(cfg *OTelConfig, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	var exporter sdktrace.SpanExporter

	switch cfg.TraceExporter {
	case "stdout":
		var err error
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
	), nil
}

func newMeterProvider(cfg *OTelConfig, res *resource.Resource) (*sdkmetric.MeterProvider, http.Handler, error) {
	switch cfg.MetricExporter {
	case "prometheus":
		exporter, err := prometheus.New()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)
		return mp, promhttp.Handler(), nil
	case "none":
		return nil, nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported metric exporter: %s", cfg.MetricExporter)
	}
}

// Shutdown flushes and stops whichever providers were started.
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error
	if p.TracerProvider != nil {
		errs = append(errs, p.TracerProvider.Shutdown(ctx))
	}
	if p.MeterProvider != nil {
		errs = append(errs, p.MeterProvider.Shutdown(ctx))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("opentelemetry shutdown: %w", err)
	}

	p.Logger.InfoContext(ctx, "OpenTelemetry shutdown complete")
	return nil
}

// Load result attribute values for dataset_loads_total.
const (
	LoadResultHit   = "hit"
	LoadResultMiss  = "miss"
	LoadResultError = "error"
)

// BusinessMetrics carries the domain instruments. One instance per
// process, shared by the loader, the services, the hub and the HTTP
// middleware.
type BusinessMetrics struct {
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	DatasetLoadsTotal   metric.Int64Counter
	DatasetLoadDuration metric.Float64Histogram
	DatasetRefreshes    metric.Int64Counter
	DatasetRowsLoaded   metric.Int64Counter

	ReportsGenerated        metric.Int64Counter
	ReportGenerationSeconds metric.Float64Histogram
	ReportErrors            metric.Int64Counter

	WebSocketConnections  metric.Int64UpDownCounter
	WebSocketMessagesSent metric.Int64Counter

	SystemErrors metric.Int64Counter
}

func CreateBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	bm := &BusinessMetrics{}

	var err error
	if bm.HTTPRequestsTotal, err = meter.Int64Counter("http_requests_total",
		metric.WithDescription("Total HTTP requests served")); err != nil {
		return nil, err
	}
	if bm.HTTPRequestDuration, err = meter.Float64Histogram("http_request_duration_seconds",
		metric.WithDescription("HTTP request latency"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if bm.HTTPActiveRequests, err = meter.Int64UpDownCounter("http_active_requests",
		metric.WithDescription("In-flight HTTP requests")); err != nil {
		return nil, err
	}

	if bm.DatasetLoadsTotal, err = meter.Int64Counter("dataset_loads_total",
		metric.WithDescription("Sales dataset load requests by result")); err != nil {
		return nil, err
	}
	if bm.DatasetLoadDuration, err = meter.Float64Histogram("dataset_load_duration_seconds",
		metric.WithDescription("Sales dataset load latency"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if bm.DatasetRefreshes, err = meter.Int64Counter("dataset_refreshes_total",
		metric.WithDescription("Forced dataset refreshes")); err != nil {
		return nil, err
	}
	if bm.DatasetRowsLoaded, err = meter.Int64Counter("dataset_rows_loaded_total",
		metric.WithDescription("Rows parsed from the sales CSV")); err != nil {
		return nil, err
	}

	if bm.ReportsGenerated, err = meter.Int64Counter("reports_generated_total",
		metric.WithDescription("Report files generated by format")); err != nil {
		return nil, err
	}
	if bm.ReportGenerationSeconds, err = meter.Float64Histogram("report_generation_duration_seconds",
		metric.WithDescription("Report generation latency"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if bm.ReportErrors, err = meter.Int64Counter("report_errors_total",
		metric.WithDescription("Report generation failures")); err != nil {
		return nil, err
	}

	if bm.WebSocketConnections, err = meter.Int64UpDownCounter("websocket_connections_active",
		metric.WithDescription("Connected WebSocket clients")); err != nil {
		return nil, err
	}
	if bm.WebSocketMessagesSent, err = meter.Int64Counter("websocket_messages_sent_total",
		metric.WithDescription("WebSocket messages broadcast")); err != nil {
		return nil, err
	}

	if bm.SystemErrors, err = meter.Int64Counter("system_errors_total",
		metric.WithDescription("Requests answered with a server error")); err != nil {
		return nil, err
	}

	return bm, nil
}

// TraceIDFromContext returns the active trace id for log correlation,
// or "" outside a span.
func TraceIDFromContext(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return sc.TraceID().String()
	}
	return ""
}

// SpanFromContext returns the current span.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// AddSpanEvent attaches a named event to the active span. A no-op
// outside a recording span.
func AddSpanEvent(ctx context.Context, name string, attributes map[string]interface{}) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	attrs := make([]attribute.KeyValue, 0, len(attributes))
	for k, v := range attributes {
		attrs = append(attrs, anyAttribute(k, v))
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// RecordError marks the active span failed and records err on it.
func RecordError(ctx context.Context, err error, options ...trace.EventOption) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.RecordError(err, options...)
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanAttributes sets loosely typed attributes on the active span.
func SetSpanAttributes(ctx context.Context, attributes map[string]interface{}) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	for k, v := range attributes {
		span.SetAttributes(anyAttribute(k, v))
	}
}

func anyAttribute(key string, value interface{}) attribute.KeyValue {
	switch val := value.(type) {
	case string:
		return attribute.String(key, val)
	case int:
		return attribute.Int(key, val)
	case int64:
		return attribute.Int64(key, val)
	case float64:
		return attribute.Float64(key, val)
	case bool:
		return attribute.Bool(key, val)
	default:
		return attribute.String(key, fmt.Sprintf("%v", val))
	}
}

// RecordDatasetLoad records the outcome of a dataset load request.
// result is one of LoadResultHit, LoadResultMiss or LoadResultError.
func RecordDatasetLoad(ctx context.Context, metrics *BusinessMetrics, result string, rows int, duration time.Duration) {
	if metrics == nil {
		return
	}

	resultAttr := metric.WithAttributes(attribute.String("result", result))
	metrics.DatasetLoadsTotal.Add(ctx, 1, resultAttr)
	metrics.DatasetLoadDuration.Record(ctx, duration.Seconds(), resultAttr)

	// Cache hits reuse already-parsed rows, only count fresh parses.
	if result == LoadResultMiss && rows > 0 {
		metrics.DatasetRowsLoaded.Add(ctx, int64(rows))
	}

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.AddEvent("dataset.load",
			trace.WithAttributes(
				attribute.String("result", result),
				attribute.Int("rows", rows),
				attribute.Float64("duration_seconds", duration.Seconds()),
			),
		)
	}
}

// RecordReportGeneration records metrics for a report generation attempt.
func RecordReportGeneration(ctx context.Context, metrics *BusinessMetrics, format string, duration time.Duration, err error) {
	if metrics == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("format", format),
	}

	statusAttr := attribute.String("status", "success")
	if err != nil {
		statusAttr = attribute.String("status", "failure")
		metrics.ReportErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	} else {
		metrics.ReportsGenerated.Add(ctx, 1, metric.WithAttributes(attrs...))
	}

	metrics.ReportGenerationSeconds.Record(ctx, duration.Seconds(),
		metric.WithAttributes(append(attrs, statusAttr)...))
}

// RecordWebSocketConnectionChange adjusts the connected clients gauge.
func RecordWebSocketConnectionChange(ctx context.Context, metrics *BusinessMetrics, delta int64) {
	if metrics == nil {
		return
	}

	metrics.WebSocketConnections.Add(ctx, delta)
}

// RecordWebSocketBroadcast counts messages fanned out to clients.
func RecordWebSocketBroadcast(ctx context.Context, metrics *BusinessMetrics, messageType string, clients int64) {
	if metrics == nil {
		return
	}

	metrics.WebSocketMessagesSent.Add(ctx, clients,
		metric.WithAttributes(attribute.String("type", messageType)))
}

package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"salespulse/internal/infrastructure"
)

// OTelMiddleware wraps every request in a server span and feeds the
// HTTP counters and duration histogram.
type OTelMiddleware struct {
	tracer          trace.Tracer
	businessMetrics *infrastructure.BusinessMetrics
}

// NewOTelMiddleware builds the middleware together with the business
// metrics instruments it records into. There must be exactly one of
// these per process so the loader, services and HTTP layer share one
// set of instruments.
func NewOTelMiddleware(providers *infrastructure.OTelProviders) (*OTelMiddleware, error) {
	bm, err := infrastructure.CreateBusinessMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}
	return &OTelMiddleware{tracer: providers.Tracer, businessMetrics: bm}, nil
}

// Metrics returns the shared instruments.
func (m *OTelMiddleware) Metrics() *infrastructure.BusinessMetrics {
	return m.businessMetrics
}

func (m *OTelMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		ctx, span := m.tracer.Start(ctx,
			fmt.Sprintf("%s %s", r.Method, r.URL.Path),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(requestSpanAttrs(r)...),
		)
		defer span.End()

		ctx = infrastructure.WithTraceID(ctx, span.SpanContext().TraceID().String())
		r = r.WithContext(ctx)

		m.businessMetrics.HTTPActiveRequests.Add(ctx, 1)
		defer m.businessMetrics.HTTPActiveRequests.Add(ctx, -1)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		labels := metric.WithAttributes(
			attribute.String("method", r.Method),
			attribute.String("route", routePattern(r)),
			attribute.Int("status_code", rec.status),
		)
		m.businessMetrics.HTTPRequestsTotal.Add(ctx, 1, labels)
		m.businessMetrics.HTTPRequestDuration.Record(ctx, time.Since(start).Seconds(), labels)

		span.SetAttributes(
			semconv.HTTPResponseStatusCodeKey.Int(rec.status),
			semconv.HTTPResponseBodySizeKey.Int64(rec.written),
		)
		if rec.status >= 400 {
			span.SetStatus(codes.Error, http.StatusText(rec.status))
		}
		if rec.status >= 500 {
			m.businessMetrics.SystemErrors.Add(ctx, 1, metric.WithAttributes(
				attribute.String("route", routePattern(r)),
			))
		}
	})
}

func requestSpanAttrs(r *http.Request) []attribute.KeyValue {
	return []attribute.KeyValue{
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String(r.URL.Path),
		semconv.ServerAddressKey.String(r.Host),
		semconv.UserAgentOriginalKey.String(r.UserAgent()),
		semconv.HTTPRequestBodySizeKey.Int64(r.ContentLength),
		semconv.ClientAddressKey.String(realIP(r)),
	}
}

// statusRecorder captures the status code and body size for the span
// and the metric labels.
type statusRecorder struct {
	http.ResponseWriter
	status  int
	written int64
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	n, err := sr.ResponseWriter.Write(b)
	sr.written += int64(n)
	return n, err
}

// routePattern prefers the Chi pattern so metric labels stay low
// cardinality, falling back to the raw path outside a Chi router.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// WebSocketTraceMiddleware spans the websocket upgrade request so the
// connection's trace id is in place before the hub takes over.
func WebSocketTraceMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	tracer := otel.Tracer("salespulse.websocket")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracer.Start(r.Context(), "websocket_upgrade",
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.HTTPRouteKey.String("/ws"),
					attribute.String("connection.type", "websocket"),
					attribute.String("origin", r.Header.Get("Origin")),
				),
			)
			defer span.End()

			traceID := span.SpanContext().TraceID().String()
			logger.InfoContext(ctx, "websocket upgrade requested",
				slog.String("origin", r.Header.Get("Origin")),
				slog.String("trace_id", traceID),
			)

			next.ServeHTTP(w, r.WithContext(infrastructure.WithTraceID(ctx, traceID)))
		})
	}
}

// realIP honors proxy headers before falling back to the socket address.
func realIP(r *http.Request) string {
	for _, header := range []string{"X-Forwarded-For", "X-Real-IP"} {
		if ip := r.Header.Get(header); ip != "" {
			return ip
		}
	}
	return r.RemoteAddr
}

package observe

import (
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Middleware instruments HTTP handlers: it continues the W3C trace context
// from the request headers, wraps the request in a server span, records the
// duration histogram, and debug-logs the outcome with trace correlation.
func Middleware(m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return &httpInstrument{next: next, metrics: m, propagator: propagation.TraceContext{}}
	}
}

type httpInstrument struct {
	next       http.Handler
	metrics    *Metrics
	propagator propagation.TextMapPropagator
}

func (h *httpInstrument) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	ctx := h.propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := StartSpan(ctx, "HTTP "+r.Method+" "+r.URL.Path,
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
	h.next.ServeHTTP(sw, r.WithContext(ctx))

	elapsed := time.Since(start)
	span.SetAttributes(attribute.Int("http.status_code", sw.status))
	h.metrics.HTTPRequestDuration.Record(ctx, elapsed.Seconds(),
		metric.WithAttributes(
			attribute.String("method", r.Method),
			attribute.String("path", r.URL.Path),
		),
	)

	Logger(ctx).Debug("http request",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", sw.status),
		slog.Duration("duration", elapsed),
	)
}

// statusWriter captures the status code written downstream. Handlers that
// never call WriteHeader implicitly produce 200.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

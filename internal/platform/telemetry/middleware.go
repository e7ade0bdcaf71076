package telemetry

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/quotesync/internal/platform/logging"
)

const instrumentationName = "github.com/jsamuelsen/quotesync/internal/platform/telemetry"

// HeaderTraceID carries the trace ID back to the caller.
const HeaderTraceID = "X-Trace-ID"

// Middleware returns otelgin's tracing middleware followed by one that
// echoes the trace ID, adds it to the context logger and records request
// metrics by route.
func Middleware(serviceName string) []gin.HandlerFunc {
	m, err := newHTTPMetrics(otel.Meter(instrumentationName))
	if err != nil {
		// Instruments only fail on invalid names; keep serving without them.
		otel.Handle(err)
	}

	return []gin.HandlerFunc{otelgin.Middleware(serviceName), m.handle}
}

type httpMetrics struct {
	duration metric.Float64Histogram
	requests metric.Int64Counter
	inFlight metric.Int64UpDownCounter
}

func newHTTPMetrics(meter metric.Meter) (*httpMetrics, error) {
	duration, errDuration := meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("HTTP request duration"), metric.WithUnit("s"))
	requests, errRequests := meter.Int64Counter("http.server.request.total",
		metric.WithDescription("HTTP requests served"))
	inFlight, errInFlight := meter.Int64UpDownCounter("http.server.active_requests",
		metric.WithDescription("HTTP requests in progress"))

	if err := errors.Join(errDuration, errRequests, errInFlight); err != nil {
		return nil, err
	}

	return &httpMetrics{duration: duration, requests: requests, inFlight: inFlight}, nil
}

// handle works on a nil receiver, in which case only the trace ID is propagated.
func (m *httpMetrics) handle(c *gin.Context) {
	ctx := c.Request.Context()

	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		id := sc.TraceID().String()
		c.Header(HeaderTraceID, id)
		c.Request = c.Request.WithContext(logging.WithTraceID(ctx, id))
	}

	if m == nil {
		c.Next()
		return
	}

	start := time.Now()
	base := []attribute.KeyValue{
		attribute.String("http.method", c.Request.Method),
		attribute.String("http.route", c.FullPath()),
	}

	m.inFlight.Add(ctx, 1, metric.WithAttributes(base...))
	defer m.inFlight.Add(ctx, -1, metric.WithAttributes(base...))

	c.Next()

	done := metric.WithAttributes(append(base, attribute.Int("http.status_code", c.Writer.Status()))...)
	m.duration.Record(ctx, time.Since(start).Seconds(), done)
	m.requests.Add(ctx, 1, done)
}

package clients

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/quotesync/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quotesync/internal/platform/config"
	"github.com/jsamuelsen/quotesync/internal/platform/logging"
)

const (
	instrumentationName = "github.com/jsamuelsen/quotesync/internal/adapters/clients"

	defaultTimeout      = 10 * time.Second
	defaultMaxBodyBytes = 4 << 20
)

// Config configures a Client.
type Config struct {
	// BaseURL is prefixed to every path, e.g. "https://jsonplaceholder.typicode.com".
	BaseURL string

	// ServiceName identifies the feed in logs, spans and metrics.
	ServiceName string

	// Timeout bounds a single attempt.
	Timeout time.Duration

	// MaxBodyBytes bounds a response body. Larger bodies fail with ErrBodyTooLarge.
	MaxBodyBytes int64

	// UserAgent is sent on every request when set.
	UserAgent string

	Retry   config.RetryConfig
	Circuit config.CircuitBreakerConfig

	// Transport overrides the default round tripper.
	Transport http.RoundTripper

	Logger *slog.Logger
}

// Client fetches documents from one downstream service with retry,
// a circuit breaker, tracing, metrics and request ID propagation.
type Client struct {
	http    *http.Client
	cfg     Config
	baseURL string
	logger  *slog.Logger
	breaker *Breaker
	tracer  trace.Tracer

	duration metric.Float64Histogram
	requests metric.Int64Counter
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	if cfg.ServiceName == "" {
		return nil, errors.New("service name is required")
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}

	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry.MaxAttempts = 1
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger = logger.With(slog.String("component", "clients.Client"), slog.String("downstream", cfg.ServiceName))

	breaker := NewBreaker(BreakerConfig{
		MaxFailures: cfg.Circuit.MaxFailures,
		Cooldown:    cfg.Circuit.Timeout,
		Probes:      cfg.Circuit.HalfOpenLimit,
	})
	breaker.OnChange(func(from, to State) {
		logger.Warn("circuit breaker state changed", slog.String("from", from.String()), slog.String("to", to.String()))
	})

	meter := otel.Meter(instrumentationName)

	duration, err := meter.Float64Histogram(
		"quotesync.feed.request.duration",
		metric.WithDescription("Duration of feed fetches including retries"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration metric: %w", err)
	}

	requests, err := meter.Int64Counter(
		"quotesync.feed.request.total",
		metric.WithDescription("Feed fetches by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating request counter: %w", err)
	}

	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	return &Client{
		http:     &http.Client{Timeout: cfg.Timeout, Transport: transport},
		cfg:      cfg,
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		logger:   logger,
		breaker:  breaker,
		tracer:   otel.Tracer(instrumentationName),
		duration: duration,
		requests: requests,
	}, nil
}

// Fetch GETs path and returns the response body of a 2xx response.
// Non-2xx responses fail with *StatusError; 5xx and 429 are retried first.
func (c *Client) Fetch(ctx context.Context, path, accept string) ([]byte, error) {
	start := time.Now()
	logger := logging.FromContext(ctx).With(slog.String("downstream", c.cfg.ServiceName), slog.String("path", path))

	if !c.breaker.Allow() {
		c.record(ctx, 0, time.Since(start), "circuit_open")
		logger.Warn("fetch blocked by circuit breaker")

		return nil, ErrCircuitOpen
	}

	ctx, span := c.tracer.Start(ctx, "GET "+c.cfg.ServiceName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", http.MethodGet),
			attribute.String("http.url", c.URL(path)),
			attribute.String("peer.service", c.cfg.ServiceName),
		),
	)
	defer span.End()

	body, status, err := c.attempts(ctx, path, accept, logger)
	elapsed := time.Since(start)

	switch {
	case err == nil:
		c.breaker.Success()
		span.SetAttributes(attribute.Int("http.status_code", status))
		c.record(ctx, status, elapsed, "success")
		logger.Debug("fetch completed", slog.Int("status", status), slog.Duration("duration", elapsed))

		return body, nil

	case status > 0 && status < http.StatusInternalServerError && status != http.StatusTooManyRequests:
		// The feed answered; a 4xx is not a reason to open the breaker.
		c.breaker.Success()
	default:
		c.breaker.Failure()
	}

	span.SetStatus(codes.Error, err.Error())
	c.record(ctx, status, elapsed, "error")
	logger.Warn("fetch failed", slog.Duration("duration", elapsed), slog.Any("error", err))

	return nil, err
}

// attempts runs the retry loop. status is the last HTTP status seen, or 0.
func (c *Client) attempts(ctx context.Context, path, accept string, logger *slog.Logger) ([]byte, int, error) {
	var (
		lastErr error
		status  int
	)

	for attempt := range c.cfg.Retry.MaxAttempts {
		if attempt > 0 {
			wait := c.backoff(attempt)
			logger.Debug("retrying fetch", slog.Int("attempt", attempt+1), slog.Duration("backoff", wait))

			select {
			case <-ctx.Done():
				return nil, status, ctx.Err()
			case <-time.After(wait):
			}
		}

		var body []byte

		body, status, lastErr = c.once(ctx, path, accept)
		if lastErr == nil {
			return body, status, nil
		}

		if !retryable(status, lastErr) {
			return nil, status, lastErr
		}
	}

	if c.cfg.Retry.MaxAttempts == 1 {
		return nil, status, lastErr
	}

	return nil, status, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, c.cfg.Retry.MaxAttempts, lastErr)
}

func (c *Client) once(ctx context.Context, path, accept string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(path), http.NoBody)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}

	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	if id := middleware.RequestIDFromContext(ctx); id != "" {
		req.Header.Set(middleware.HeaderRequestID, id)
	}

	if id := middleware.CorrelationIDFromContext(ctx); id != "" {
		req.Header.Set(middleware.HeaderCorrelationID, id)
	}

	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, c.cfg.MaxBodyBytes))
		return nil, resp.StatusCode, &StatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBodyBytes+1))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("reading body: %w", err)
	}

	if int64(len(body)) > c.cfg.MaxBodyBytes {
		return nil, resp.StatusCode, ErrBodyTooLarge
	}

	return body, resp.StatusCode, nil
}

// URL joins the base URL and path.
func (c *Client) URL(path string) string {
	if path == "" {
		return c.baseURL
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return c.baseURL + path
}

// CircuitState returns the breaker position.
func (c *Client) CircuitState() State {
	return c.breaker.State()
}

// backoff grows exponentially from InitialInterval, capped at MaxInterval, with ± JitterFactor jitter.
func (c *Client) backoff(attempt int) time.Duration {
	r := c.cfg.Retry
	d := float64(r.InitialInterval) * math.Pow(r.Multiplier, float64(attempt-1))

	if r.MaxInterval > 0 && d > float64(r.MaxInterval) {
		d = float64(r.MaxInterval)
	}

	d += d * r.JitterFactor * (rand.Float64()*2 - 1) //nolint:gosec // jitter only

	return time.Duration(d)
}

func (c *Client) record(ctx context.Context, status int, d time.Duration, result string) {
	attrs := []attribute.KeyValue{
		attribute.String("peer.service", c.cfg.ServiceName),
		attribute.String("result", result),
	}

	if status > 0 {
		attrs = append(attrs, attribute.Int("http.status_code", status))
	}

	c.duration.Record(ctx, d.Seconds(), metric.WithAttributes(attrs...))
	c.requests.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func retryable(status int, err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	if status >= http.StatusInternalServerError || status == http.StatusTooManyRequests {
		return true
	}

	if status > 0 {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var opErr *net.OpError

	return errors.As(err, &opErr)
}

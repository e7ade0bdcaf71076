package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/platform/logging"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

// Defaults applied by NewSyncEngine.
const (
	DefaultSyncInterval = 30 * time.Second
	DefaultManualRate   = 0.2
	DefaultManualBurst  = 2
)

// SyncState is the position of the engine's state machine.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncSyncing
)

// String implements fmt.Stringer.
func (s SyncState) String() string {
	if s == SyncSyncing {
		return "syncing"
	}

	return "idle"
}

// MarshalText renders the state by name in JSON.
func (s SyncState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Ticker delivers the recurring schedule. *time.Ticker satisfies it via realTicker.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct{ *time.Ticker }

func (t realTicker) C() <-chan time.Time { return t.Ticker.C }

func newRealTicker(d time.Duration) Ticker {
	return realTicker{time.NewTicker(d)}
}

// SyncStatus is a point-in-time view of the engine.
type SyncStatus struct {
	Running     bool          `json:"running"`
	State       SyncState     `json:"state"`
	Interval    time.Duration `json:"interval"`
	Cycles      int64         `json:"cycles"`
	Failures    int64         `json:"failures"`
	LastAttempt time.Time     `json:"lastAttempt,omitzero"`
	LastSuccess time.Time     `json:"lastSuccess,omitzero"`
	LastError   string        `json:"lastError,omitempty"`
	LastResult  *SyncResult   `json:"lastResult,omitempty"`
}

// SyncEngineConfig contains the engine dependencies and schedule.
type SyncEngineConfig struct {
	Feed       ports.QuoteFeed
	Repository *QuoteRepository

	// Interval between scheduled cycles. Defaults to DefaultSyncInterval.
	Interval time.Duration

	// ManualRate and ManualBurst throttle SyncNow.
	ManualRate  float64
	ManualBurst int

	Logger *slog.Logger

	// NewTicker and Now are replaced in tests.
	NewTicker func(time.Duration) Ticker
	Now       func() time.Time
}

// SyncEngine polls the feed and merges what it returns into the repository.
// Scheduled cycles and SyncNow calls are serialized.
type SyncEngine struct {
	cycle     cycle
	interval  time.Duration
	logger    *slog.Logger
	newTicker func(time.Duration) Ticker
	now       func() time.Time
	manual    *rate.Limiter

	cycleMu sync.Mutex

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
	state   SyncState
	status  SyncStatus

	tracer   trace.Tracer
	cycles   metric.Int64Counter
	duration metric.Float64Histogram
}

// NewSyncEngine creates a stopped engine. Panics if Feed or Repository is nil.
func NewSyncEngine(cfg SyncEngineConfig) (*SyncEngine, error) {
	if cfg.Feed == nil || cfg.Repository == nil {
		panic("app: SyncEngine requires a Feed and a Repository")
	}

	if cfg.Interval <= 0 {
		cfg.Interval = DefaultSyncInterval
	}

	if cfg.ManualRate <= 0 {
		cfg.ManualRate = DefaultManualRate
	}

	if cfg.ManualBurst < 1 {
		cfg.ManualBurst = DefaultManualBurst
	}

	if cfg.NewTicker == nil {
		cfg.NewTicker = newRealTicker
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger = logger.With(slog.String("component", "app.SyncEngine"))

	meter := otel.Meter(instrumentationName)

	cycles, err := meter.Int64Counter(
		"quotesync.sync.cycles",
		metric.WithDescription("Sync cycles by trigger and result"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating cycle counter: %w", err)
	}

	duration, err := meter.Float64Histogram(
		"quotesync.sync.duration",
		metric.WithDescription("Duration of sync cycles"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating cycle duration metric: %w", err)
	}

	done := make(chan struct{})
	close(done)

	return &SyncEngine{
		cycle:     cycle{feed: cfg.Feed, repo: cfg.Repository, logger: logger},
		interval:  cfg.Interval,
		logger:    logger,
		newTicker: cfg.NewTicker,
		now:       cfg.Now,
		manual:    rate.NewLimiter(rate.Limit(cfg.ManualRate), cfg.ManualBurst),
		done:      done,
		status:    SyncStatus{Interval: cfg.Interval},
		tracer:    otel.Tracer(instrumentationName),
		cycles:    cycles,
		duration:  duration,
	}, nil
}

// Start runs one cycle immediately, then one every interval, until Stop is
// called or ctx is canceled. Calling Start while running is a no-op.
func (e *SyncEngine) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return
	}

	e.running = true
	e.stop = make(chan struct{})
	e.done = make(chan struct{})

	e.logger.InfoContext(ctx, "sync engine started", slog.Duration("interval", e.interval))

	go e.loop(ctx, e.stop, e.done)
}

// Stop cancels the schedule. It does not wait: a cycle already fetching
// completes and applies its merge. Safe to call in any state.
func (e *SyncEngine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}

	e.running = false
	close(e.stop)

	e.logger.Info("sync engine stopped")
}

// release marks the engine stopped if stop still belongs to the current run.
func (e *SyncEngine) release(stop chan struct{}) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running && e.stop == stop {
		e.running = false
		close(stop)
	}
}

// Done is closed once the schedule loop has exited.
func (e *SyncEngine) Done() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.done
}

// Running reports whether the schedule is active.
func (e *SyncEngine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.running
}

// State returns SyncSyncing while a cycle is in progress.
func (e *SyncEngine) State() SyncState {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state
}

// Status returns a copy of the engine status.
func (e *SyncEngine) Status() SyncStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	status := e.status
	status.Running = e.running
	status.State = e.state

	if e.status.LastResult != nil {
		last := *e.status.LastResult
		status.LastResult = &last
	}

	return status
}

// SyncNow runs one cycle on the caller's goroutine. Calls beyond the
// configured rate fail with an error wrapping domain.ErrThrottled.
func (e *SyncEngine) SyncNow(ctx context.Context) (SyncResult, error) {
	if !e.manual.Allow() {
		return SyncResult{}, fmt.Errorf("%w: manual sync limited to %g per second", domain.ErrThrottled, float64(e.manual.Limit()))
	}

	return e.runCycle(ctx, "manual")
}

func (e *SyncEngine) loop(ctx context.Context, stop chan struct{}, done chan<- struct{}) {
	defer close(done)

	_, _ = e.runCycle(ctx, "schedule")

	ticker := e.newTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			e.release(stop)
			return
		case <-ticker.C():
		}

		// A tick and a stop can be ready together; stop wins.
		select {
		case <-stop:
			return
		default:
		}

		_, _ = e.runCycle(ctx, "schedule")
	}
}

func (e *SyncEngine) runCycle(ctx context.Context, trigger string) (SyncResult, error) {
	e.cycleMu.Lock()
	defer e.cycleMu.Unlock()

	ctx, span := e.tracer.Start(logging.WithSyncTrigger(ctx, trigger), "sync.cycle",
		trace.WithAttributes(attribute.String("sync.trigger", trigger)))
	defer span.End()

	start := e.now()
	e.setState(SyncSyncing, start)

	result, err := e.cycle.run(ctx, e.now)
	elapsed := e.now().Sub(start)

	e.finish(result, err)

	outcome := "success"
	if err != nil {
		outcome = "failure"
	}

	attrs := metric.WithAttributes(attribute.String("trigger", trigger), attribute.String("result", outcome))
	e.cycles.Add(ctx, 1, attrs)
	e.duration.Record(ctx, elapsed.Seconds(), attrs)

	if err != nil {
		stage, _ := CycleStageOf(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(stage))

		e.logger.WarnContext(ctx, "sync cycle failed, collection unchanged",
			slog.String("trigger", trigger),
			slog.String("stage", string(stage)),
			slog.Any("error", err),
		)

		return SyncResult{}, err
	}

	span.SetAttributes(attribute.Int("sync.fetched", result.Fetched), attribute.Int("sync.total", result.Total))

	e.logger.InfoContext(ctx, "sync cycle completed",
		slog.String("trigger", trigger),
		slog.Int("fetched", result.Fetched),
		slog.Int("kept_local", result.Kept),
		slog.Int("dropped_local", result.Dropped),
		slog.Int("total", result.Total),
		slog.Duration("duration", elapsed),
	)

	return result, nil
}

func (e *SyncEngine) setState(state SyncState, at time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state = state
	e.status.LastAttempt = at
}

func (e *SyncEngine) finish(result SyncResult, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state = SyncIdle
	e.status.Cycles++

	if err != nil {
		e.status.Failures++
		e.status.LastError = err.Error()

		return
	}

	e.status.LastSuccess = result.At
	e.status.LastError = ""
	e.status.LastResult = &result
}

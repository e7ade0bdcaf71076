package ports

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// DefaultCheckTimeout bounds a single health check.
const DefaultCheckTimeout = 2 * time.Second

// ErrDuplicateChecker is returned when attempting to register a health checker
// with a name that is already registered.
var ErrDuplicateChecker = errors.New("duplicate health checker")

// HealthChecker is implemented by components that can report their health.
// The store, the feed adapter and the quote repository register themselves
// at startup.
//
//	func (s *SQLiteStore) Name() string { return "sqlite-store" }
//
//	func (s *SQLiteStore) Check(ctx context.Context) error {
//	    return s.db.PingContext(ctx)
//	}
type HealthChecker interface {
	// Name identifies the component in readiness responses.
	Name() string

	// Check returns nil when the component is healthy. It must respect ctx.
	Check(ctx context.Context) error
}

// CheckOption tunes how a registered checker is run.
type CheckOption func(*registration)

// Optional marks a checker whose failure degrades the service instead of
// making it unready. The remote feed is optional: the collection is still
// served while it is down.
func Optional() CheckOption {
	return func(r *registration) { r.optional = true }
}

// WithTimeout overrides DefaultCheckTimeout for one checker.
func WithTimeout(d time.Duration) CheckOption {
	return func(r *registration) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// HealthRegistry aggregates health checks from multiple components.
type HealthRegistry interface {
	// Register adds a checker. Names must be unique.
	Register(checker HealthChecker, opts ...CheckOption) error

	// CheckAll runs every registered check concurrently.
	CheckAll(ctx context.Context) *HealthResult
}

// HealthStatus represents the overall health state.
type HealthStatus string

const (
	// HealthStatusHealthy indicates all checks passed.
	HealthStatusHealthy HealthStatus = "healthy"

	// HealthStatusDegraded indicates only optional checks failed.
	HealthStatusDegraded HealthStatus = "degraded"

	// HealthStatusUnhealthy indicates a required check failed.
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// Ready reports whether the service should receive traffic.
func (s HealthStatus) Ready() bool {
	return s != HealthStatusUnhealthy
}

// HealthResult contains the aggregated health check results.
type HealthResult struct {
	Status    HealthStatus            `json:"status"`
	Checks    map[string]*CheckResult `json:"checks"`
	Timestamp time.Time               `json:"timestamp"`
}

// CheckResult contains the result of a single health check.
type CheckResult struct {
	Status   HealthStatus  `json:"status"`
	Optional bool          `json:"optional,omitempty"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration"`
}

type registration struct {
	checker  HealthChecker
	optional bool
	timeout  time.Duration
}

// DefaultHealthRegistry is a thread-safe implementation of HealthRegistry.
type DefaultHealthRegistry struct {
	mu     sync.RWMutex
	checks []registration
	now    func() time.Time
}

// NewHealthRegistry creates a new health registry.
func NewHealthRegistry() *DefaultHealthRegistry {
	return &DefaultHealthRegistry{now: time.Now}
}

// Register adds a health checker to the registry.
func (r *DefaultHealthRegistry) Register(checker HealthChecker, opts ...CheckOption) error {
	reg := registration{checker: checker, timeout: DefaultCheckTimeout}
	for _, opt := range opts {
		opt(&reg)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := checker.Name()
	for _, c := range r.checks {
		if c.checker.Name() == name {
			return fmt.Errorf("%w: %s", ErrDuplicateChecker, name)
		}
	}

	r.checks = append(r.checks, reg)

	return nil
}

// CheckAll runs all registered health checks concurrently, each under its
// own timeout. Any failing required check makes the result unhealthy; failing
// optional checks only degrade it.
func (r *DefaultHealthRegistry) CheckAll(ctx context.Context) *HealthResult {
	r.mu.RLock()
	checks := append([]registration(nil), r.checks...)
	r.mu.RUnlock()

	result := &HealthResult{
		Status:    HealthStatusHealthy,
		Checks:    make(map[string]*CheckResult, len(checks)),
		Timestamp: r.now(),
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	for _, reg := range checks {
		wg.Go(func() {
			res := run(ctx, reg)

			mu.Lock()
			defer mu.Unlock()

			result.Checks[reg.checker.Name()] = res
			result.Status = worse(result.Status, res)
		})
	}

	wg.Wait()

	return result
}

func run(ctx context.Context, reg registration) *CheckResult {
	ctx, cancel := context.WithTimeout(ctx, reg.timeout)
	defer cancel()

	start := time.Now()
	err := reg.checker.Check(ctx)

	res := &CheckResult{
		Status:   HealthStatusHealthy,
		Optional: reg.optional,
		Duration: time.Since(start),
	}

	if err != nil {
		res.Status = HealthStatusUnhealthy
		res.Message = err.Error()
	}

	return res
}

func worse(current HealthStatus, res *CheckResult) HealthStatus {
	switch {
	case res.Status == HealthStatusHealthy:
		return current
	case !res.Optional:
		return HealthStatusUnhealthy
	case current == HealthStatusHealthy:
		return HealthStatusDegraded
	default:
		return current
	}
}

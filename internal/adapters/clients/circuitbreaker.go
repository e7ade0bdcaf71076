package clients

import (
	"slices"
	"sync"
	"time"
)

// State is a circuit breaker position.
type State int

const (
	// StateClosed lets every request through.
	StateClosed State = iota

	// StateOpen rejects requests until the cool-down elapses.
	StateOpen

	// StateHalfOpen lets a limited number of probes through.
	StateHalfOpen
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig tunes a Breaker.
type BreakerConfig struct {
	// MaxFailures consecutive failures open the breaker.
	MaxFailures int

	// Cooldown is how long the breaker stays open before probing.
	Cooldown time.Duration

	// Probes is both the number of concurrent half-open requests allowed
	// and the number of probe successes needed to close again.
	Probes int
}

// Breaker stops hammering a feed that keeps failing.
//
//	closed    --MaxFailures failures-->  open
//	open      --Cooldown elapsed------>  half-open
//	half-open --Probes successes------>  closed
//	half-open --any failure----------->  open
type Breaker struct {
	mu       sync.Mutex
	cfg      BreakerConfig
	state    State
	failures int
	probeOK  int
	inFlight int
	openedAt time.Time
	clock    func() time.Time
	onChange []func(from, to State)
}

// NewBreaker returns a closed breaker. Zero config values fall back to 1.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.MaxFailures < 1 {
		cfg.MaxFailures = 1
	}

	if cfg.Probes < 1 {
		cfg.Probes = 1
	}

	return &Breaker{cfg: cfg, clock: time.Now}
}

// OnChange registers fn to run after every state transition.
// Callbacks run on the goroutine that caused the transition, outside the lock.
func (b *Breaker) OnChange(fn func(from, to State)) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.onChange = append(b.onChange, fn)
}

// Allow reports whether a request may proceed. A true result must be
// followed by exactly one call to Success or Failure.
func (b *Breaker) Allow() bool {
	b.mu.Lock()

	var (
		allowed bool
		from    = b.state
	)

	switch b.state {
	case StateClosed:
		allowed = true
	case StateOpen:
		if b.clock().Sub(b.openedAt) >= b.cfg.Cooldown {
			b.moveLocked(StateHalfOpen)
			b.inFlight = 1
			allowed = true
		}
	case StateHalfOpen:
		if b.inFlight < b.cfg.Probes {
			b.inFlight++
			allowed = true
		}
	}

	to := b.state
	b.mu.Unlock()

	b.notify(from, to)

	return allowed
}

// Success records a request that reached the feed.
func (b *Breaker) Success() {
	b.mu.Lock()

	from := b.state

	switch b.state {
	case StateClosed:
		b.failures = 0
	case StateHalfOpen:
		b.inFlight--
		b.probeOK++

		if b.probeOK >= b.cfg.Probes {
			b.moveLocked(StateClosed)
		}
	}

	to := b.state
	b.mu.Unlock()

	b.notify(from, to)
}

// Failure records a request that could not reach the feed.
func (b *Breaker) Failure() {
	b.mu.Lock()

	from := b.state

	switch b.state {
	case StateClosed:
		b.failures++
		if b.failures >= b.cfg.MaxFailures {
			b.moveLocked(StateOpen)
		}
	case StateHalfOpen:
		b.inFlight--
		b.moveLocked(StateOpen)
	}

	to := b.state
	b.mu.Unlock()

	b.notify(from, to)
}

// State returns the current position.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.state
}

func (b *Breaker) moveLocked(to State) {
	if to == StateOpen {
		b.openedAt = b.clock()
	}

	if to != StateHalfOpen {
		b.inFlight = 0
	}

	b.state = to
	b.failures = 0
	b.probeOK = 0
}

func (b *Breaker) notify(from, to State) {
	if from == to {
		return
	}

	b.mu.Lock()
	callbacks := slices.Clone(b.onChange)
	b.mu.Unlock()

	for _, fn := range callbacks {
		fn(from, to)
	}
}

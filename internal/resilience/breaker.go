// Package resilience keeps a failing storage backend from stalling editing.
//
// Editors save snapshots and versions while they hold their session lock. A
// database that hangs until the call times out would freeze every keystroke,
// so [Gateway] puts a [Breaker] in front of the backend: after a run of
// failures it rejects calls immediately with [ErrCircuitOpen] until a probe
// succeeds again.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [Breaker.Do] while the breaker rejects calls.
var ErrCircuitOpen = errors.New("resilience: circuit open, storage calls suspended")

// State is the operating mode of a [Breaker].
type State int

const (
	// StateClosed forwards every call.
	StateClosed State = iota

	// StateOpen rejects calls with [ErrCircuitOpen] until the reset timeout
	// has passed.
	StateOpen

	// StateHalfOpen lets a limited number of probe calls through.
	StateHalfOpen
)

// String returns the lower-case name of the state.
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

// BreakerConfig holds the tuning knobs of a [Breaker].
type BreakerConfig struct {
	// Name labels log lines, e.g. "postgres".
	Name string

	// MaxFailures is the number of consecutive failures that open the
	// breaker. Default: 5.
	MaxFailures int

	// ResetTimeout is how long the breaker stays open. Default: 30s.
	ResetTimeout time.Duration

	// Probes is the number of successful half-open calls needed to close
	// again. Default: 1.
	Probes int

	// Counts reports whether err is an outage. Errors it rejects pass through
	// without affecting the breaker. Default: every non-nil error counts.
	Counts func(err error) bool

	// Now replaces time.Now in tests.
	Now func() time.Time
}

// Breaker is a three-state circuit breaker.
type Breaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration
	probes       int
	counts       func(error) bool
	now          func() time.Time

	mu         sync.Mutex
	state      State
	failures   int
	openedAt   time.Time
	inFlight   int
	probesDone int
}

// NewBreaker creates a closed [Breaker]. Zero config fields get defaults.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.Probes <= 0 {
		cfg.Probes = 1
	}
	if cfg.Counts == nil {
		cfg.Counts = func(err error) bool { return err != nil }
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Breaker{
		name:         cfg.Name,
		maxFailures:  cfg.MaxFailures,
		resetTimeout: cfg.ResetTimeout,
		probes:       cfg.Probes,
		counts:       cfg.Counts,
		now:          cfg.Now,
	}
}

// Do runs fn unless the breaker is open. While half-open only one probe runs
// at a time; concurrent calls are rejected.
func (b *Breaker) Do(fn func() error) error {
	probe, err := b.admit()
	if err != nil {
		return err
	}

	err = fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if probe {
		b.inFlight--
	}
	switch {
	case err != nil && b.counts(err):
		b.failLocked(probe)
	case err == nil:
		b.succeedLocked(probe)
	}
	return err
}

func (b *Breaker) admit() (probe bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen {
		if b.now().Sub(b.openedAt) < b.resetTimeout {
			return false, ErrCircuitOpen
		}
		b.state = StateHalfOpen
		b.probesDone = 0
		slog.Info("resilience: breaker half-open, probing", "name", b.name)
	}
	if b.state == StateHalfOpen {
		if b.inFlight > 0 {
			return false, ErrCircuitOpen
		}
		b.inFlight++
		return true, nil
	}
	return false, nil
}

func (b *Breaker) failLocked(probe bool) {
	if probe {
		b.state = StateOpen
		b.openedAt = b.now()
		slog.Warn("resilience: probe failed, breaker re-opened", "name", b.name)
		return
	}
	b.failures++
	if b.state == StateClosed && b.failures >= b.maxFailures {
		b.state = StateOpen
		b.openedAt = b.now()
		slog.Warn("resilience: breaker opened",
			"name", b.name,
			"consecutive_failures", b.failures,
			"reset_after", b.resetTimeout,
		)
	}
}

func (b *Breaker) succeedLocked(probe bool) {
	if !probe {
		b.failures = 0
		return
	}
	b.probesDone++
	if b.probesDone >= b.probes {
		b.state = StateClosed
		b.failures = 0
		slog.Info("resilience: breaker closed", "name", b.name)
	}
}

// State returns the current state. An open breaker whose reset timeout has
// passed reports [StateHalfOpen]; the transition happens on the next call.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.resetTimeout {
		return StateHalfOpen
	}
	return b.state
}

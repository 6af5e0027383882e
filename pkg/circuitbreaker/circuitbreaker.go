// Package circuitbreaker guards calls to the academic web portal. When the
// portal goes down (nightly maintenance windows are routine) the breaker
// opens and the monitor stops hammering it until a probe succeeds.
// No external dependencies - uses only standard library.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State of the breaker.
type State int

const (
	// StateClosed passes requests through normally.
	StateClosed State = iota
	// StateOpen rejects requests outright.
	StateOpen
	// StateHalfOpen lets a bounded number of probes through.
	StateHalfOpen
)

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

var (
	// ErrCircuitOpen rejects a call while the breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrTooManyRequests rejects a call when the half-open probe budget is
	// already in use.
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

// Config tunes the breaker.
type Config struct {
	// Name appears in state-change callbacks.
	Name string

	// FailureThreshold opens the breaker after this many consecutive
	// failures while closed.
	FailureThreshold int

	// SuccessThreshold closes the breaker after this many consecutive
	// half-open successes.
	SuccessThreshold int

	// OpenTimeout is how long the breaker stays open before allowing
	// probes.
	OpenTimeout time.Duration

	// MaxProbes bounds concurrent half-open requests.
	MaxProbes int

	// OnStateChange, when set, is invoked on every transition.
	OnStateChange func(name string, from, to State)
}

// Counts is a snapshot of request accounting.
type Counts struct {
	Requests             int
	TotalSuccesses       int
	TotalFailures        int
	ConsecutiveSuccesses int
	ConsecutiveFailures  int
}

// CircuitBreaker is a three-state breaker around an external call site.
type CircuitBreaker struct {
	config Config

	mu          sync.Mutex
	state       State
	counts      Counts
	openedAt    time.Time
	probesInUse int
}

// New creates a breaker, defaulting zero fields (5 failures to open, 2
// successes to close, 30s open window, 1 probe).
func New(config Config) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 2
	}
	if config.OpenTimeout <= 0 {
		config.OpenTimeout = 30 * time.Second
	}
	if config.MaxProbes <= 0 {
		config.MaxProbes = 1
	}
	return &CircuitBreaker{config: config, state: StateClosed}
}

// Execute runs fn if the breaker admits the call, then records the outcome.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn(ctx)
	cb.record(err)
	return err
}

// admit decides whether the next call may proceed.
func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return nil
	case StateOpen:
		if time.Since(cb.openedAt) < cb.config.OpenTimeout {
			return ErrCircuitOpen
		}
		cb.transition(StateHalfOpen)
		cb.probesInUse = 1
		return nil
	case StateHalfOpen:
		if cb.probesInUse >= cb.config.MaxProbes {
			return ErrTooManyRequests
		}
		cb.probesInUse++
		return nil
	}
	return ErrCircuitOpen
}

// record applies the call outcome to the state machine.
func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.counts.Requests++

	// The probe slot frees up once its call finishes.
	if cb.state == StateHalfOpen && cb.probesInUse > 0 {
		cb.probesInUse--
	}

	if err == nil {
		cb.counts.TotalSuccesses++
		cb.counts.ConsecutiveSuccesses++
		cb.counts.ConsecutiveFailures = 0
		if cb.state == StateHalfOpen && cb.counts.ConsecutiveSuccesses >= cb.config.SuccessThreshold {
			cb.transition(StateClosed)
		}
		return
	}

	cb.counts.TotalFailures++
	cb.counts.ConsecutiveFailures++
	cb.counts.ConsecutiveSuccesses = 0
	cb.openedAt = time.Now()

	switch cb.state {
	case StateClosed:
		if cb.counts.ConsecutiveFailures >= cb.config.FailureThreshold {
			cb.transition(StateOpen)
		}
	case StateHalfOpen:
		// A failed probe reopens immediately.
		cb.transition(StateOpen)
	}
}

// transition moves to a new state; caller holds the lock.
func (cb *CircuitBreaker) transition(to State) {
	if cb.state == to {
		return
	}
	from := cb.state
	cb.state = to
	cb.counts.ConsecutiveSuccesses = 0
	cb.counts.ConsecutiveFailures = 0
	cb.probesInUse = 0

	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, from, to)
	}
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Counts returns a snapshot of the accounting.
func (cb *CircuitBreaker) Counts() Counts {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.counts
}

// Reset forces the breaker closed and clears all counts.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.counts = Counts{}
	cb.probesInUse = 0
}

// WebPortalBreaker is tuned for the academic portal: it fails in long
// maintenance windows, so open early, wait a full minute, and probe one
// request at a time.
func WebPortalBreaker(onStateChange func(name string, from, to State)) *CircuitBreaker {
	return New(Config{
		Name:             "webportal",
		FailureThreshold: 3,
		SuccessThreshold: 2,
		OpenTimeout:      time.Minute,
		MaxProbes:        1,
		OnStateChange:    onStateChange,
	})
}

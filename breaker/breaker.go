package breaker

import (
	"sync"
	"time"

	"github.com/coder/quartz"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means the circuit is operating normally.
	StateClosed State = iota
	// StateOpen means the circuit is rejecting all attempts.
	StateOpen
	// StateHalfOpen means the circuit is probing for recovery.
	StateHalfOpen
)

// String returns the string representation of the state.
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

// Config configures a Breaker.
type Config struct {
	// FailureThreshold is the number of consecutive failures before opening
	// the circuit. Default: 5
	FailureThreshold int

	// SuccessThreshold is the number of consecutive half-open successes
	// required before closing the circuit. Default: 2
	SuccessThreshold int

	// RecoveryTimeout is how long the circuit stays open before probing.
	// Default: 30 seconds
	RecoveryTimeout time.Duration

	// HalfOpenMaxProbes caps in-flight probe attempts while half-open.
	// Default: 1
	HalfOpenMaxProbes int

	// OnStateChange is called when the circuit state changes.
	OnStateChange func(dependency string, from, to State)

	// Clock overrides the time source. Defaults to the real clock; tests
	// inject a mock.
	Clock quartz.Clock
}

func (c Config) withDefaults() Config {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = 2
	}
	if c.RecoveryTimeout <= 0 {
		c.RecoveryTimeout = 30 * time.Second
	}
	if c.HalfOpenMaxProbes <= 0 {
		c.HalfOpenMaxProbes = 1
	}
	if c.Clock == nil {
		c.Clock = quartz.NewReal()
	}
	return c
}

// Breaker tracks the health of one dependency. Safe for concurrent use.
//
// State only changes through CanAttempt (open to half-open after the recovery
// timeout) and RecordSuccess/RecordFailure (closed to open, half-open to
// closed, half-open back to open).
type Breaker struct {
	dependency string
	config     Config

	mu          sync.Mutex
	state       State
	failures    int
	successes   int
	probesInUse int
	openedAt    time.Time
}

// New creates a Breaker for the given dependency key.
func New(dependency string, config Config) *Breaker {
	return &Breaker{
		dependency: dependency,
		config:     config.withDefaults(),
		state:      StateClosed,
	}
}

// Dependency returns the dependency key this breaker guards.
func (b *Breaker) Dependency() string {
	return b.dependency
}

// CanAttempt reports whether a new call may be sent to the dependency.
//
// While closed it always returns true. While open it returns false until the
// recovery timeout has elapsed, at which point the circuit moves to half-open
// and the call is admitted as a probe. While half-open, at most
// HalfOpenMaxProbes admitted attempts may be in flight at once; each admitted
// attempt must be concluded with RecordSuccess, RecordFailure or Abandon.
func (b *Breaker) CanAttempt() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.currentStateLocked() {
	case StateOpen:
		return false
	case StateHalfOpen:
		if b.probesInUse >= b.config.HalfOpenMaxProbes {
			return false
		}
		b.probesInUse++
		return true
	default:
		return true
	}
}

// RecordSuccess reports that an admitted attempt succeeded.
//
// While closed it fully resets the consecutive failure count: a single
// success after partial failures heals the closed state. While half-open it
// counts toward SuccessThreshold and closes the circuit once reached. Calls
// while open are ignored.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Raw state read: only CanAttempt moves an elapsed open circuit to
	// half-open. A stray Record arriving after the window must not transition
	// or count.
	switch b.state {
	case StateClosed:
		b.failures = 0

	case StateHalfOpen:
		b.releaseProbeLocked()
		b.successes++
		if b.successes >= b.config.SuccessThreshold {
			b.transitionLocked(StateClosed)
		}
	}
	// Open: no attempt should have been admitted; ignore.
}

// RecordFailure reports that an admitted attempt failed.
//
// While closed it counts toward FailureThreshold and opens the circuit once
// reached. While half-open a single failure immediately reopens the circuit
// and restarts the recovery timeout. Calls while open are ignored.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.failures++
		if b.failures >= b.config.FailureThreshold {
			b.transitionLocked(StateOpen)
		}

	case StateHalfOpen:
		b.releaseProbeLocked()
		b.transitionLocked(StateOpen)
	}
}

// Abandon reports that an admitted attempt ended without an outcome, typically
// because the caller's context ended before the dependency answered. It only
// releases the half-open probe slot; no counter moves and no transition fires,
// so an abandoned probe neither heals nor trips the circuit.
//
// Every CanAttempt that returned true must be balanced by exactly one
// RecordSuccess, RecordFailure or Abandon, otherwise the half-open probe
// budget leaks and the circuit can never close again.
func (b *Breaker) Abandon() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.releaseProbeLocked()
	}
}

// State returns the current circuit state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentStateLocked()
}

// RetryAfter returns the remaining open window, or zero when the circuit is
// not open. Callers surface it as a "try again in N seconds" hint. Zero while
// half-open means a probe is already deciding the circuit's fate and the
// caller may retry right away.
func (b *Breaker) RetryAfter() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.currentStateLocked() != StateOpen {
		return 0
	}
	remaining := b.config.RecoveryTimeout - b.config.Clock.Since(b.openedAt)
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// Reset forces the circuit back to closed and clears all counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.transitionLocked(StateClosed)
}

// Metrics contains a point-in-time snapshot of breaker counters.
type Metrics struct {
	State                State
	ConsecutiveFailures  int
	ConsecutiveSuccesses int
	OpenedAt             time.Time
}

// Metrics returns a snapshot of the breaker's counters.
func (b *Breaker) Metrics() Metrics {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Metrics{
		State:                b.currentStateLocked(),
		ConsecutiveFailures:  b.failures,
		ConsecutiveSuccesses: b.successes,
		OpenedAt:             b.openedAt,
	}
}

// currentStateLocked applies the lazy open-to-half-open transition before
// reporting the state.
func (b *Breaker) currentStateLocked() State {
	if b.state == StateOpen && b.config.Clock.Since(b.openedAt) >= b.config.RecoveryTimeout {
		b.transitionLocked(StateHalfOpen)
	}
	return b.state
}

func (b *Breaker) releaseProbeLocked() {
	if b.probesInUse > 0 {
		b.probesInUse--
	}
}

func (b *Breaker) transitionLocked(to State) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to

	b.successes = 0
	b.probesInUse = 0

	switch to {
	case StateOpen:
		b.openedAt = b.config.Clock.Now()
	case StateClosed:
		b.failures = 0
		b.openedAt = time.Time{}
	}

	if b.config.OnStateChange != nil {
		b.config.OnStateChange(b.dependency, from, to)
	}
}

package call

import (
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/callops/classify"
)

// ErrCircuitOpen is the errors.Is target for circuit-open rejections.
var ErrCircuitOpen = errors.New("call: circuit open")

// CircuitOpenError reports a fast-failed call: the dependency's breaker
// refused the attempt and the operation was never invoked. It is not a
// dependency failure; callers typically fall back (cached data, degraded
// response) rather than surface the dependency's last raw error.
type CircuitOpenError struct {
	// Dependency is the dependency key whose circuit is open.
	Dependency string

	// RetryAfter estimates how long until the circuit will admit a probe.
	// Zero means the circuit is already half-open with a probe in flight;
	// the caller may retry right away and race for the next free slot.
	RetryAfter time.Duration
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("call: circuit open for %q, retry after %s", e.Dependency, e.RetryAfter)
}

// Is reports true for ErrCircuitOpen so errors.Is works without type
// assertions.
func (e *CircuitOpenError) Is(target error) bool {
	return target == ErrCircuitOpen
}

// DependencyError is the terminal classified failure of an Execute call,
// produced either when the failure is permanent or when the attempt budget is
// exhausted.
type DependencyError struct {
	// Dependency is the dependency key that failed.
	Dependency string

	// Kind is the classification of the final failure.
	Kind classify.Kind

	// SuggestedWait is the server-suggested wait from the final failure,
	// zero if none was communicated.
	SuggestedWait time.Duration

	// Attempts is how many times the operation was invoked.
	Attempts int

	// Underlying is the original error from the final attempt.
	Underlying error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("call: %s failed after %d attempt(s) (%s): %v",
		e.Dependency, e.Attempts, e.Kind, e.Underlying)
}

// Unwrap returns the underlying error for error chain traversal.
func (e *DependencyError) Unwrap() error {
	return e.Underlying
}

// IsCircuitOpen reports whether err is a circuit-open rejection.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}

// IsPermanent reports whether err is a dependency failure that will not
// resolve by retrying.
func IsPermanent(err error) bool {
	var de *DependencyError
	return errors.As(err, &de) && de.Kind == classify.KindPermanent
}

// IsRetryable reports whether err is a dependency failure worth retrying
// later (the attempt budget was exhausted on a transient, rate-limited or
// quota condition).
func IsRetryable(err error) bool {
	var de *DependencyError
	return errors.As(err, &de) && de.Kind.Retryable()
}

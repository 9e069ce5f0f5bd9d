package call

import (
	"time"

	"github.com/jonwraymond/callops/classify"
)

// OutcomeStatus summarizes how an Execute call ended.
type OutcomeStatus int

const (
	// OutcomeSuccess means the operation returned a result.
	OutcomeSuccess OutcomeStatus = iota
	// OutcomeFailure means the call ended with a classified dependency error.
	OutcomeFailure
	// OutcomeRejected means the breaker refused the call outright.
	OutcomeRejected
	// OutcomeCanceled means the caller's context ended the call.
	OutcomeCanceled
)

// String returns the string representation of the status.
func (s OutcomeStatus) String() string {
	switch s {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	case OutcomeRejected:
		return "rejected"
	case OutcomeCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Outcome is delivered to the OnResult hook after every Execute call. It is a
// fire-and-forget side channel for metrics and logging, not part of the
// correctness contract.
type Outcome struct {
	// Dependency is the dependency key the call targeted.
	Dependency string

	// Status is the terminal status of the call.
	Status OutcomeStatus

	// Kind is the failure classification; meaningful only when Status is
	// OutcomeFailure.
	Kind classify.Kind

	// Attempts is how many times the operation was invoked.
	Attempts int

	// Duration is the total wall time of the Execute call, waits included.
	Duration time.Duration
}

// attemptRecord captures one attempt for debug logging. It never leaves the
// Execute call that produced it.
type attemptRecord struct {
	attempt  int
	duration time.Duration
}

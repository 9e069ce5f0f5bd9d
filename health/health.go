package health

import (
	"time"

	"github.com/jonwraymond/callops/breaker"
)

// Status represents the health status of a dependency.
type Status int

const (
	// StatusHealthy indicates the dependency is accepting traffic normally.
	StatusHealthy Status = iota
	// StatusDegraded indicates the dependency is recovering and traffic is
	// limited to probes.
	StatusDegraded
	// StatusUnhealthy indicates traffic to the dependency is being rejected.
	StatusUnhealthy
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// Result describes the health of one dependency at a point in time.
type Result struct {
	// Status is the derived health status.
	Status Status

	// State is the breaker state the status was derived from.
	State breaker.State

	// RetryAfter estimates when an unhealthy dependency will be probed
	// again; zero otherwise.
	RetryAfter time.Duration

	// CheckedAt is when the snapshot was taken.
	CheckedAt time.Time
}

// FromState maps a breaker state to a health status.
func FromState(s breaker.State) Status {
	switch s {
	case breaker.StateOpen:
		return StatusUnhealthy
	case breaker.StateHalfOpen:
		return StatusDegraded
	default:
		return StatusHealthy
	}
}

// DependencyChecker reports dependency health from a breaker registry.
type DependencyChecker struct {
	registry *breaker.Registry
}

// NewDependencyChecker creates a checker over the given registry.
func NewDependencyChecker(registry *breaker.Registry) *DependencyChecker {
	return &DependencyChecker{registry: registry}
}

// Check returns the health of every dependency the registry has seen.
func (c *DependencyChecker) Check() map[string]Result {
	now := time.Now()

	results := make(map[string]Result)
	for dep, state := range c.registry.Snapshot() {
		r := Result{
			Status:    FromState(state),
			State:     state,
			CheckedAt: now,
		}
		if state == breaker.StateOpen {
			r.RetryAfter = c.registry.Get(dep).RetryAfter()
		}
		results[dep] = r
	}
	return results
}

// Overall returns the worst status across all tracked dependencies. An empty
// registry is healthy.
func (c *DependencyChecker) Overall() Status {
	worst := StatusHealthy
	for _, state := range c.registry.Snapshot() {
		if s := FromState(state); s > worst {
			worst = s
		}
	}
	return worst
}

// Package health derives a health view from circuit breaker state.
//
// Each tracked dependency maps its breaker state to a health status: a
// closed circuit is healthy, a half-open circuit is degraded while probes
// run, and an open circuit is unhealthy. The DependencyChecker reads a
// breaker registry snapshot; it performs no probing of its own and adds no
// network surface. Callers mount the results on whatever readiness endpoint
// they already have.
package health

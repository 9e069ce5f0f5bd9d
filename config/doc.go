// Package config loads call execution settings from file and environment.
//
// Configuration covers breaker defaults, named per-dependency retry
// policies, classifier tuning (quota phrases and wait floors) and telemetry
// wiring. A missing config file is not an error; defaults and environment
// variables apply. Environment variables use the CALLOPS prefix with
// underscores, e.g. CALLOPS_BREAKER_FAILURE_THRESHOLD.
package config

// Package breaker implements per-dependency circuit breakers.
//
// A Breaker tracks success and failure signals for one external dependency
// and decides whether new attempts should be allowed. After a run of
// consecutive failures the circuit opens and rejects attempts outright; once
// the recovery timeout elapses a bounded number of probe attempts is let
// through, and consecutive probe successes close the circuit again.
//
// The Registry owns one Breaker per dependency key, created lazily on first
// use and alive for the process lifetime. Each process tracks its own view of
// dependency health; there is no shared circuit state across processes.
//
// All types are safe for concurrent use.
package breaker

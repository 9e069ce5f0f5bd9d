// Package observe provides observability primitives for the call execution
// layer.
//
// It is a pure instrumentation library: no execution, no transport, no I/O
// beyond exporter setup. Consumers wire the observer into a call.Executor via
// its logger and result hook; all counters stay local to the process unless
// an exporter is explicitly enabled.
package observe

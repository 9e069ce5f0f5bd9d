// Package call executes operations against unreliable external dependencies
// with retries, backoff and per-dependency circuit breaking.
//
// The Executor is the single entry point. Callers supply a dependency key, an
// operation closure and a retry Policy; they receive back either the
// operation's result or one of three terminal failures: a *CircuitOpenError
// (the breaker refused to even try), a *DependencyError (the classified final
// failure), or the context's own error when the caller canceled mid-call.
// Raw per-attempt errors never escape; they are classified, logged and either
// retried or folded into the terminal outcome.
//
//	reg := breaker.NewRegistry(breaker.Config{})
//	exec := call.NewExecutor(reg)
//
//	result, err := call.Do(ctx, exec, "youtube", fetchVideo, call.Policy{
//	    MaxAttempts: 3,
//	    MinWait:     500 * time.Millisecond,
//	})
//	if call.IsCircuitOpen(err) {
//	    return servedFromCache()
//	}
//
// The breaker for a dependency is consulted once before any attempt and
// updated exactly once per Execute call with the terminal outcome, so a slow
// but eventually successful call never looks like multiple dependency
// failures. Backoff waits honor server-provided Retry-After hints and are
// interruptible by context cancellation.
package call

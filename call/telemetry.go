package call

import (
	"context"

	"github.com/jonwraymond/callops/breaker"
	"github.com/jonwraymond/callops/observe"
)

// WithRecorder wires a metrics recorder into the executor: every Execute call
// reports its terminal outcome through Recorder.RecordCall. Defaults to a
// no-op recorder.
func WithRecorder(rec observe.Recorder) Option {
	return func(e *Executor) {
		e.recorder = rec
	}
}

// WithCallTracer wraps every Execute call in a span carrying the dependency
// key, attempt count and terminal error. Defaults to no tracing.
func WithCallTracer(t *observe.CallTracer) Option {
	return func(e *Executor) {
		e.tracer = t
	}
}

// TransitionRecorder adapts a metrics recorder into a breaker state-change
// hook, for use as breaker.Config.OnStateChange:
//
//	reg := breaker.NewRegistry(breaker.Config{
//		OnStateChange: call.TransitionRecorder(obs.Recorder()),
//	})
//
// The hook fires under the breaker's lock and must stay cheap; RecordCall-style
// instruments are.
func TransitionRecorder(rec observe.Recorder) func(dependency string, from, to breaker.State) {
	return func(dependency string, from, to breaker.State) {
		rec.RecordTransition(context.Background(), dependency, from.String(), to.String())
	}
}

package call

import (
	"context"
	"time"

	"github.com/coder/quartz"
	"go.opentelemetry.io/otel/trace"

	"github.com/jonwraymond/callops/breaker"
	"github.com/jonwraymond/callops/classify"
	"github.com/jonwraymond/callops/observe"
)

// Operation performs one attempt against a dependency. A nil RawFailure means
// the attempt succeeded. The closure owns its own resource acquisition and
// release per attempt; the executor holds nothing across attempts.
type Operation func(ctx context.Context) (any, *classify.RawFailure)

// breakerGate is the slice of breaker.Breaker the executor needs. Narrowed so
// tests can count Record calls.
type breakerGate interface {
	CanAttempt() bool
	RecordSuccess()
	RecordFailure()
	Abandon()
	RetryAfter() time.Duration
}

// Executor runs operations under retry policies with per-dependency circuit
// breaking. It is the only symbol external collaborators need to depend on.
// Safe for concurrent use.
type Executor struct {
	registry   *breaker.Registry
	classifier *classify.Classifier
	clock      quartz.Clock
	logger     observe.Logger
	recorder   observe.Recorder
	tracer     *observe.CallTracer
	onResult   func(Outcome)

	gate func(dependency string) breakerGate
}

// Option configures an Executor.
type Option func(*Executor)

// WithClassifier sets the failure classifier. Defaults to a classifier with
// default configuration.
func WithClassifier(c *classify.Classifier) Option {
	return func(e *Executor) {
		e.classifier = c
	}
}

// WithLogger sets the logger used for per-attempt debug logging. Defaults to
// a no-op logger.
func WithLogger(l observe.Logger) Option {
	return func(e *Executor) {
		e.logger = l
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(c quartz.Clock) Option {
	return func(e *Executor) {
		e.clock = c
	}
}

// OnResult sets a callback invoked after every Execute call with its terminal
// outcome. The callback runs synchronously on the calling goroutine and must
// return quickly.
func OnResult(fn func(Outcome)) Option {
	return func(e *Executor) {
		e.onResult = fn
	}
}

// NewExecutor creates an Executor over the given breaker registry.
func NewExecutor(registry *breaker.Registry, opts ...Option) *Executor {
	e := &Executor{
		registry:   registry,
		classifier: classify.New(classify.Config{}),
		clock:      quartz.NewReal(),
		logger:     observe.NopLogger(),
		recorder:   observe.NopRecorder(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.gate = func(dependency string) breakerGate {
		return e.registry.Get(dependency)
	}
	return e
}

// Execute runs op against the dependency under the given policy.
//
// The dependency's breaker is consulted once up front: if it refuses, Execute
// returns a *CircuitOpenError immediately and op is never invoked. Otherwise
// op runs up to policy.MaxAttempts times. A permanent failure is returned on
// first occurrence regardless of remaining budget. Between attempts the
// executor waits for the server-suggested duration when the failure carried
// one, else for the policy's exponential backoff; the wait aborts promptly if
// ctx ends, returning ctx.Err(). A call abandoned this way releases its
// half-open probe slot but records no outcome.
//
// The breaker is updated exactly once per Execute call with the terminal
// outcome, never once per attempt.
func (e *Executor) Execute(ctx context.Context, dependency string, op Operation, policy Policy) (any, error) {
	var span trace.Span
	if e.tracer != nil {
		ctx, span = e.tracer.StartCall(ctx, dependency)
	}

	result, outcome, err := e.run(ctx, dependency, op, policy)

	e.emit(ctx, outcome)
	if span != nil {
		e.tracer.EndCall(span, outcome.Attempts, err)
	}
	return result, err
}

func (e *Executor) run(ctx context.Context, dependency string, op Operation, policy Policy) (any, Outcome, error) {
	policy = policy.withDefaults()
	start := e.clock.Now()
	log := e.logger.WithDependency(dependency)
	gate := e.gate(dependency)

	if !gate.CanAttempt() {
		retryAfter := gate.RetryAfter()
		log.Warn(ctx, "call rejected, circuit open",
			observe.F("retry_after", retryAfter.String()))
		outcome := Outcome{
			Dependency: dependency,
			Status:     OutcomeRejected,
			Duration:   e.clock.Since(start),
		}
		return nil, outcome, &CircuitOpenError{Dependency: dependency, RetryAfter: retryAfter}
	}

	var last classify.Classified

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		attemptStart := e.clock.Now()
		result, failure := op(ctx)
		rec := attemptRecord{attempt: attempt, duration: e.clock.Since(attemptStart)}

		if failure == nil {
			gate.RecordSuccess()
			log.Debug(ctx, "call succeeded",
				observe.F("attempt", rec.attempt),
				observe.F("attempt_ms", rec.duration.Milliseconds()))
			outcome := Outcome{
				Dependency: dependency,
				Status:     OutcomeSuccess,
				Attempts:   attempt,
				Duration:   e.clock.Since(start),
			}
			return result, outcome, nil
		}

		last = e.classifier.Classify(*failure)
		log.Debug(ctx, "call attempt failed",
			observe.F("attempt", rec.attempt),
			observe.F("attempt_ms", rec.duration.Milliseconds()),
			observe.F("kind", last.Kind.String()),
			observe.F("error", last.Underlying.Error()))

		if last.Kind == classify.KindPermanent {
			gate.RecordFailure()
			outcome := Outcome{
				Dependency: dependency,
				Status:     OutcomeFailure,
				Kind:       last.Kind,
				Attempts:   attempt,
				Duration:   e.clock.Since(start),
			}
			return nil, outcome, e.dependencyError(dependency, last, attempt)
		}

		if attempt == policy.MaxAttempts {
			break
		}

		wait := policy.delay(attempt)
		if last.HasWait {
			wait = last.SuggestedWait
		}
		log.Debug(ctx, "backing off before retry",
			observe.F("attempt", rec.attempt),
			observe.F("wait", wait.String()))

		if err := e.wait(ctx, wait); err != nil {
			// Canceled mid-backoff: no outcome reached the dependency, so
			// nothing is recorded. The admitted attempt is abandoned, which
			// frees its half-open probe slot.
			gate.Abandon()
			outcome := Outcome{
				Dependency: dependency,
				Status:     OutcomeCanceled,
				Attempts:   attempt,
				Duration:   e.clock.Since(start),
			}
			return nil, outcome, err
		}
	}

	gate.RecordFailure()
	log.Warn(ctx, "call failed, attempt budget exhausted",
		observe.F("attempts", policy.MaxAttempts),
		observe.F("kind", last.Kind.String()))
	outcome := Outcome{
		Dependency: dependency,
		Status:     OutcomeFailure,
		Kind:       last.Kind,
		Attempts:   policy.MaxAttempts,
		Duration:   e.clock.Since(start),
	}
	return nil, outcome, e.dependencyError(dependency, last, policy.MaxAttempts)
}

func (e *Executor) dependencyError(dependency string, c classify.Classified, attempts int) *DependencyError {
	var wait time.Duration
	if c.HasWait {
		wait = c.SuggestedWait
	}
	return &DependencyError{
		Dependency:    dependency,
		Kind:          c.Kind,
		SuggestedWait: wait,
		Attempts:      attempts,
		Underlying:    c.Underlying,
	}
}

// wait blocks for d or until ctx ends, whichever comes first.
func (e *Executor) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		// Still observe a cancellation that has already happened.
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}

	timer := e.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// emit delivers the terminal outcome to the recorder and the OnResult hook.
func (e *Executor) emit(ctx context.Context, o Outcome) {
	stats := observe.CallStats{
		Dependency: o.Dependency,
		Outcome:    o.Status.String(),
		Attempts:   o.Attempts,
		Duration:   o.Duration,
	}
	if o.Status == OutcomeFailure {
		stats.Kind = o.Kind.String()
	}
	e.recorder.RecordCall(ctx, stats)

	if e.onResult != nil {
		e.onResult(o)
	}
}

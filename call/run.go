package call

import (
	"context"

	"github.com/jonwraymond/callops/classify"
)

// Do executes fn through the executor and returns its typed result. This is a
// convenience wrapper for operations that return a concrete value.
func Do[T any](ctx context.Context, e *Executor, dependency string, fn func(context.Context) (T, *classify.RawFailure), policy Policy) (T, error) {
	var result T
	raw, err := e.Execute(ctx, dependency, func(ctx context.Context) (any, *classify.RawFailure) {
		return fn(ctx)
	}, policy)
	if err != nil {
		return result, err
	}
	if raw != nil {
		result = raw.(T)
	}
	return result, nil
}

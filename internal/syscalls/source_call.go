package syscalls

import (
	"context"
	"fmt"
	"time"
)

// SourceCall wraps a single read against the repository data source
type SourceCall[T any] struct {
	name string
	args map[string]string
	call func(ctx context.Context) (T, error)
}

// NewSourceCall creates a SourceCall. args are the call arguments as they
// should appear in the inputs digest.
func NewSourceCall[T any](name string, args map[string]string, call func(ctx context.Context) (T, error)) *SourceCall[T] {
	return &SourceCall[T]{name: name, args: args, call: call}
}

func (c *SourceCall[T]) Name() string { return c.name }

func (c *SourceCall[T]) Category() Category { return CategoryGitHubAPI }

func (c *SourceCall[T]) Execute(ctx context.Context) (Result, error) {
	v, err := c.call(ctx)
	if err != nil {
		return Result{}, err
	}
	return SuccessOf(v)
}

func (c *SourceCall[T]) Inputs() (any, error) {
	return map[string]any{
		"operation": c.name,
		"args":      c.args,
	}, nil
}

func (c *SourceCall[T]) Outputs(result Result) (any, error) {
	return result, nil
}

func (c *SourceCall[T]) Metadata(result Result, duration time.Duration) Record {
	return NewRecord(c.name, c.Category(), result, duration)
}

// Run executes a SourceCall through ex and decodes its payload. When the call
// itself failed, the returned error wraps both ErrFailed and the call's error.
func Run[T any](ctx context.Context, ex Executor, name string, args map[string]string, call func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var callErr error
	result, err := ex.Execute(ctx, NewSourceCall(name, args, func(ctx context.Context) (T, error) {
		v, err := call(ctx)
		callErr = err
		return v, err
	}))
	if err != nil {
		return zero, err
	}
	if !result.OK() && callErr != nil {
		return zero, fmt.Errorf("%w: %s: %w", ErrFailed, name, callErr)
	}
	return Decode[T](result)
}

// Package deferred runs a call on its own goroutine and hands back a value
// that can be awaited later.
package deferred

import "context"

// Value is the pending result of a call started with Go. It settles exactly
// once.
type Value[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Go starts fn on a new goroutine with ctx and returns its pending result.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Value[T] {
	v := &Value[T]{done: make(chan struct{})}
	go func() {
		defer close(v.done)
		v.val, v.err = fn(ctx)
	}()
	return v
}

// Done is closed once the call has returned.
func (v *Value[T]) Done() <-chan struct{} {
	return v.done
}

// Await blocks until the call settles or ctx ends. Ending ctx abandons the
// wait only; the call itself runs under the context it was started with.
func (v *Value[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-v.done:
		return v.val, v.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Void adapts a call that returns only an error.
func Void(fn func(context.Context) error) func(context.Context) (struct{}, error) {
	return func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}
}

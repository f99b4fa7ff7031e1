package async

import (
	"context"
	"errors"
	"sync"
)

// Future represents the result of an asynchronous computation.
type Future[U any] struct {
	result U
	err    error
	once   sync.Once
	done   chan struct{}
}

// Await waits for the asynchronous function to complete and returns its result and error.
func (f *Future[U]) Await() (U, error) {
	<-f.done
	return f.result, f.err
}

// AwaitContext waits for completion or for ctx to be done, whichever comes first.
// Returning early on ctx does not stop the underlying computation.
func (f *Future[U]) AwaitContext(ctx context.Context) (U, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		var zero U
		return zero, ctx.Err()
	}
}

// Done returns a channel closed once the computation has finished.
func (f *Future[U]) Done() <-chan struct{} {
	return f.done
}

// IsComplete checks if the asynchronous function is complete without blocking.
func (f *Future[U]) IsComplete() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Async executes fn on its own goroutine and returns a Future for its result.
// A context that is already done completes the Future with ctx.Err() without calling fn.
func Async[T any, U any](ctx context.Context, param T, fn func(context.Context, T) (U, error)) *Future[U] {
	f := &Future[U]{done: make(chan struct{})}

	go func() {
		defer close(f.done)

		select {
		case <-ctx.Done():
			f.once.Do(func() { f.err = ctx.Err() })
			return
		default:
		}

		res, err := fn(ctx, param)
		f.once.Do(func() {
			f.result = res
			f.err = err
		})
	}()

	return f
}

// WaitAll waits for every future to complete, even when some of them fail.
// Results keep the order of futures; errors are joined.
func WaitAll[U any](futures ...*Future[U]) ([]U, error) {
	results := make([]U, len(futures))
	errs := make([]error, 0, len(futures))

	for i, future := range futures {
		if future == nil {
			continue
		}
		result, err := future.Await()
		results[i] = result
		if err != nil {
			errs = append(errs, err)
		}
	}

	return results, errors.Join(errs...)
}

// Package async provides a small generic Future for running a computation on
// its own goroutine and waiting for the outcome.
//
// Async starts the supplied function and immediately returns a *Future. The
// caller can block with Await, bound the wait with AwaitContext, select on
// Done, or poll with IsComplete. WaitAll drains a set of futures and joins
// their errors; the state machine interpreter uses it to wait for in-flight
// service invocations when it stops.
//
// # Usage
//
//	future := async.Async(ctx, "settings", func(ctx context.Context, key string) (string, error) {
//	    return store.Fetch(ctx, key)
//	})
//
//	raw, err := future.AwaitContext(ctx)
//	if err != nil {
//	    return err
//	}
package async

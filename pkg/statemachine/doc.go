// Package statemachine provides a small generic interpreter for finite state
// machines whose states launch asynchronous services.
//
// A machine is described by two minimal interfaces, State and Event, and a
// context value of any type C. The Interpreter handles:
//  1. Transition lookup in a nested map [FromState][Event]Transition
//  2. A global transition table consulted before the per-state table
//  3. Eventless ("always") transitions followed on entry
//  4. Services invoked on entering a state, whose result event is fed back
//     into the queue
//  5. Pure Actions that compute the next context
//
// StringState and StringEvent cover the common case; custom struct types can
// satisfy the interfaces when an event carries a payload.
//
// # Run-to-completion
//
// Events go through a queue. The goroutine that finds the queue idle drains
// it, processing one event at a time: resolve the transition, run its actions,
// exit the current state, enter the target. Send returns once its own event
// has been processed. Services run on their own goroutines (see package
// async) and never hold the interpreter lock. Listeners registered with
// Subscribe are called after the queue is drained, in transition order.
//
// Every state entry gets a new generation number. A service result carries
// the generation it was launched in and is dropped if the machine has left
// that entry since. Leaving a state also cancels the context passed to its
// service. Together these give preemption without explicit task aborts: a
// global transition can move the machine away from a busy state at any time.
//
// # Usage
//
//	const (
//	    Loading = statemachine.StringState("loading")
//	    Ready   = statemachine.StringState("ready")
//	    Loaded  = statemachine.StringEvent("loaded")
//	)
//
//	sm := statemachine.MustNew(Loading, 0,
//	    statemachine.WithInvoke(Loading, func(ctx context.Context, n int, _ statemachine.Event) statemachine.Event {
//	        return Loaded
//	    }),
//	    statemachine.WithTransition(Loading, Ready, Loaded,
//	        statemachine.WithAction(func(n int, _ statemachine.Event) int { return n + 1 }),
//	    ),
//	)
//
//	_ = sm.Start(ctx)
//	snap, err := sm.WaitFor(ctx, func(s statemachine.Snapshot[int]) bool { return s.Matches(Ready) })
//
// # Errors
//
// Construction errors are sentinels (ErrInvalidTransition, ErrInvalidState,
// ErrInvalidService) or *ErrDuplicateTransition, checked with
// IsDuplicateTransitionError. Send reports only lifecycle misuse:
// ErrNotStarted, ErrStopped, ErrInvalidEvent. Events the current state does
// not handle are dropped and logged at debug level.
package statemachine

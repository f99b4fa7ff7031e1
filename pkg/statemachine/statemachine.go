package statemachine

import (
	"context"
)

// State represents a state in the state machine.
type State interface {
	Name() string
}

// Event represents an event that can trigger a state transition.
type Event interface {
	Name() string
}

// Action computes the next context from the current one and the event that
// triggered the transition. Actions must be pure: no I/O, no blocking.
type Action[C any] func(c C, event Event) C

// Service is the side effect invoked on entering a state.
// It runs on its own goroutine and reports its outcome by returning an event,
// which is fed back into the interpreter queue. Returning nil reports plain
// completion as DoneEvent(state). ctx is canceled once the state is exited.
type Service[C any] func(ctx context.Context, c C, trigger Event) Event

// Transition defines a state change triggered by an event.
// From is nil for global transitions.
type Transition[C any] struct {
	From    State
	To      State
	Event   Event
	Actions []Action[C] // Executed in order before the state change
}

// Snapshot is a consistent view of the interpreter at a point in time.
type Snapshot[C any] struct {
	State   State
	Context C
}

// Matches reports whether the snapshot is in the given state.
func (s Snapshot[C]) Matches(state State) bool {
	return s.State != nil && state != nil && s.State.Name() == state.Name()
}

// StringState provides a simple string-based state implementation for basic use cases.
type StringState string

func (s StringState) Name() string {
	return string(s)
}

// StringEvent provides a simple string-based event implementation for basic use cases.
type StringEvent string

func (e StringEvent) Name() string {
	return string(e)
}

const doneEventPrefix = "done.invoke."

// DoneEvent is the event delivered when the service of state completes
// without returning an event of its own.
func DoneEvent(state State) Event {
	return StringEvent(doneEventPrefix + state.Name())
}

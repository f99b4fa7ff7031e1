package kvsync

import "github.com/dmitrymomot/kvsync/pkg/statemachine"

// assignValue takes the payload of a successful read or write.
// Any other event leaves the context unchanged.
func assignValue[T any](c Context[T], event statemachine.Event) Context[T] {
	switch e := event.(type) {
	case GotValue[T]:
		return Context[T]{Value: e.Value, HasValue: true}
	case StoredNewValue[T]:
		return Context[T]{Value: e.Value, HasValue: true}
	default:
		return c
	}
}

// clearAssignedValue forgets the cached value.
func clearAssignedValue[T any](Context[T], statemachine.Event) Context[T] {
	return Context[T]{}
}

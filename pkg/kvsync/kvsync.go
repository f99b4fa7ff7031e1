package kvsync

import (
	"context"

	"github.com/dmitrymomot/kvsync/pkg/statemachine"
)

// Store is the persistent key-value medium a machine is bound to.
// GetItem reports a missing key with ok == false and a nil error.
type Store interface {
	GetItem(ctx context.Context, key string) (value string, ok bool, err error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}

// Codec converts between the raw stored string and the in-memory value.
// Deserialize receives nil when the key is absent and may accept or reject it.
type Codec[T any] interface {
	Deserialize(raw *string) (T, error)
	Serialize(value T) (string, error)
}

// CodecFuncs adapts a pair of functions to Codec.
type CodecFuncs[T any] struct {
	DeserializeFunc func(raw *string) (T, error)
	SerializeFunc   func(value T) (string, error)
}

func (c CodecFuncs[T]) Deserialize(raw *string) (T, error) {
	return c.DeserializeFunc(raw)
}

func (c CodecFuncs[T]) Serialize(value T) (string, error) {
	return c.SerializeFunc(value)
}

// Config binds a machine to one store entry.
type Config[T any] struct {
	Key   string
	Codec Codec[T]
	Store Store
}

// Context is the machine's only mutable data: the last value known to be in the store.
type Context[T any] struct {
	Value    T
	HasValue bool
}

// Get returns the value and whether it is defined.
func (c Context[T]) Get() (T, bool) {
	return c.Value, c.HasValue
}

// Snapshot is the current state and context of a machine.
type Snapshot[T any] struct {
	State   statemachine.State
	Context Context[T]
}

// Matches reports whether the snapshot is in state.
func (s Snapshot[T]) Matches(state statemachine.State) bool {
	return s.State != nil && state != nil && s.State.Name() == state.Name()
}

// Value returns the cached value and whether it is defined.
func (s Snapshot[T]) Value() (T, bool) {
	return s.Context.Get()
}

const (
	Pending       = statemachine.StringState("pending")
	GettingValue  = statemachine.StringState("getting value")
	Idle          = statemachine.StringState("idle")
	StoringValue  = statemachine.StringState("storing value")
	ClearingValue = statemachine.StringState("clearing value")
)

const (
	EventGotValue              = "got value"
	EventFailedToGetValue      = "failed to get value"
	EventStoreNewValue         = "store new value"
	EventStoredNewValue        = "stored new value"
	EventFailedToStoreNewValue = "failed to store new value"
	EventClearValue            = "clear value"
)

// GotValue reports a successful read. Internal.
type GotValue[T any] struct{ Value T }

func (GotValue[T]) Name() string { return EventGotValue }

// FailedToGetValue reports a failed read. Internal.
type FailedToGetValue struct{}

func (FailedToGetValue) Name() string { return EventFailedToGetValue }

// StoreNewValue asks the machine to persist Value. Sent by callers.
type StoreNewValue[T any] struct{ Value T }

func (StoreNewValue[T]) Name() string { return EventStoreNewValue }

// StoredNewValue reports a successful write. Internal.
type StoredNewValue[T any] struct{ Value T }

func (StoredNewValue[T]) Name() string { return EventStoredNewValue }

// FailedToStoreNewValue reports a failed write. Internal.
type FailedToStoreNewValue struct{}

func (FailedToStoreNewValue) Name() string { return EventFailedToStoreNewValue }

// ClearValue asks the machine to remove the entry. Sent by callers; accepted in every state.
type ClearValue struct{}

func (ClearValue) Name() string { return EventClearValue }

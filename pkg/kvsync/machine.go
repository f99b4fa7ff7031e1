package kvsync

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/kvsync/pkg/logger"
	"github.com/dmitrymomot/kvsync/pkg/statemachine"
)

// Machine keeps an in-memory value in sync with one store entry.
//
// It starts in Pending, moves straight to GettingValue to load the entry,
// then settles in Idle. From Idle a StoreNewValue event persists a new value;
// ClearValue removes the entry from any state, abandoning whatever read or
// write is in flight.
type Machine[T any] struct {
	id    string
	key   string
	codec Codec[T]
	store Store
	log   *slog.Logger
	sm    *statemachine.Interpreter[Context[T]]
}

// Option configures a Machine.
type Option func(*options)

type options struct {
	id          string
	log         *slog.Logger
	stopTimeout time.Duration
}

// WithLogger sets the logger for transitions and absorbed failures.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithStopTimeout bounds how long Stop waits for an in-flight store call.
// The default is statemachine.DefaultStopTimeout.
func WithStopTimeout(d time.Duration) Option {
	return func(o *options) {
		o.stopTimeout = d
	}
}

// WithID overrides the generated machine identifier used in logs.
func WithID(id string) Option {
	return func(o *options) {
		if id != "" {
			o.id = id
		}
	}
}

// New builds a machine bound to cfg.Key. Call Start to load the value.
func New[T any](cfg Config[T], opts ...Option) (*Machine[T], error) {
	switch {
	case cfg.Key == "":
		return nil, ErrEmptyKey
	case cfg.Codec == nil:
		return nil, ErrNilCodec
	case cfg.Store == nil:
		return nil, ErrNilStore
	}

	o := &options{log: logger.Discard()}
	for _, opt := range opts {
		opt(o)
	}
	if o.id == "" {
		o.id = uuid.NewString()
	}

	m := &Machine[T]{
		id:    o.id,
		key:   cfg.Key,
		codec: cfg.Codec,
		store: cfg.Store,
		log:   o.log.With(logger.MachineID(o.id), logger.Key(cfg.Key)),
	}

	sm, err := statemachine.New(Pending, Context[T]{},
		statemachine.WithLogger[Context[T]](m.log),
		statemachine.WithStopTimeout[Context[T]](o.stopTimeout),
		statemachine.WithGlobalTransition[Context[T]](ClearingValue, ClearValue{}),
		statemachine.WithAlways[Context[T]](Pending, GettingValue),

		statemachine.WithInvoke[Context[T]](GettingValue, m.fetchValue),
		statemachine.WithTransition[Context[T]](GettingValue, Idle, GotValue[T]{},
			statemachine.WithAction[Context[T]](assignValue[T])),
		statemachine.WithTransition[Context[T]](GettingValue, Idle, FailedToGetValue{},
			statemachine.WithAction[Context[T]](clearAssignedValue[T])),

		statemachine.WithTransition[Context[T]](Idle, StoringValue, StoreNewValue[T]{}),

		statemachine.WithInvoke[Context[T]](StoringValue, m.persistValue),
		statemachine.WithTransition[Context[T]](StoringValue, Idle, StoredNewValue[T]{},
			statemachine.WithAction[Context[T]](assignValue[T])),
		statemachine.WithTransition[Context[T]](StoringValue, Idle, FailedToStoreNewValue{},
			statemachine.WithAction[Context[T]](clearAssignedValue[T])),

		statemachine.WithInvoke[Context[T]](ClearingValue, m.clearValue),
		statemachine.WithOnDone[Context[T]](ClearingValue, Idle,
			statemachine.WithAction[Context[T]](clearAssignedValue[T])),
	)
	if err != nil {
		return nil, err
	}
	m.sm = sm

	return m, nil
}

// ID returns the machine identifier.
func (m *Machine[T]) ID() string { return m.id }

// Key returns the store key the machine is bound to.
func (m *Machine[T]) Key() string { return m.key }

// Start enters Pending, cascades to GettingValue and launches the read.
// ctx bounds every store call the machine makes. Once it is canceled store
// calls fail, and the machine still settles in Idle after each event.
func (m *Machine[T]) Start(ctx context.Context) error {
	return m.sm.Start(ctx)
}

// Send queues event and returns without waiting for the store.
// Callers are expected to send StoreNewValue or ClearValue only.
func (m *Machine[T]) Send(event statemachine.Event) error {
	return m.sm.Send(event)
}

// Store sends StoreNewValue with value.
func (m *Machine[T]) Store(value T) error {
	return m.sm.Send(StoreNewValue[T]{Value: value})
}

// Clear sends ClearValue.
func (m *Machine[T]) Clear() error {
	return m.sm.Send(ClearValue{})
}

// Snapshot returns the current state and context.
func (m *Machine[T]) Snapshot() Snapshot[T] {
	return toSnapshot(m.sm.Snapshot())
}

// WaitFor blocks until pred holds, ctx is done or the machine is stopped.
func (m *Machine[T]) WaitFor(ctx context.Context, pred func(Snapshot[T]) bool) (Snapshot[T], error) {
	snap, err := m.sm.WaitFor(ctx, func(s statemachine.Snapshot[Context[T]]) bool {
		return pred(toSnapshot(s))
	})
	return toSnapshot(snap), err
}

// Settle waits until the machine is Idle.
func (m *Machine[T]) Settle(ctx context.Context) (Snapshot[T], error) {
	return m.WaitFor(ctx, func(s Snapshot[T]) bool { return s.Matches(Idle) })
}

// Subscribe calls fn with the snapshot after every transition.
// fn must not call Stop.
func (m *Machine[T]) Subscribe(fn func(Snapshot[T])) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	return m.sm.Subscribe(func(s statemachine.Snapshot[Context[T]]) {
		fn(toSnapshot(s))
	})
}

// Stop abandons the in-flight store call and ignores further events.
// It waits for the call to return for at most the stop timeout.
func (m *Machine[T]) Stop() {
	m.sm.Stop()
}

func toSnapshot[T any](s statemachine.Snapshot[Context[T]]) Snapshot[T] {
	return Snapshot[T]{State: s.State, Context: s.Context}
}

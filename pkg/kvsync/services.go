package kvsync

import (
	"context"
	"fmt"

	"github.com/dmitrymomot/kvsync/pkg/logger"
	"github.com/dmitrymomot/kvsync/pkg/statemachine"
)

// fetchValue reads the entry and runs it through the codec.
// Every failure becomes FailedToGetValue.
func (m *Machine[T]) fetchValue(ctx context.Context, _ Context[T], _ statemachine.Event) statemachine.Event {
	raw, ok, err := m.store.GetItem(ctx, m.key)
	if err != nil {
		m.failure(ctx, "failed to read value", err)
		return FailedToGetValue{}
	}

	var in *string
	if ok {
		in = &raw
	}

	value, err := m.deserialize(in)
	if err != nil {
		m.failure(ctx, "stored value rejected", err)
		return FailedToGetValue{}
	}

	return GotValue[T]{Value: value}
}

// persistValue writes the payload of the StoreNewValue that entered the state.
// Every failure becomes FailedToStoreNewValue.
func (m *Machine[T]) persistValue(ctx context.Context, _ Context[T], trigger statemachine.Event) statemachine.Event {
	req, ok := trigger.(StoreNewValue[T])
	if !ok {
		m.failure(ctx, "failed to store value", ErrMissingPayload)
		return FailedToStoreNewValue{}
	}

	raw, err := m.serialize(req.Value)
	if err != nil {
		m.failure(ctx, "failed to serialize value", err)
		return FailedToStoreNewValue{}
	}

	if err := m.store.SetItem(ctx, m.key, raw); err != nil {
		m.failure(ctx, "failed to store value", err)
		return FailedToStoreNewValue{}
	}

	return StoredNewValue[T]{Value: req.Value}
}

// clearValue removes the entry. Completion alone drives the transition, so a
// failed removal is only logged.
func (m *Machine[T]) clearValue(ctx context.Context, _ Context[T], _ statemachine.Event) statemachine.Event {
	if err := m.store.RemoveItem(ctx, m.key); err != nil {
		m.failure(ctx, "failed to remove value", err)
	}
	return nil
}

func (m *Machine[T]) deserialize(raw *string) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrCodecPanic, r)
		}
	}()
	return m.codec.Deserialize(raw)
}

func (m *Machine[T]) serialize(value T) (raw string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrCodecPanic, r)
		}
	}()
	return m.codec.Serialize(value)
}

// failure logs an absorbed error. Failures of abandoned or canceled services
// are expected and only traced.
func (m *Machine[T]) failure(ctx context.Context, msg string, err error) {
	if ctx.Err() != nil {
		m.log.DebugContext(ctx, msg+" after cancellation", logger.Error(err))
		return
	}
	m.log.WarnContext(ctx, msg, logger.Error(err))
}

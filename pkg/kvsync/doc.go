// Package kvsync keeps an in-memory value synchronized with one entry of a
// persistent key-value store.
//
// A Machine is an explicit state machine built on package statemachine:
//
//	pending --(always)--> getting value
//	getting value --got value--> idle                (value assigned)
//	getting value --failed to get value--> idle      (value cleared)
//	idle --store new value--> storing value
//	storing value --stored new value--> idle         (value assigned)
//	storing value --failed to store new value--> idle (value cleared)
//	any --clear value--> clearing value
//	clearing value --(removal done)--> idle          (value cleared)
//
// Store access and (de)serialization happen in services launched on entry to
// getting value, storing value and clearing value. Their failures never
// surface to the caller: they become failure events and leave the machine in
// idle with no cached value. A failed write therefore also drops the value
// cached before it.
//
// ClearValue is accepted in every state. It abandons the running read or
// write, whose late result is ignored and whose context is canceled.
//
// Values pass through a Codec. Deserialize receives nil when the entry is
// missing and decides whether absence is an error; package codec provides
// string, JSON and YAML codecs and an Optional wrapper.
//
// Usage:
//
//	m, err := kvsync.New(kvsync.Config[Settings]{
//	    Key:   "settings",
//	    Codec: codec.Optional(codec.JSON[Settings](), Settings{}),
//	    Store: kvstore.NewMemory(kvstore.MemoryConfig{}),
//	}, kvsync.WithLogger(log))
//	if err != nil {
//	    return err
//	}
//	defer m.Stop()
//
//	if err := m.Start(ctx); err != nil {
//	    return err
//	}
//	snap, err := m.Settle(ctx)
//	if err != nil {
//	    return err
//	}
//	settings, ok := snap.Value()
//
// Store and Clear only queue events. Use Settle or WaitFor to observe the
// outcome, or Subscribe to be called after every transition.
package kvsync

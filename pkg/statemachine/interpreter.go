package statemachine

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/dmitrymomot/kvsync/pkg/async"
	"github.com/dmitrymomot/kvsync/pkg/logger"
)

// startEvent triggers the initial entry; services launched from the initial
// state chain receive it as their trigger.
const startEvent = StringEvent("start")

// DefaultStopTimeout bounds how long Stop waits for launched services.
const DefaultStopTimeout = 5 * time.Second

type queued struct {
	event Event
	gen   uint64 // entry generation of the task that produced event; 0 for external events
	start bool
	done  chan struct{}
}

// Interpreter runs a state machine with run-to-completion semantics.
// Events are queued and processed one at a time; transitions and their
// actions run synchronously under the interpreter lock, services run on
// their own goroutines and report back through the queue.
// Lookups use a nested map [fromState][event]Transition plus a global table
// consulted first.
type Interpreter[C any] struct {
	initial     State
	initialCtx  C
	transitions map[string]map[string]Transition[C]
	global      map[string]Transition[C]
	always      map[string]Transition[C]
	services    map[string]Service[C]
	log         *slog.Logger
	stopTimeout time.Duration

	mu           sync.RWMutex
	state        State
	context      C
	generation   uint64
	cancelTask   context.CancelFunc
	inflight     map[uint64]*async.Future[Event]
	started      bool
	stopped      bool
	rootCtx      context.Context
	rootCancel   context.CancelFunc
	changed      chan struct{}
	listeners    map[uint64]func(Snapshot[C])
	nextListener uint64

	qmu        sync.Mutex
	queue      []queued
	processing bool

	nmu           sync.Mutex
	notifications []Snapshot[C]
	notifying     bool
}

// New creates an interpreter in initialState with initialContext.
// The interpreter does nothing until Start is called.
func New[C any](initialState State, initialContext C, opts ...Option[C]) (*Interpreter[C], error) {
	if initialState == nil {
		return nil, ErrInvalidState
	}

	i := &Interpreter[C]{
		initial:     initialState,
		initialCtx:  initialContext,
		transitions: make(map[string]map[string]Transition[C]),
		global:      make(map[string]Transition[C]),
		always:      make(map[string]Transition[C]),
		services:    make(map[string]Service[C]),
		log:         logger.Discard(),
		stopTimeout: DefaultStopTimeout,
		state:       initialState,
		context:     initialContext,
		inflight:    make(map[uint64]*async.Future[Event]),
		changed:     make(chan struct{}),
		listeners:   make(map[uint64]func(Snapshot[C])),
	}

	for _, opt := range opts {
		if err := opt(i); err != nil {
			return nil, err
		}
	}

	return i, nil
}

// MustNew works like New but panics if any option fails to apply.
func MustNew[C any](initialState State, initialContext C, opts ...Option[C]) *Interpreter[C] {
	i, err := New(initialState, initialContext, opts...)
	if err != nil {
		panic("failed to create state machine: " + err.Error())
	}
	return i
}

func (i *Interpreter[C]) addTransition(t Transition[C]) error {
	if t.From == nil || t.To == nil || t.Event == nil {
		return ErrInvalidTransition
	}

	from, event := t.From.Name(), t.Event.Name()
	if _, ok := i.transitions[from]; !ok {
		i.transitions[from] = make(map[string]Transition[C])
	}
	if _, ok := i.transitions[from][event]; ok {
		return NewErrDuplicateTransition(from, event)
	}

	i.transitions[from][event] = t
	return nil
}

// Start enters the initial state, follows eventless transitions and launches
// the service of the state it settles in. ctx bounds the lifetime of every
// service the interpreter launches.
func (i *Interpreter[C]) Start(ctx context.Context) error {
	i.mu.Lock()
	if i.started {
		i.mu.Unlock()
		return ErrAlreadyStarted
	}
	i.started = true
	i.rootCtx, i.rootCancel = context.WithCancel(ctx)
	i.mu.Unlock()

	done := make(chan struct{})
	i.enqueue(queued{start: true, done: done})
	<-done
	return nil
}

// Send queues event and returns once the interpreter has processed it. It
// does not wait for the services the transition launches. Events the current
// state does not handle are dropped.
func (i *Interpreter[C]) Send(event Event) error {
	if event == nil {
		return ErrInvalidEvent
	}

	i.mu.RLock()
	started, stopped := i.started, i.stopped
	i.mu.RUnlock()

	switch {
	case stopped:
		return ErrStopped
	case !started:
		return ErrNotStarted
	}

	done := make(chan struct{})
	i.enqueue(queued{event: event, done: done})
	<-done
	return nil
}

// Snapshot returns the current state and context.
func (i *Interpreter[C]) Snapshot() Snapshot[C] {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.snapshotLocked()
}

// Can reports whether event would cause a transition in the current state.
func (i *Interpreter[C]) Can(event Event) bool {
	if event == nil {
		return false
	}

	i.mu.RLock()
	defer i.mu.RUnlock()
	_, ok := i.resolve(event)
	return ok
}

// Subscribe registers fn to be called with the snapshot after every processed
// transition. Calls are delivered in transition order, one at a time, after
// the event queue has been drained. fn may call Send but must not call Stop.
func (i *Interpreter[C]) Subscribe(fn func(Snapshot[C])) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}

	i.mu.Lock()
	id := i.nextListener
	i.nextListener++
	i.listeners[id] = fn
	i.mu.Unlock()

	return func() {
		i.mu.Lock()
		delete(i.listeners, id)
		i.mu.Unlock()
	}
}

// WaitFor blocks until pred holds for the current snapshot, ctx is done, or
// the interpreter is stopped.
func (i *Interpreter[C]) WaitFor(ctx context.Context, pred func(Snapshot[C]) bool) (Snapshot[C], error) {
	for {
		i.mu.RLock()
		snap, changed, stopped := i.snapshotLocked(), i.changed, i.stopped
		i.mu.RUnlock()

		if pred(snap) {
			return snap, nil
		}
		if stopped {
			return snap, ErrStopped
		}

		select {
		case <-ctx.Done():
			return snap, ctx.Err()
		case <-changed:
		}
	}
}

// Stop cancels the running service and drops every queued and future event.
// It then waits for launched services to return, for at most the stop timeout
// (see WithStopTimeout). Services that ignore their context are abandoned.
// It is safe to call more than once.
func (i *Interpreter[C]) Stop() {
	i.mu.Lock()
	if i.stopped {
		i.mu.Unlock()
		return
	}
	i.stopped = true
	i.exitLocked()
	if i.rootCancel != nil {
		i.rootCancel()
	}
	futures := slices.Collect(maps.Values(i.inflight))
	clear(i.inflight)
	i.broadcastLocked()
	i.mu.Unlock()

	i.log.Debug("state machine stopped", logger.State(i.Snapshot().State.Name()))

	ctx, cancel := context.WithTimeout(context.Background(), i.stopTimeout)
	defer cancel()
	for _, f := range futures {
		if _, err := f.AwaitContext(ctx); err != nil {
			i.log.Warn("service still running after stop", logger.Error(err))
			return
		}
	}
}

// enqueue appends q and drains the queue unless another goroutine already is.
func (i *Interpreter[C]) enqueue(q queued) {
	i.qmu.Lock()
	i.queue = append(i.queue, q)
	if i.processing {
		i.qmu.Unlock()
		return
	}
	i.processing = true

	for len(i.queue) > 0 {
		next := i.queue[0]
		i.queue = i.queue[1:]
		i.qmu.Unlock()

		i.process(next)
		if next.done != nil {
			close(next.done)
		}

		i.qmu.Lock()
	}

	i.processing = false
	i.qmu.Unlock()

	i.notify()
}

// notify delivers published snapshots to listeners unless another goroutine
// already is.
func (i *Interpreter[C]) notify() {
	i.nmu.Lock()
	if i.notifying {
		i.nmu.Unlock()
		return
	}
	i.notifying = true

	for len(i.notifications) > 0 {
		snap := i.notifications[0]
		i.notifications = i.notifications[1:]
		i.nmu.Unlock()

		i.mu.RLock()
		listeners := slices.Collect(maps.Values(i.listeners))
		i.mu.RUnlock()
		for _, fn := range listeners {
			fn(snap)
		}

		i.nmu.Lock()
	}

	i.notifying = false
	i.nmu.Unlock()
}

func (i *Interpreter[C]) process(q queued) {
	i.mu.Lock()
	if i.stopped {
		i.mu.Unlock()
		return
	}

	if q.start {
		i.enterLocked(i.initial, startEvent)
		i.log.Debug("state machine started", logger.State(i.state.Name()))
		i.publishAndUnlock()
		return
	}

	if q.gen != 0 {
		delete(i.inflight, q.gen)
		if q.gen != i.generation {
			i.log.Debug("stale service result dropped",
				logger.State(i.state.Name()),
				logger.Event(q.event.Name()),
			)
			i.mu.Unlock()
			return
		}
	}

	t, ok := i.resolve(q.event)
	if !ok {
		i.log.Debug("event ignored",
			logger.State(i.state.Name()),
			logger.Event(q.event.Name()),
		)
		i.mu.Unlock()
		return
	}

	from := i.state
	i.context = apply(i.context, t, q.event)
	i.exitLocked()
	i.enterLocked(t.To, q.event)

	i.log.Debug("state transition",
		slog.String("from", from.Name()),
		slog.String("to", i.state.Name()),
		logger.Event(q.event.Name()),
	)
	i.publishAndUnlock()
}

// resolve looks up the global table first, then the current state's table.
func (i *Interpreter[C]) resolve(event Event) (Transition[C], bool) {
	if t, ok := i.global[event.Name()]; ok {
		return t, true
	}
	t, ok := i.transitions[i.state.Name()][event.Name()]
	return t, ok
}

// enterLocked must be called with the lock held.
func (i *Interpreter[C]) enterLocked(target State, trigger Event) {
	for {
		i.state = target
		i.generation++

		t, ok := i.always[target.Name()]
		if !ok {
			break
		}
		i.context = apply(i.context, t, trigger)
		target = t.To
	}

	if svc, ok := i.services[i.state.Name()]; ok {
		i.invokeLocked(i.state, svc, trigger)
	}
}

// exitLocked cancels the service of the state being left. Its result, if it
// ever arrives, carries a stale generation and is dropped.
// Must be called with the lock held.
func (i *Interpreter[C]) exitLocked() {
	if i.cancelTask != nil {
		i.cancelTask()
		i.cancelTask = nil
	}
}

// invokeLocked must be called with the lock held.
func (i *Interpreter[C]) invokeLocked(state State, svc Service[C], trigger Event) {
	for gen, f := range i.inflight {
		if f.IsComplete() {
			delete(i.inflight, gen)
		}
	}

	ctx, cancel := context.WithCancel(i.rootCtx)
	gen, c := i.generation, i.context

	// The service runs even on a canceled ctx so the state always gets a
	// result event.
	future := async.Async(context.WithoutCancel(ctx), trigger, func(_ context.Context, trigger Event) (Event, error) {
		event := svc(ctx, c, trigger)
		if event == nil {
			event = DoneEvent(state)
		}
		i.enqueue(queued{event: event, gen: gen})
		return event, nil
	})

	i.cancelTask = cancel
	i.inflight[gen] = future
}

// publishAndUnlock must be called with the lock held.
// It wakes waiters, queues the snapshot for listeners and releases the lock.
func (i *Interpreter[C]) publishAndUnlock() {
	i.nmu.Lock()
	i.notifications = append(i.notifications, i.snapshotLocked())
	i.nmu.Unlock()

	i.broadcastLocked()
	i.mu.Unlock()
}

// Must be called with the lock held.
func (i *Interpreter[C]) broadcastLocked() {
	close(i.changed)
	i.changed = make(chan struct{})
}

// Must be called with the lock held.
func (i *Interpreter[C]) snapshotLocked() Snapshot[C] {
	return Snapshot[C]{State: i.state, Context: i.context}
}

func apply[C any](c C, t Transition[C], event Event) C {
	for _, action := range t.Actions {
		c = action(c, event)
	}
	return c
}

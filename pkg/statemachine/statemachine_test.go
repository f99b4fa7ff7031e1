package statemachine_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/dmitrymomot/kvsync/pkg/statemachine"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	Booting   = statemachine.StringState("booting")
	Loading   = statemachine.StringState("loading")
	Ready     = statemachine.StringState("ready")
	Saving    = statemachine.StringState("saving")
	Resetting = statemachine.StringState("resetting")
)

const (
	Loaded = statemachine.StringEvent("loaded")
	Save   = statemachine.StringEvent("save")
	Saved  = statemachine.StringEvent("saved")
	Reset  = statemachine.StringEvent("reset")
)

type counter struct {
	Loads int
	Saves int
}

func countLoad(c counter, _ statemachine.Event) counter {
	c.Loads++
	return c
}

func countSave(c counter, _ statemachine.Event) counter {
	c.Saves++
	return c
}

func zero(counter, statemachine.Event) counter {
	return counter{}
}

func waitState(t *testing.T, sm *statemachine.Interpreter[counter], state statemachine.State) statemachine.Snapshot[counter] {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	snap, err := sm.WaitFor(ctx, func(s statemachine.Snapshot[counter]) bool { return s.Matches(state) })
	if err != nil {
		t.Fatalf("Expected state %s, still in %s: %v", state, snap.State.Name(), err)
	}
	return snap
}

// newMachine builds a machine whose load and save services block until released.
func newMachine(t *testing.T, load, save statemachine.Service[counter]) *statemachine.Interpreter[counter] {
	t.Helper()
	sm, err := statemachine.New(Booting, counter{},
		statemachine.WithAlways[counter](Booting, Loading),
		statemachine.WithInvoke[counter](Loading, load),
		statemachine.WithTransition[counter](Loading, Ready, Loaded, statemachine.WithAction[counter](countLoad)),
		statemachine.WithTransition[counter](Ready, Saving, Save),
		statemachine.WithInvoke[counter](Saving, save),
		statemachine.WithTransition[counter](Saving, Ready, Saved, statemachine.WithAction[counter](countSave)),
		statemachine.WithGlobalTransition[counter](Resetting, Reset),
		statemachine.WithInvoke[counter](Resetting, func(ctx context.Context, c counter, trigger statemachine.Event) statemachine.Event {
			return nil
		}),
		statemachine.WithOnDone[counter](Resetting, Ready, statemachine.WithAction[counter](zero)),
	)
	if err != nil {
		t.Fatalf("Failed to create state machine: %v", err)
	}
	t.Cleanup(sm.Stop)
	return sm
}

func emit(event statemachine.Event) statemachine.Service[counter] {
	return func(ctx context.Context, c counter, trigger statemachine.Event) statemachine.Event {
		return event
	}
}

// gated returns a service that emits event once release is closed or its context is canceled.
func gated(event statemachine.Event, release <-chan struct{}, canceled *atomic.Bool) statemachine.Service[counter] {
	return func(ctx context.Context, c counter, trigger statemachine.Event) statemachine.Event {
		select {
		case <-release:
			return event
		case <-ctx.Done():
			if canceled != nil {
				canceled.Store(true)
			}
			return event
		}
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("nil initial state", func(t *testing.T) {
		t.Parallel()
		if _, err := statemachine.New[counter](nil, counter{}); !errors.Is(err, statemachine.ErrInvalidState) {
			t.Fatalf("Expected ErrInvalidState, got: %v", err)
		}
	})

	t.Run("nil transition parts", func(t *testing.T) {
		t.Parallel()
		_, err := statemachine.New(Ready, counter{},
			statemachine.WithTransition[counter](Ready, nil, Save),
		)
		if !errors.Is(err, statemachine.ErrInvalidTransition) {
			t.Fatalf("Expected ErrInvalidTransition, got: %v", err)
		}
	})

	t.Run("duplicate transition", func(t *testing.T) {
		t.Parallel()
		_, err := statemachine.New(Ready, counter{},
			statemachine.WithTransition[counter](Ready, Saving, Save),
			statemachine.WithTransition[counter](Ready, Loading, Save),
		)
		if !statemachine.IsDuplicateTransitionError(err) {
			t.Fatalf("Expected DuplicateTransitionError, got: %v", err)
		}
	})

	t.Run("duplicate global transition", func(t *testing.T) {
		t.Parallel()
		_, err := statemachine.New(Ready, counter{},
			statemachine.WithGlobalTransition[counter](Resetting, Reset),
			statemachine.WithGlobalTransition[counter](Ready, Reset),
		)
		if !statemachine.IsDuplicateTransitionError(err) {
			t.Fatalf("Expected DuplicateTransitionError, got: %v", err)
		}
	})

	t.Run("transition list reports index", func(t *testing.T) {
		t.Parallel()
		_, err := statemachine.New(Ready, counter{},
			statemachine.WithTransitions([]statemachine.TransitionDef[counter]{
				{From: Ready, To: Saving, Event: Save},
				{From: Saving, To: nil, Event: Saved},
			}),
		)
		if !errors.Is(err, statemachine.ErrInvalidTransition) {
			t.Fatalf("Expected ErrInvalidTransition, got: %v", err)
		}
	})

	t.Run("nil service", func(t *testing.T) {
		t.Parallel()
		_, err := statemachine.New(Ready, counter{},
			statemachine.WithInvoke[counter](Ready, nil),
		)
		if !errors.Is(err, statemachine.ErrInvalidService) {
			t.Fatalf("Expected ErrInvalidService, got: %v", err)
		}
	})

	t.Run("must new panics", func(t *testing.T) {
		t.Parallel()
		defer func() {
			if recover() == nil {
				t.Fatal("Expected MustNew to panic")
			}
		}()
		statemachine.MustNew[counter](nil, counter{})
	})
}

func TestLifecycle(t *testing.T) {
	t.Parallel()
	sm := newMachine(t, emit(Loaded), emit(Saved))

	if !sm.Snapshot().Matches(Booting) {
		t.Fatalf("Expected %s before start, got %s", Booting, sm.Snapshot().State.Name())
	}
	if err := sm.Send(Save); !errors.Is(err, statemachine.ErrNotStarted) {
		t.Fatalf("Expected ErrNotStarted, got: %v", err)
	}

	if err := sm.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start: %v", err)
	}
	if err := sm.Start(context.Background()); !errors.Is(err, statemachine.ErrAlreadyStarted) {
		t.Fatalf("Expected ErrAlreadyStarted, got: %v", err)
	}
	if err := sm.Send(nil); !errors.Is(err, statemachine.ErrInvalidEvent) {
		t.Fatalf("Expected ErrInvalidEvent, got: %v", err)
	}

	snap := waitState(t, sm, Ready)
	if snap.Context.Loads != 1 {
		t.Fatalf("Expected one load, got %d", snap.Context.Loads)
	}

	sm.Stop()
	sm.Stop()
	if err := sm.Send(Save); !errors.Is(err, statemachine.ErrStopped) {
		t.Fatalf("Expected ErrStopped, got: %v", err)
	}
	if _, err := sm.WaitFor(context.Background(), func(s statemachine.Snapshot[counter]) bool { return false }); !errors.Is(err, statemachine.ErrStopped) {
		t.Fatalf("Expected ErrStopped from WaitFor, got: %v", err)
	}
}

func TestStartCascadesSynchronously(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	defer close(release)
	sm := newMachine(t, gated(Loaded, release, nil), emit(Saved))

	if err := sm.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start: %v", err)
	}

	// The eventless transition is taken before Start returns.
	if !sm.Snapshot().Matches(Loading) {
		t.Fatalf("Expected %s right after start, got %s", Loading, sm.Snapshot().State.Name())
	}
}

func TestTransitionsAndActions(t *testing.T) {
	t.Parallel()
	sm := newMachine(t, emit(Loaded), emit(Saved))
	if err := sm.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start: %v", err)
	}
	waitState(t, sm, Ready)

	if sm.Can(Saved) {
		t.Fatal("Expected Saved not to be handled in Ready")
	}
	if !sm.Can(Save) || !sm.Can(Reset) {
		t.Fatal("Expected Save and Reset to be handled in Ready")
	}

	// Unhandled events are dropped without effect.
	if err := sm.Send(Saved); err != nil {
		t.Fatalf("Failed to send: %v", err)
	}
	if snap := sm.Snapshot(); !snap.Matches(Ready) || snap.Context.Saves != 0 {
		t.Fatalf("Expected unhandled event to be ignored, got %+v", snap)
	}

	for range 3 {
		if err := sm.Send(Save); err != nil {
			t.Fatalf("Failed to send: %v", err)
		}
		waitState(t, sm, Ready)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	snap, err := sm.WaitFor(ctx, func(s statemachine.Snapshot[counter]) bool { return s.Context.Saves == 3 })
	if err != nil {
		t.Fatalf("Expected three saves, got %+v: %v", snap, err)
	}
}

func TestGlobalTransitionPreemptsService(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	var canceled atomic.Bool
	sm := newMachine(t, emit(Loaded), gated(Saved, release, &canceled))

	if err := sm.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start: %v", err)
	}
	waitState(t, sm, Ready)

	if err := sm.Send(Save); err != nil {
		t.Fatalf("Failed to send: %v", err)
	}
	if !sm.Snapshot().Matches(Saving) {
		t.Fatalf("Expected %s, got %s", Saving, sm.Snapshot().State.Name())
	}

	if err := sm.Send(Reset); err != nil {
		t.Fatalf("Failed to send: %v", err)
	}
	snap := waitState(t, sm, Ready)
	defer close(release)

	if snap.Context != (counter{}) {
		t.Fatalf("Expected context reset, got %+v", snap.Context)
	}

	// The abandoned save still runs, sees its context canceled and reports
	// Saved; that result must not be applied.
	deadline := time.Now().Add(time.Second)
	for !canceled.Load() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !canceled.Load() {
		t.Fatal("Expected abandoned service context to be canceled")
	}
	time.Sleep(20 * time.Millisecond)
	if snap := sm.Snapshot(); snap.Context.Saves != 0 || !snap.Matches(Ready) {
		t.Fatalf("Expected stale result to be dropped, got %+v", snap)
	}
}

func TestServicesRunAfterStartContextIsCanceled(t *testing.T) {
	t.Parallel()
	var canceled atomic.Bool
	sm := newMachine(t, emit(Loaded), gated(Saved, nil, &canceled))

	ctx, cancel := context.WithCancel(context.Background())
	if err := sm.Start(ctx); err != nil {
		t.Fatalf("Failed to start: %v", err)
	}
	waitState(t, sm, Ready)
	cancel()

	if err := sm.Send(Save); err != nil {
		t.Fatalf("Failed to send: %v", err)
	}
	snap := waitState(t, sm, Ready)
	if snap.Context.Saves != 1 {
		t.Fatalf("Expected the save to complete, got %+v", snap.Context)
	}
	if !canceled.Load() {
		t.Fatal("Expected the service to observe the canceled context")
	}

	if err := sm.Send(Reset); err != nil {
		t.Fatalf("Failed to send: %v", err)
	}
	if snap := waitState(t, sm, Ready); snap.Context != (counter{}) {
		t.Fatalf("Expected context reset, got %+v", snap.Context)
	}
}

func TestStopDoesNotWaitForeverOnStuckService(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	stuck := func(ctx context.Context, c counter, trigger statemachine.Event) statemachine.Event {
		<-release
		return Saved
	}
	sm, err := statemachine.New(Ready, counter{},
		statemachine.WithTransition[counter](Ready, Saving, Save),
		statemachine.WithInvoke[counter](Saving, stuck),
		statemachine.WithStopTimeout[counter](20*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("Failed to create state machine: %v", err)
	}
	if err := sm.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start: %v", err)
	}
	if err := sm.Send(Save); err != nil {
		t.Fatalf("Failed to send: %v", err)
	}

	stopped := make(chan struct{})
	go func() {
		sm.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Expected Stop to return after the stop timeout")
	}
}

func TestStaleResultInSameStateIsDropped(t *testing.T) {
	t.Parallel()
	first := make(chan struct{})
	started := make(chan struct{})
	var calls atomic.Int32
	save := func(ctx context.Context, c counter, trigger statemachine.Event) statemachine.Event {
		if calls.Add(1) == 1 {
			close(started)
			<-first
			return Saved
		}
		return nil
	}
	sm := newMachine(t, emit(Loaded), save)

	if err := sm.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start: %v", err)
	}
	waitState(t, sm, Ready)

	// First save blocks, reset preempts it, second save never reports.
	_ = sm.Send(Save)
	<-started
	_ = sm.Send(Reset)
	waitState(t, sm, Ready)
	_ = sm.Send(Save)
	waitState(t, sm, Saving)

	close(first)
	time.Sleep(20 * time.Millisecond)

	snap := sm.Snapshot()
	if !snap.Matches(Saving) || snap.Context.Saves != 0 {
		t.Fatalf("Expected late result of the first save to be ignored, got %+v", snap)
	}
}

func TestSubscribe(t *testing.T) {
	t.Parallel()
	sm := newMachine(t, emit(Loaded), emit(Saved))

	seen := make(chan string, 8)
	unsubscribe := sm.Subscribe(func(s statemachine.Snapshot[counter]) {
		seen <- s.State.Name()
	})

	if err := sm.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start: %v", err)
	}

	for _, want := range []string{Loading.Name(), Ready.Name()} {
		select {
		case got := <-seen:
			if got != want {
				t.Fatalf("Expected %s, got %s", want, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("Timed out waiting for %s", want)
		}
	}
	unsubscribe()

	_ = sm.Send(Save)
	waitState(t, sm, Ready)

	if len(seen) != 0 {
		t.Fatalf("Expected no notifications after unsubscribe, got %d", len(seen))
	}
}

func TestSubscriberCanSend(t *testing.T) {
	t.Parallel()
	sm := newMachine(t, emit(Loaded), emit(Saved))

	var sent atomic.Bool
	sm.Subscribe(func(s statemachine.Snapshot[counter]) {
		if s.Matches(Ready) && sent.CompareAndSwap(false, true) {
			if err := sm.Send(Save); err != nil {
				t.Errorf("Failed to send from listener: %v", err)
			}
		}
	})

	if err := sm.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := sm.WaitFor(ctx, func(s statemachine.Snapshot[counter]) bool { return s.Context.Saves == 1 }); err != nil {
		t.Fatalf("Expected the listener's save to be processed: %v", err)
	}
}

func TestWaitForContext(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	defer close(release)
	sm := newMachine(t, gated(Loaded, release, nil), emit(Saved))
	if err := sm.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := sm.WaitFor(ctx, func(s statemachine.Snapshot[counter]) bool { return s.Matches(Ready) })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected deadline exceeded, got: %v", err)
	}
}

func TestDoneEvent(t *testing.T) {
	t.Parallel()
	if got := statemachine.DoneEvent(Resetting).Name(); got != "done.invoke.resetting" {
		t.Fatalf("Unexpected done event name %q", got)
	}
}

package statemachine

import (
	"fmt"
	"log/slog"
	"time"
)

// Option configures an interpreter during construction.
type Option[C any] func(*Interpreter[C]) error

// TransitionOption configures a single transition.
type TransitionOption[C any] func(*transitionConfig[C])

// TransitionDef defines a transition between states.
type TransitionDef[C any] struct {
	From    State
	To      State
	Event   Event
	Actions []Action[C]
}

type transitionConfig[C any] struct {
	actions []Action[C]
}

func newTransition[C any](from, to State, event Event, opts []TransitionOption[C]) Transition[C] {
	cfg := &transitionConfig[C]{}
	for _, opt := range opts {
		opt(cfg)
	}
	return Transition[C]{From: from, To: to, Event: event, Actions: cfg.actions}
}

// WithTransition adds a transition taken when event is received in state from.
func WithTransition[C any](from, to State, event Event, opts ...TransitionOption[C]) Option[C] {
	return func(i *Interpreter[C]) error {
		return i.addTransition(newTransition(from, to, event, opts))
	}
}

// WithTransitions adds multiple transitions at once.
func WithTransitions[C any](transitions []TransitionDef[C]) Option[C] {
	return func(i *Interpreter[C]) error {
		for n, t := range transitions {
			tr := Transition[C]{From: t.From, To: t.To, Event: t.Event, Actions: t.Actions}
			if err := i.addTransition(tr); err != nil {
				return fmt.Errorf("failed to add transition[%d] %s->%s on %s: %w",
					n, nameOf(t.From), nameOf(t.To), nameOf(t.Event), err)
			}
		}
		return nil
	}
}

// WithGlobalTransition adds a transition that applies in every state.
// Global transitions are looked up before the per-state table, so they
// preempt whatever the current state would do with the same event.
func WithGlobalTransition[C any](to State, event Event, opts ...TransitionOption[C]) Option[C] {
	return func(i *Interpreter[C]) error {
		if to == nil || event == nil {
			return ErrInvalidTransition
		}
		name := event.Name()
		if _, ok := i.global[name]; ok {
			return NewErrDuplicateTransition("*", name)
		}
		i.global[name] = newTransition(nil, to, event, opts)
		return nil
	}
}

// WithAlways adds an eventless transition taken immediately on entering from.
func WithAlways[C any](from, to State, opts ...TransitionOption[C]) Option[C] {
	return func(i *Interpreter[C]) error {
		if from == nil || to == nil {
			return ErrInvalidTransition
		}
		name := from.Name()
		if _, ok := i.always[name]; ok {
			return NewErrDuplicateTransition(name, "<always>")
		}
		i.always[name] = newTransition(from, to, nil, opts)
		return nil
	}
}

// WithInvoke registers the service launched every time state is entered.
func WithInvoke[C any](state State, service Service[C]) Option[C] {
	return func(i *Interpreter[C]) error {
		if state == nil {
			return ErrInvalidState
		}
		if service == nil {
			return ErrInvalidService
		}
		i.services[state.Name()] = service
		return nil
	}
}

// WithOnDone adds the transition taken when the service of state completes
// without an event of its own.
func WithOnDone[C any](state, to State, opts ...TransitionOption[C]) Option[C] {
	return func(i *Interpreter[C]) error {
		if state == nil {
			return ErrInvalidTransition
		}
		return i.addTransition(newTransition(state, to, DoneEvent(state), opts))
	}
}

// WithLogger sets the logger used for transition tracing. Nil is ignored.
func WithLogger[C any](log *slog.Logger) Option[C] {
	return func(i *Interpreter[C]) error {
		if log != nil {
			i.log = log
		}
		return nil
	}
}

// WithStopTimeout sets how long Stop waits for launched services to return.
// Non-positive values are ignored.
func WithStopTimeout[C any](d time.Duration) Option[C] {
	return func(i *Interpreter[C]) error {
		if d > 0 {
			i.stopTimeout = d
		}
		return nil
	}
}

// WithAction adds a single action to a transition.
func WithAction[C any](action Action[C]) TransitionOption[C] {
	return func(cfg *transitionConfig[C]) {
		if action != nil {
			cfg.actions = append(cfg.actions, action)
		}
	}
}

// WithActions adds multiple actions to a transition.
func WithActions[C any](actions ...Action[C]) TransitionOption[C] {
	return func(cfg *transitionConfig[C]) {
		for _, action := range actions {
			if action != nil {
				cfg.actions = append(cfg.actions, action)
			}
		}
	}
}

func nameOf(v interface{ Name() string }) string {
	if v == nil {
		return "<nil>"
	}
	return v.Name()
}

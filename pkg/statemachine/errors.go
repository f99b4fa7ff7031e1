package statemachine

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition = errors.New("invalid transition: from, to, or event cannot be nil")
	ErrInvalidEvent      = errors.New("invalid event: event cannot be nil")
	ErrInvalidState      = errors.New("invalid state: state cannot be nil")
	ErrInvalidService    = errors.New("invalid service: service cannot be nil")
	ErrAlreadyStarted    = errors.New("state machine already started")
	ErrNotStarted        = errors.New("state machine not started")
	ErrStopped           = errors.New("state machine stopped")
)

// ErrDuplicateTransition indicates that a transition for the same state/event pair is already defined.
type ErrDuplicateTransition struct {
	StateName string
	EventName string
}

func (e *ErrDuplicateTransition) Error() string {
	return fmt.Sprintf("duplicate transition from state '%s' for event '%s'", e.StateName, e.EventName)
}

func NewErrDuplicateTransition(stateName, eventName string) *ErrDuplicateTransition {
	return &ErrDuplicateTransition{
		StateName: stateName,
		EventName: eventName,
	}
}

func IsDuplicateTransitionError(err error) bool {
	var e *ErrDuplicateTransition
	return errors.As(err, &e)
}

package actor

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAccepting is returned when a task is submitted to an actor that is
	// not accepting tasks, i.e. stopping or stopped after Cancel.
	ErrNotAccepting = errors.New("actor not accepting tasks")
	// ErrPoisoned marks tasks that were discarded by Cancel with a cause.
	ErrPoisoned = errors.New("actor canceled before task ran")

	ErrNilExecutor        = errors.New("actor: executor is required")
	ErrInvalidConcurrency = errors.New("actor: concurrency must be positive")
)

// PanicError is the failure delivered to the caller whose operation panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string { return fmt.Sprintf("actor: operation panicked: %v", e.Value) }

// Unwrap exposes the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

func poisoned(cause error) error { return fmt.Errorf("%w: %w", ErrPoisoned, cause) }

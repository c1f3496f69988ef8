package scheduler

import "errors"

var (
	// ErrSchedulerStopped is returned when a job is enqueued after Stop.
	ErrSchedulerStopped = errors.New("scheduler stopped")

	// ErrStopTimeout is returned when the in-flight job outlives the Stop timeout.
	ErrStopTimeout = errors.New("scheduler stop timed out")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("scheduler already started")

	// ErrDuplicateHandler is returned when a kind is registered twice.
	ErrDuplicateHandler = errors.New("handler already registered")

	// ErrRegistryRequired is returned when a scheduler is created without a registry.
	ErrRegistryRequired = errors.New("registry required")

	// ErrUnknownKind is reported to Submit callers when no handler is registered.
	ErrUnknownKind = errors.New("no handler for job kind")

	// ErrHandlerPanic wraps the value recovered from a panicking handler.
	ErrHandlerPanic = errors.New("job handler panicked")
)

package event

import (
	"errors"

	"github.com/nerrad567/carrier-core/internal/lwm2m"
)

// Domain errors for the event package.
var (
	// ErrInvalidEvent is returned when an event kind is unknown or its
	// payload does not match the kind.
	ErrInvalidEvent = lwm2m.NewError(lwm2m.ErrInvalidArgument, "event: invalid event")

	// ErrNotInitialized is returned when an event other than INIT or ERROR
	// is dispatched before INIT.
	ErrNotInitialized = lwm2m.NewError(lwm2m.ErrNotInitialized, "event: session not initialised")

	// ErrQueueFull is returned by Post when the dispatch queue is full.
	ErrQueueFull = lwm2m.NewError(lwm2m.ErrCapacityExceeded, "event: dispatch queue full")

	// ErrReentrantDispatch is returned when a handler or observer calls
	// Dispatch from inside a dispatch. Use Post instead.
	ErrReentrantDispatch = errors.New("event: dispatch called from inside a handler")

	// ErrHandlerPanic is returned when the host handler panics.
	ErrHandlerPanic = errors.New("event: handler panicked")
)

package lwm2m

import "errors"

// Error kinds shared by all resource stores.
var (
	// ErrInvalidArgument is returned when a value is malformed, out of range
	// or of an unknown enumeration member.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound is returned when an addressed instance or entry does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when creating an instance whose ID is taken.
	ErrAlreadyExists = errors.New("already exists")

	// ErrCapacityExceeded is returned when a bounded collection is full.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrPermissionDenied is returned when writing a protected value.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrSourceNotActive is returned when writing a measurement for a power
	// source that is not in the active set.
	ErrSourceNotActive = errors.New("source not active")

	// ErrBufferTooSmall is returned when a caller-supplied buffer cannot
	// hold the value being read.
	ErrBufferTooSmall = errors.New("buffer too small")

	// ErrAllocationFailed is returned when the storage budget is exhausted.
	ErrAllocationFailed = errors.New("allocation failed")

	// ErrNotInitialized is returned when a facility has not been provisioned.
	ErrNotInitialized = errors.New("not initialized")
)

// kindError is a package sentinel that carries one of the kinds above.
type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// NewError returns a sentinel error with the given message that matches
// kind under errors.Is.
func NewError(kind error, msg string) error {
	return &kindError{msg: msg, kind: kind}
}

// kinds lists every kind in a stable order for Kind lookups.
var kinds = []error{
	ErrInvalidArgument,
	ErrNotFound,
	ErrAlreadyExists,
	ErrCapacityExceeded,
	ErrPermissionDenied,
	ErrSourceNotActive,
	ErrBufferTooSmall,
	ErrAllocationFailed,
	ErrNotInitialized,
}

// Kind returns the kind err belongs to, or nil if it carries none.
func Kind(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Recoverable reports whether the caller may reasonably retry the
// operation with different input. Allocation failures and uninitialised
// facilities are not recoverable for the current call.
func Recoverable(err error) bool {
	if err == nil {
		return true
	}
	return !errors.Is(err, ErrAllocationFailed) && !errors.Is(err, ErrNotInitialized)
}

package device

import "github.com/nerrad567/carrier-core/internal/lwm2m"

// Domain errors for the device package.
//
// Each error also matches its lwm2m kind, so callers may check either:
//
//	if errors.Is(err, device.ErrSourceNotActive) {
//	    // declare the source first
//	}
//	if errors.Is(err, lwm2m.ErrInvalidArgument) {
//	    // any bad input
//	}
var (
	// ErrTooManySources is returned when more power sources are declared
	// than the store can hold.
	ErrTooManySources = lwm2m.NewError(lwm2m.ErrCapacityExceeded, "device: too many power sources")

	// ErrInvalidSource is returned for an unknown or duplicated power source.
	ErrInvalidSource = lwm2m.NewError(lwm2m.ErrInvalidArgument, "device: invalid power source")

	// ErrSourceNotActive is returned when writing to a power source that is
	// not in the active set.
	ErrSourceNotActive = lwm2m.NewError(lwm2m.ErrSourceNotActive, "device: power source not active")

	// ErrOutOfRange is returned when a numeric value is outside its bounds.
	ErrOutOfRange = lwm2m.NewError(lwm2m.ErrInvalidArgument, "device: value out of range")

	// ErrInvalidStatus is returned for an unknown battery status.
	ErrInvalidStatus = lwm2m.NewError(lwm2m.ErrInvalidArgument, "device: invalid battery status")

	// ErrInvalidCode is returned for an unknown error code.
	ErrInvalidCode = lwm2m.NewError(lwm2m.ErrInvalidArgument, "device: invalid error code")

	// ErrNotPresent is returned when removing an error code that is not set.
	ErrNotPresent = lwm2m.NewError(lwm2m.ErrNotFound, "device: error code not present")

	// ErrInvalidTime is returned when writing a negative UTC time.
	ErrInvalidTime = lwm2m.NewError(lwm2m.ErrInvalidArgument, "device: invalid utc time")
)

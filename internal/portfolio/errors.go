package portfolio

import "github.com/nerrad567/carrier-core/internal/lwm2m"

// Domain errors for the portfolio package.
var (
	// ErrInstanceExists is returned when creating an instance whose ID is taken.
	ErrInstanceExists = lwm2m.NewError(lwm2m.ErrAlreadyExists, "portfolio: instance already exists")

	// ErrRegistryFull is returned when the instance table has no free slot.
	ErrRegistryFull = lwm2m.NewError(lwm2m.ErrCapacityExceeded, "portfolio: instance table full")

	// ErrInstanceNotFound is returned when an instance ID does not exist.
	ErrInstanceNotFound = lwm2m.NewError(lwm2m.ErrNotFound, "portfolio: instance not found")

	// ErrInvalidField is returned for an unknown identity field.
	ErrInvalidField = lwm2m.NewError(lwm2m.ErrInvalidArgument, "portfolio: invalid identity field")

	// ErrEmptyValue is returned when writing an empty identity value.
	ErrEmptyValue = lwm2m.NewError(lwm2m.ErrInvalidArgument, "portfolio: empty identity value")

	// ErrValueTooLong is returned when an identity value exceeds the field limit.
	ErrValueTooLong = lwm2m.NewError(lwm2m.ErrInvalidArgument, "portfolio: identity value too long")

	// ErrPrimaryHostProtected is returned when writing the ID identity of
	// the Primary Host instance, or deleting that instance.
	ErrPrimaryHostProtected = lwm2m.NewError(lwm2m.ErrPermissionDenied, "portfolio: primary host instance is protected")

	// ErrBufferTooSmall is returned when a read buffer cannot hold the value
	// and its terminator.
	ErrBufferTooSmall = lwm2m.NewError(lwm2m.ErrBufferTooSmall, "portfolio: buffer too small")
)

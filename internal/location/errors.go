package location

import "github.com/nerrad567/carrier-core/internal/lwm2m"

var (
	// ErrInvalidCoordinate is returned when latitude or longitude is out of range.
	ErrInvalidCoordinate = lwm2m.NewError(lwm2m.ErrInvalidArgument, "location: coordinate out of range")

	// ErrStaleTimestamp is returned when a fix is not newer than the cached one.
	ErrStaleTimestamp = lwm2m.NewError(lwm2m.ErrInvalidArgument, "location: timestamp not increasing")

	// ErrInvalidUncertainty is returned for a negative or missing uncertainty.
	ErrInvalidUncertainty = lwm2m.NewError(lwm2m.ErrInvalidArgument, "location: invalid uncertainty")

	// ErrInvalidHeading is returned when the heading is outside 0..359.
	ErrInvalidHeading = lwm2m.NewError(lwm2m.ErrInvalidArgument, "location: heading out of range")

	// ErrInvalidSpeed is returned for a negative or missing horizontal speed.
	ErrInvalidSpeed = lwm2m.NewError(lwm2m.ErrInvalidArgument, "location: invalid speed")
)

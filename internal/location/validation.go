package location

import (
	"fmt"

	"github.com/nerrad567/carrier-core/internal/lwm2m"
)

// Validation bounds.
const (
	minLatitude  = -90
	maxLatitude  = 90
	minLongitude = -180
	maxLongitude = 180
	minHeading   = 0
	maxHeading   = 359
)

// ValidateFix checks the fields of a position report that do not depend
// on the previously cached fix.
func ValidateFix(f Fix) error {
	if !lwm2m.InRangeFloat(f.Latitude, minLatitude, maxLatitude) {
		return fmt.Errorf("%w: latitude %v", ErrInvalidCoordinate, f.Latitude)
	}
	if !lwm2m.InRangeFloat(f.Longitude, minLongitude, maxLongitude) {
		return fmt.Errorf("%w: longitude %v", ErrInvalidCoordinate, f.Longitude)
	}
	if !lwm2m.Finite(float64(f.Altitude)) {
		return fmt.Errorf("%w: altitude %v", ErrInvalidCoordinate, f.Altitude)
	}
	if !lwm2m.NonNegative(f.Uncertainty) {
		return fmt.Errorf("%w: %v", ErrInvalidUncertainty, f.Uncertainty)
	}
	return nil
}

// ValidateVelocity checks a velocity vector. NaN optional fields pass.
func ValidateVelocity(v Velocity) error {
	if !lwm2m.InRange(int64(v.Heading), minHeading, maxHeading) {
		return fmt.Errorf("%w: %d", ErrInvalidHeading, v.Heading)
	}
	if !lwm2m.NonNegative(v.SpeedH) {
		return fmt.Errorf("%w: horizontal speed %v", ErrInvalidSpeed, v.SpeedH)
	}
	if !lwm2m.NonNegativeOrAbsent(v.UncertaintyH) {
		return fmt.Errorf("%w: horizontal %v", ErrInvalidUncertainty, v.UncertaintyH)
	}
	if !lwm2m.NonNegativeOrAbsent(v.UncertaintyV) {
		return fmt.Errorf("%w: vertical %v", ErrInvalidUncertainty, v.UncertaintyV)
	}
	return nil
}

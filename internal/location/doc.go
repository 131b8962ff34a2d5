// Package location caches the device position and velocity reported by
// the host for the LwM2M Location object.
//
// Fixes must advance strictly in time. Velocity optional fields use NaN
// (see Absent) to mean "not reported".
package location

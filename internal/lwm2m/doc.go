// Package lwm2m holds the pieces shared by every carrier resource store:
// the error taxonomy, the pure validation predicates and the storage
// budget that models the device heap.
//
// # Error kinds
//
// Each store defines its own sentinel errors (device.ErrOutOfRange,
// portfolio.ErrValueTooLong, ...). Every sentinel wraps exactly one of the
// kinds declared here, so callers can branch on either level:
//
//	if errors.Is(err, device.ErrSourceNotActive) {
//	    // the specific condition
//	}
//	if errors.Is(err, lwm2m.ErrInvalidArgument) {
//	    // any argument problem
//	}
//
// AllocationFailed and NotInitialized are considered permanent for the
// current call. Use Recoverable to tell them apart.
//
// # Storage budget
//
// Budget reserves bytes against a fixed capacity. Stores reserve before
// they copy caller data and release when the data is replaced, so a full
// budget surfaces as ErrAllocationFailed instead of unbounded growth.
package lwm2m

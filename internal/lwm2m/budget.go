package lwm2m

import (
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Budget bounds the bytes held by resource stores.
//
// A nil *Budget, or one created with a non-positive capacity, never
// refuses a reservation.
type Budget struct {
	sem      *semaphore.Weighted
	capacity int64
	used     atomic.Int64
}

// NewBudget creates a budget of capacity bytes.
func NewBudget(capacity int64) *Budget {
	b := &Budget{capacity: capacity}
	if capacity > 0 {
		b.sem = semaphore.NewWeighted(capacity)
	}
	return b
}

// Reserve claims n bytes. It never blocks.
// Returns ErrAllocationFailed if the budget cannot hold n more bytes.
func (b *Budget) Reserve(n int) error {
	if b == nil || n <= 0 {
		return nil
	}
	if b.sem != nil && !b.sem.TryAcquire(int64(n)) {
		return fmt.Errorf("%w: %d bytes requested, %d of %d in use",
			ErrAllocationFailed, n, b.used.Load(), b.capacity)
	}
	b.used.Add(int64(n))
	return nil
}

// Release returns n previously reserved bytes.
func (b *Budget) Release(n int) {
	if b == nil || n <= 0 {
		return
	}
	b.used.Add(-int64(n))
	if b.sem != nil {
		b.sem.Release(int64(n))
	}
}

// Swap replaces a reservation of old bytes with one of n bytes.
// On failure the old reservation is kept.
func (b *Budget) Swap(old, n int) error {
	if n <= old {
		b.Release(old - n)
		return nil
	}
	return b.Reserve(n - old)
}

// Used returns the bytes currently reserved.
func (b *Budget) Used() int64 {
	if b == nil {
		return 0
	}
	return b.used.Load()
}

// Capacity returns the budget size. Zero means unbounded.
func (b *Budget) Capacity() int64 {
	if b == nil || b.capacity < 0 {
		return 0
	}
	return b.capacity
}

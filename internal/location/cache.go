package location

import (
	"fmt"
	"sync"

	"github.com/nerrad567/carrier-core/internal/lwm2m"
)

// Cache holds the last position fix and velocity vector reported by the
// host. Each write replaces the cached value as a whole.
//
// All public methods are thread-safe.
type Cache struct {
	mu          sync.RWMutex
	budget      *lwm2m.Budget
	fix         Fix
	hasFix      bool
	velocity    Velocity
	hasVelocity bool
}

// NewCache creates an empty cache. The velocity vector is reserved from
// budget on first write; pass nil for unbounded storage.
func NewCache(budget *lwm2m.Budget) *Cache {
	return &Cache{budget: budget}
}

// SetLocation replaces the cached fix.
//
// The first fix accepts any timestamp. Later fixes must carry a timestamp
// strictly greater than the cached one.
func (c *Cache) SetLocation(lat, lon float64, alt float32, timestamp uint32, uncertainty float32) error {
	f := Fix{
		Latitude:    lat,
		Longitude:   lon,
		Altitude:    alt,
		Timestamp:   timestamp,
		Uncertainty: uncertainty,
	}
	if err := ValidateFix(f); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.hasFix && timestamp <= c.fix.Timestamp {
		return fmt.Errorf("%w: %d after %d", ErrStaleTimestamp, timestamp, c.fix.Timestamp)
	}
	c.fix = f
	c.hasFix = true
	return nil
}

// SetVelocity replaces the cached velocity vector.
// Pass Absent for unknown speedV, uncertaintyH or uncertaintyV.
func (c *Cache) SetVelocity(heading int, speedH, speedV, uncertaintyH, uncertaintyV float32) error {
	v := Velocity{
		Heading:      heading,
		SpeedH:       speedH,
		SpeedV:       speedV,
		UncertaintyH: uncertaintyH,
		UncertaintyV: uncertaintyV,
	}
	if err := ValidateVelocity(v); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.hasVelocity {
		if err := c.budget.Reserve(velocitySize); err != nil {
			return fmt.Errorf("location: storing velocity: %w", err)
		}
	}
	c.velocity = v
	c.hasVelocity = true
	return nil
}

// Location returns the cached fix, if any.
func (c *Cache) Location() (Fix, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fix, c.hasFix
}

// Velocity returns the cached velocity vector, if any.
func (c *Cache) Velocity() (Velocity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.velocity, c.hasVelocity
}

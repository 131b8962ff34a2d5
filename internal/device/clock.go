package device

import (
	"fmt"
	"sync"
	"time"
)

// Clock exposes the Device object time resources.
type Clock interface {
	// UTCTime returns seconds since the Unix epoch.
	UTCTime() int32
	// UTCOffset returns the offset from UTC in minutes.
	UTCOffset() int
	// Timezone returns the IANA timezone name.
	Timezone() string

	// SetUTCTime sets the current time. Negative values are rejected.
	SetUTCTime(t int32) error
	// SetUTCOffset sets the offset from UTC in minutes.
	SetUTCOffset(minutes int)
	// SetTimezone sets the IANA timezone name.
	SetTimezone(tz string)
}

// TimeInfo is the combined time read.
type TimeInfo struct {
	UTCTime   int32  `json:"utc_time"`
	UTCOffset int    `json:"utc_offset"`
	Timezone  string `json:"timezone"`
}

// ReadTime reads all three time resources from c.
func ReadTime(c Clock) TimeInfo {
	return TimeInfo{
		UTCTime:   c.UTCTime(),
		UTCOffset: c.UTCOffset(),
		Timezone:  c.Timezone(),
	}
}

// SystemClock derives UTC time from the host clock plus a correction set
// by server writes.
type SystemClock struct {
	mu     sync.RWMutex
	now    func() time.Time
	delta  int64
	offset int
	tz     string
}

// NewSystemClock creates a clock reading the host time.
func NewSystemClock() *SystemClock {
	return &SystemClock{now: time.Now}
}

// SetNowFunc replaces the host time source. Used by tests.
func (c *SystemClock) SetNowFunc(fn func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = fn
}

// UTCTime implements Clock.
func (c *SystemClock) UTCTime() int32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return int32(c.now().Unix() + c.delta)
}

// UTCOffset implements Clock.
func (c *SystemClock) UTCOffset() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.offset
}

// Timezone implements Clock.
func (c *SystemClock) Timezone() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tz
}

// SetUTCTime implements Clock.
func (c *SystemClock) SetUTCTime(t int32) error {
	if t < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidTime, t)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.delta = int64(t) - c.now().Unix()
	return nil
}

// SetUTCOffset implements Clock.
func (c *SystemClock) SetUTCOffset(minutes int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset = minutes
}

// SetTimezone implements Clock.
func (c *SystemClock) SetTimezone(tz string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tz = tz
}

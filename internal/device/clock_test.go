package device

import (
	"errors"
	"testing"
	"time"
)

func TestSystemClock_UTCTime(t *testing.T) {
	c := NewSystemClock()
	host := time.Unix(1_700_000_000, 0)
	c.SetNowFunc(func() time.Time { return host })

	if got := c.UTCTime(); got != 1_700_000_000 {
		t.Fatalf("UTCTime() = %d, want host time", got)
	}

	if err := c.SetUTCTime(1_700_000_100); err != nil {
		t.Fatalf("SetUTCTime() error = %v", err)
	}
	if got := c.UTCTime(); got != 1_700_000_100 {
		t.Errorf("UTCTime() = %d, want 1700000100", got)
	}

	host = host.Add(10 * time.Second)
	if got := c.UTCTime(); got != 1_700_000_110 {
		t.Errorf("UTCTime() after 10s = %d, want 1700000110", got)
	}

	if err := c.SetUTCTime(-1); !errors.Is(err, ErrInvalidTime) {
		t.Errorf("SetUTCTime(-1) error = %v, want ErrInvalidTime", err)
	}
	if got := c.UTCTime(); got != 1_700_000_110 {
		t.Errorf("rejected write changed time: %d", got)
	}
}

func TestSystemClock_OffsetAndTimezone(t *testing.T) {
	c := NewSystemClock()
	c.SetUTCOffset(-300)
	c.SetTimezone("America/New_York")

	info := ReadTime(c)
	if info.UTCOffset != -300 || info.Timezone != "America/New_York" {
		t.Errorf("ReadTime() = %+v", info)
	}

	// Any value is retained verbatim.
	c.SetTimezone("")
	if c.Timezone() != "" {
		t.Errorf("Timezone() = %q, want empty", c.Timezone())
	}
}

package lwm2m

import (
	"math"
	"unicode/utf8"
)

// InRange reports whether lo <= v <= hi.
func InRange(v, lo, hi int64) bool {
	return v >= lo && v <= hi
}

// InRangeFloat reports whether lo <= v <= hi. NaN is never in range.
func InRangeFloat(v, lo, hi float64) bool {
	return !math.IsNaN(v) && v >= lo && v <= hi
}

// OneOf reports whether v is a member of set.
func OneOf[T comparable](v T, set map[T]struct{}) bool {
	_, ok := set[v]
	return ok
}

// MaxLen reports whether s is at most n bytes long.
func MaxLen(s string, n int) bool {
	return len(s) <= n
}

// Absent reports whether an optional float is unset. NaN marks absence.
func Absent(v float32) bool {
	return math.IsNaN(float64(v))
}

// NonNegativeOrAbsent accepts NaN (absent) or any value >= 0.
func NonNegativeOrAbsent(v float32) bool {
	return Absent(v) || v >= 0
}

// NonNegative accepts only present values >= 0.
func NonNegative(v float32) bool {
	return !Absent(v) && v >= 0
}

// Finite reports whether v is neither NaN nor infinite.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// IsHex reports whether s is made only of hexadecimal digits.
// The empty string is considered valid.
func IsHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// Printable reports whether s is valid UTF-8 without control characters.
func Printable(s string) bool {
	if !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			return false
		}
	}
	return true
}

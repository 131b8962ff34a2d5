package lwm2m

import (
	"math"
	"testing"
)

func TestInRange(t *testing.T) {
	if !InRange(0, 0, 100) || !InRange(100, 0, 100) {
		t.Error("bounds should be inclusive")
	}
	if InRange(-1, 0, 100) || InRange(101, 0, 100) {
		t.Error("values outside bounds accepted")
	}
}

func TestInRangeFloat(t *testing.T) {
	tests := []struct {
		v    float64
		want bool
	}{
		{-90, true},
		{90, true},
		{0, true},
		{90.0001, false},
		{-90.5, false},
		{math.NaN(), false},
		{math.Inf(1), false},
	}

	for _, tt := range tests {
		if got := InRangeFloat(tt.v, -90, 90); got != tt.want {
			t.Errorf("InRangeFloat(%v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestOptionalFloats(t *testing.T) {
	nan := float32(math.NaN())

	if !NonNegativeOrAbsent(nan) {
		t.Error("NonNegativeOrAbsent(NaN) = false, want true")
	}
	if !NonNegativeOrAbsent(0) {
		t.Error("NonNegativeOrAbsent(0) = false, want true")
	}
	if NonNegativeOrAbsent(-0.1) {
		t.Error("NonNegativeOrAbsent(-0.1) = true, want false")
	}
	if NonNegative(nan) {
		t.Error("NonNegative(NaN) = true, want false")
	}
	if !Absent(nan) || Absent(1) {
		t.Error("Absent misclassified")
	}
}

func TestIsHex(t *testing.T) {
	tests := []struct {
		s    string
		want bool
	}{
		{"", true},
		{"0123456789abcdefABCDEF", true},
		{"0x12", false},
		{"g0", false},
		{"12 34", false},
	}

	for _, tt := range tests {
		if got := IsHex(tt.s); got != tt.want {
			t.Errorf("IsHex(%q) = %v, want %v", tt.s, got, tt.want)
		}
	}
}

func TestMaxLenAndPrintable(t *testing.T) {
	if !MaxLen("abc", 3) || MaxLen("abcd", 3) {
		t.Error("MaxLen boundary wrong")
	}
	if !Printable("Nordic nRF9160") {
		t.Error("Printable rejected plain text")
	}
	if Printable("bad\x00value") || Printable("\xff") {
		t.Error("Printable accepted control or invalid bytes")
	}
}

func TestOneOf(t *testing.T) {
	set := map[int]struct{}{1: {}, 3: {}}
	if !OneOf(1, set) || OneOf(2, set) {
		t.Error("OneOf membership wrong")
	}
}

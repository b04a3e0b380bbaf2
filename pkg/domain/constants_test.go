package domain

import (
	"math"
	"testing"
)

func TestIsInfinite(t *testing.T) {
	if !IsInfinite(Infinity) {
		t.Error("Infinity should be infinite")
	}
	if IsInfinite(math.MaxFloat64) {
		t.Error("MaxFloat64 is finite")
	}
	if IsInfinite(math.Inf(-1)) {
		t.Error("negative infinity is not an unreached label")
	}
}

func TestFormatHour(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0:00"},
		{10, "10:00"},
		{6.5, "6:30"},
		{7.999999, "8:00"},
		{Infinity, "∞"},
	}

	for _, tt := range tests {
		if got := FormatHour(tt.in); got != tt.want {
			t.Errorf("FormatHour(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAddDelay(t *testing.T) {
	tests := []struct {
		arrival float64
		delay   int
		wantH   int
		wantM   int
	}{
		{10, 0, 10, 0},
		{10, 45, 10, 45},
		{10, 75, 11, 15},
		{14, 130, 16, 10},
	}

	for _, tt := range tests {
		h, m := AddDelay(tt.arrival, tt.delay)
		if h != tt.wantH || m != tt.wantM {
			t.Errorf("AddDelay(%v, %d) = %d:%02d, want %d:%02d", tt.arrival, tt.delay, h, m, tt.wantH, tt.wantM)
		}
	}
}

package main

import (
	"math"
	"strings"
	"testing"
)

func TestLoadMeter_EasesTowardTarget(t *testing.T) {
	m := newLoadMeter(1.0 / 60)

	first := m.step(1)
	if first <= 0 || first >= 1 {
		t.Fatalf("first step = %v, want strictly between 0 and 1", first)
	}
	prev := first
	for range 300 {
		v := m.step(1)
		if v < prev-1e-9 {
			t.Fatalf("critically damped meter moved backwards: %v after %v", v, prev)
		}
		prev = v
	}
	if math.Abs(m.value()-1) > 1e-3 {
		t.Fatalf("value after 5s = %v, want ~1", m.value())
	}
	if got := m.render(10); got != strings.Repeat("▰", 10) {
		t.Fatalf("render = %q, want full gauge", got)
	}
}

func TestLoadMeter_ClampsTarget(t *testing.T) {
	m := newLoadMeter(1.0 / 60)
	for range 600 {
		m.step(4)
	}
	if m.value() > 1 {
		t.Fatalf("value = %v, want <= 1", m.value())
	}
	if got := m.render(8); got != strings.Repeat("▰", 8) {
		t.Fatalf("render = %q", got)
	}

	m = newLoadMeter(1.0 / 60)
	m.step(-2)
	if got := m.render(8); got != strings.Repeat("▱", 8) {
		t.Fatalf("render = %q, want empty gauge", got)
	}
}

func TestOccupancy(t *testing.T) {
	tests := []struct {
		live, capacity int
		want           float64
	}{
		{0, 0, 0},
		{3, 0, 0},
		{2, 8, 0.25},
		{8, 8, 1},
	}
	for _, tt := range tests {
		if got := occupancy(tt.live, tt.capacity); got != tt.want {
			t.Errorf("occupancy(%d, %d) = %v, want %v", tt.live, tt.capacity, got, tt.want)
		}
	}
}

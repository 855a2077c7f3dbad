package main

import (
	"strings"

	"github.com/charmbracelet/harmonica"
)

// loadMeter is the header gauge showing slot occupancy. It eases toward each new reading with a
// critically damped harmonica spring so it does not jump when bars converge in a burst.
type loadMeter struct {
	spring harmonica.Spring
	pos    float64
	vel    float64
}

func newLoadMeter(deltaTime float64) loadMeter {
	return loadMeter{spring: harmonica.NewSpring(deltaTime, 6.0, 1.0)}
}

// step advances the gauge one frame toward target, clamped to [0, 1].
func (l *loadMeter) step(target float64) float64 {
	target = min(max(target, 0), 1)
	l.pos, l.vel = l.spring.Update(l.pos, l.vel, target)
	return l.pos
}

func (l *loadMeter) value() float64 {
	return min(max(l.pos, 0), 1)
}

// render draws the gauge width cells wide.
func (l *loadMeter) render(width int) string {
	filled := int(l.value()*float64(width) + 0.5)
	return strings.Repeat("▰", filled) + strings.Repeat("▱", width-filled)
}

// occupancy is the fraction of allocated slots holding a live spring.
func occupancy(live, capacity int) float64 {
	if capacity <= 0 {
		return 0
	}
	return float64(live) / float64(capacity)
}

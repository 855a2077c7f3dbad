package clock

import (
	"time"

	"github.com/charmbracelet/harmonica"
)

// DefaultFPS is the frame rate used when none is configured.
const DefaultFPS = 60

// DefaultInterval is the frame interval at DefaultFPS.
var DefaultInterval = intervalForFPS(DefaultFPS)

// TickerOption is a functional option used to configure a Ticker during construction.
type TickerOption func(*Ticker)

// WithTickRate sets the frame rate in frames per second.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target frames per second
//
// Returns:
//   - TickerOption: option function to apply
func WithTickRate(fps int) TickerOption {
	return func(t *Ticker) {
		t.interval = intervalForFPS(fps)
	}
}

// WithInterval sets the frame interval directly. Non-positive values are ignored.
//
// Parameters:
//   - d: the frame interval
//
// Returns:
//   - TickerOption: option function to apply
func WithInterval(d time.Duration) TickerOption {
	return func(t *Ticker) {
		if d > 0 {
			t.interval = d
		}
	}
}

func intervalForFPS(fps int) time.Duration {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return time.Duration(harmonica.FPS(fps) * float64(time.Second))
}

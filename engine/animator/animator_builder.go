package animator

import (
	"github.com/Carmen-Shannon/oxy-spring/engine/backend"
	"github.com/Carmen-Shannon/oxy-spring/engine/clock"
)

// AnimatorOption is a functional option used to configure an Animator during construction.
type AnimatorOption func(*animator)

// WithBackend sets the execution backend. The animator does not release a backend passed here.
//
// Parameters:
//   - b: the backend
//
// Returns:
//   - AnimatorOption: option function to apply
func WithBackend(b backend.Backend) AnimatorOption {
	return func(a *animator) {
		a.backend = b
		a.ownsBackend = false
	}
}

// WithFrameSource sets the source of frame ticks. The animator starts and stops it as springs
// come and go.
//
// Parameters:
//   - s: the frame source
//
// Returns:
//   - AnimatorOption: option function to apply
func WithFrameSource(s clock.FrameSource) AnimatorOption {
	return func(a *animator) {
		a.source = s
	}
}

// WithDefaults sets the parameters substituted for zero SpringParams fields.
//
// Parameters:
//   - p: the default parameters; zero fields keep the built-in defaults
//
// Returns:
//   - AnimatorOption: option function to apply
func WithDefaults(p SpringParams) AnimatorOption {
	return func(a *animator) {
		a.defaults = p.withDefaults(DefaultSpringParams())
	}
}

// WithInitialCapacity sets the slot buffer capacity used when the animator starts or returns from idle.
//
// Parameters:
//   - n: initial slot count, values below 1 are ignored
//
// Returns:
//   - AnimatorOption: option function to apply
func WithInitialCapacity(n int) AnimatorOption {
	return func(a *animator) {
		if n > 0 {
			a.initialSlots = n
		}
	}
}

package animator

import (
	"fmt"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-spring/common"
)

// SubjectID identifies the object whose properties are animated. Callers pick any stable value;
// NewSubjectID hands out process-unique ones.
type SubjectID uint64

var subjectCounter atomic.Uint64

// NewSubjectID returns a SubjectID not returned by any earlier call in this process.
//
// Returns:
//   - SubjectID: a fresh, non-zero subject handle
func NewSubjectID() SubjectID {
	return SubjectID(subjectCounter.Add(1))
}

// Key identifies one spring: a subject and one of its named properties.
type Key struct {
	Subject  SubjectID
	Property string
}

func (k Key) String() string {
	return fmt.Sprintf("%d/%s", uint64(k.Subject), k.Property)
}

// Getter reads the current external value of a property.
type Getter func() common.Vec4

// Setter writes an animated value back to a property.
type Setter func(common.Vec4)

// Completion is called exactly once per spring: finished is true when the spring converged,
// false when it was removed or replaced first.
type Completion func(finished bool)

// SpringParams tunes one spring. Zero fields take the animator defaults.
type SpringParams struct {
	Stiffness float32
	Damping   float32
	Threshold float32
}

const (
	// DefaultStiffness is the spring constant used when none is given.
	DefaultStiffness float32 = 150
	// DefaultDamping is the damper constant used when none is given.
	DefaultDamping float32 = 10
	// DefaultThreshold is the convergence tolerance used when none is given.
	DefaultThreshold float32 = 0.01
)

// DefaultSpringParams returns the built-in defaults.
//
// Returns:
//   - SpringParams: stiffness 150, damping 10, threshold 0.01
func DefaultSpringParams() SpringParams {
	return SpringParams{
		Stiffness: DefaultStiffness,
		Damping:   DefaultDamping,
		Threshold: DefaultThreshold,
	}
}

// withDefaults fills zero fields of p from d.
func (p SpringParams) withDefaults(d SpringParams) SpringParams {
	return SpringParams{
		Stiffness: common.Coalesce(p.Stiffness, d.Stiffness, DefaultStiffness),
		Damping:   common.Coalesce(p.Damping, d.Damping, DefaultDamping),
		Threshold: common.Coalesce(p.Threshold, d.Threshold, DefaultThreshold),
	}
}

// State is the scheduler lifecycle state.
type State int

const (
	// StateIdle means no live springs and the frame source is detached.
	StateIdle State = iota
	// StateActive means the frame source is attached and ticking.
	StateActive
	// StateProcessing means a batch is in flight.
	StateProcessing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateProcessing:
		return "processing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Stats are cumulative counters since the animator was created.
type Stats struct {
	// Ticks counts every frame delivered, including skipped ones.
	Ticks uint64 `json:"ticks"`
	// Batches counts frames that submitted a batch.
	Batches uint64 `json:"batches"`
	// SkippedTicks counts frames folded into the next batch because one was in flight.
	SkippedTicks uint64 `json:"skipped_ticks"`
	// Converged counts springs that completed with finished == true.
	Converged uint64 `json:"converged"`
	// Cancelled counts springs removed or replaced before converging.
	Cancelled uint64 `json:"cancelled"`
	// Replayed counts commands queued during a batch and replayed after it.
	Replayed uint64 `json:"replayed"`
	// Live is the current number of springs.
	Live int `json:"live"`
	// Capacity is the current slot buffer capacity.
	Capacity int `json:"capacity"`
}

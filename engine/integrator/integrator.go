// Package integrator advances damped springs by one time step.
//
// The math lives in exactly one place, StepRecord. The sequential and parallel CPU backends call it
// directly and the WGSL kernel in KernelSource is a line-for-line port, so every execution path
// produces the same positions and velocities.
package integrator

import "github.com/Carmen-Shannon/oxy-spring/common"

// NewRecord builds a running record at position current heading to target, with zero velocity.
//
// Parameters:
//   - current: the starting value
//   - target: the destination value
//   - stiffness: the spring constant
//   - damping: the damper constant
//   - threshold: the per-channel convergence tolerance
//
// Returns:
//   - SpringRecord: the new record
func NewRecord(current, target common.Vec4, stiffness, damping, threshold float32) SpringRecord {
	return SpringRecord{
		Position:  current,
		Target:    target,
		Threshold: threshold,
		Stiffness: stiffness,
		Damping:   damping,
		Running:   1,
	}
}

// Converged reports whether every channel of |position-target| and |velocity| is within threshold.
// This is a per-channel conjunction over all eight scalars, not a vector norm.
//
// Parameters:
//   - r: the record to test
//
// Returns:
//   - bool: true if the record is at rest
func Converged(r *SpringRecord) bool {
	return r.Position.Sub(r.Target).MaxAbs() <= r.Threshold && r.Velocity.MaxAbs() <= r.Threshold
}

// StepRecord advances one record by dt seconds.
// A record already at rest on entry is snapped exactly onto its target with zero velocity and
// marked stopped; stopped records are left untouched.
//
// Parameters:
//   - r: the record to advance in place
//   - dt: the time step in seconds
func StepRecord(r *SpringRecord, dt float32) {
	if r.Running == 0 {
		return
	}

	if Converged(r) {
		r.Running = 0
		r.Velocity = common.Vec4{}
		r.Position = r.Target
		return
	}

	for c := range 4 {
		diff := r.Position[c] - r.Target[c]
		acceleration := float32(-r.Stiffness*diff) + float32(-r.Damping*r.Velocity[c])
		r.Velocity[c] = r.Velocity[c] + float32(acceleration*dt)
		r.Position[c] = r.Position[c] + float32(r.Velocity[c]*dt)
	}
}

// StepRange advances records[lo:hi] by dt. Used by the parallel backend to split a batch into chunks.
//
// Parameters:
//   - records: the full record slice
//   - lo: first index, inclusive
//   - hi: last index, exclusive
//   - dt: the time step in seconds
func StepRange(records []SpringRecord, lo, hi int, dt float32) {
	for i := lo; i < hi; i++ {
		StepRecord(&records[i], dt)
	}
}

// Step advances every record by dt.
//
// Parameters:
//   - records: the records to advance in place
//   - dt: the time step in seconds
func Step(records []SpringRecord, dt float32) {
	StepRange(records, 0, len(records), dt)
}

// Package backend executes one integration step over a batch of spring records.
//
// Every implementation runs the same math as integrator.StepRecord. Sequential and parallel
// backends complete before Process returns; the GPU backend completes later through a Dispatcher.
package backend

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-spring/common"
	"github.com/Carmen-Shannon/oxy-spring/engine/integrator"
	"github.com/agilira/go-errors"
)

const (
	// ErrCodeBackendUnavailable is returned when a requested backend cannot be initialized.
	ErrCodeBackendUnavailable = "SPRING_BACKEND_UNAVAILABLE"

	// ErrCodeGPUReadback tags a failed GPU batch. The batch is finished on the CPU instead.
	ErrCodeGPUReadback = "SPRING_GPU_READBACK"
)

// BackendType selects the execution path of a Backend.
type BackendType int

const (
	// BackendTypeAuto uses the GPU when a device and pipeline initialise, otherwise sequential.
	BackendTypeAuto BackendType = iota
	// BackendTypeSequential steps records one at a time on the calling goroutine.
	BackendTypeSequential
	// BackendTypeParallel splits the batch into chunks stepped on a worker pool.
	BackendTypeParallel
	// BackendTypeGPU dispatches the WGSL kernel through wgpu.
	BackendTypeGPU
)

func (t BackendType) String() string {
	switch t {
	case BackendTypeAuto:
		return "auto"
	case BackendTypeSequential:
		return "sequential"
	case BackendTypeParallel:
		return "parallel"
	case BackendTypeGPU:
		return "gpu"
	default:
		return fmt.Sprintf("BackendType(%d)", int(t))
	}
}

// ParseBackendType converts a config string into a BackendType. Matching is case-insensitive.
//
// Parameters:
//   - s: one of auto, sequential, parallel, gpu
//
// Returns:
//   - BackendType: the parsed type
//   - error: an error if s names no backend
func ParseBackendType(s string) (BackendType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return BackendTypeAuto, nil
	case "sequential", "cpu":
		return BackendTypeSequential, nil
	case "parallel":
		return BackendTypeParallel, nil
	case "gpu", "wgpu":
		return BackendTypeGPU, nil
	}
	return BackendTypeAuto, fmt.Errorf("unknown backend %q", s)
}

// Dispatcher runs a function on the goroutine that owns the scheduler.
// Frame sources implement it so GPU completions re-enter on the frame goroutine.
type Dispatcher interface {
	Dispatch(fn func())
}

// Backend advances a batch of spring records by one time step.
type Backend interface {
	// Process steps every running record by dt and then calls done exactly once.
	// records must not be resized or reallocated until done has been called; the backend may
	// write into it up to that point.
	//
	// Parameters:
	//   - records: the full record slice, free slots zeroed
	//   - dt: the time step in seconds
	//   - done: completion callback
	Process(records []integrator.SpringRecord, dt float32, done func())

	// Type returns the execution path in use. Never BackendTypeAuto.
	//
	// Returns:
	//   - BackendType: the resolved backend type
	Type() BackendType

	// Accelerated reports whether batches run on more than the calling goroutine.
	//
	// Returns:
	//   - bool: true for the parallel and GPU backends
	Accelerated() bool

	// Release frees goroutines and device resources. The backend must not be used afterwards.
	Release()
}

// NewBackend constructs the backend described by options. The choice is made once here.
// BackendTypeAuto never fails: an unavailable GPU is logged once and the sequential backend is returned.
//
// Parameters:
//   - options: functional options to configure the backend
//
// Returns:
//   - Backend: the constructed backend
//   - error: an ErrCodeBackendUnavailable error if an explicitly requested backend cannot start
func NewBackend(options ...BackendOption) (Backend, error) {
	opts := defaultBackendOptions()
	for _, opt := range options {
		opt(opts)
	}

	var (
		b   Backend
		err error
	)
	switch opts.backendType {
	case BackendTypeSequential:
		b = newSequentialBackend()
	case BackendTypeParallel:
		b = newParallelBackend(opts.workers, opts.chunkSize)
	case BackendTypeGPU:
		b, err = newGPUBackend(opts)
		if err != nil {
			return nil, errors.Wrap(err, ErrCodeBackendUnavailable, "gpu backend unavailable")
		}
	case BackendTypeAuto:
		b, err = newGPUBackend(opts)
		if err != nil {
			common.Logger().Warn("accelerated backend unavailable, using sequential fallback",
				"error", err)
			b = newSequentialBackend()
		}
	default:
		return nil, errors.New(ErrCodeBackendUnavailable, fmt.Sprintf("unknown backend type %d", int(opts.backendType)))
	}

	common.Logger().Info("spring backend selected", "backend", b.Type().String(), "accelerated", b.Accelerated())
	return b, nil
}

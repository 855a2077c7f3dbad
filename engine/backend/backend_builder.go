package backend

import "runtime"

// DefaultChunkSize is the minimum number of records one parallel task steps.
const DefaultChunkSize = 256

type backendOptions struct {
	backendType          BackendType
	workers              int
	chunkSize            int
	dispatcher           Dispatcher
	forceFallbackAdapter bool
}

func defaultBackendOptions() *backendOptions {
	return &backendOptions{
		backendType: BackendTypeAuto,
		workers:     max(runtime.NumCPU()-1, 1),
		chunkSize:   DefaultChunkSize,
	}
}

// BackendOption is a functional option used to configure a Backend during construction.
type BackendOption func(*backendOptions)

// WithBackendType selects the execution path.
//
// Parameters:
//   - t: the backend type, BackendTypeAuto by default
//
// Returns:
//   - BackendOption: a function that sets the backend type
func WithBackendType(t BackendType) BackendOption {
	return func(o *backendOptions) {
		o.backendType = t
	}
}

// WithWorkers sets the worker pool size of the parallel backend. Values below 1 are ignored.
//
// Parameters:
//   - n: the number of workers, NumCPU-1 by default
//
// Returns:
//   - BackendOption: a function that sets the worker count
func WithWorkers(n int) BackendOption {
	return func(o *backendOptions) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithChunkSize sets the minimum records per parallel task. Values below 1 are ignored.
//
// Parameters:
//   - n: records per task
//
// Returns:
//   - BackendOption: a function that sets the chunk size
func WithChunkSize(n int) BackendOption {
	return func(o *backendOptions) {
		if n > 0 {
			o.chunkSize = n
		}
	}
}

// WithDispatcher routes GPU completions through d. Without one the GPU backend waits for the
// device inside Process and completes synchronously.
//
// Parameters:
//   - d: the dispatcher, usually the frame source
//
// Returns:
//   - BackendOption: a function that sets the dispatcher
func WithDispatcher(d Dispatcher) BackendOption {
	return func(o *backendOptions) {
		o.dispatcher = d
	}
}

// WithForceFallbackAdapter requests the software wgpu adapter.
//
// Parameters:
//   - force: true to force the fallback adapter
//
// Returns:
//   - BackendOption: a function that sets the adapter preference
func WithForceFallbackAdapter(force bool) BackendOption {
	return func(o *backendOptions) {
		o.forceFallbackAdapter = force
	}
}

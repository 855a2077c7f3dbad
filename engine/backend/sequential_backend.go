package backend

import "github.com/Carmen-Shannon/oxy-spring/engine/integrator"

type sequentialBackend struct{}

var _ Backend = &sequentialBackend{}

func newSequentialBackend() *sequentialBackend {
	return &sequentialBackend{}
}

func (b *sequentialBackend) Process(records []integrator.SpringRecord, dt float32, done func()) {
	integrator.Step(records, dt)
	done()
}

func (b *sequentialBackend) Type() BackendType {
	return BackendTypeSequential
}

func (b *sequentialBackend) Accelerated() bool {
	return false
}

func (b *sequentialBackend) Release() {}

package backend

import (
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-spring/engine/integrator"
)

type parallelBackend struct {
	// pool manages a bounded set of reusable goroutines; idle workers exit after a second.
	pool      worker.DynamicWorkerPool
	workers   int
	chunkSize int
	taskID    int
}

var _ Backend = &parallelBackend{}

func newParallelBackend(workers, chunkSize int) *parallelBackend {
	return &parallelBackend{
		// Queue size of 256 leaves headroom for a few thousand springs per worker.
		pool:      worker.NewDynamicWorkerPool(workers, 256, 1*time.Second),
		workers:   workers,
		chunkSize: chunkSize,
	}
}

// Process splits records into contiguous chunks and steps them on the pool. A WaitGroup gives a
// per-batch barrier since pool.Wait blocks until workers idle-exit.
func (b *parallelBackend) Process(records []integrator.SpringRecord, dt float32, done func()) {
	n := len(records)
	chunk := max(b.chunkSize, (n+b.workers-1)/b.workers)
	if n <= chunk {
		integrator.Step(records, dt)
		done()
		return
	}

	var wg sync.WaitGroup
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		wg.Add(1)
		b.taskID++
		b.pool.SubmitTask(worker.Task{
			ID: b.taskID,
			Do: func() (any, error) {
				defer wg.Done()
				integrator.StepRange(records, lo, hi, dt)
				return nil, nil
			},
		})
	}
	wg.Wait()
	done()
}

func (b *parallelBackend) Type() BackendType {
	return BackendTypeParallel
}

func (b *parallelBackend) Accelerated() bool {
	return true
}

func (b *parallelBackend) Release() {}

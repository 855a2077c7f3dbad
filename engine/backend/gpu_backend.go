package backend

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-spring/common"
	"github.com/Carmen-Shannon/oxy-spring/engine/gpu"
	"github.com/Carmen-Shannon/oxy-spring/engine/gpu/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-spring/engine/gpu/shader"
	"github.com/Carmen-Shannon/oxy-spring/engine/integrator"
	"github.com/agilira/go-errors"
	"github.com/cogentcore/webgpu/wgpu"
)

const recordSize = 64

// gpuJob is one submitted batch waiting for readback.
type gpuJob struct {
	records []integrator.SpringRecord
	dt      float32
	size    uint64
	done    func()
}

type gpuBackend struct {
	mu       *sync.Mutex
	device   gpu.ComputeDevice
	kernel   *shader.Kernel
	pipeline *gpu.ComputePipeline
	provider bind_group_provider.BindGroupProvider

	// readback is the MapRead copy target; staging receives the mapped bytes and is only
	// copied into the caller's records on the dispatcher goroutine.
	readback     *wgpu.Buffer
	readbackSize uint64
	staging      []byte

	dispatcher Dispatcher
	jobs       chan gpuJob
	wg         sync.WaitGroup
	released   bool
}

var _ Backend = &gpuBackend{}

func newGPUBackend(opts *backendOptions) (*gpuBackend, error) {
	device, err := gpu.NewComputeDevice(
		gpu.WithLabel("Spring Compute Device"),
		gpu.WithForceFallbackAdapter(opts.forceFallbackAdapter),
	)
	if err != nil {
		return nil, err
	}

	kernel, err := reflectKernel()
	if err != nil {
		device.Release()
		return nil, err
	}

	pipeline, err := device.RegisterComputePipeline("Spring Step", kernel.Source(), kernel.EntryPoint(), kernel.Entries(0))
	if err != nil {
		device.Release()
		return nil, err
	}

	var params integrator.GPUStepParams
	b := &gpuBackend{
		mu:       &sync.Mutex{},
		device:   device,
		kernel:   kernel,
		pipeline: pipeline,
		provider: bind_group_provider.NewBindGroupProvider("Springs",
			bind_group_provider.WithBufferBinding(bind_group_provider.BufferBinding{
				Binding:    integrator.RecordsBinding,
				Type:       wgpu.BufferBindingTypeStorage,
				ExtraUsage: wgpu.BufferUsageCopySrc,
			}),
			bind_group_provider.WithBufferBinding(bind_group_provider.BufferBinding{
				Binding: integrator.ParamsBinding,
				Type:    wgpu.BufferBindingTypeUniform,
				Size:    uint64(params.Size()),
			}),
		),
		dispatcher: opts.dispatcher,
	}

	if b.dispatcher != nil {
		b.jobs = make(chan gpuJob, 1)
		b.wg.Add(1)
		go b.poll()
	}

	return b, nil
}

// reflectKernel parses the spring kernel and checks that its record and parameter layouts match
// the Go structs that are copied into its buffers.
func reflectKernel() (*shader.Kernel, error) {
	kernel, err := shader.ReflectCompute(integrator.KernelSource)
	if err != nil {
		return nil, fmt.Errorf("failed to reflect spring kernel: %w", err)
	}

	var params integrator.GPUStepParams
	checks := []struct {
		name string
		want uint64
	}{
		{"SpringRecord", recordSize},
		{"StepParams", uint64(params.Size())},
	}
	for _, c := range checks {
		if size, ok := kernel.StructSize(c.name); !ok || size != c.want {
			return nil, fmt.Errorf("spring kernel %s is %d bytes, host layout is %d", c.name, size, c.want)
		}
	}
	if kernel.EntryPoint() != integrator.KernelEntryPoint {
		return nil, fmt.Errorf("spring kernel entry point is %q, want %q", kernel.EntryPoint(), integrator.KernelEntryPoint)
	}
	return kernel, nil
}

func (b *gpuBackend) Process(records []integrator.SpringRecord, dt float32, done func()) {
	if len(records) == 0 {
		done()
		return
	}

	job, err := b.submit(records, dt, done)
	if err != nil {
		b.fallback(job, err)
		return
	}

	if b.dispatcher == nil {
		b.complete(job, nil)
	}
}

// submit uploads records and step parameters, dispatches the kernel and encodes the copy into
// the readback buffer. Buffers grow by doubling to the next batch size that does not fit.
// Without a dispatcher the readback is awaited here; otherwise the job is queued for the poller.
// Both run under mu, which Release holds while it marks the backend released.
func (b *gpuBackend) submit(records []integrator.SpringRecord, dt float32, done func()) (gpuJob, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	size := uint64(len(records) * recordSize)
	job := gpuJob{records: records, dt: dt, size: size, done: done}

	if b.released {
		return job, errors.New(ErrCodeBackendUnavailable, "gpu backend released")
	}

	if b.provider.BufferSize(integrator.RecordsBinding) < size {
		grown := max(size, b.provider.BufferSize(integrator.RecordsBinding)*2)
		b.provider.Resize(integrator.RecordsBinding, grown)
		if err := b.device.InitBindGroup(b.provider, b.pipeline.BindGroupLayout); err != nil {
			return job, err
		}
		common.Logger().Debug("gpu record buffer resized", "bytes", grown)
	}
	if b.readbackSize < size {
		grown := max(size, b.readbackSize*2)
		if b.readback != nil {
			b.readback.Release()
			b.readback = nil
			b.readbackSize = 0
		}
		buf, err := b.device.CreateReadbackBuffer("Springs Readback", grown)
		if err != nil {
			return job, err
		}
		b.readback = buf
		b.readbackSize = grown
		b.staging = make([]byte, grown)
	}

	params := integrator.GPUStepParams{DeltaTime: dt, Count: uint32(len(records))}
	b.device.WriteBuffers([]bind_group_provider.BufferWrite{
		{Provider: b.provider, Binding: integrator.RecordsBinding, Data: common.SliceToBytes(records)},
		{Provider: b.provider, Binding: integrator.ParamsBinding, Data: params.Marshal()},
	})

	groups := b.kernel.Workgroups(uint32(len(records)))
	err := b.device.Dispatch(b.pipeline, b.provider, groups, gpu.BufferCopy{
		Source:      b.provider.Buffer(integrator.RecordsBinding),
		Destination: b.readback,
		Size:        size,
	})
	if err != nil {
		return job, err
	}
	common.Logger().Debug("spring batch dispatched", "records", len(records), "workgroups", groups[0])

	if b.jobs == nil {
		return job, b.read(job)
	}
	b.jobs <- job
	return job, nil
}

func (b *gpuBackend) read(job gpuJob) error {
	return b.device.ReadBuffer(b.readback, job.size, b.staging)
}

// poll waits on the device for each submitted batch off the frame goroutine and hands the
// completion to the dispatcher.
func (b *gpuBackend) poll() {
	defer b.wg.Done()
	for job := range b.jobs {
		err := b.read(job)
		b.dispatcher.Dispatch(func() {
			b.complete(job, err)
		})
	}
}

// complete copies the staged readback into the caller's records and calls done.
func (b *gpuBackend) complete(job gpuJob, err error) {
	if err != nil {
		b.fallback(job, err)
		return
	}
	common.BytesToSlice(job.records, b.staging[:job.size])
	job.done()
}

// fallback finishes a failed batch with the CPU math so the scheduler never stalls.
func (b *gpuBackend) fallback(job gpuJob, err error) {
	common.Logger().Warn("gpu batch failed, stepping on cpu",
		"error", errors.Wrap(err, ErrCodeGPUReadback, "gpu batch failed"))
	integrator.Step(job.records, job.dt)
	job.done()
}

func (b *gpuBackend) Type() BackendType {
	return BackendTypeGPU
}

func (b *gpuBackend) Accelerated() bool {
	return true
}

func (b *gpuBackend) Release() {
	b.mu.Lock()
	if b.released {
		b.mu.Unlock()
		return
	}
	b.released = true
	b.mu.Unlock()

	if b.jobs != nil {
		close(b.jobs)
		b.wg.Wait()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.readback != nil {
		b.readback.Release()
		b.readback = nil
	}
	b.provider.Release()
	b.pipeline.Release()
	b.device.Release()
}

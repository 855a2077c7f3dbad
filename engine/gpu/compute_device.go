// Package gpu owns the wgpu objects the accelerated spring backend needs: one adapter and device,
// compute pipelines built from WGSL source, bind group buffers and mapped readback.
package gpu

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-spring/engine/gpu/bind_group_provider"
	"github.com/cogentcore/webgpu/wgpu"
)

type computeDeviceImpl struct {
	mu     *sync.Mutex
	label  string
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter

	forceFallbackAdapter bool
}

// ComputePipeline is a compute pipeline together with the layout objects it was built from.
type ComputePipeline struct {
	Label           string
	Pipeline        *wgpu.ComputePipeline
	BindGroupLayout *wgpu.BindGroupLayout

	module         *wgpu.ShaderModule
	pipelineLayout *wgpu.PipelineLayout
}

// Release releases the pipeline and the objects it owns.
func (p *ComputePipeline) Release() {
	if p.Pipeline != nil {
		p.Pipeline.Release()
		p.Pipeline = nil
	}
	if p.pipelineLayout != nil {
		p.pipelineLayout.Release()
		p.pipelineLayout = nil
	}
	if p.BindGroupLayout != nil {
		p.BindGroupLayout.Release()
		p.BindGroupLayout = nil
	}
	if p.module != nil {
		p.module.Release()
		p.module = nil
	}
}

// BufferCopy describes a buffer-to-buffer copy encoded after a compute pass in the same submission.
type BufferCopy struct {
	Source      *wgpu.Buffer
	Destination *wgpu.Buffer
	Size        uint64
}

// ComputeDevice is a headless wgpu device used for compute dispatches only.
// No surface is created; the adapter is chosen without a compatible surface.
type ComputeDevice interface {
	Device() *wgpu.Device
	Queue() *wgpu.Queue
	Adapter() *wgpu.Adapter

	// Label returns the debug label of the device.
	//
	// Returns:
	//   - string: the label
	Label() string

	// RegisterComputePipeline compiles WGSL source and creates a compute pipeline with a single bind group
	// (group 0) described by entries.
	//
	// Parameters:
	//   - label: debug label for the shader module and pipeline
	//   - source: the WGSL source code
	//   - entryPoint: the @compute function name
	//   - entries: the bind group 0 layout entries
	//
	// Returns:
	//   - *ComputePipeline: the created pipeline
	//   - error: an error if compilation or pipeline creation failed
	RegisterComputePipeline(label, source, entryPoint string, entries []wgpu.BindGroupLayoutEntry) (*ComputePipeline, error)

	// InitBindGroup creates GPU buffers for every binding of the provider that has no buffer or
	// has outgrown its allocation, then (re)creates the bind group against layout.
	//
	// Parameters:
	//   - provider: the BindGroupProvider describing the buffer bindings
	//   - layout: the bind group layout the bind group must match
	//
	// Returns:
	//   - error: an error if a buffer or the bind group could not be created
	InitBindGroup(provider bind_group_provider.BindGroupProvider, layout *wgpu.BindGroupLayout) error

	// WriteBuffers writes all staged buffer writes to the GPU queue.
	//
	// Parameters:
	//   - writes: a slice of BufferWrite structs describing the data to write
	WriteBuffers(writes []bind_group_provider.BufferWrite)

	// CreateReadbackBuffer creates a MapRead|CopyDst buffer used as a copy target for readback.
	//
	// Parameters:
	//   - label: debug label for the buffer
	//   - size: size in bytes
	//
	// Returns:
	//   - *wgpu.Buffer: the created buffer
	//   - error: an error if the buffer could not be created
	CreateReadbackBuffer(label string, size uint64) (*wgpu.Buffer, error)

	// Dispatch encodes one compute pass followed by the given copies into a single command buffer
	// and submits it.
	//
	// Parameters:
	//   - p: the compute pipeline to run
	//   - provider: the BindGroupProvider whose BindGroup is set at group 0
	//   - workGroupCount: the number of workgroups in the x, y and z dimensions
	//   - copies: buffer copies encoded after the pass
	//
	// Returns:
	//   - error: an error if encoding or submission failed
	Dispatch(p *ComputePipeline, provider bind_group_provider.BindGroupProvider, workGroupCount [3]uint32, copies ...BufferCopy) error

	// ReadBuffer maps buf for reading, blocks until the device has finished every submitted command,
	// copies size bytes into dst and unmaps. Intended to be called off the frame goroutine.
	//
	// Parameters:
	//   - buf: a buffer created with CreateReadbackBuffer
	//   - size: number of bytes to read from offset 0
	//   - dst: destination slice of at least size bytes
	//
	// Returns:
	//   - error: an error if mapping failed
	ReadBuffer(buf *wgpu.Buffer, size uint64, dst []byte) error

	// Release releases the device, adapter and instance.
	Release()
}

var _ ComputeDevice = &computeDeviceImpl{}

// NewComputeDevice acquires an adapter and device for compute work.
// Any failure, including a panic from the native layer, is returned as an error so callers can fall back.
//
// Parameters:
//   - options: functional options to configure the device
//
// Returns:
//   - ComputeDevice: the acquired device
//   - error: an error if no adapter or device is available
func NewComputeDevice(options ...ComputeDeviceOption) (cd ComputeDevice, err error) {
	c := &computeDeviceImpl{
		mu:    &sync.Mutex{},
		label: "Spring Compute Device",
	}
	for _, opt := range options {
		opt(c)
	}

	defer func() {
		if r := recover(); r != nil {
			c.Release()
			cd, err = nil, fmt.Errorf("wgpu initialization panicked: %v", r)
		}
	}()

	c.instance = wgpu.CreateInstance(nil)
	if c.instance == nil {
		return nil, errors.New("failed to create wgpu instance")
	}

	a, err := c.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: c.forceFallbackAdapter,
		PowerPreference:      wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		c.Release()
		return nil, fmt.Errorf("failed to request adapter: %w", err)
	}
	c.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: c.label,
	})
	if err != nil {
		c.Release()
		return nil, fmt.Errorf("failed to request device: %w", err)
	}
	c.device = d
	c.queue = d.GetQueue()

	return c, nil
}

func (c *computeDeviceImpl) RegisterComputePipeline(label, source, entryPoint string, entries []wgpu.BindGroupLayoutEntry) (*ComputePipeline, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if source == "" {
		return nil, errors.New("compute shader source must be set to create a compute pipeline")
	}

	p := &ComputePipeline{Label: label}

	s, err := c.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: source,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create shader module %s: %w", label, err)
	}
	p.module = s

	bgl, err := c.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   label + " Bind Group Layout",
		Entries: entries,
	})
	if err != nil {
		p.Release()
		return nil, fmt.Errorf("failed to create bind group layout for group 0: %w", err)
	}
	p.BindGroupLayout = bgl

	layout, err := c.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            label,
		BindGroupLayouts: []*wgpu.BindGroupLayout{bgl},
	})
	if err != nil {
		p.Release()
		return nil, fmt.Errorf("failed to create pipeline layout %s: %w", label, err)
	}
	p.pipelineLayout = layout

	created, err := c.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  label + " Compute Pipeline",
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     s,
			EntryPoint: entryPoint,
		},
	})
	if err != nil {
		p.Release()
		return nil, fmt.Errorf("failed to create compute pipeline %s: %w", label, err)
	}
	p.Pipeline = created

	return p, nil
}

func (c *computeDeviceImpl) InitBindGroup(provider bind_group_provider.BindGroupProvider, layout *wgpu.BindGroupLayout) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := provider.Entries()
	if len(entries) == 0 {
		return nil
	}

	bindGroupEntries := make([]wgpu.BindGroupEntry, len(entries))
	for i, entry := range entries {
		buf := provider.Buffer(entry.Binding)
		if buf == nil || provider.BufferSize(entry.Binding) < entry.Size {
			var bufErr error
			buf, bufErr = c.device.CreateBuffer(&wgpu.BufferDescriptor{
				Label: fmt.Sprintf("%s Buffer %d", provider.Label(), entry.Binding),
				Size:  entry.Size,
				Usage: entry.Usage(),
			})
			if bufErr != nil {
				return fmt.Errorf("failed to create buffer for binding %d: %w", entry.Binding, bufErr)
			}
			provider.SetBuffer(entry.Binding, buf, entry.Size)
		}
		bindGroupEntries[i] = wgpu.BindGroupEntry{
			Binding: uint32(entry.Binding),
			Buffer:  buf,
			Offset:  0,
			Size:    wgpu.WholeSize,
		}
	}

	bindGroup, err := c.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   provider.Label() + " Bind Group",
		Layout:  layout,
		Entries: bindGroupEntries,
	})
	if err != nil {
		return err
	}
	provider.SetBindGroupLayout(layout)
	provider.SetBindGroup(bindGroup)

	return nil
}

func (c *computeDeviceImpl) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, w := range writes {
		buf := w.Provider.Buffer(w.Binding)
		if buf == nil {
			continue
		}
		c.queue.WriteBuffer(buf, w.Offset, w.Data)
	}
}

func (c *computeDeviceImpl) CreateReadbackBuffer(label string, size uint64) (*wgpu.Buffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
}

func (c *computeDeviceImpl) Dispatch(
	p *ComputePipeline,
	provider bind_group_provider.BindGroupProvider,
	workGroupCount [3]uint32,
	copies ...BufferCopy,
) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p == nil || p.Pipeline == nil {
		return errors.New("dispatch requires a registered compute pipeline")
	}
	if provider.BindGroup() == nil {
		return fmt.Errorf("bind group provider %s is not initialized", provider.Label())
	}

	encoder, err := c.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	defer encoder.Release()

	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(p.Pipeline)
	pass.SetBindGroup(0, provider.BindGroup(), nil)
	pass.DispatchWorkgroups(workGroupCount[0], workGroupCount[1], workGroupCount[2])
	pass.End()
	pass.Release()

	for _, cp := range copies {
		encoder.CopyBufferToBuffer(cp.Source, 0, cp.Destination, 0, cp.Size)
	}

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("failed to finish compute encoder: %w", err)
	}
	c.queue.Submit(commandBuffer)
	commandBuffer.Release()

	return nil
}

func (c *computeDeviceImpl) ReadBuffer(buf *wgpu.Buffer, size uint64, dst []byte) error {
	if uint64(len(dst)) < size {
		return fmt.Errorf("readback destination holds %d bytes, need %d", len(dst), size)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	mapped := false
	var status wgpu.BufferMapAsyncStatus
	err := buf.MapAsync(wgpu.MapModeRead, 0, size, func(s wgpu.BufferMapAsyncStatus) {
		mapped = true
		status = s
	})
	if err != nil {
		return fmt.Errorf("failed to map readback buffer: %w", err)
	}

	// Poll(true) blocks until all submitted work has completed, which fires the map callback.
	c.device.Poll(true, nil)
	if !mapped {
		return errors.New("readback buffer map callback did not fire")
	}
	if status != wgpu.BufferMapAsyncStatusSuccess {
		return fmt.Errorf("readback buffer map failed with status %v", status)
	}

	copy(dst[:size], buf.GetMappedRange(0, uint(size)))
	buf.Unmap()

	return nil
}

func (c *computeDeviceImpl) Device() *wgpu.Device {
	return c.device
}

func (c *computeDeviceImpl) Queue() *wgpu.Queue {
	return c.queue
}

func (c *computeDeviceImpl) Adapter() *wgpu.Adapter {
	return c.adapter
}

func (c *computeDeviceImpl) Label() string {
	return c.label
}

func (c *computeDeviceImpl) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.queue != nil {
		c.queue.Release()
		c.queue = nil
	}
	if c.device != nil {
		c.device.Release()
		c.device = nil
	}
	if c.adapter != nil {
		c.adapter.Release()
		c.adapter = nil
	}
	if c.instance != nil {
		c.instance.Release()
		c.instance = nil
	}
}

package bind_group_provider

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label is a debug label prefixed onto every GPU object created for this provider.
	label string

	// entries describes every buffer binding in group 0, in binding order.
	entries []BufferBinding

	// The following fields are GPU allocated resources and must be released when no longer needed.
	// They are populated by the compute device during InitBindGroup, not by user-creation.

	// bindGroup is the GPU bind group created for this provider, or nil if not initialized.
	bindGroup *wgpu.BindGroup
	// bindGroupLayout is the GPU bind group layout created for this provider, or nil if not initialized.
	bindGroupLayout *wgpu.BindGroupLayout
	// buffers holds the GPU buffers created for this provider, keyed by binding index.
	buffers map[int]*wgpu.Buffer
	// capacity is the byte size each buffer was allocated with, keyed by binding index.
	capacity map[int]uint64
}

// BufferBinding describes one buffer resource of a compute bind group.
type BufferBinding struct {
	// Binding is the @binding(N) index in the kernel.
	Binding int
	// Type is the buffer binding type (uniform, storage or read-only storage).
	Type wgpu.BufferBindingType
	// Size is the allocation size in bytes.
	Size uint64
	// ExtraUsage is OR-ed onto the usage implied by Type, e.g. CopySrc for readback sources.
	ExtraUsage wgpu.BufferUsage
}

// Usage returns the full buffer usage flags for the binding.
//
// Returns:
//   - wgpu.BufferUsage: the usage implied by Type plus ExtraUsage
func (b BufferBinding) Usage() wgpu.BufferUsage {
	var usage wgpu.BufferUsage
	switch b.Type {
	case wgpu.BufferBindingTypeUniform:
		usage = wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst
	case wgpu.BufferBindingTypeStorage, wgpu.BufferBindingTypeReadOnlyStorage:
		usage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst
	}
	return usage | b.ExtraUsage
}

// BindGroupProvider holds the buffers and bind group backing one compute dispatch.
// The spring backend owns one provider for the record array and step parameters; the compute
// device creates the GPU resources on InitBindGroup and recreates them when a binding outgrows
// its allocation.
//
// Usage pattern:
//  1. Caller creates a provider with its buffer bindings
//  2. ComputeDevice.InitBindGroup(provider, layout) allocates buffers and the bind group
//  3. ComputeDevice.WriteBuffers uploads data each dispatch
//  4. ComputeDevice.Dispatch binds BindGroup() at group 0
type BindGroupProvider interface {
	// Release releases any GPU resources held by this provider.
	// The binding descriptions are kept so the provider can be initialized again.
	Release()

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// Entries returns the buffer bindings described by this provider, in binding order.
	//
	// Returns:
	//   - []BufferBinding: the binding descriptions
	Entries() []BufferBinding

	// Resize changes the allocation size of a binding. The GPU buffer is not touched until the
	// provider is initialized again; Initialized reports false after a size change.
	//
	// Parameters:
	//   - binding: the binding index
	//   - size: the new size in bytes
	Resize(binding int, size uint64)

	// Initialized reports whether every binding has a GPU buffer of at least its described size
	// and a bind group exists.
	//
	// Returns:
	//   - bool: true if the provider can be dispatched as is
	Initialized() bool

	// BindGroup returns the created bind group for shader binding.
	// Returns nil if GPU resources have not been initialized.
	//
	// Returns:
	//   - *wgpu.BindGroup: the bind group or nil
	BindGroup() *wgpu.BindGroup

	// BindGroupLayout returns the created bind group layout for this provider.
	// Returns nil if GPU resources have not been initialized.
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the bind group layout or nil
	BindGroupLayout() *wgpu.BindGroupLayout

	// Buffer returns the GPU buffer for a binding, or nil if not initialized.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer or nil
	Buffer(binding int) *wgpu.Buffer

	// BufferSize returns the byte size the buffer for a binding was allocated with, or 0.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - uint64: the allocated size
	BufferSize(binding int) uint64

	// SetBindGroup sets the bind group after GPU initialization.
	//
	// Parameters:
	//   - bg: the created bind group
	SetBindGroup(bg *wgpu.BindGroup)

	// SetBindGroupLayout sets the bind group layout after GPU initialization.
	//
	// Parameters:
	//   - bgl: the created bind group layout
	SetBindGroupLayout(bgl *wgpu.BindGroupLayout)

	// SetBuffer stores a GPU buffer for a binding, releasing any buffer it replaces.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the created buffer
	//   - size: the byte size buf was allocated with
	SetBuffer(binding int, buf *wgpu.Buffer, size uint64)
}

// Compile-time check that bindGroupProvider implements BindGroupProvider
var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a new BindGroupProvider with the provided options.
//
// Parameters:
//   - label: the debug label for GPU objects created for this provider
//   - options: a variadic list of options to configure the provider
//
// Returns:
//   - BindGroupProvider: a new instance of BindGroupProvider configured with the provided options
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:    label,
		buffers:  make(map[int]*wgpu.Buffer),
		capacity: make(map[int]uint64),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) Entries() []BufferBinding {
	return p.entries
}

func (p *bindGroupProvider) Resize(binding int, size uint64) {
	for i := range p.entries {
		if p.entries[i].Binding == binding {
			p.entries[i].Size = size
			return
		}
	}
}

func (p *bindGroupProvider) Initialized() bool {
	if p.bindGroup == nil {
		return false
	}
	for _, e := range p.entries {
		if p.buffers[e.Binding] == nil || p.capacity[e.Binding] < e.Size {
			return false
		}
	}
	return true
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) BindGroupLayout() *wgpu.BindGroupLayout {
	return p.bindGroupLayout
}

func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer {
	return p.buffers[binding]
}

func (p *bindGroupProvider) BufferSize(binding int) uint64 {
	return p.capacity[binding]
}

func (p *bindGroupProvider) SetBindGroup(bg *wgpu.BindGroup) {
	if p.bindGroup != nil && p.bindGroup != bg {
		p.bindGroup.Release()
	}
	p.bindGroup = bg
}

func (p *bindGroupProvider) SetBindGroupLayout(bgl *wgpu.BindGroupLayout) {
	p.bindGroupLayout = bgl
}

func (p *bindGroupProvider) SetBuffer(binding int, buf *wgpu.Buffer, size uint64) {
	if old := p.buffers[binding]; old != nil && old != buf {
		old.Release()
	}
	p.buffers[binding] = buf
	p.capacity[binding] = size
}

func (p *bindGroupProvider) Release() {
	for i, buf := range p.buffers {
		if buf != nil {
			buf.Release()
		}
		delete(p.buffers, i)
		delete(p.capacity, i)
	}

	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	// the layout is owned by the pipeline that created it
	p.bindGroupLayout = nil
}

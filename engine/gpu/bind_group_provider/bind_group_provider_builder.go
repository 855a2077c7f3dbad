package bind_group_provider

import (
	"slices"

	"github.com/cogentcore/webgpu/wgpu"
)

// BindGroupProviderOption is a functional option used to configure a BindGroupProvider during construction.
type BindGroupProviderOption func(*bindGroupProvider)

// WithBufferBinding adds a buffer binding to the provider. Bindings are kept sorted by index.
//
// Parameters:
//   - binding: the buffer binding description
//
// Returns:
//   - BindGroupProviderOption: a function that registers the binding
func WithBufferBinding(binding BufferBinding) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.entries = append(p.entries, binding)
		slices.SortFunc(p.entries, func(a, b BufferBinding) int {
			return a.Binding - b.Binding
		})
	}
}

// WithBindGroupLayout sets the bind group layout for this provider.
//
// Parameters:
//   - bgl: the bind group layout to use for this provider
//
// Returns:
//   - BindGroupProviderOption: a function that sets the bind group layout for this provider
func WithBindGroupLayout(bgl *wgpu.BindGroupLayout) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.bindGroupLayout = bgl
	}
}

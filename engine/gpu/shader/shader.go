// Package shader reflects WGSL compute kernels: entry point, workgroup size, buffer bindings and
// the host-shareable size of every struct, so pipelines and buffers can be built from the source.
package shader

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// Kernel is the reflected interface of a WGSL compute shader.
type Kernel struct {
	source        string
	entryPoint    string
	workgroupSize [3]uint32
	groups        map[int][]wgpu.BindGroupLayoutEntry
	varNames      map[int]map[int]string
	structs       map[string]wgslTypeLayout
}

// ReflectCompute parses a WGSL compute shader.
//
// Parameters:
//   - source: the raw WGSL source code string
//
// Returns:
//   - *Kernel: the reflected kernel
//   - error: error if the source has no @compute entry point or binds a non-buffer resource
func ReflectCompute(source string) (*Kernel, error) {
	entry := parseComputeEntryPoint(source)
	if entry == "" {
		return nil, fmt.Errorf("no @compute entry point found")
	}

	groups, varNames, err := parseBindGroupLayouts(source, wgpu.ShaderStageCompute)
	if err != nil {
		return nil, err
	}

	return &Kernel{
		source:        source,
		entryPoint:    entry,
		workgroupSize: parseWorkgroupSize(source),
		groups:        groups,
		varNames:      varNames,
		structs:       computeStructSizes(parseStructBlocks(stripComments(source))),
	}, nil
}

// Source returns the WGSL source the kernel was reflected from.
func (k *Kernel) Source() string {
	return k.source
}

// EntryPoint returns the name of the first @compute function.
func (k *Kernel) EntryPoint() string {
	return k.entryPoint
}

// WorkgroupSize returns the @workgroup_size dimensions; omitted dimensions are 1.
func (k *Kernel) WorkgroupSize() [3]uint32 {
	return k.workgroupSize
}

// Workgroups returns the dispatch size that covers n invocations along x.
//
// Parameters:
//   - n: the number of invocations needed
//
// Returns:
//   - [3]uint32: workgroup counts for DispatchWorkgroups
func (k *Kernel) Workgroups(n uint32) [3]uint32 {
	x := k.workgroupSize[0]
	return [3]uint32{(n + x - 1) / x, 1, 1}
}

// Entries returns the layout entries of a bind group, sorted by binding.
//
// Parameters:
//   - group: the @group index
//
// Returns:
//   - []wgpu.BindGroupLayoutEntry: the entries, nil if the group is not declared
func (k *Kernel) Entries(group int) []wgpu.BindGroupLayoutEntry {
	return k.groups[group]
}

// Binding looks up the binding index of a resource variable.
//
// Parameters:
//   - group: the @group index
//   - varName: the WGSL variable name
//
// Returns:
//   - int: the @binding index
//   - bool: true if the variable exists in the group
func (k *Kernel) Binding(group int, varName string) (int, bool) {
	for binding, name := range k.varNames[group] {
		if name == varName {
			return binding, true
		}
	}
	return 0, false
}

// StructSize returns the host-shareable byte size of a struct declared in the kernel.
//
// Parameters:
//   - name: the struct name
//
// Returns:
//   - uint64: size in bytes, rounded up to the struct alignment
//   - bool: true if the struct was found and all its fields resolved
func (k *Kernel) StructSize(name string) (uint64, bool) {
	layout, ok := k.structs[name]
	return layout.size, ok
}

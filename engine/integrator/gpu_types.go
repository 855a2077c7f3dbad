package integrator

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-spring/common"
)

// KernelSource is the WGSL compute kernel that performs one Step over an array of SpringRecord.
// Bindings: group 0 binding 0 is the read_write record array, binding 1 the GPUStepParams uniform.
//
//go:embed assets/spring_step.wgsl
var KernelSource string

const (
	// KernelEntryPoint is the name of the compute entry point in KernelSource.
	KernelEntryPoint = "spring_step"

	// KernelWorkgroupSize is the @workgroup_size declared by KernelSource.
	KernelWorkgroupSize = 64

	// RecordsBinding is the binding index of the record storage buffer.
	RecordsBinding = 0

	// ParamsBinding is the binding index of the step parameters uniform.
	ParamsBinding = 1
)

// SpringRecord is the per-spring simulation state shared with the compute kernel.
// Field order is part of the kernel contract; do not reorder.
// Size: 64 bytes (3 × vec4 + 4 scalars, std430 aligned).
type SpringRecord struct {
	Position  common.Vec4 // offset 0: current value
	Target    common.Vec4 // offset 16: destination value
	Velocity  common.Vec4 // offset 32: current rate of change
	Threshold float32     // offset 48: convergence tolerance per channel
	Stiffness float32     // offset 52: spring constant
	Damping   float32     // offset 56: damper constant
	Running   uint32      // offset 60: 1 while moving, 0 once converged
}

// Size returns the size of the SpringRecord struct in bytes.
//
// Returns:
//   - int: The size of the struct in bytes.
func (r *SpringRecord) Size() int {
	return int(unsafe.Sizeof(*r))
}

// IsRunning reports whether the record has not yet converged.
func (r *SpringRecord) IsRunning() bool {
	return r.Running != 0
}

// Marshal serializes the SpringRecord into a little-endian byte buffer matching the kernel layout.
//
// Returns:
//   - []byte: 64-byte buffer ready for GPU upload.
func (r *SpringRecord) Marshal() []byte {
	buf := make([]byte, 64)
	putVec4(buf[0:16], r.Position)
	putVec4(buf[16:32], r.Target)
	putVec4(buf[32:48], r.Velocity)
	binary.LittleEndian.PutUint32(buf[48:52], math.Float32bits(r.Threshold))
	binary.LittleEndian.PutUint32(buf[52:56], math.Float32bits(r.Stiffness))
	binary.LittleEndian.PutUint32(buf[56:60], math.Float32bits(r.Damping))
	binary.LittleEndian.PutUint32(buf[60:64], r.Running)
	return buf
}

// Unmarshal decodes a 64-byte little-endian buffer produced by Marshal or by the kernel.
//
// Parameters:
//   - buf: at least 64 bytes of record data
func (r *SpringRecord) Unmarshal(buf []byte) {
	r.Position = getVec4(buf[0:16])
	r.Target = getVec4(buf[16:32])
	r.Velocity = getVec4(buf[32:48])
	r.Threshold = math.Float32frombits(binary.LittleEndian.Uint32(buf[48:52]))
	r.Stiffness = math.Float32frombits(binary.LittleEndian.Uint32(buf[52:56]))
	r.Damping = math.Float32frombits(binary.LittleEndian.Uint32(buf[56:60]))
	r.Running = binary.LittleEndian.Uint32(buf[60:64])
}

// GPUStepParams is the per-dispatch uniform read by the kernel.
// Size: 16 bytes (uniform buffers require 16-byte multiples).
type GPUStepParams struct {
	DeltaTime float32 // offset 0: accumulated seconds since the last processed tick
	Count     uint32  // offset 4: number of records in the dispatch
	_pad0     uint32  // offset 8
	_pad1     uint32  // offset 12
}

// Size returns the size of the GPUStepParams struct in bytes.
//
// Returns:
//   - int: The size of the struct in bytes.
func (p *GPUStepParams) Size() int {
	return int(unsafe.Sizeof(*p))
}

// Marshal serializes the GPUStepParams into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 16-byte buffer ready for GPU upload.
func (p *GPUStepParams) Marshal() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(p.DeltaTime))
	binary.LittleEndian.PutUint32(buf[4:8], p.Count)
	return buf
}

func putVec4(dst []byte, v common.Vec4) {
	for i := range 4 {
		binary.LittleEndian.PutUint32(dst[i*4:(i+1)*4], math.Float32bits(v[i]))
	}
}

func getVec4(src []byte) common.Vec4 {
	var v common.Vec4
	for i := range 4 {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*4 : (i+1)*4]))
	}
	return v
}

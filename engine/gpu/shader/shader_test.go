package shader

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-spring/engine/integrator"
	"github.com/cogentcore/webgpu/wgpu"
)

func TestReflectCompute_SpringKernel(t *testing.T) {
	k, err := ReflectCompute(integrator.KernelSource)
	if err != nil {
		t.Fatalf("ReflectCompute: %v", err)
	}

	if k.EntryPoint() != integrator.KernelEntryPoint {
		t.Errorf("EntryPoint = %q, want %q", k.EntryPoint(), integrator.KernelEntryPoint)
	}
	if ws := k.WorkgroupSize(); ws != [3]uint32{integrator.KernelWorkgroupSize, 1, 1} {
		t.Errorf("WorkgroupSize = %v, want [%d 1 1]", ws, integrator.KernelWorkgroupSize)
	}

	var rec integrator.SpringRecord
	var params integrator.GPUStepParams
	if size, ok := k.StructSize("SpringRecord"); !ok || size != uint64(rec.Size()) {
		t.Errorf("WGSL SpringRecord size = %d (%v), Go size = %d", size, ok, rec.Size())
	}
	if size, ok := k.StructSize("StepParams"); !ok || size != uint64(params.Size()) {
		t.Errorf("WGSL StepParams size = %d (%v), Go size = %d", size, ok, params.Size())
	}

	entries := k.Entries(0)
	if len(entries) != 2 {
		t.Fatalf("group 0 has %d entries, want 2", len(entries))
	}
	records, params0 := entries[0], entries[1]
	if records.Binding != integrator.RecordsBinding || records.Buffer.Type != wgpu.BufferBindingTypeStorage {
		t.Errorf("records entry = %+v", records)
	}
	if records.Buffer.MinBindingSize != uint64(rec.Size()) {
		t.Errorf("records MinBindingSize = %d, want one record", records.Buffer.MinBindingSize)
	}
	if params0.Binding != integrator.ParamsBinding || params0.Buffer.Type != wgpu.BufferBindingTypeUniform {
		t.Errorf("params entry = %+v", params0)
	}
	if records.Visibility != wgpu.ShaderStageCompute {
		t.Errorf("Visibility = %v, want compute", records.Visibility)
	}

	if b, ok := k.Binding(0, "params"); !ok || b != integrator.ParamsBinding {
		t.Errorf("Binding(0, params) = %d, %v", b, ok)
	}
	if _, ok := k.Binding(0, "missing"); ok {
		t.Error("Binding found an undeclared variable")
	}
	if got := k.Workgroups(65); got != [3]uint32{2, 1, 1} {
		t.Errorf("Workgroups(65) = %v, want [2 1 1]", got)
	}
}

func TestReflectCompute_Layouts(t *testing.T) {
	src := `
/* outer /* nested */ still comment */
struct Inner {
    a: vec3<f32>, // 12 bytes, align 16
    b: f32,
};

struct Outer {
    inner: Inner,
    flags: array<u32, 3>,
    tail: vec2<f32>,
};

struct Dynamic {
    count: u32,
    items: array<vec4<f32>>,
};

@group(1) @binding(2) var<storage, read> outs: array<Outer>;
@group(1) @binding(0) var<uniform> inner: Inner;
@group(0) @binding(0) var<storage, read_write> dyn: Dynamic;

@compute @workgroup_size(8, 4)
fn main(@builtin(global_invocation_id) id: vec3<u32>) {}
`
	k, err := ReflectCompute(src)
	if err != nil {
		t.Fatalf("ReflectCompute: %v", err)
	}

	tests := []struct {
		name string
		want uint64
	}{
		{"Inner", 16},
		{"Outer", 48},
		{"Dynamic", 32},
	}
	for _, tt := range tests {
		if got, ok := k.StructSize(tt.name); !ok || got != tt.want {
			t.Errorf("StructSize(%s) = %d (%v), want %d", tt.name, got, ok, tt.want)
		}
	}

	g1 := k.Entries(1)
	if len(g1) != 2 || g1[0].Binding != 0 || g1[1].Binding != 2 {
		t.Fatalf("group 1 entries not sorted by binding: %+v", g1)
	}
	if g1[1].Buffer.Type != wgpu.BufferBindingTypeReadOnlyStorage {
		t.Errorf("outs type = %v, want read-only storage", g1[1].Buffer.Type)
	}
	if g1[1].Buffer.MinBindingSize != 48 {
		t.Errorf("outs MinBindingSize = %d, want 48", g1[1].Buffer.MinBindingSize)
	}
	if ws := k.WorkgroupSize(); ws != [3]uint32{8, 4, 1} {
		t.Errorf("WorkgroupSize = %v, want [8 4 1]", ws)
	}
}

func TestReflectCompute_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"no compute entry", "@vertex fn vs() {}"},
		{"commented-out entry", "// @compute @workgroup_size(1)\nfn f() {}"},
		{"texture binding", "@group(0) @binding(0) var tex: texture_2d<f32>;\n@compute @workgroup_size(1) fn f() {}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReflectCompute(tt.src); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

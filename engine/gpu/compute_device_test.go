package gpu

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-spring/common"
	"github.com/Carmen-Shannon/oxy-spring/engine/gpu/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-spring/engine/gpu/shader"
	"github.com/Carmen-Shannon/oxy-spring/engine/integrator"
	"github.com/cogentcore/webgpu/wgpu"
)

func newTestDevice(t *testing.T) ComputeDevice {
	t.Helper()
	d, err := NewComputeDevice(WithLabel("Test Compute Device"))
	if err != nil {
		t.Skipf("no wgpu adapter available: %v", err)
	}
	t.Cleanup(d.Release)
	return d
}

func TestComputeDevice_SpringKernelMatchesStep(t *testing.T) {
	d := newTestDevice(t)

	kernel, err := shader.ReflectCompute(integrator.KernelSource)
	if err != nil {
		t.Fatalf("ReflectCompute: %v", err)
	}
	entries := kernel.Entries(0)
	p, err := d.RegisterComputePipeline("Spring Step", kernel.Source(), kernel.EntryPoint(), entries)
	if err != nil {
		t.Fatalf("RegisterComputePipeline: %v", err)
	}
	t.Cleanup(p.Release)

	records := make([]integrator.SpringRecord, 70)
	for i := range records {
		if i%3 == 0 {
			continue
		}
		records[i] = integrator.NewRecord(common.Vec4{float32(i), 0, 0, 0}, common.Vec4{0, float32(i), 1, 2}, 150, 10, 0.01)
	}
	size := uint64(len(records) * 64)

	provider := bind_group_provider.NewBindGroupProvider("Test Springs",
		bind_group_provider.WithBufferBinding(bind_group_provider.BufferBinding{
			Binding: integrator.RecordsBinding, Type: wgpu.BufferBindingTypeStorage, Size: size, ExtraUsage: wgpu.BufferUsageCopySrc,
		}),
		bind_group_provider.WithBufferBinding(bind_group_provider.BufferBinding{
			Binding: integrator.ParamsBinding, Type: wgpu.BufferBindingTypeUniform, Size: 16,
		}),
	)
	t.Cleanup(provider.Release)
	if err := d.InitBindGroup(provider, p.BindGroupLayout); err != nil {
		t.Fatalf("InitBindGroup: %v", err)
	}

	readback, err := d.CreateReadbackBuffer("Test Readback", size)
	if err != nil {
		t.Fatalf("CreateReadbackBuffer: %v", err)
	}
	t.Cleanup(readback.Release)

	dt := float32(1.0 / 60.0)
	params := integrator.GPUStepParams{DeltaTime: dt, Count: uint32(len(records))}
	d.WriteBuffers([]bind_group_provider.BufferWrite{
		{Provider: provider, Binding: integrator.RecordsBinding, Data: common.SliceToBytes(records)},
		{Provider: provider, Binding: integrator.ParamsBinding, Data: params.Marshal()},
	})

	err = d.Dispatch(p, provider, kernel.Workgroups(uint32(len(records))), BufferCopy{
		Source: provider.Buffer(integrator.RecordsBinding), Destination: readback, Size: size,
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	out := make([]byte, size)
	if err := d.ReadBuffer(readback, size, out); err != nil {
		t.Fatalf("ReadBuffer: %v", err)
	}

	want := make([]integrator.SpringRecord, len(records))
	copy(want, records)
	integrator.Step(want, dt)

	for i := range want {
		var got integrator.SpringRecord
		got.Unmarshal(out[i*64 : (i+1)*64])
		if got.Running != want[i].Running {
			t.Fatalf("record %d Running = %d, want %d", i, got.Running, want[i].Running)
		}
		if !got.Position.Within(want[i].Position, 1e-4) || !got.Velocity.Within(want[i].Velocity, 1e-4) {
			t.Fatalf("record %d = %+v, want %+v", i, got, want[i])
		}
	}
}

func TestComputeDevice_RegisterRejectsEmptySource(t *testing.T) {
	d := newTestDevice(t)

	if _, err := d.RegisterComputePipeline("Empty", "", "main", nil); err == nil {
		t.Fatal("RegisterComputePipeline with empty source returned nil error")
	}
}

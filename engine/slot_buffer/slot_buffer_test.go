package slot_buffer

import (
	"fmt"
	"testing"

	"github.com/agilira/go-errors"
)

func TestSlotBuffer_AddAndLookup(t *testing.T) {
	b := NewSlotBuffer[string, int, string]()

	b.Add("a", 1, "meta-a")
	b.Add("b", 2, "meta-b")

	if b.Len() != 2 {
		t.Fatalf("Len = %d, want 2", b.Len())
	}
	if b.Cap() != DefaultInitialCapacity {
		t.Fatalf("Cap = %d, want %d", b.Cap(), DefaultInitialCapacity)
	}

	for key, want := range map[string]int{"a": 1, "b": 2} {
		i, ok := b.IndexOf(key)
		if !ok {
			t.Fatalf("IndexOf(%q) missing", key)
		}
		if got := b.Contents()[i]; got != want {
			t.Errorf("Contents()[%d] = %d, want %d", i, got, want)
		}
		if m, _ := b.MetadataFor(key); m != "meta-"+key {
			t.Errorf("MetadataFor(%q) = %q", key, m)
		}
	}

	if _, ok := b.IndexOf("missing"); ok {
		t.Error("IndexOf(missing) reported present")
	}
	if _, ok := b.MetadataFor("missing"); ok {
		t.Error("MetadataFor(missing) reported present")
	}
}

func TestSlotBuffer_OverwriteKeepsIndex(t *testing.T) {
	b := NewSlotBuffer[string, int, string]()
	b.Add("a", 1, "first")
	before, _ := b.IndexOf("a")

	b.Add("a", 10, "second")
	after, _ := b.IndexOf("a")

	if before != after {
		t.Fatalf("index changed on overwrite: %d -> %d", before, after)
	}
	if v, _ := b.Value("a"); v != 10 {
		t.Errorf("Value = %d, want 10", v)
	}
	if m, _ := b.MetadataFor("a"); m != "second" {
		t.Errorf("MetadataFor = %q, want second", m)
	}
	if b.Len() != 1 {
		t.Errorf("Len = %d, want 1", b.Len())
	}
}

func TestSlotBuffer_GrowthPreservesIndices(t *testing.T) {
	b := NewSlotBuffer[int, int, struct{}]()

	const n = 37
	indices := make(map[int]int, n)
	for k := range n {
		b.Add(k, k*100, struct{}{})
		i, _ := b.IndexOf(k)
		indices[k] = i
	}

	if b.Cap() != 64 {
		t.Fatalf("Cap = %d, want 64 after doubling from 2", b.Cap())
	}
	if b.Len() > b.Cap() {
		t.Fatalf("Len %d exceeds Cap %d", b.Len(), b.Cap())
	}

	seen := make(map[int]bool, n)
	for k := range n {
		i, ok := b.IndexOf(k)
		if !ok {
			t.Fatalf("key %d lost after resize", k)
		}
		if i != indices[k] {
			t.Errorf("key %d moved from slot %d to %d", k, indices[k], i)
		}
		if seen[i] {
			t.Errorf("slot %d assigned twice", i)
		}
		seen[i] = true
		if got := b.Contents()[i]; got != k*100 {
			t.Errorf("slot %d = %d, want %d", i, got, k*100)
		}
	}
}

func TestSlotBuffer_RemoveReusesSlot(t *testing.T) {
	b := NewSlotBuffer[string, int, string]()
	b.Add("a", 1, "")
	b.Add("b", 2, "")
	freed, _ := b.IndexOf("a")

	if !b.Remove("a") {
		t.Fatal("Remove(a) = false")
	}
	if b.Contents()[freed] != 0 {
		t.Errorf("freed slot not zeroed: %d", b.Contents()[freed])
	}
	if b.Remove("a") {
		t.Error("second Remove(a) = true")
	}
	if b.Remove("never") {
		t.Error("Remove(never) = true")
	}

	b.Add("c", 3, "")
	if i, _ := b.IndexOf("c"); i != freed {
		t.Errorf("c got slot %d, want reused slot %d", i, freed)
	}
	if b.Cap() != 2 {
		t.Errorf("Cap = %d, want 2 (no growth when a slot is free)", b.Cap())
	}
}

func TestSlotBuffer_AllVisitsLiveKeysOnly(t *testing.T) {
	b := NewSlotBuffer[string, int, struct{}](WithInitialCapacity(8))
	for _, k := range []string{"a", "b", "c", "d"} {
		b.Add(k, 0, struct{}{})
	}
	b.Remove("b")

	for pass := range 2 {
		got := make(map[string]int)
		for k, i := range b.All() {
			got[k] = i
		}
		if len(got) != 3 {
			t.Fatalf("pass %d: visited %d keys, want 3", pass, len(got))
		}
		if _, ok := got["b"]; ok {
			t.Fatalf("pass %d: removed key visited", pass)
		}
		for k, i := range got {
			if want, _ := b.IndexOf(k); want != i {
				t.Errorf("pass %d: %s index %d, want %d", pass, k, i, want)
			}
		}
	}

	count := 0
	for range b.All() {
		count++
		break
	}
	if count != 1 {
		t.Errorf("early break visited %d", count)
	}
}

func TestSlotBuffer_ClearResetsCapacity(t *testing.T) {
	b := NewSlotBuffer[int, int, struct{}](WithInitialCapacity(4))
	for k := range 20 {
		b.Add(k, k, struct{}{})
	}
	if b.Cap() != 32 {
		t.Fatalf("Cap = %d, want 32", b.Cap())
	}

	b.Clear()

	if b.Len() != 0 || b.Cap() != 4 {
		t.Fatalf("after Clear Len=%d Cap=%d, want 0 and 4", b.Len(), b.Cap())
	}
	b.Add(99, 1, struct{}{})
	if i, ok := b.IndexOf(99); !ok || i >= 4 {
		t.Errorf("IndexOf after Clear = %d, %v", i, ok)
	}
}

func TestSlotBuffer_ResizeNeverShrinks(t *testing.T) {
	b := NewSlotBuffer[int, int, struct{}](WithInitialCapacity(8))
	b.Resize(4)
	if b.Cap() != 8 {
		t.Errorf("Cap = %d after shrinking Resize, want 8", b.Cap())
	}
	b.Resize(16)
	if b.Cap() != 16 {
		t.Errorf("Cap = %d, want 16", b.Cap())
	}
	for k := range 16 {
		b.Add(k, k, struct{}{})
	}
	if b.Cap() != 16 {
		t.Errorf("Cap = %d after filling explicit capacity, want 16", b.Cap())
	}
}

func TestSlotBuffer_MutationWhileLockedPanics(t *testing.T) {
	tests := []struct {
		name string
		fn   func(b SlotBuffer[string, int, struct{}])
	}{
		{"add", func(b SlotBuffer[string, int, struct{}]) { b.Add("new", 1, struct{}{}) }},
		{"overwrite", func(b SlotBuffer[string, int, struct{}]) { b.Add("live", 2, struct{}{}) }},
		{"remove", func(b SlotBuffer[string, int, struct{}]) { b.Remove("live") }},
		{"resize", func(b SlotBuffer[string, int, struct{}]) { b.Resize(128) }},
		{"clear", func(b SlotBuffer[string, int, struct{}]) { b.Clear() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewSlotBuffer[string, int, struct{}]()
			b.Add("live", 1, struct{}{})
			b.Lock()

			defer func() {
				r := recover()
				if r == nil {
					t.Fatal("expected panic")
				}
				ec, ok := r.(errors.ErrorCoder)
				if !ok || string(ec.ErrorCode()) != ErrCodeBufferLocked {
					t.Fatalf("panic value %v, want %s error", r, ErrCodeBufferLocked)
				}
			}()
			tt.fn(b)
		})
	}
}

func TestSlotBuffer_RemoveAbsentWhileLockedIsNoop(t *testing.T) {
	b := NewSlotBuffer[string, int, struct{}]()
	b.Lock()
	defer b.Unlock()
	if b.Remove("absent") {
		t.Error("Remove(absent) = true")
	}
}

func BenchmarkSlotBuffer_AddRemove(b *testing.B) {
	buf := NewSlotBuffer[string, [16]float32, struct{}]()
	keys := make([]string, 1024)
	for i := range keys {
		keys[i] = fmt.Sprintf("k%d", i)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		k := keys[i%len(keys)]
		buf.Add(k, [16]float32{}, struct{}{})
		if i%3 == 0 {
			buf.Remove(k)
		}
	}
}

package animator

import (
	"sync"
	"testing"

	"github.com/Carmen-Shannon/oxy-spring/common"
	"github.com/Carmen-Shannon/oxy-spring/engine/backend"
	"github.com/Carmen-Shannon/oxy-spring/engine/clock"
	"github.com/Carmen-Shannon/oxy-spring/engine/integrator"
)

const frame = float32(1.0 / 60.0)

// property is an external value animated through a getter and setter.
type property struct {
	mu    sync.Mutex
	value common.Vec4
	sets  int
}

func (p *property) get() common.Vec4 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}

func (p *property) set(v common.Vec4) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.value = v
	p.sets++
}

// completions records every call of a Completion.
type completions struct {
	mu    sync.Mutex
	calls []bool
}

func (c *completions) fn() Completion {
	return func(finished bool) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.calls = append(c.calls, finished)
	}
}

func (c *completions) get() []bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]bool(nil), c.calls...)
}

func expectCalls(t *testing.T, name string, c *completions, want ...bool) {
	t.Helper()
	got := c.get()
	if len(got) != len(want) {
		t.Fatalf("%s: completion calls = %v, want %v", name, got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("%s: completion calls = %v, want %v", name, got, want)
		}
	}
}

// asyncBackend steps on the CPU and delivers done through the frame source, like the GPU backend.
type asyncBackend struct {
	source  clock.FrameSource
	lastDt  float32
	batches int
}

func (b *asyncBackend) Process(records []integrator.SpringRecord, dt float32, done func()) {
	b.lastDt = dt
	b.batches++
	integrator.Step(records, dt)
	b.source.Dispatch(done)
}

func (b *asyncBackend) Type() backend.BackendType { return backend.BackendTypeGPU }
func (b *asyncBackend) Accelerated() bool         { return true }
func (b *asyncBackend) Release()                  {}

func newManualAnimator(options ...AnimatorOption) (Animator, *clock.Manual) {
	m := clock.NewManual()
	return NewAnimator(append([]AnimatorOption{WithFrameSource(m)}, options...)...), m
}

func TestAnimator_ConvergesToTarget(t *testing.T) {
	a, m := newManualAnimator()
	defer a.Close()

	prop := &property{}
	done := &completions{}
	target := common.Vec4{100, 0, 0, 0}
	a.Animate(Key{Subject: 1, Property: "x"}, prop.get, prop.set, target,
		SpringParams{Stiffness: 200, Damping: 10, Threshold: 0.01}, done.fn())

	if a.State() != StateActive || !m.Running() {
		t.Fatalf("State() = %v running %v after Animate, want active and running", a.State(), m.Running())
	}

	ticks := 0
	for ; ticks < 180 && len(done.get()) == 0; ticks++ {
		m.Advance(frame)
	}

	expectCalls(t, "spring", done, true)
	if prop.get() != target {
		t.Fatalf("property = %v, want exactly %v", prop.get(), target)
	}
	if a.Len() != 0 {
		t.Fatalf("Len() = %d after convergence, want 0", a.Len())
	}

	// the next frame sees no springs and detaches
	m.Advance(frame)
	if a.State() != StateIdle || m.Running() || m.Stops() != 1 {
		t.Fatalf("State() = %v running %v stops %d, want idle, stopped once", a.State(), m.Running(), m.Stops())
	}
	expectCalls(t, "spring", done, true)
}

func TestAnimator_TwoKeysCompleteOnce(t *testing.T) {
	a, m := newManualAnimator()
	defer a.Close()

	subject := NewSubjectID()
	props := []*property{{}, {value: common.Vec4{50, 50, 0, 0}}}
	dones := []*completions{{}, {}}
	a.AnimateTo(subject, "frame", props[0].get, props[0].set, common.Vec4{10, 20, 30, 40}, dones[0].fn())
	a.AnimateTo(subject, "center", props[1].get, props[1].set, common.Vec4{0, 0, 0, 0}, dones[1].fn())

	m.AdvanceN(600, frame)

	expectCalls(t, "frame", dones[0], true)
	expectCalls(t, "center", dones[1], true)
	if props[0].get() != (common.Vec4{10, 20, 30, 40}) || props[1].get() != (common.Vec4{}) {
		t.Fatalf("properties = %v %v, want targets", props[0].get(), props[1].get())
	}
	if got := a.Stats().Converged; got != 2 {
		t.Fatalf("Stats().Converged = %d, want 2", got)
	}
}

func TestAnimator_RetargetPreservesVelocity(t *testing.T) {
	a, m := newManualAnimator()
	defer a.Close()

	key := Key{Subject: NewSubjectID(), Property: "x"}
	prop := &property{}
	first, second := &completions{}, &completions{}

	a.Animate(key, prop.get, prop.set, common.Vec4{100, 100, 0, 0}, SpringParams{}, first.fn())
	m.AdvanceN(5, frame)

	before, ok := a.Record(key)
	if !ok {
		t.Fatal("Record() not available between batches")
	}
	if before.Velocity == (common.Vec4{}) {
		t.Fatal("spring has no velocity after 5 ticks")
	}

	a.Animate(key, prop.get, prop.set, common.Vec4{-50, 0, 0, 0}, SpringParams{}, second.fn())

	after, ok := a.Record(key)
	if !ok {
		t.Fatal("Record() not available after re-target")
	}
	if after.Velocity != before.Velocity {
		t.Fatalf("velocity after re-target = %v, want %v", after.Velocity, before.Velocity)
	}
	if after.Target != (common.Vec4{-50, 0, 0, 0}) {
		t.Fatalf("target after re-target = %v", after.Target)
	}
	expectCalls(t, "first", first, false)
	expectCalls(t, "second", second)

	m.AdvanceN(600, frame)
	expectCalls(t, "first", first, false)
	expectCalls(t, "second", second, true)
}

func TestAnimator_RetargetBeforeAnyTick(t *testing.T) {
	a, _ := newManualAnimator()
	defer a.Close()

	key := Key{Subject: 9, Property: "alpha"}
	first := &completions{}
	a.Animate(key, nil, nil, common.ScalarVec4(1), SpringParams{}, first.fn())
	before, _ := a.Record(key)
	a.Animate(key, nil, nil, common.ScalarVec4(0), SpringParams{}, nil)
	after, _ := a.Record(key)

	if after.Velocity != before.Velocity {
		t.Fatalf("velocity = %v, want %v", after.Velocity, before.Velocity)
	}
	expectCalls(t, "first", first, false)
	if a.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", a.Len())
	}
}

func TestAnimator_RemoveIsIdempotent(t *testing.T) {
	a, m := newManualAnimator()
	defer a.Close()

	subject := NewSubjectID()
	done := &completions{}
	a.AnimateTo(subject, "x", nil, nil, common.ScalarVec4(10), done.fn())

	a.Remove(subject, "never-added")
	a.Remove(NewSubjectID())
	expectCalls(t, "spring", done)

	a.Remove(subject, "x")
	a.Remove(subject, "x")
	a.Remove(subject)
	m.AdvanceN(10, frame)

	expectCalls(t, "spring", done, false)
	if a.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", a.Len())
	}
}

func TestAnimator_RemoveWholeSubject(t *testing.T) {
	a, _ := newManualAnimator()
	defer a.Close()

	subject, other := NewSubjectID(), NewSubjectID()
	dones := map[string]*completions{"frame": {}, "alpha": {}, "color": {}}
	for p, c := range dones {
		a.AnimateTo(subject, p, nil, nil, common.Vec4{1, 1, 1, 1}, c.fn())
	}
	keep := &completions{}
	a.AnimateTo(other, "frame", nil, nil, common.Vec4{1, 1, 1, 1}, keep.fn())

	a.Remove(subject)

	for p, c := range dones {
		expectCalls(t, p, c, false)
	}
	expectCalls(t, "other", keep)
	if a.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", a.Len())
	}
	if _, ok := a.Record(Key{Subject: other, Property: "frame"}); !ok {
		t.Fatal("spring of another subject was removed")
	}
}

func TestAnimator_QueuesCommandsDuringBatch(t *testing.T) {
	m := clock.NewManual()
	be := &asyncBackend{source: m}
	a := NewAnimator(WithFrameSource(m), WithBackend(be))
	defer a.Close()

	subject := NewSubjectID()
	key := Key{Subject: subject, Property: "x"}
	original, replaced, final := &completions{}, &completions{}, &completions{}
	a.Animate(key, nil, nil, common.ScalarVec4(100), SpringParams{}, original.fn())

	m.Advance(frame)
	if a.State() != StateProcessing {
		t.Fatalf("State() = %v with a batch in flight, want processing", a.State())
	}
	if _, ok := a.Record(key); ok {
		t.Fatal("Record() available while the backend owns the storage")
	}

	a.Remove(subject)
	a.Animate(key, nil, nil, common.ScalarVec4(5), SpringParams{}, replaced.fn())
	a.Animate(key, nil, nil, common.ScalarVec4(7), SpringParams{}, final.fn())

	// nothing applies mid-batch
	expectCalls(t, "original", original)
	if a.Len() != 1 {
		t.Fatalf("Len() = %d mid-batch, want 1", a.Len())
	}

	// a frame arriving mid-batch folds into the next one
	a.Tick(0.5)
	if got := a.Stats().SkippedTicks; got != 1 {
		t.Fatalf("SkippedTicks = %d, want 1", got)
	}

	m.Drain()
	if a.State() != StateActive {
		t.Fatalf("State() = %v after write-back, want active", a.State())
	}
	expectCalls(t, "original", original, false)
	expectCalls(t, "replaced", replaced, false)
	expectCalls(t, "final", final)

	rec, ok := a.Record(key)
	if !ok || rec.Target != common.ScalarVec4(7) {
		t.Fatalf("Record() = %+v, %v; want target 7", rec, ok)
	}
	if got := a.Stats().Replayed; got != 3 {
		t.Fatalf("Replayed = %d, want 3", got)
	}

	m.Advance(0.1)
	if want := float32(0.6); be.lastDt < want-1e-6 || be.lastDt > want+1e-6 {
		t.Fatalf("batch dt = %v, want accumulated %v", be.lastDt, want)
	}
}

func TestAnimator_CompletionCanChain(t *testing.T) {
	a, m := newManualAnimator()
	defer a.Close()

	subject := NewSubjectID()
	prop := &property{}
	second := &completions{}
	a.AnimateTo(subject, "x", prop.get, prop.set, common.ScalarVec4(10), func(finished bool) {
		if finished {
			a.AnimateTo(subject, "x", prop.get, prop.set, common.ScalarVec4(0), second.fn())
		}
	})

	m.AdvanceN(1200, frame)

	expectCalls(t, "second", second, true)
	if prop.get() != (common.Vec4{}) {
		t.Fatalf("property = %v, want zero after chained spring", prop.get())
	}
}

func TestAnimator_IdleReleasesStorageAndReattaches(t *testing.T) {
	a, m := newManualAnimator(WithInitialCapacity(2))
	defer a.Close()

	subject := NewSubjectID()
	for i := range 37 {
		a.AnimateTo(subject, string(rune('a'+i%26))+string(rune('0'+i/26)), nil, nil, common.ScalarVec4(1), nil)
	}
	if got := a.Stats().Capacity; got != 64 {
		t.Fatalf("Capacity = %d with 37 springs, want 64", got)
	}

	a.Remove(subject)
	m.Advance(frame)
	if a.State() != StateIdle || m.Stops() != 1 {
		t.Fatalf("State() = %v stops %d, want idle after an empty frame", a.State(), m.Stops())
	}
	if got := a.Stats().Capacity; got != 2 {
		t.Fatalf("Capacity = %d when idle, want 2", got)
	}

	a.AnimateTo(subject, "x", nil, nil, common.ScalarVec4(1), nil)
	if a.State() != StateActive || m.Starts() != 2 {
		t.Fatalf("State() = %v starts %d, want active and started twice", a.State(), m.Starts())
	}
}

func TestAnimator_DefaultParams(t *testing.T) {
	a, _ := newManualAnimator(WithDefaults(SpringParams{Stiffness: 300}))
	defer a.Close()

	key := Key{Subject: 1, Property: "x"}
	a.Animate(key, nil, nil, common.ScalarVec4(1), SpringParams{Damping: 20}, nil)
	rec, _ := a.Record(key)
	if rec.Stiffness != 300 || rec.Damping != 20 || rec.Threshold != DefaultThreshold {
		t.Fatalf("record params = %v/%v/%v, want 300/20/%v", rec.Stiffness, rec.Damping, rec.Threshold, DefaultThreshold)
	}

	a.SetDefaults(SpringParams{})
	if a.Defaults() != DefaultSpringParams() {
		t.Fatalf("Defaults() = %+v, want built-in defaults", a.Defaults())
	}
}

func TestAnimator_CloseCancels(t *testing.T) {
	a, m := newManualAnimator()

	live := &completions{}
	a.AnimateTo(1, "x", nil, nil, common.ScalarVec4(1), live.fn())
	a.Close()
	a.Close()

	expectCalls(t, "live", live, false)
	if m.Running() {
		t.Fatal("frame source still running after Close")
	}

	late := &completions{}
	a.AnimateTo(1, "x", nil, nil, common.ScalarVec4(1), late.fn())
	expectCalls(t, "late", late, false)
	if a.Len() != 0 {
		t.Fatalf("Len() = %d after Close, want 0", a.Len())
	}
}

func TestAnimator_CloseDuringBatch(t *testing.T) {
	m := clock.NewManual()
	a := NewAnimator(WithFrameSource(m), WithBackend(&asyncBackend{source: m}))

	live := &completions{}
	a.AnimateTo(1, "x", nil, nil, common.ScalarVec4(100), live.fn())
	m.Advance(frame)
	a.Close()
	expectCalls(t, "live", live)

	m.Drain()
	expectCalls(t, "live", live, false)
	if a.State() != StateIdle {
		t.Fatalf("State() = %v, want idle", a.State())
	}
}

func TestAnimator_ParallelBackendManySprings(t *testing.T) {
	be, err := backend.NewBackend(backend.WithBackendType(backend.BackendTypeParallel), backend.WithWorkers(4), backend.WithChunkSize(32))
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	defer be.Release()

	a, m := newManualAnimator(WithBackend(be))
	defer a.Close()

	const n = 500
	var mu sync.Mutex
	counts := make(map[int]int)
	for i := range n {
		a.AnimateTo(SubjectID(i+1), "value", nil, nil, common.Vec4{float32(i), 1, 2, 3}, func(finished bool) {
			if !finished {
				t.Errorf("spring %d cancelled", i)
			}
			mu.Lock()
			counts[i]++
			mu.Unlock()
		})
	}

	m.AdvanceN(1200, frame)

	if len(counts) != n {
		t.Fatalf("%d of %d springs completed", len(counts), n)
	}
	for i, c := range counts {
		if c != 1 {
			t.Fatalf("spring %d completed %d times", i, c)
		}
	}
}

func TestAnimator_ConcurrentCallers(t *testing.T) {
	a, m := newManualAnimator()
	defer a.Close()

	var wg sync.WaitGroup
	var mu sync.Mutex
	calls := 0
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			subject := SubjectID(1000 + g)
			for i := range 50 {
				a.AnimateTo(subject, "x", nil, nil, common.ScalarVec4(float32(i)), func(bool) {
					mu.Lock()
					calls++
					mu.Unlock()
				})
				if i%10 == 0 {
					a.Remove(subject)
				}
			}
		}()
	}
	for range 20 {
		m.Advance(frame)
	}
	wg.Wait()
	m.AdvanceN(1200, frame)

	// every Animate completes exactly once, by cancellation or convergence
	if calls != 8*50 {
		t.Fatalf("completions = %d, want %d", calls, 8*50)
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{StateIdle: "idle", StateActive: "active", StateProcessing: "processing", State(9): "State(9)"}
	for s, want := range tests {
		if s.String() != want {
			t.Errorf("State(%d).String() = %q, want %q", int(s), s.String(), want)
		}
	}
}

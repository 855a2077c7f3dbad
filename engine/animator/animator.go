// Package animator schedules damped-spring animations of external properties.
//
// An Animator owns a slot buffer of spring records keyed by (subject, property). Each frame it
// reads every live property through its getter, hands the whole record array to a backend for one
// integration step, writes positions back through the setters and completes the springs that
// converged. Animate and Remove calls that arrive while a batch is in flight are queued and replayed
// in arrival order once the batch has been written back, so the record storage never moves while a
// backend holds it.
package animator

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-spring/common"
	"github.com/Carmen-Shannon/oxy-spring/engine/backend"
	"github.com/Carmen-Shannon/oxy-spring/engine/clock"
	"github.com/Carmen-Shannon/oxy-spring/engine/integrator"
	"github.com/Carmen-Shannon/oxy-spring/engine/slot_buffer"
)

// metadata is the per-spring side table. It never reaches a backend.
type metadata struct {
	getter     Getter
	setter     Setter
	completion Completion
}

// liveEntry is one spring captured at the start of a batch.
type liveEntry struct {
	key    Key
	index  int
	getter Getter
	setter Setter
}

type animator struct {
	mu *sync.Mutex

	buffer   slot_buffer.SlotBuffer[Key, integrator.SpringRecord, metadata]
	subjects map[SubjectID]map[string]struct{}

	backend      backend.Backend
	ownsBackend  bool
	source       clock.FrameSource
	defaults     SpringParams
	initialSlots int

	state       State
	processing  bool
	closed      bool
	accumulated float32
	queue       []command
	live        []liveEntry
	stats       Stats
}

// Animator drives springs toward their targets once per frame.
//
// All methods are safe to call from any goroutine. Getters, setters and completions are always
// called with the animator unlocked, so they may call Animate or Remove; during a batch those calls
// are queued and take effect after the batch's completions have fired.
type Animator interface {
	// Animate starts, or re-targets, the spring for key.
	// The getter is called once now for the starting value and again before every step. If key
	// already has a running spring, its completion is called with false before Animate returns
	// and its velocity carries over to the new spring.
	//
	// Parameters:
	//   - key: the subject and property to animate
	//   - getter: reads the current property value; nil keeps the engine's own position
	//   - setter: receives the animated value after every step; may be nil
	//   - target: the destination value
	//   - params: spring tuning; zero fields take the animator defaults
	//   - completion: called once with true on convergence or false on cancellation; may be nil
	Animate(key Key, getter Getter, setter Setter, target common.Vec4, params SpringParams, completion Completion)

	// AnimateTo is Animate with the default spring parameters.
	//
	// Parameters:
	//   - subject: the animated subject
	//   - property: the property name
	//   - getter: reads the current property value
	//   - setter: receives the animated value
	//   - target: the destination value
	//   - completion: optional completion callback
	AnimateTo(subject SubjectID, property string, getter Getter, setter Setter, target common.Vec4, completion Completion)

	// Remove cancels springs of a subject. With no properties every spring of the subject is removed.
	// Each removed spring's completion is called once with false. Unknown keys are ignored.
	//
	// Parameters:
	//   - subject: the subject whose springs to remove
	//   - properties: the property names to remove, or none for all
	Remove(subject SubjectID, properties ...string)

	// Tick advances all springs by dt seconds. The frame source calls it; tests and custom drivers
	// may call it directly. A tick that arrives while a batch is in flight is skipped and its dt is
	// added to the next batch.
	//
	// Parameters:
	//   - dt: seconds elapsed since the previous tick
	Tick(dt float32)

	// Len returns the number of live springs, including ones that converged in a batch that has
	// not been written back yet.
	//
	// Returns:
	//   - int: live spring count
	Len() int

	// State returns the current lifecycle state.
	//
	// Returns:
	//   - State: idle, active or processing
	State() State

	// Stats returns a snapshot of the cumulative counters.
	//
	// Returns:
	//   - Stats: the counters
	Stats() Stats

	// Record returns a copy of the spring record for key. It reports false for unknown keys and
	// while a batch is in flight, when the record is owned by the backend.
	//
	// Parameters:
	//   - key: the spring to inspect
	//
	// Returns:
	//   - integrator.SpringRecord: copy of the record
	//   - bool: true if the record was available
	Record(key Key) (integrator.SpringRecord, bool)

	// Defaults returns the parameters substituted for zero SpringParams fields.
	//
	// Returns:
	//   - SpringParams: the defaults
	Defaults() SpringParams

	// SetDefaults replaces the default parameters for springs created afterwards.
	// Zero fields fall back to the built-in defaults.
	//
	// Parameters:
	//   - p: the new defaults
	SetDefaults(p SpringParams)

	// Backend returns the execution backend.
	//
	// Returns:
	//   - backend.Backend: the backend in use
	Backend() backend.Backend

	// Close detaches the frame source, cancels every live spring and releases a backend the
	// animator created itself. Animate after Close completes immediately with false.
	Close()
}

var _ Animator = &animator{}

// NewAnimator creates an idle animator.
// Without WithBackend a sequential backend is used; without WithFrameSource a 60Hz clock.Ticker.
//
// Parameters:
//   - options: functional options to configure the animator
//
// Returns:
//   - Animator: the animator
func NewAnimator(options ...AnimatorOption) Animator {
	a := &animator{
		mu:           &sync.Mutex{},
		subjects:     make(map[SubjectID]map[string]struct{}),
		defaults:     DefaultSpringParams(),
		initialSlots: slot_buffer.DefaultInitialCapacity,
		state:        StateIdle,
	}
	for _, opt := range options {
		opt(a)
	}

	a.buffer = slot_buffer.NewSlotBuffer[Key, integrator.SpringRecord, metadata](
		slot_buffer.WithInitialCapacity(a.initialSlots),
	)
	if a.source == nil {
		a.source = clock.NewTicker()
	}
	if a.backend == nil {
		// the sequential backend cannot fail to construct
		a.backend, _ = backend.NewBackend(backend.WithBackendType(backend.BackendTypeSequential))
		a.ownsBackend = true
	}

	return a
}

func (a *animator) Animate(key Key, getter Getter, setter Setter, target common.Vec4, params SpringParams, completion Completion) {
	var current common.Vec4
	hasCur := getter != nil
	if hasCur {
		current = getter()
	}
	meta := metadata{getter: getter, setter: setter, completion: completion}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		if completion != nil {
			completion(false)
		}
		return
	}
	params = params.withDefaults(a.defaults)
	if a.processing {
		a.queue = append(a.queue, animateCommand(key, current, hasCur, target, params, meta))
		a.mu.Unlock()
		return
	}
	cancelled := a.installLocked(key, current, hasCur, target, params, meta)
	a.mu.Unlock()

	if cancelled != nil {
		cancelled(false)
	}
}

func (a *animator) AnimateTo(subject SubjectID, property string, getter Getter, setter Setter, target common.Vec4, completion Completion) {
	a.Animate(Key{Subject: subject, Property: property}, getter, setter, target, SpringParams{}, completion)
}

func (a *animator) Remove(subject SubjectID, properties ...string) {
	a.mu.Lock()
	if a.processing {
		a.queue = append(a.queue, removeCommand(subject, append([]string(nil), properties...)))
		a.mu.Unlock()
		return
	}
	cancelled := a.removeLocked(subject, properties)
	a.mu.Unlock()

	fire(cancelled, false)
}

// installLocked writes a new spring for key and attaches the frame source if the animator was idle.
// Velocity of a replaced running spring carries over. Returns the replaced spring's completion.
func (a *animator) installLocked(key Key, current common.Vec4, hasCur bool, target common.Vec4, params SpringParams, meta metadata) Completion {
	rec := integrator.NewRecord(current, target, params.Stiffness, params.Damping, params.Threshold)

	var cancelled Completion
	if old, ok := a.buffer.Value(key); ok {
		if old.IsRunning() {
			rec.Velocity = old.Velocity
		}
		if !hasCur {
			rec.Position = old.Position
		}
		if oldMeta, ok := a.buffer.MetadataFor(key); ok {
			cancelled = oldMeta.completion
		}
		a.stats.Cancelled++
	}

	a.buffer.Add(key, rec, meta)
	props, ok := a.subjects[key.Subject]
	if !ok {
		props = make(map[string]struct{})
		a.subjects[key.Subject] = props
	}
	props[key.Property] = struct{}{}

	if a.state == StateIdle {
		a.state = StateActive
		a.source.Start(a.Tick)
	}
	return cancelled
}

// removeLocked drops the named springs of subject, or all of them when properties is empty.
func (a *animator) removeLocked(subject SubjectID, properties []string) []Completion {
	props, ok := a.subjects[subject]
	if !ok {
		return nil
	}
	if len(properties) == 0 {
		properties = make([]string, 0, len(props))
		for p := range props {
			properties = append(properties, p)
		}
	}

	var cancelled []Completion
	for _, p := range properties {
		key := Key{Subject: subject, Property: p}
		meta, ok := a.buffer.MetadataFor(key)
		if !ok {
			continue
		}
		a.dropLocked(key)
		a.stats.Cancelled++
		if meta.completion != nil {
			cancelled = append(cancelled, meta.completion)
		}
	}
	return cancelled
}

// dropLocked frees the slot of key and its subject index entry.
func (a *animator) dropLocked(key Key) {
	a.buffer.Remove(key)
	if props, ok := a.subjects[key.Subject]; ok {
		delete(props, key.Property)
		if len(props) == 0 {
			delete(a.subjects, key.Subject)
		}
	}
}

func (a *animator) Tick(dt float32) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.stats.Ticks++
	a.accumulated += dt

	if a.processing {
		a.stats.SkippedTicks++
		a.mu.Unlock()
		return
	}

	if a.buffer.Len() == 0 {
		a.detachLocked()
		a.mu.Unlock()
		return
	}

	a.processing = true
	a.state = StateProcessing
	a.stats.Batches++

	live := a.live[:0]
	for key, index := range a.buffer.All() {
		meta, _ := a.buffer.MetadataFor(key)
		live = append(live, liveEntry{key: key, index: index, getter: meta.getter, setter: meta.setter})
	}
	a.live = live

	a.buffer.Lock()
	records := a.buffer.Contents()
	step := a.accumulated
	a.accumulated = 0
	a.mu.Unlock()

	for _, e := range live {
		if e.getter != nil {
			records[e.index].Position = e.getter()
		}
	}

	a.backend.Process(records, step, func() {
		a.finish(records, live)
	})
}

// detachLocked stops the frame source and releases buffer storage once nothing is animating.
func (a *animator) detachLocked() {
	if a.state == StateIdle {
		return
	}
	a.source.Stop()
	a.buffer.Clear()
	a.accumulated = 0
	a.state = StateIdle
	common.Logger().Debug("animator idle, frame source detached")
}

// finish writes a completed batch back, completes converged springs and replays queued commands.
// It runs on the goroutine that ran Tick, or on the frame source's dispatch goroutine.
func (a *animator) finish(records []integrator.SpringRecord, live []liveEntry) {
	for _, e := range live {
		if e.setter != nil {
			e.setter(records[e.index].Position)
		}
	}

	a.mu.Lock()
	a.buffer.Unlock()
	var converged []Completion
	for _, e := range live {
		if records[e.index].IsRunning() {
			continue
		}
		meta, ok := a.buffer.MetadataFor(e.key)
		if !ok {
			continue
		}
		a.dropLocked(e.key)
		a.stats.Converged++
		if meta.completion != nil {
			converged = append(converged, meta.completion)
		}
	}
	a.mu.Unlock()

	// Animate and Remove from these completions are still queued.
	fire(converged, true)

	a.mu.Lock()
	queue := a.queue
	a.queue = nil
	var cancelled []Completion
	for _, c := range queue {
		cancelled = append(cancelled, c.apply(a)...)
	}
	a.stats.Replayed += uint64(len(queue))
	a.processing = false
	if a.state == StateProcessing {
		a.state = StateActive
	}
	if a.closed {
		cancelled = append(cancelled, a.cancelAllLocked()...)
	}
	a.mu.Unlock()

	if len(queue) > 0 {
		common.Logger().Debug("replayed queued commands", "count", len(queue))
	}
	fire(cancelled, false)
}

// cancelAllLocked removes every spring and detaches the frame source.
func (a *animator) cancelAllLocked() []Completion {
	var cancelled []Completion
	for subject := range a.subjects {
		cancelled = append(cancelled, a.removeLocked(subject, nil)...)
	}
	a.detachLocked()
	return cancelled
}

func (a *animator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.buffer.Len()
}

func (a *animator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *animator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.stats
	s.Live = a.buffer.Len()
	s.Capacity = a.buffer.Cap()
	return s
}

func (a *animator) Record(key Key) (integrator.SpringRecord, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.processing {
		return integrator.SpringRecord{}, false
	}
	return a.buffer.Value(key)
}

func (a *animator) Defaults() SpringParams {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.defaults
}

func (a *animator) SetDefaults(p SpringParams) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.defaults = p.withDefaults(DefaultSpringParams())
}

func (a *animator) Backend() backend.Backend {
	return a.backend
}

func (a *animator) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	var cancelled []Completion
	if a.processing {
		// finish cancels what is left once the batch is back
		a.source.Stop()
	} else {
		cancelled = a.cancelAllLocked()
	}
	a.mu.Unlock()

	fire(cancelled, false)
	if a.ownsBackend {
		a.backend.Release()
	}
}

func fire(completions []Completion, finished bool) {
	for _, c := range completions {
		c(finished)
	}
}

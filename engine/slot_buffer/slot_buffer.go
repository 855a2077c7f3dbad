package slot_buffer

import (
	"iter"

	"github.com/Carmen-Shannon/oxy-spring/common"
	"github.com/agilira/go-errors"
)

// ErrCodeBufferLocked is the error code carried by the panic raised when a locked buffer is mutated.
const ErrCodeBufferLocked = "SPRING_BUFFER_LOCKED"

// slotBuffer is the implementation of the SlotBuffer interface.
type slotBuffer[K comparable, V any, M any] struct {
	// initialCapacity is the capacity allocated on first use and after Clear.
	initialCapacity int

	// content is the contiguous backing storage. len(content) is the capacity; slots not referenced by managed are free.
	content []V

	// free is a LIFO stack of unused slot indices.
	free []int

	// managed maps every live key to its slot index.
	managed map[K]int

	// meta holds the per-key side table that never travels with content.
	meta map[K]M

	// locked is set while an external executor holds content. Any mutation in this window is a programming error.
	locked bool
}

// SlotBuffer is a key-indexed store of plain-old-data records packed into one contiguous slice.
//
// Every live key owns exactly one slot in [0, Cap()). Slots freed by Remove are reused by later Adds,
// and capacity only grows (by doubling) until Clear releases the storage. A slot index is stable from
// the Add that assigned it until the key is removed, so the backing slice can be handed to a batch
// executor and results read back by index.
//
// SlotBuffer is not safe for concurrent use; the owner serializes access.
type SlotBuffer[K comparable, V any, M any] interface {
	// Add stores value and meta under key. An existing key is overwritten in place and keeps its index.
	// A new key takes a free slot, doubling the capacity first if none is free.
	//
	// Parameters:
	//   - key: the key to store under
	//   - value: the POD record to store in the key's slot
	//   - meta: the side-table metadata for the key
	Add(key K, value V, meta M)

	// Remove releases the key's slot to the free list, zeroes it and drops its metadata.
	// Removing an absent key is a no-op.
	//
	// Parameters:
	//   - key: the key to remove
	//
	// Returns:
	//   - bool: true if the key was present
	Remove(key K) bool

	// IndexOf returns the slot index assigned to key.
	//
	// Parameters:
	//   - key: the key to look up
	//
	// Returns:
	//   - int: the slot index, or -1 if absent
	//   - bool: true if the key is live
	IndexOf(key K) (int, bool)

	// MetadataFor returns the metadata stored for key.
	//
	// Parameters:
	//   - key: the key to look up
	//
	// Returns:
	//   - M: the metadata, or the zero value if absent
	//   - bool: true if the key is live
	MetadataFor(key K) (M, bool)

	// Value returns a copy of the record stored for key.
	//
	// Parameters:
	//   - key: the key to look up
	//
	// Returns:
	//   - V: the record, or the zero value if absent
	//   - bool: true if the key is live
	Value(key K) (V, bool)

	// At returns a pointer to the record in slot index for in-place updates.
	// The pointer is invalidated by the next resize.
	//
	// Parameters:
	//   - index: the slot index, must be in [0, Cap())
	//
	// Returns:
	//   - *V: pointer into the backing storage
	At(index int) *V

	// All returns a lazy sequence of (key, index) pairs over exactly the live keys.
	// Order follows the key map, not physical slot order, and is only stable for one pass without mutation.
	//
	// Returns:
	//   - iter.Seq2[K, int]: the live (key, slot index) pairs
	All() iter.Seq2[K, int]

	// Contents returns the whole backing slice, live and free slots alike (len == Cap()).
	// Free slots are zero-valued.
	//
	// Returns:
	//   - []V: the backing storage
	Contents() []V

	// Len returns the number of live keys.
	Len() int

	// Cap returns the number of allocated slots.
	Cap() int

	// Resize grows the backing storage to size slots, preserving every existing index and appending
	// the new slots to the free list. No-op when size <= Cap().
	//
	// Parameters:
	//   - size: the new slot count
	Resize(size int)

	// Clear drops every entry and releases the backing storage. The next Add starts again from the initial capacity.
	Clear()

	// Lock marks the backing storage as leased to an external executor. Until Unlock, any call that
	// mutates the buffer panics with an ErrCodeBufferLocked error.
	Lock()

	// Unlock ends the lease taken with Lock.
	Unlock()

	// Locked reports whether the buffer is currently leased.
	Locked() bool
}

// Compile-time check that slotBuffer implements SlotBuffer.
var _ SlotBuffer[string, int, struct{}] = &slotBuffer[string, int, struct{}]{}

// NewSlotBuffer creates an empty SlotBuffer. Storage for the initial capacity is allocated eagerly.
//
// Parameters:
//   - options: functional options such as WithInitialCapacity
//
// Returns:
//   - SlotBuffer[K, V, M]: the new buffer
func NewSlotBuffer[K comparable, V any, M any](options ...SlotBufferOption) SlotBuffer[K, V, M] {
	cfg := slotBufferOptions{initialCapacity: DefaultInitialCapacity}
	for _, opt := range options {
		opt(&cfg)
	}

	b := &slotBuffer[K, V, M]{
		initialCapacity: max(cfg.initialCapacity, 1),
		managed:         make(map[K]int),
		meta:            make(map[K]M),
	}
	b.Resize(b.initialCapacity)
	return b
}

func (b *slotBuffer[K, V, M]) Add(key K, value V, meta M) {
	b.mustBeUnlocked("add")

	if i, ok := b.managed[key]; ok {
		b.content[i] = value
		b.meta[key] = meta
		return
	}

	if len(b.free) == 0 {
		b.grow(max(len(b.content)*2, b.initialCapacity))
	}

	i := b.free[len(b.free)-1]
	b.free = b.free[:len(b.free)-1]
	b.managed[key] = i
	b.meta[key] = meta
	b.content[i] = value
}

func (b *slotBuffer[K, V, M]) Remove(key K) bool {
	i, ok := b.managed[key]
	if !ok {
		return false
	}
	b.mustBeUnlocked("remove")

	var zero V
	b.content[i] = zero
	delete(b.managed, key)
	delete(b.meta, key)
	b.free = append(b.free, i)
	return true
}

func (b *slotBuffer[K, V, M]) IndexOf(key K) (int, bool) {
	i, ok := b.managed[key]
	if !ok {
		return -1, false
	}
	return i, true
}

func (b *slotBuffer[K, V, M]) MetadataFor(key K) (M, bool) {
	m, ok := b.meta[key]
	return m, ok
}

func (b *slotBuffer[K, V, M]) Value(key K) (V, bool) {
	i, ok := b.managed[key]
	if !ok {
		var zero V
		return zero, false
	}
	return b.content[i], true
}

func (b *slotBuffer[K, V, M]) At(index int) *V {
	return &b.content[index]
}

func (b *slotBuffer[K, V, M]) All() iter.Seq2[K, int] {
	return func(yield func(K, int) bool) {
		for k, i := range b.managed {
			if !yield(k, i) {
				return
			}
		}
	}
}

func (b *slotBuffer[K, V, M]) Contents() []V {
	return b.content
}

func (b *slotBuffer[K, V, M]) Len() int {
	return len(b.managed)
}

func (b *slotBuffer[K, V, M]) Cap() int {
	return len(b.content)
}

func (b *slotBuffer[K, V, M]) Resize(size int) {
	b.mustBeUnlocked("resize")
	b.grow(size)
}

// grow reallocates content to size slots and pushes the new indices onto the free list in
// descending order so the lowest new index is handed out first.
func (b *slotBuffer[K, V, M]) grow(size int) {
	oldSize := len(b.content)
	if size <= oldSize {
		return
	}

	newContent := make([]V, size)
	copy(newContent, b.content)
	b.content = newContent

	for i := size - 1; i >= oldSize; i-- {
		b.free = append(b.free, i)
	}

	if oldSize > 0 {
		common.Logger().Debug("slot buffer resized", "from", oldSize, "to", size, "live", len(b.managed))
	}
}

func (b *slotBuffer[K, V, M]) Clear() {
	b.mustBeUnlocked("clear")
	b.content = nil
	b.free = nil
	clear(b.managed)
	clear(b.meta)
	b.grow(b.initialCapacity)
}

func (b *slotBuffer[K, V, M]) Lock() {
	b.locked = true
}

func (b *slotBuffer[K, V, M]) Unlock() {
	b.locked = false
}

func (b *slotBuffer[K, V, M]) Locked() bool {
	return b.locked
}

// mustBeUnlocked panics if the buffer is leased. Mutating storage an executor is reading is never recoverable.
func (b *slotBuffer[K, V, M]) mustBeUnlocked(op string) {
	if b.locked {
		panic(errors.New(ErrCodeBufferLocked, "slot buffer "+op+" while a batch holds the storage"))
	}
}

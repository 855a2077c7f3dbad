package slot_buffer

// DefaultInitialCapacity is the slot count allocated by a new or cleared SlotBuffer.
const DefaultInitialCapacity = 2

// slotBufferOptions collects construction settings. Options are not generic so callers can share them across buffer types.
type slotBufferOptions struct {
	initialCapacity int
}

// SlotBufferOption is a functional option for configuring a SlotBuffer during construction.
type SlotBufferOption func(*slotBufferOptions)

// WithInitialCapacity sets the number of slots allocated up front and after every Clear.
// Values below 1 are treated as 1.
//
// Parameters:
//   - capacity: the initial slot count
//
// Returns:
//   - SlotBufferOption: option function to apply
func WithInitialCapacity(capacity int) SlotBufferOption {
	return func(o *slotBufferOptions) {
		o.initialCapacity = capacity
	}
}

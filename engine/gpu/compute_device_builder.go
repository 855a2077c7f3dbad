package gpu

// ComputeDeviceOption is a functional option used to configure a ComputeDevice during construction.
type ComputeDeviceOption func(*computeDeviceImpl)

// WithForceFallbackAdapter requests the software fallback adapter instead of a hardware one.
//
// Parameters:
//   - force: true to force the fallback adapter
//
// Returns:
//   - ComputeDeviceOption: a function that applies the adapter preference
func WithForceFallbackAdapter(force bool) ComputeDeviceOption {
	return func(c *computeDeviceImpl) {
		c.forceFallbackAdapter = force
	}
}

// WithLabel sets the debug label of the device.
//
// Parameters:
//   - label: the debug label
//
// Returns:
//   - ComputeDeviceOption: a function that sets the label
func WithLabel(label string) ComputeDeviceOption {
	return func(c *computeDeviceImpl) {
		c.label = label
	}
}

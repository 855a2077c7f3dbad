package display

// DisplayLinkOption is a functional option used to configure a DisplayLink during construction.
type DisplayLinkOption func(*DisplayLink)

// WithTitle sets the title of the hidden pacing window.
//
// Parameters:
//   - title: the window title
//
// Returns:
//   - DisplayLinkOption: option function to apply
func WithTitle(title string) DisplayLinkOption {
	return func(d *DisplayLink) {
		d.title = title
	}
}

// WithSwapInterval sets how many vertical blanks each frame waits for.
// 1 fires every refresh, 2 every other refresh. Values below 1 are ignored.
//
// Reference: https://www.glfw.org/docs/latest/group__context.html#ga6d4e0cdf151b5e579bd67f13202994ed
//
// Parameters:
//   - n: the swap interval
//
// Returns:
//   - DisplayLinkOption: option function to apply
func WithSwapInterval(n int) DisplayLinkOption {
	return func(d *DisplayLink) {
		if n > 0 {
			d.swapInterval = n
		}
	}
}

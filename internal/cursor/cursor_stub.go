//go:build !windows

package cursor

// WindowCenter is a no-op on platforms without host cursor control.
type WindowCenter struct{}

// ForWindow returns a recenterer that does nothing.
func ForWindow(hwnd func() uintptr) *WindowCenter {
	return &WindowCenter{}
}

// Recenter is a no-op.
func (w *WindowCenter) Recenter() {}

//go:build windows

// Package cursor repositions the host OS cursor to bound drift while
// absolute input is being translated.
package cursor

import (
	"syscall"
	"unsafe"
)

var (
	user32             = syscall.NewLazyDLL("user32.dll")
	procGetClientRect  = user32.NewProc("GetClientRect")
	procClientToScreen = user32.NewProc("ClientToScreen")
	procSetCursorPos   = user32.NewProc("SetCursorPos")
)

type rect struct {
	Left, Top, Right, Bottom int32
}

type point struct {
	X, Y int32
}

// WindowCenter recenters the cursor on a window's client rectangle. The
// handle is resolved per call because the raw input window is created
// after the decoders are wired.
type WindowCenter struct {
	hwnd func() uintptr
}

// ForWindow returns a recenterer for the window produced by hwnd.
func ForWindow(hwnd func() uintptr) *WindowCenter {
	return &WindowCenter{hwnd: hwnd}
}

// Recenter moves the host cursor to the geometric center of the window's
// client rectangle, in screen coordinates.
func (w *WindowCenter) Recenter() {
	hwnd := w.hwnd()
	if hwnd == 0 {
		return
	}

	var rc rect
	ret, _, _ := procGetClientRect.Call(hwnd, uintptr(unsafe.Pointer(&rc)))
	if ret == 0 {
		return
	}

	// Client rect left/top are always zero; the center is half the extent.
	pt := point{X: (rc.Right - rc.Left) / 2, Y: (rc.Bottom - rc.Top) / 2}
	ret, _, _ = procClientToScreen.Call(hwnd, uintptr(unsafe.Pointer(&pt)))
	if ret == 0 {
		return
	}

	procSetCursorPos.Call(uintptr(pt.X), uintptr(pt.Y))
}

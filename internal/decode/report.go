// Package decode translates raw device-level input reports into normalized
// events for the emulated keyboard and mouse. It is fed one report at a time
// from the raw input source thread and carries no cross-call state beyond
// the mouse decoder's last absolute sample.
package decode

import "sync/atomic"

// DeviceType tags a raw report with its originating device class. The
// values match the Windows RAWINPUTHEADER dwType codes.
type DeviceType uint32

const (
	DeviceMouse    DeviceType = 0
	DeviceKeyboard DeviceType = 1
	DeviceHID      DeviceType = 2
)

// RawKeyReport is a single keyboard make/break report.
type RawKeyReport struct {
	// MakeCode is the hardware scan code as reported by the OS.
	MakeCode uint16

	// E0 and E1 are the extended-prefix flags. A report carries at most
	// one of them meaningfully.
	E0 bool
	E1 bool

	// Break is true for a key release, false for a press.
	Break bool
}

// Button transition flags for RawMouseReport.ButtonFlags. Each button has a
// distinct DOWN and UP bit; these are transitions, not levels. The values
// match the Windows RI_MOUSE_* constants.
const (
	ButtonLeftDown   uint16 = 0x0001
	ButtonLeftUp     uint16 = 0x0002
	ButtonRightDown  uint16 = 0x0004
	ButtonRightUp    uint16 = 0x0008
	ButtonMiddleDown uint16 = 0x0010
	ButtonMiddleUp   uint16 = 0x0020
	Button4Down      uint16 = 0x0040
	Button4Up        uint16 = 0x0080
	Button5Down      uint16 = 0x0100
	Button5Up        uint16 = 0x0200

	// WheelPresent marks the wheel delta field as valid for this report.
	WheelPresent uint16 = 0x0400
)

// Bits of the 5-bit emulated button mask.
const (
	MaskLeft   uint8 = 0x01
	MaskRight  uint8 = 0x02
	MaskMiddle uint8 = 0x04
	Mask4      uint8 = 0x08
	Mask5      uint8 = 0x10
)

// RawMouseReport is a single mouse motion/button/wheel report.
type RawMouseReport struct {
	ButtonFlags uint16

	// WheelDelta is the raw signed notch value, valid only when
	// ButtonFlags has WheelPresent set.
	WheelDelta int16

	// Absolute selects the meaning of X and Y: absolute device-space
	// coordinates (remote-session style input) when true, relative
	// deltas when false.
	Absolute bool

	X int32
	Y int32
}

// RawReport is the opaque record handed to the dispatcher, tagged with its
// device class. Only the field matching Device is meaningful.
type RawReport struct {
	Device   DeviceType
	Keyboard RawKeyReport
	Mouse    RawMouseReport

	// HID carries the unparsed report for the external joystick/HID
	// handler.
	HID []byte
}

// KeyEvent is the normalized keyboard event.
type KeyEvent struct {
	Pressed  bool
	Scancode uint16
}

// MouseEvent is the normalized mouse event.
type MouseEvent struct {
	Buttons uint8
	Wheel   int
	DX      int
	DY      int
}

// KeySink receives normalized key events (the emulated keyboard).
type KeySink interface {
	Key(pressed bool, scancode uint16)
}

// ButtonWheelStore is the emulated mouse's button/wheel state. The decoder
// reads the current mask, modifies it and writes it back.
type ButtonWheelStore interface {
	Buttons() uint8
	SetButtons(mask uint8)
	Wheel(delta int)
}

// PointerSink receives relative motion. The motion scaling collaborator
// implements this and forwards to the emulated pointer.
type PointerSink interface {
	Move(dx, dy int)
}

// Recenterer moves the host OS cursor back to the target window's client
// rectangle center, bounding drift under absolute input.
type Recenterer interface {
	Recenter()
}

// CaptureState reports whether pointer capture is currently active. While
// inactive, decoded mouse events are discarded before reaching the sinks.
type CaptureState interface {
	Active() bool
}

// HIDHandler receives reports from devices that are neither keyboard nor
// mouse (joysticks and other HID pass-through).
type HIDHandler interface {
	HandleHID(r RawReport)
}

// CaptureFlag is an atomic CaptureState usable across goroutines (tray,
// hotkey and API all toggle it).
type CaptureFlag struct {
	v atomic.Bool
}

func (f *CaptureFlag) Active() bool { return f.v.Load() }
func (f *CaptureFlag) Set(on bool)  { f.v.Store(on) }

// Toggle flips the flag and returns the new state.
func (f *CaptureFlag) Toggle() bool {
	for {
		old := f.v.Load()
		if f.v.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

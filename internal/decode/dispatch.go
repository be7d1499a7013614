package decode

// Dispatcher routes a tagged raw report to exactly one decoder. Unknown
// device types are dropped without an event or an error.
type Dispatcher struct {
	keyboard *KeyboardDecoder
	mouse    *MouseDecoder
	hid      HIDHandler
	capture  CaptureState
}

// NewDispatcher wires the two decoders, the external HID handler and the
// pointer-capture flag. hid may be nil to drop non-keyboard/mouse reports.
func NewDispatcher(kb *KeyboardDecoder, m *MouseDecoder, hid HIDHandler, capture CaptureState) *Dispatcher {
	return &Dispatcher{keyboard: kb, mouse: m, hid: hid, capture: capture}
}

// Dispatch fully processes one report before returning. Keyboard reports
// are always decoded; mouse reports are decoded unconditionally but only
// forwarded to the emulated device while capture is active.
func (d *Dispatcher) Dispatch(r RawReport) {
	switch r.Device {
	case DeviceKeyboard:
		d.keyboard.Decode(r.Keyboard)
	case DeviceMouse:
		ev := d.mouse.Decode(r.Mouse)
		if d.capture == nil || d.capture.Active() {
			d.mouse.Forward(ev, r.Mouse.Absolute)
		}
	case DeviceHID:
		if d.hid != nil {
			d.hid.HandleHID(r)
		}
	}
}

package decode

import "sync/atomic"

// wheelNotch is the raw unit count of one wheel detent per the standard
// device convention.
const wheelNotch = 120

// DefaultAbsoluteDivisor converts absolute coordinate jumps into
// emulator-scale relative motion. Tuned against RDP-style input; other
// absolute transports may want a different value via config.
const DefaultAbsoluteDivisor = 25

// MouseDecoder converts raw button/wheel/motion reports into normalized
// mouse events. The only carried state is the last absolute sample, used
// to derive deltas for remote-session style input.
type MouseDecoder struct {
	store    ButtonWheelStore
	pointer  PointerSink
	recenter Recenterer

	// divisor is atomic because config updates write it from the API
	// goroutine while Decode runs on the input thread.
	divisor atomic.Int32

	lastX, lastY int32
	haveLast     bool
}

// NewMouseDecoder returns a decoder bound to its collaborators. recenter
// may be nil when no host cursor control is available.
func NewMouseDecoder(store ButtonWheelStore, pointer PointerSink, recenter Recenterer) *MouseDecoder {
	d := &MouseDecoder{
		store:    store,
		pointer:  pointer,
		recenter: recenter,
	}
	d.divisor.Store(DefaultAbsoluteDivisor)
	return d
}

// SetAbsoluteDivisor overrides the absolute-to-relative conversion divisor.
// Values below 1 are ignored.
func (d *MouseDecoder) SetAbsoluteDivisor(div int) {
	if div >= 1 {
		d.divisor.Store(int32(div))
	}
}

var buttonTransitions = [...]struct {
	down, up uint16
	bit      uint8
}{
	{ButtonLeftDown, ButtonLeftUp, MaskLeft},
	{ButtonRightDown, ButtonRightUp, MaskRight},
	{ButtonMiddleDown, ButtonMiddleUp, MaskMiddle},
	{Button4Down, Button4Up, Mask4},
	{Button5Down, Button5Up, Mask5},
}

// Decode computes the normalized event for one report. It reads the
// current button mask from the store and updates the last-absolute-sample
// state, but writes nothing to the sinks; pair with Forward. This split
// lets the dispatcher keep decoding while pointer capture is off without
// any state leaking into the emulated device.
func (d *MouseDecoder) Decode(r RawMouseReport) MouseEvent {
	mask := d.store.Buttons()
	for _, t := range buttonTransitions {
		if r.ButtonFlags&t.down != 0 {
			mask |= t.bit
		} else if r.ButtonFlags&t.up != 0 {
			mask &^= t.bit
		}
	}

	ev := MouseEvent{Buttons: mask}

	if r.ButtonFlags&WheelPresent != 0 {
		ev.Wheel = int(r.WheelDelta) / wheelNotch
	}

	if r.Absolute {
		// Absolute mouse, i.e. RDP or VNC. Delta against the previous
		// sample; the first sample only seeds the state.
		if d.haveLast {
			div := d.divisor.Load()
			ev.DX = int((r.X - d.lastX) / div)
			ev.DY = int((r.Y - d.lastY) / div)
		}
		d.lastX, d.lastY = r.X, r.Y
		d.haveLast = true
	} else {
		ev.DX = int(r.X)
		ev.DY = int(r.Y)
	}

	return ev
}

// Forward applies a decoded event to the collaborators: button mask write
// back, wheel push, motion through the scaler, and, for absolute reports,
// the host cursor recenter. Recentering happens last, once per absolute
// report, whether or not anything moved.
func (d *MouseDecoder) Forward(ev MouseEvent, absolute bool) {
	d.store.SetButtons(ev.Buttons)
	d.store.Wheel(ev.Wheel)
	d.pointer.Move(ev.DX, ev.DY)
	if absolute && d.recenter != nil {
		d.recenter.Recenter()
	}
}

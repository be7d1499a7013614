package decode

import (
	"sync/atomic"

	"scanbridge/internal/scancode"
)

const (
	// pauseMakeCode is the only meaningful make code in an E1 sequence.
	pauseMakeCode = 0x1D

	// extendedBit folds the E0 prefix into the canonical code.
	extendedBit = 0x100

	rctrlCanonical = 0x11D
	laltCanonical  = 0x038
)

// KeyboardDecoder converts raw make/break reports into normalized key
// events: prefix classification, remap table lookup, then emission.
// The remap table and the rctrl substitution flag are swappable at
// runtime; config updates arrive on the API goroutine while Decode runs
// on the input thread.
type KeyboardDecoder struct {
	remap       atomic.Pointer[scancode.Map]
	sink        KeySink
	rctrlIsLAlt atomic.Bool
	onProcessed func()
}

// NewKeyboardDecoder returns a decoder that emits through sink after
// translating via remap.
func NewKeyboardDecoder(remap *scancode.Map, sink KeySink) *KeyboardDecoder {
	d := &KeyboardDecoder{sink: sink}
	d.remap.Store(remap)
	return d
}

// SetRCtrlIsLAlt enables the fixed right-Ctrl to left-Alt substitution.
func (d *KeyboardDecoder) SetRCtrlIsLAlt(on bool) {
	d.rctrlIsLAlt.Store(on)
}

// SetRemap swaps in a new remap table. Subsequent reports translate
// through it; nil is ignored.
func (d *KeyboardDecoder) SetRemap(m *scancode.Map) {
	if m != nil {
		d.remap.Store(m)
	}
}

// Remap returns the active remap table.
func (d *KeyboardDecoder) Remap() *scancode.Map {
	return d.remap.Load()
}

// SetProcessedHook installs the callback notified once per non-E1 report,
// after emission logic, whether or not an event was emitted. The hotkey
// checker hangs off this.
func (d *KeyboardDecoder) SetProcessedHook(fn func()) {
	d.onProcessed = fn
}

// Decode processes one raw keyboard report. Malformed reports are dropped
// silently; the decoder carries no error state across calls.
func (d *KeyboardDecoder) Decode(r RawKeyReport) {
	remap := d.remap.Load()

	if r.E1 {
		// The E1 prefix only ever encodes the Pause sequence. E1 1D
		// canonicalizes to the reserved slot, which still goes through
		// the remap table so the user can rebind Pause. Anything else
		// under E1 is invalid and produces nothing, not even the
		// processed notification.
		if r.MakeCode != pauseMakeCode {
			return
		}
		code := remap.Lookup(scancode.PauseSlot)
		if code != scancode.Invalid {
			d.sink.Key(!r.Break, code)
		}
		return
	}

	code := r.MakeCode
	if r.E0 {
		code |= extendedBit
	}

	// Remap canonical codes; a code outside the table is passed through
	// untouched.
	if scancode.InRange(code) {
		code = remap.Lookup(code)
	}

	// Translate right Ctrl to left Alt if the user has so chosen. This
	// overrides whatever the table produced.
	if code == rctrlCanonical && d.rctrlIsLAlt.Load() {
		code = laltCanonical
	}

	if code != scancode.Invalid {
		d.sink.Key(!r.Break, code)
	}

	if d.onProcessed != nil {
		d.onProcessed()
	}
}

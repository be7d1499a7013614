// Package emulated holds the virtual keyboard and mouse state driven by
// the decode core. It is the outbound boundary: everything the decoders
// emit lands here, and the transport layer forwards from here.
package emulated

import (
	"sync"

	"scanbridge/internal/scancode"
)

// Keyboard stores per-scancode down state and republishes key events.
// Key is driven from the input-processing thread, but Reset arrives from
// the tray and API goroutines when capture is dropped, so the state is
// mutex-guarded. Callbacks fire outside the lock.
type Keyboard struct {
	mu   sync.Mutex
	down [scancode.NumCodes]bool

	// extra tracks passthrough codes outside the canonical space, which
	// the decoder forwards as-is.
	extra map[uint16]bool

	onEvent func(pressed bool, code uint16)
}

// NewKeyboard returns an emulated keyboard with all keys up.
func NewKeyboard() *Keyboard {
	return &Keyboard{extra: make(map[uint16]bool)}
}

// OnEvent installs a callback fired for every accepted key event.
func (k *Keyboard) OnEvent(fn func(pressed bool, code uint16)) {
	k.mu.Lock()
	k.onEvent = fn
	k.mu.Unlock()
}

// Key records a make or break for the given scancode.
func (k *Keyboard) Key(pressed bool, code uint16) {
	k.mu.Lock()
	if scancode.InRange(code) {
		k.down[code] = pressed
	} else if pressed {
		k.extra[code] = true
	} else {
		delete(k.extra, code)
	}
	fn := k.onEvent
	k.mu.Unlock()

	if fn != nil {
		fn(pressed, code)
	}
}

// IsDown reports whether the key with the given scancode is held.
func (k *Keyboard) IsDown(code uint16) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	if scancode.InRange(code) {
		return k.down[code]
	}
	return k.extra[code]
}

// Reset releases every key. Used when capture is dropped so the remote
// side does not end up with stuck keys. The held set is collected under
// the lock, then release events are emitted outside it.
func (k *Keyboard) Reset() {
	k.mu.Lock()
	var held []uint16
	for code := range k.down {
		if k.down[code] {
			k.down[code] = false
			held = append(held, uint16(code))
		}
	}
	for code := range k.extra {
		held = append(held, code)
		delete(k.extra, code)
	}
	fn := k.onEvent
	k.mu.Unlock()

	if fn == nil {
		return
	}
	for _, code := range held {
		fn(false, code)
	}
}

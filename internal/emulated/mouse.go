package emulated

import "sync"

// Mouse owns the emulated pointer state: the 5-bit button mask the decoder
// reads and writes back, a wheel accumulator and a position accumulator.
// The mutex only exists for the API status surface; the input path itself
// is single-threaded.
type Mouse struct {
	mu      sync.Mutex
	buttons uint8
	wheel   int
	x, y    int

	onButtons func(mask uint8)
	onWheel   func(delta int)
	onMove    func(dx, dy int)
}

// NewMouse returns an emulated mouse with no buttons held.
func NewMouse() *Mouse {
	return &Mouse{}
}

// OnButtons installs a callback fired when the button mask changes.
func (m *Mouse) OnButtons(fn func(mask uint8)) { m.onButtons = fn }

// OnWheel installs a callback fired for non-zero wheel deltas.
func (m *Mouse) OnWheel(fn func(delta int)) { m.onWheel = fn }

// OnMove installs a callback fired for non-zero motion.
func (m *Mouse) OnMove(fn func(dx, dy int)) { m.onMove = fn }

// Buttons returns the current button mask.
func (m *Mouse) Buttons() uint8 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buttons
}

// SetButtons replaces the button mask (the write half of the decoder's
// read-modify-write).
func (m *Mouse) SetButtons(mask uint8) {
	m.mu.Lock()
	changed := mask != m.buttons
	m.buttons = mask
	m.mu.Unlock()
	if changed && m.onButtons != nil {
		m.onButtons(mask)
	}
}

// Wheel accumulates a wheel delta. Zero deltas are accepted and ignored.
func (m *Mouse) Wheel(delta int) {
	if delta == 0 {
		return
	}
	m.mu.Lock()
	m.wheel += delta
	m.mu.Unlock()
	if m.onWheel != nil {
		m.onWheel(delta)
	}
}

// Move accumulates relative motion.
func (m *Mouse) Move(dx, dy int) {
	if dx == 0 && dy == 0 {
		return
	}
	m.mu.Lock()
	m.x += dx
	m.y += dy
	m.mu.Unlock()
	if m.onMove != nil {
		m.onMove(dx, dy)
	}
}

// State returns the button mask and accumulated position for status
// reporting.
func (m *Mouse) State() (buttons uint8, x, y int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buttons, m.x, m.y
}

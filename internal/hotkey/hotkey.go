// Package hotkey matches configured key combos against the emulated
// keyboard's down state. The checker is notified once per processed
// keyboard report and fires its callback on the edge where the full combo
// becomes held.
package hotkey

import (
	"fmt"
	"strings"
	"sync"
)

// KeyState exposes the emulated keyboard's held-key query.
type KeyState interface {
	IsDown(code uint16) bool
}

// Checker watches for one combo, e.g. "LCtrl+LAlt+PgUp".
type Checker struct {
	mu       sync.Mutex
	combo    []uint16
	original string
	callback func()
	held     bool
}

// NewChecker returns a checker with no combo bound; Check is a no-op until
// SetCombo succeeds.
func NewChecker() *Checker {
	return &Checker{}
}

// SetCombo parses and installs a combo string. Parts are separated by '+'
// and matched case-insensitively against the key name table. An empty
// string clears the combo.
func (c *Checker) SetCombo(combo string) error {
	if combo == "" {
		c.mu.Lock()
		c.combo = nil
		c.original = ""
		c.mu.Unlock()
		return nil
	}

	parts := strings.Split(strings.ToUpper(combo), "+")
	codes := make([]uint16, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		code, ok := keyNames[p]
		if !ok {
			return fmt.Errorf("hotkey: unknown key name %q in %q", p, combo)
		}
		codes = append(codes, code)
	}

	c.mu.Lock()
	c.combo = codes
	c.original = combo
	c.held = false
	c.mu.Unlock()
	return nil
}

// SetCallback installs the function fired when the combo is pressed.
func (c *Checker) SetCallback(fn func()) {
	c.mu.Lock()
	c.callback = fn
	c.mu.Unlock()
}

// Check evaluates the combo against keys. Called once per processed
// keyboard report; fires the callback once per press-and-hold.
func (c *Checker) Check(keys KeyState) {
	c.mu.Lock()
	combo := c.combo
	cb := c.callback
	c.mu.Unlock()

	if len(combo) == 0 {
		return
	}

	all := true
	for _, code := range combo {
		if !keys.IsDown(code) {
			all = false
			break
		}
	}

	c.mu.Lock()
	fire := all && !c.held && cb != nil
	c.held = all
	c.mu.Unlock()

	if fire {
		cb()
	}
}

// Combo returns the installed combo string.
func (c *Checker) Combo() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.original
}

// keyNames maps combo part names to canonical scan codes (set 1, with the
// extended bit folded in as 0x100).
var keyNames = map[string]uint16{
	"ESC": 0x001, "1": 0x002, "2": 0x003, "3": 0x004, "4": 0x005,
	"5": 0x006, "6": 0x007, "7": 0x008, "8": 0x009, "9": 0x00A,
	"0": 0x00B, "MINUS": 0x00C, "EQUAL": 0x00D, "BACKSPACE": 0x00E,
	"TAB": 0x00F,
	"Q":   0x010, "W": 0x011, "E": 0x012, "R": 0x013, "T": 0x014,
	"Y": 0x015, "U": 0x016, "I": 0x017, "O": 0x018, "P": 0x019,
	"ENTER": 0x01C, "LCTRL": 0x01D,
	"A": 0x01E, "S": 0x01F, "D": 0x020, "F": 0x021, "G": 0x022,
	"H": 0x023, "J": 0x024, "K": 0x025, "L": 0x026,
	"LSHIFT": 0x02A,
	"Z":      0x02C, "X": 0x02D, "C": 0x02E, "V": 0x02F, "B": 0x030,
	"N": 0x031, "M": 0x032,
	"RSHIFT": 0x036, "LALT": 0x038, "SPACE": 0x039, "CAPSLOCK": 0x03A,
	"F1": 0x03B, "F2": 0x03C, "F3": 0x03D, "F4": 0x03E, "F5": 0x03F,
	"F6": 0x040, "F7": 0x041, "F8": 0x042, "F9": 0x043, "F10": 0x044,
	"F11": 0x057, "F12": 0x058,
	"PAUSE": 0x100, "RCTRL": 0x11D, "RALT": 0x138,
	"HOME": 0x147, "UP": 0x148, "PGUP": 0x149, "LEFT": 0x14B,
	"RIGHT": 0x14D, "END": 0x14F, "DOWN": 0x150, "PGDN": 0x151,
	"INS": 0x152, "DEL": 0x153, "LWIN": 0x15B, "RWIN": 0x15C,
}

// Package scancode implements the 9-bit canonical scan code space and the
// user-configurable remap table consulted by the keyboard decoder.
package scancode

import (
	"fmt"
	"strconv"
)

const (
	// NumCodes is the size of the canonical code space: a raw make code
	// with the extended (E0) bit folded in is always below 0x200.
	NumCodes = 0x200

	// PauseSlot is the reserved canonical code for the E1 1D (Pause)
	// sequence. It corresponds to E0 00, which no keyboard produces, so
	// the slot is free for this one special case.
	PauseSlot = 0x100

	// Invalid marks a mapping that must never reach the emulated
	// keyboard. A remap entry may use it to disable a key outright.
	Invalid = 0xFFFF
)

// InRange reports whether code indexes into the canonical table.
func InRange(code uint16) bool {
	return code < NumCodes
}

// Map is the remap table, identity by default. Index and value are both
// canonical codes, except for the Invalid sentinel.
type Map struct {
	table [NumCodes]uint16
}

// NewMap returns an identity map: every code translates to itself.
func NewMap() *Map {
	m := &Map{}
	for i := range m.table {
		m.table[i] = uint16(i)
	}
	return m
}

// Set installs a single remap entry. The source must be a canonical code;
// the target may additionally be Invalid to suppress the key.
func (m *Map) Set(from, to uint16) error {
	if !InRange(from) {
		return fmt.Errorf("scancode: remap source 0x%03X out of range", from)
	}
	if !InRange(to) && to != Invalid {
		return fmt.Errorf("scancode: remap target 0x%03X out of range", to)
	}
	m.table[from] = to
	return nil
}

// Lookup translates a canonical code through the table. Codes outside the
// table are treated as already canonical and returned unchanged.
func (m *Map) Lookup(code uint16) uint16 {
	if !InRange(code) {
		return code
	}
	return m.table[code]
}

// Remapped returns the number of non-identity entries.
func (m *Map) Remapped() int {
	n := 0
	for i, v := range m.table {
		if v != uint16(i) {
			n++
		}
	}
	return n
}

// ParseEntries builds a Map from config remap entries. Keys and values are
// numeric strings, typically hex ("0x11D": "0x038").
func ParseEntries(entries map[string]string) (*Map, error) {
	m := NewMap()
	for k, v := range entries {
		from, err := parseCode(k)
		if err != nil {
			return nil, fmt.Errorf("scancode: bad remap source %q: %w", k, err)
		}
		to, err := parseCode(v)
		if err != nil {
			return nil, fmt.Errorf("scancode: bad remap target %q: %w", v, err)
		}
		if err := m.Set(from, to); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func parseCode(s string) (uint16, error) {
	n, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, err
	}
	return uint16(n), nil
}

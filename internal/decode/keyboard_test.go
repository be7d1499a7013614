package decode

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scanbridge/internal/scancode"
)

type recordingSink struct {
	events []KeyEvent
}

func (s *recordingSink) Key(pressed bool, code uint16) {
	s.events = append(s.events, KeyEvent{Pressed: pressed, Scancode: code})
}

func TestKeyboardPlainKey(t *testing.T) {
	sink := &recordingSink{}
	d := NewKeyboardDecoder(scancode.NewMap(), sink)

	d.Decode(RawKeyReport{MakeCode: 0x1E}) // A make
	d.Decode(RawKeyReport{MakeCode: 0x1E, Break: true})

	require.Len(t, sink.events, 2)
	assert.Equal(t, KeyEvent{Pressed: true, Scancode: 0x01E}, sink.events[0])
	assert.Equal(t, KeyEvent{Pressed: false, Scancode: 0x01E}, sink.events[1])
}

func TestKeyboardE0FoldsExtendedBit(t *testing.T) {
	sink := &recordingSink{}
	d := NewKeyboardDecoder(scancode.NewMap(), sink)

	d.Decode(RawKeyReport{MakeCode: 0x1D, E0: true}) // right Ctrl

	require.Len(t, sink.events, 1)
	assert.Equal(t, uint16(0x11D), sink.events[0].Scancode)
}

func TestKeyboardE1PauseUsesReservedSlot(t *testing.T) {
	sink := &recordingSink{}
	d := NewKeyboardDecoder(scancode.NewMap(), sink)

	d.Decode(RawKeyReport{MakeCode: 0x1D, E1: true})

	require.Len(t, sink.events, 1)
	assert.Equal(t, uint16(scancode.PauseSlot), sink.events[0].Scancode)
}

func TestKeyboardE1PauseRespectsRemap(t *testing.T) {
	m := scancode.NewMap()
	require.NoError(t, m.Set(scancode.PauseSlot, 0x01D))

	sink := &recordingSink{}
	d := NewKeyboardDecoder(m, sink)

	d.Decode(RawKeyReport{MakeCode: 0x1D, E1: true})

	require.Len(t, sink.events, 1)
	assert.Equal(t, uint16(0x01D), sink.events[0].Scancode)
}

func TestKeyboardE1NonPauseDropped(t *testing.T) {
	sink := &recordingSink{}
	d := NewKeyboardDecoder(scancode.NewMap(), sink)

	hooked := 0
	d.SetProcessedHook(func() { hooked++ })

	d.Decode(RawKeyReport{MakeCode: 0x45, E1: true})

	assert.Empty(t, sink.events)
	assert.Zero(t, hooked, "invalid E1 report must not notify the hook")
}

func TestKeyboardRemapApplies(t *testing.T) {
	m := scancode.NewMap()
	require.NoError(t, m.Set(0x03A, 0x01D)) // CapsLock -> left Ctrl

	sink := &recordingSink{}
	d := NewKeyboardDecoder(m, sink)

	d.Decode(RawKeyReport{MakeCode: 0x3A})

	require.Len(t, sink.events, 1)
	assert.Equal(t, uint16(0x01D), sink.events[0].Scancode)
}

func TestKeyboardRemapToInvalidSuppresses(t *testing.T) {
	m := scancode.NewMap()
	require.NoError(t, m.Set(0x15B, scancode.Invalid)) // disable left Win

	sink := &recordingSink{}
	d := NewKeyboardDecoder(m, sink)

	hooked := 0
	d.SetProcessedHook(func() { hooked++ })

	d.Decode(RawKeyReport{MakeCode: 0x5B, E0: true})

	assert.Empty(t, sink.events)
	assert.Equal(t, 1, hooked, "suppressed key still counts as processed")
}

func TestKeyboardOutOfRangePassthrough(t *testing.T) {
	sink := &recordingSink{}
	d := NewKeyboardDecoder(scancode.NewMap(), sink)

	d.Decode(RawKeyReport{MakeCode: 0x2F0})

	require.Len(t, sink.events, 1)
	assert.Equal(t, uint16(0x2F0), sink.events[0].Scancode)
}

func TestKeyboardRCtrlIsLAlt(t *testing.T) {
	sink := &recordingSink{}
	d := NewKeyboardDecoder(scancode.NewMap(), sink)
	d.SetRCtrlIsLAlt(true)

	d.Decode(RawKeyReport{MakeCode: 0x1D, E0: true})
	d.Decode(RawKeyReport{MakeCode: 0x1D}) // plain left Ctrl unaffected

	require.Len(t, sink.events, 2)
	assert.Equal(t, uint16(0x038), sink.events[0].Scancode)
	assert.Equal(t, uint16(0x01D), sink.events[1].Scancode)
}

func TestKeyboardRCtrlOverrideBeatsRemap(t *testing.T) {
	m := scancode.NewMap()
	require.NoError(t, m.Set(0x03A, 0x11D)) // CapsLock -> right Ctrl

	sink := &recordingSink{}
	d := NewKeyboardDecoder(m, sink)
	d.SetRCtrlIsLAlt(true)

	d.Decode(RawKeyReport{MakeCode: 0x3A})

	require.Len(t, sink.events, 1)
	assert.Equal(t, uint16(0x038), sink.events[0].Scancode,
		"substitution applies to the remapped code, not the raw one")
}

func TestKeyboardProcessedHookFiresPerReport(t *testing.T) {
	sink := &recordingSink{}
	d := NewKeyboardDecoder(scancode.NewMap(), sink)

	hooked := 0
	d.SetProcessedHook(func() { hooked++ })

	d.Decode(RawKeyReport{MakeCode: 0x1E})
	d.Decode(RawKeyReport{MakeCode: 0x1E, Break: true})
	d.Decode(RawKeyReport{MakeCode: 0x1D, E1: true}) // E1 path skips the hook

	assert.Equal(t, 2, hooked)
}

func TestKeyboardRemapSwapTakesEffect(t *testing.T) {
	sink := &recordingSink{}
	d := NewKeyboardDecoder(scancode.NewMap(), sink)

	d.Decode(RawKeyReport{MakeCode: 0x3A})
	require.Len(t, sink.events, 1)
	assert.Equal(t, uint16(0x03A), sink.events[0].Scancode)

	m := scancode.NewMap()
	require.NoError(t, m.Set(0x03A, 0x01D))
	d.SetRemap(m)

	d.Decode(RawKeyReport{MakeCode: 0x3A})
	require.Len(t, sink.events, 2)
	assert.Equal(t, uint16(0x01D), sink.events[1].Scancode)
	assert.Equal(t, 1, d.Remap().Remapped())

	d.SetRemap(nil) // ignored
	assert.Equal(t, 1, d.Remap().Remapped())
}

// Remap table and rctrl flag are swapped from the API goroutine while
// reports decode on the input thread.
func TestKeyboardConfigSwapDuringDecode(t *testing.T) {
	sink := &recordingSink{}
	d := NewKeyboardDecoder(scancode.NewMap(), sink)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
				d.SetRemap(scancode.NewMap())
				d.SetRCtrlIsLAlt(true)
				d.SetRCtrlIsLAlt(false)
			}
		}
	}()

	for i := 0; i < 1000; i++ {
		d.Decode(RawKeyReport{MakeCode: 0x1D, E0: true})
		d.Decode(RawKeyReport{MakeCode: 0x1D, E0: true, Break: true})
	}
	close(done)
	wg.Wait()

	assert.Len(t, sink.events, 2000)
}

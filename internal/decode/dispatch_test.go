package decode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scanbridge/internal/scancode"
)

type fakeHID struct {
	reports []RawReport
}

func (h *fakeHID) HandleHID(r RawReport) { h.reports = append(h.reports, r) }

func newTestDispatcher(capture CaptureState) (*Dispatcher, *recordingSink, *fakeStore, *fakePointer, *fakeHID) {
	sink := &recordingSink{}
	store := &fakeStore{}
	pointer := &fakePointer{}
	hid := &fakeHID{}

	kb := NewKeyboardDecoder(scancode.NewMap(), sink)
	m := NewMouseDecoder(store, pointer, nil)
	return NewDispatcher(kb, m, hid, capture), sink, store, pointer, hid
}

func TestDispatchRoutesByDevice(t *testing.T) {
	flag := &CaptureFlag{}
	flag.Set(true)
	d, sink, store, _, hid := newTestDispatcher(flag)

	d.Dispatch(RawReport{Device: DeviceKeyboard, Keyboard: RawKeyReport{MakeCode: 0x1E}})
	d.Dispatch(RawReport{Device: DeviceMouse, Mouse: RawMouseReport{ButtonFlags: ButtonLeftDown}})
	d.Dispatch(RawReport{Device: DeviceHID})

	require.Len(t, sink.events, 1)
	assert.Equal(t, []uint8{MaskLeft}, store.sets)
	assert.Len(t, hid.reports, 1)
}

func TestDispatchUnknownDeviceDropped(t *testing.T) {
	d, sink, store, pointer, hid := newTestDispatcher(nil)

	d.Dispatch(RawReport{Device: DeviceType(7)})

	assert.Empty(t, sink.events)
	assert.Empty(t, store.sets)
	assert.Empty(t, pointer.moves)
	assert.Empty(t, hid.reports)
}

func TestDispatchCaptureGatesMouseOnly(t *testing.T) {
	flag := &CaptureFlag{}
	d, sink, store, pointer, _ := newTestDispatcher(flag)

	d.Dispatch(RawReport{Device: DeviceKeyboard, Keyboard: RawKeyReport{MakeCode: 0x1E}})
	d.Dispatch(RawReport{Device: DeviceMouse, Mouse: RawMouseReport{X: 5, Y: 5, ButtonFlags: ButtonLeftDown}})

	assert.Len(t, sink.events, 1, "keyboard reports bypass the capture gate")
	assert.Empty(t, store.sets, "gated mouse reports must not touch the store")
	assert.Empty(t, pointer.moves, "gated mouse reports must not move the pointer")
}

func TestDispatchDecodesWhileGated(t *testing.T) {
	flag := &CaptureFlag{}
	d, _, store, pointer, _ := newTestDispatcher(flag)

	// Absolute samples seed decoder state even while capture is off, so
	// the first event after enabling capture carries a correct delta.
	d.Dispatch(RawReport{Device: DeviceMouse, Mouse: RawMouseReport{Absolute: true, X: 1000, Y: 1000}})

	flag.Set(true)
	d.Dispatch(RawReport{Device: DeviceMouse, Mouse: RawMouseReport{Absolute: true, X: 1050, Y: 1000}})

	require.Len(t, pointer.moves, 1)
	assert.Equal(t, [2]int{2, 0}, pointer.moves[0])
	assert.Equal(t, []uint8{0}, store.sets)
}

func TestCaptureFlagToggle(t *testing.T) {
	flag := &CaptureFlag{}

	assert.False(t, flag.Active())
	assert.True(t, flag.Toggle())
	assert.True(t, flag.Active())
	assert.False(t, flag.Toggle())
	assert.False(t, flag.Active())
}

package decode

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeStore struct {
	mask   uint8
	sets   []uint8
	wheels []int
}

func (s *fakeStore) Buttons() uint8 { return s.mask }
func (s *fakeStore) SetButtons(mask uint8) {
	s.mask = mask
	s.sets = append(s.sets, mask)
}
func (s *fakeStore) Wheel(delta int) { s.wheels = append(s.wheels, delta) }

type fakePointer struct {
	moves [][2]int
}

func (p *fakePointer) Move(dx, dy int) { p.moves = append(p.moves, [2]int{dx, dy}) }

type fakeRecenter struct {
	calls int
}

func (r *fakeRecenter) Recenter() { r.calls++ }

func TestMouseButtonTransitions(t *testing.T) {
	store := &fakeStore{}
	d := NewMouseDecoder(store, &fakePointer{}, nil)

	ev := d.Decode(RawMouseReport{ButtonFlags: ButtonLeftDown})
	assert.Equal(t, MaskLeft, ev.Buttons)

	store.mask = ev.Buttons
	ev = d.Decode(RawMouseReport{ButtonFlags: ButtonRightDown})
	assert.Equal(t, MaskLeft|MaskRight, ev.Buttons)

	store.mask = ev.Buttons
	ev = d.Decode(RawMouseReport{ButtonFlags: ButtonLeftUp})
	assert.Equal(t, MaskRight, ev.Buttons, "release must not disturb other buttons")
}

func TestMouseSimultaneousTransitions(t *testing.T) {
	store := &fakeStore{mask: MaskLeft}
	d := NewMouseDecoder(store, &fakePointer{}, nil)

	ev := d.Decode(RawMouseReport{ButtonFlags: ButtonLeftUp | Button5Down})
	assert.Equal(t, Mask5, ev.Buttons)
}

func TestMouseWheelNotches(t *testing.T) {
	d := NewMouseDecoder(&fakeStore{}, &fakePointer{}, nil)

	ev := d.Decode(RawMouseReport{ButtonFlags: WheelPresent, WheelDelta: 240})
	assert.Equal(t, 2, ev.Wheel)

	ev = d.Decode(RawMouseReport{ButtonFlags: WheelPresent, WheelDelta: -120})
	assert.Equal(t, -1, ev.Wheel)

	// Delta field ignored without the flag.
	ev = d.Decode(RawMouseReport{WheelDelta: 120})
	assert.Equal(t, 0, ev.Wheel)
}

func TestMouseRelativePassthrough(t *testing.T) {
	d := NewMouseDecoder(&fakeStore{}, &fakePointer{}, nil)

	ev := d.Decode(RawMouseReport{X: 7, Y: -3})
	assert.Equal(t, 7, ev.DX)
	assert.Equal(t, -3, ev.DY)
}

func TestMouseAbsoluteFirstSampleSeedsOnly(t *testing.T) {
	d := NewMouseDecoder(&fakeStore{}, &fakePointer{}, nil)

	ev := d.Decode(RawMouseReport{Absolute: true, X: 1000, Y: 1000})
	assert.Equal(t, 0, ev.DX)
	assert.Equal(t, 0, ev.DY)
}

func TestMouseAbsoluteDelta(t *testing.T) {
	d := NewMouseDecoder(&fakeStore{}, &fakePointer{}, nil)

	d.Decode(RawMouseReport{Absolute: true, X: 1000, Y: 1000})
	ev := d.Decode(RawMouseReport{Absolute: true, X: 1050, Y: 975})

	assert.Equal(t, 2, ev.DX)  // 50 / 25
	assert.Equal(t, -1, ev.DY) // -25 / 25
}

func TestMouseAbsoluteDivisorConfigurable(t *testing.T) {
	d := NewMouseDecoder(&fakeStore{}, &fakePointer{}, nil)
	d.SetAbsoluteDivisor(10)

	d.Decode(RawMouseReport{Absolute: true, X: 0, Y: 0})
	ev := d.Decode(RawMouseReport{Absolute: true, X: 100, Y: -50})

	assert.Equal(t, 10, ev.DX)
	assert.Equal(t, -5, ev.DY)

	// Values below 1 are rejected.
	d.SetAbsoluteDivisor(0)
	ev = d.Decode(RawMouseReport{Absolute: true, X: 200, Y: -50})
	assert.Equal(t, 10, ev.DX)
}

func TestMouseAbsoluteTruncatesTowardZero(t *testing.T) {
	d := NewMouseDecoder(&fakeStore{}, &fakePointer{}, nil)

	d.Decode(RawMouseReport{Absolute: true, X: 0, Y: 0})
	ev := d.Decode(RawMouseReport{Absolute: true, X: 24, Y: -24})

	assert.Equal(t, 0, ev.DX)
	assert.Equal(t, 0, ev.DY)
}

func TestMouseForwardWritesSinks(t *testing.T) {
	store := &fakeStore{}
	pointer := &fakePointer{}
	recenter := &fakeRecenter{}
	d := NewMouseDecoder(store, pointer, recenter)

	d.Forward(MouseEvent{Buttons: MaskLeft, Wheel: 1, DX: 4, DY: 5}, false)

	assert.Equal(t, []uint8{MaskLeft}, store.sets)
	assert.Equal(t, []int{1}, store.wheels)
	assert.Equal(t, [][2]int{{4, 5}}, pointer.moves)
	assert.Zero(t, recenter.calls, "relative reports must not recenter")
}

func TestMouseForwardRecentersOnAbsolute(t *testing.T) {
	recenter := &fakeRecenter{}
	d := NewMouseDecoder(&fakeStore{}, &fakePointer{}, recenter)

	d.Forward(MouseEvent{}, true)
	d.Forward(MouseEvent{DX: 3}, true)

	assert.Equal(t, 2, recenter.calls, "one recenter per absolute report, moved or not")
}

// The divisor is updated from the API goroutine while reports decode on
// the input thread.
func TestMouseDivisorUpdateDuringDecode(t *testing.T) {
	d := NewMouseDecoder(&fakeStore{}, &fakePointer{}, nil)

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
				d.SetAbsoluteDivisor(10)
				d.SetAbsoluteDivisor(25)
			}
		}
	}()

	d.Decode(RawMouseReport{Absolute: true})
	for i := 1; i <= 1000; i++ {
		d.Decode(RawMouseReport{Absolute: true, X: int32(i * 100), Y: int32(i * 100)})
	}
	close(done)
	wg.Wait()
}

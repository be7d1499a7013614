// Package scale applies the user's pointer sensitivity to relative motion
// before it reaches the emulated pointer.
package scale

import (
	"math"
	"sync/atomic"
)

// Pointer is the downstream motion target.
type Pointer interface {
	Move(dx, dy int)
}

// Scaler multiplies motion by a sensitivity factor. A factor of 1.0 passes
// deltas through unchanged; fractional results truncate toward zero. The
// factor is stored atomically because config updates write it from the
// API goroutine while Move runs on the input thread.
type Scaler struct {
	dst    Pointer
	factor atomic.Uint64
}

// New returns a scaler forwarding to dst. Non-positive sensitivity falls
// back to 1.0.
func New(dst Pointer, sensitivity float64) *Scaler {
	s := &Scaler{dst: dst}
	s.factor.Store(math.Float64bits(1.0))
	s.SetSensitivity(sensitivity)
	return s
}

// SetSensitivity updates the factor. Non-positive values are ignored.
func (s *Scaler) SetSensitivity(v float64) {
	if v > 0 {
		s.factor.Store(math.Float64bits(v))
	}
}

// Move scales and forwards one motion sample.
func (s *Scaler) Move(dx, dy int) {
	f := math.Float64frombits(s.factor.Load())
	if f == 1.0 {
		s.dst.Move(dx, dy)
		return
	}
	s.dst.Move(int(float64(dx)*f), int(float64(dy)*f))
}

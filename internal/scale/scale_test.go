package scale

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type sinkPointer struct {
	moves [][2]int
}

func (p *sinkPointer) Move(dx, dy int) { p.moves = append(p.moves, [2]int{dx, dy}) }

func TestUnityFactorPassthrough(t *testing.T) {
	dst := &sinkPointer{}
	s := New(dst, 1.0)

	s.Move(5, -7)

	assert.Equal(t, [][2]int{{5, -7}}, dst.moves)
}

func TestScalingTruncates(t *testing.T) {
	dst := &sinkPointer{}
	s := New(dst, 0.5)

	s.Move(5, -5)

	assert.Equal(t, [][2]int{{2, -2}}, dst.moves)
}

func TestAmplification(t *testing.T) {
	dst := &sinkPointer{}
	s := New(dst, 2.5)

	s.Move(4, 1)

	assert.Equal(t, [][2]int{{10, 2}}, dst.moves)
}

func TestNonPositiveSensitivityIgnored(t *testing.T) {
	dst := &sinkPointer{}
	s := New(dst, -1.0)

	s.Move(3, 3)
	assert.Equal(t, [][2]int{{3, 3}}, dst.moves)

	s.SetSensitivity(0)
	s.Move(3, 3)
	assert.Equal(t, [2]int{3, 3}, dst.moves[1])
}

// Sensitivity is updated from the API goroutine while motion flows on
// the input thread.
func TestSensitivityUpdateDuringMotion(t *testing.T) {
	dst := &sinkPointer{}
	s := New(dst, 1.0)

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
				s.SetSensitivity(2.0)
				s.SetSensitivity(0.5)
			}
		}
	}()

	for i := 0; i < 1000; i++ {
		s.Move(10, 10)
	}
	close(done)
	wg.Wait()

	assert.Len(t, dst.moves, 1000)
}

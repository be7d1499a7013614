//go:build !windows

package rawinput

import (
	"fmt"

	"github.com/rs/zerolog"

	"scanbridge/internal/decode"
)

// Dispatcher consumes one raw device report per input message.
type Dispatcher interface {
	Dispatch(r decode.RawReport)
}

// Source is unavailable off Windows; Start always fails.
type Source struct {
	handler Dispatcher
	log     zerolog.Logger
}

// NewSource returns an unstarted source feeding handler.
func NewSource(handler Dispatcher, log zerolog.Logger) *Source {
	return &Source{handler: handler, log: log}
}

// WindowHandle returns 0.
func (s *Source) WindowHandle() uintptr { return 0 }

// Start reports that raw input capture is unsupported on this platform.
func (s *Source) Start() error {
	return fmt.Errorf("rawinput: not supported on this platform")
}

// Stop is a no-op.
func (s *Source) Stop() {}

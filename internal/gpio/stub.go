//go:build !linux

package gpio

import (
	"errors"

	"github.com/sweeney/blinkcheck/internal/logic"
)

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealLines is not available on non-Linux platforms.
type RealLines struct{}

// NewRealLines returns an error on non-Linux platforms.
func NewRealLines(chipName string, inputs, outputs []int, pullUp bool, idle logic.Level) (*RealLines, error) {
	return nil, errUnsupported
}

// Read is not implemented on non-Linux platforms.
func (r *RealLines) Read(pin int) (logic.Level, error) {
	return logic.Low, &ReadError{Pin: pin, Err: errUnsupported}
}

// Write is not implemented on non-Linux platforms.
func (r *RealLines) Write(pin int, level logic.Level) error {
	return errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (r *RealLines) Close() error {
	return nil
}

// RPIOLines is not available on non-Linux platforms.
type RPIOLines struct{}

// NewRPIOLines returns an error on non-Linux platforms.
func NewRPIOLines(inputs, outputs []int, pullUp bool, idle logic.Level) (*RPIOLines, error) {
	return nil, errUnsupported
}

// Read is not implemented on non-Linux platforms.
func (r *RPIOLines) Read(pin int) (logic.Level, error) {
	return logic.Low, &ReadError{Pin: pin, Err: errUnsupported}
}

// Write is not implemented on non-Linux platforms.
func (r *RPIOLines) Write(pin int, level logic.Level) error {
	return errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (r *RPIOLines) Close() error {
	return nil
}

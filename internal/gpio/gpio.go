// Package gpio provides GPIO line access with hardware abstraction.
// The cdev implementation uses the Linux GPIO character device, the rpio
// implementation uses memory-mapped registers on a Raspberry Pi, and the fake
// implementation allows testing without hardware.
package gpio

import (
	"errors"
	"fmt"

	"github.com/sweeney/blinkcheck/internal/logic"
)

// Lines reads and writes GPIO lines by BCM number.
type Lines interface {
	// Read returns the current level of the pin.
	// Failures are returned as *ReadError.
	Read(pin int) (logic.Level, error)

	// Write drives an output pin to the given level.
	Write(pin int, level logic.Level) error

	// Close releases GPIO resources.
	Close() error
}

// Pin definitions (BCM numbering)
const (
	PinLED    = 17
	PinButton = 27
)

// ReadError reports that a line could not be sampled.
type ReadError struct {
	Pin int
	Err error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read pin %d: %v", e.Pin, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// IsReadError reports whether err is, or wraps, a *ReadError.
func IsReadError(err error) bool {
	var re *ReadError
	return errors.As(err, &re)
}

// Backend selects a Lines implementation.
type Backend string

const (
	BackendCdev Backend = "cdev"
	BackendRPIO Backend = "rpio"
	BackendFake Backend = "fake"
)

// Options configures Open.
type Options struct {
	Backend Backend
	Chip    string // cdev only, e.g. "gpiochip0"
	Inputs  []int
	Outputs []int
	PullUp  bool // bias inputs high (active-low buttons)
	// Idle is the level outputs are requested at. Empty means LOW.
	Idle logic.Level
}

// Open requests the configured lines from the selected backend.
func Open(opts Options) (Lines, error) {
	idle := opts.Idle
	if idle == "" {
		idle = logic.Low
	}
	switch opts.Backend {
	case BackendCdev, "":
		chip := opts.Chip
		if chip == "" {
			chip = "gpiochip0"
		}
		r, err := NewRealLines(chip, opts.Inputs, opts.Outputs, opts.PullUp, idle)
		if err != nil {
			return nil, err
		}
		return r, nil
	case BackendRPIO:
		r, err := NewRPIOLines(opts.Inputs, opts.Outputs, opts.PullUp, idle)
		if err != nil {
			return nil, err
		}
		return r, nil
	case BackendFake:
		f := NewFakeLines()
		if opts.PullUp {
			for _, p := range opts.Inputs {
				f.Set(p, logic.High)
			}
		}
		for _, p := range opts.Outputs {
			f.Set(p, idle)
		}
		return f, nil
	}
	return nil, fmt.Errorf("gpio: unknown backend %q", opts.Backend)
}

//go:build linux

package gpio

import (
	"fmt"
	"log"

	"github.com/stianeikeland/go-rpio/v4"

	"github.com/sweeney/blinkcheck/internal/logic"
)

// RPIOLines drives GPIO through memory-mapped registers using go-rpio.
// Requires running on a Raspberry Pi with access to /dev/gpiomem or as root.
type RPIOLines struct {
	pins map[int]rpio.Pin
}

// NewRPIOLines maps GPIO memory and configures the given pins.
// Outputs start at the idle level.
func NewRPIOLines(inputs, outputs []int, pullUp bool, idle logic.Level) (*RPIOLines, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("open gpio memory: %w (are you running on a Raspberry Pi?)", err)
	}

	r := &RPIOLines{pins: make(map[int]rpio.Pin)}
	for _, pin := range inputs {
		p := rpio.Pin(pin)
		p.Input()
		if pullUp {
			p.PullUp()
		}
		r.pins[pin] = p
	}
	for _, pin := range outputs {
		p := rpio.Pin(pin)
		p.Output()
		r.pins[pin] = p
		r.Write(pin, idle)
	}
	return r, nil
}

// Read returns the level of a configured pin.
func (r *RPIOLines) Read(pin int) (logic.Level, error) {
	p, ok := r.pins[pin]
	if !ok {
		return logic.Low, &ReadError{Pin: pin, Err: fmt.Errorf("pin not configured")}
	}
	if p.Read() == rpio.High {
		return logic.High, nil
	}
	return logic.Low, nil
}

// Write drives a configured pin.
func (r *RPIOLines) Write(pin int, level logic.Level) error {
	p, ok := r.pins[pin]
	if !ok {
		return fmt.Errorf("write pin %d: pin not configured", pin)
	}
	if level == logic.High {
		p.High()
	} else {
		p.Low()
	}
	return nil
}

// Close resets all pins to input (safe state) and unmaps GPIO memory.
func (r *RPIOLines) Close() error {
	for pin, p := range r.pins {
		log.Printf("gpio: resetting pin %d to input", pin)
		p.Input()
	}
	r.pins = map[int]rpio.Pin{}
	return rpio.Close()
}

//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/blinkcheck/internal/logic"
)

// RealLines drives GPIO through the Linux GPIO character device.
type RealLines struct {
	chip  *gpiocdev.Chip
	lines map[int]*gpiocdev.Line
}

// NewRealLines requests the given inputs and outputs on the named chip.
// Outputs start at the idle level.
func NewRealLines(chipName string, inputs, outputs []int, pullUp bool, idle logic.Level) (*RealLines, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	r := &RealLines{
		chip:  chip,
		lines: make(map[int]*gpiocdev.Line),
	}

	inOpts := []gpiocdev.LineReqOption{gpiocdev.AsInput}
	if pullUp {
		inOpts = append(inOpts, gpiocdev.WithPullUp)
	}
	for _, pin := range inputs {
		l, err := chip.RequestLine(pin, inOpts...)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("request input pin %d: %w", pin, err)
		}
		r.lines[pin] = l
	}

	for _, pin := range outputs {
		l, err := chip.RequestLine(pin, gpiocdev.AsOutput(idle.Value()))
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("request output pin %d: %w", pin, err)
		}
		r.lines[pin] = l
	}

	return r, nil
}

// Read returns the level of a requested line.
func (r *RealLines) Read(pin int) (logic.Level, error) {
	l, ok := r.lines[pin]
	if !ok {
		return logic.Low, &ReadError{Pin: pin, Err: fmt.Errorf("pin not requested")}
	}
	v, err := l.Value()
	if err != nil {
		return logic.Low, &ReadError{Pin: pin, Err: err}
	}
	return logic.LevelOf(v), nil
}

// Write drives a requested output line.
func (r *RealLines) Write(pin int, level logic.Level) error {
	l, ok := r.lines[pin]
	if !ok {
		return fmt.Errorf("write pin %d: pin not requested", pin)
	}
	if err := l.SetValue(level.Value()); err != nil {
		return fmt.Errorf("write pin %d: %w", pin, err)
	}
	return nil
}

// Close releases GPIO resources.
// Reconfigures every line to input before closing so nothing is left driven
// once the process exits.
func (r *RealLines) Close() error {
	var errs []error

	for pin, l := range r.lines {
		if err := l.Reconfigure(gpiocdev.AsInput); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", pin, err))
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", pin, err))
		}
	}
	r.lines = map[int]*gpiocdev.Line{}

	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		r.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// Package device models the firmware under test: it debounces the button
// line and drives the LED line through a gpio.Lines handle.
package device

import (
	"time"

	"github.com/sweeney/blinkcheck/internal/gpio"
	"github.com/sweeney/blinkcheck/internal/logic"
)

// Monitor samples one input line and reports debounced edges.
type Monitor struct {
	lines     gpio.Lines
	pin       int
	debouncer *logic.Debouncer
	last      logic.Level
}

// NewMonitor creates a monitor for pin with the given debounce window.
func NewMonitor(lines gpio.Lines, pin int, window time.Duration) *Monitor {
	return &Monitor{
		lines:     lines,
		pin:       pin,
		debouncer: logic.NewDebouncer(window),
	}
}

// Sample reads the raw level of the line.
func (m *Monitor) Sample() (logic.Level, error) {
	l, err := m.lines.Read(m.pin)
	if err != nil {
		return logic.Low, err
	}
	m.last = l
	return l, nil
}

// PollForEdge samples the line once and returns the debounced edge it
// completes, if any.
func (m *Monitor) PollForEdge(now time.Time) (*logic.Edge, error) {
	l, err := m.Sample()
	if err != nil {
		return nil, err
	}
	return m.debouncer.Process(l, now), nil
}

// Last returns the most recently sampled raw level.
func (m *Monitor) Last() logic.Level {
	return m.last
}

// Stable returns the debounced level. It is empty before baseline.
func (m *Monitor) Stable() logic.Level {
	return m.debouncer.Stable()
}

// IsBaselined returns whether the monitor has established a baseline.
func (m *Monitor) IsBaselined() bool {
	return m.debouncer.IsBaselined()
}

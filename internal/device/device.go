package device

import (
	"fmt"
	"time"

	"github.com/sweeney/blinkcheck/internal/gpio"
	"github.com/sweeney/blinkcheck/internal/logic"
)

// Config describes the device wiring and behaviour.
type Config struct {
	Mode      logic.Mode
	Debounce  time.Duration
	Period    time.Duration
	LEDPin    int
	ButtonPin int
}

// DefaultConfig returns the wiring used throughout the acceptance tests.
func DefaultConfig() Config {
	return Config{
		Mode:      logic.ModePress,
		Debounce:  20 * time.Millisecond,
		Period:    time.Second,
		LEDPin:    gpio.PinLED,
		ButtonPin: gpio.PinButton,
	}
}

// Device debounces the button and drives the LED.
type Device struct {
	lines      gpio.Lines
	ledPin     int
	monitor    *Monitor
	controller *logic.Controller
	written    logic.Level
	counts     logic.Counts
}

// New creates a device and drives the LED LOW.
func New(lines gpio.Lines, cfg Config, start time.Time) (*Device, error) {
	d := &Device{
		lines:      lines,
		ledPin:     cfg.LEDPin,
		monitor:    NewMonitor(lines, cfg.ButtonPin, cfg.Debounce),
		controller: logic.NewController(cfg.Mode, cfg.Period, start),
	}
	if err := lines.Write(cfg.LEDPin, logic.Low); err != nil {
		return nil, fmt.Errorf("init led: %w", err)
	}
	d.written = logic.Low
	return d, nil
}

// Step samples the button once, applies any debounced edge and the blink
// schedule, and writes every LED change before returning.
//
// A button read failure is returned as a *gpio.ReadError with no events; the
// caller may retry on the next step. A failed LED write is returned as well
// and the write is retried on the next step.
func (d *Device) Step(now time.Time) ([]logic.ToggleEvent, error) {
	// Re-apply a level a previous step failed to write
	if d.written != d.controller.Level() {
		if err := d.writeLED(); err != nil {
			return nil, err
		}
	}

	edge, err := d.monitor.PollForEdge(now)
	if err != nil {
		return nil, err
	}

	var events []logic.ToggleEvent
	if edge != nil {
		switch {
		case edge.IsPress():
			d.counts.Presses++
		case edge.IsRelease():
			d.counts.Releases++
		}
		if ev := d.controller.HandleEdge(*edge); ev != nil {
			events = append(events, *ev)
			d.counts.Toggles++
			if err := d.writeLED(); err != nil {
				return events, err
			}
		}
	}

	if ev := d.controller.Tick(now); ev != nil {
		events = append(events, *ev)
		d.counts.Toggles++
		if err := d.writeLED(); err != nil {
			return events, err
		}
	}

	return events, nil
}

func (d *Device) writeLED() error {
	level := d.controller.Level()
	if err := d.lines.Write(d.ledPin, level); err != nil {
		return fmt.Errorf("write led: %w", err)
	}
	d.written = level
	return nil
}

// State returns a snapshot of the device.
func (d *Device) State() logic.DeviceState {
	return logic.DeviceState{
		LED:       d.controller.Level(),
		Button:    d.monitor.Stable(),
		Mode:      d.controller.Mode(),
		Blinking:  d.controller.Blinking(),
		Baselined: d.monitor.IsBaselined(),
		Counts:    d.counts,
	}
}

// Counts returns activity counts since startup.
func (d *Device) Counts() logic.Counts {
	return d.counts
}

// IsBaselined returns whether the button baseline has been established.
func (d *Device) IsBaselined() bool {
	return d.monitor.IsBaselined()
}

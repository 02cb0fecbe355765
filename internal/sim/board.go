// Package sim runs a device on a simulated board: a fake GPIO wire shared with
// the harness and a clock that only moves when the harness sleeps. Every
// device tick inside a sleep steps the device, so runs are deterministic.
package sim

import (
	"log"
	"time"

	"github.com/sweeney/blinkcheck/internal/device"
	"github.com/sweeney/blinkcheck/internal/gpio"
	"github.com/sweeney/blinkcheck/internal/logic"
)

// Options configures a Board.
type Options struct {
	// Start is the simulated time at power-on. Zero means the Unix epoch.
	Start time.Time
	// Tick is the device poll interval. Zero means 1ms.
	Tick time.Duration
	// Bounce is how long the button contacts chatter after each change,
	// flipping every tick before settling.
	Bounce time.Duration
}

// Board is a simulated device wired to a fake GPIO bus. It implements
// gpio.Lines for the harness side and the harness clock.
type Board struct {
	wire      *gpio.FakeLines
	device    *device.Device
	buttonPin int
	now       time.Time
	tick      time.Duration
	bounce    time.Duration

	chattering   bool
	chatterUntil time.Time
	target       logic.Level

	events []logic.ToggleEvent
	errs   []error
}

// New powers on a board running a device with cfg. The button starts
// released (HIGH).
func New(cfg device.Config, opts Options) (*Board, error) {
	if opts.Start.IsZero() {
		opts.Start = time.Unix(0, 0).UTC()
	}
	if opts.Tick <= 0 {
		opts.Tick = time.Millisecond
	}

	wire := gpio.NewFakeLines()
	wire.Set(cfg.ButtonPin, logic.High)

	dev, err := device.New(wire, cfg, opts.Start)
	if err != nil {
		return nil, err
	}

	return &Board{
		wire:      wire,
		device:    dev,
		buttonPin: cfg.ButtonPin,
		now:       opts.Start,
		tick:      opts.Tick,
		bounce:    opts.Bounce,
	}, nil
}

// Read samples a pin of the simulated bus.
func (b *Board) Read(pin int) (logic.Level, error) {
	return b.wire.Read(pin)
}

// Write drives a pin of the simulated bus. Changing the button level starts
// contact chatter when the board has a bounce configured.
func (b *Board) Write(pin int, level logic.Level) error {
	changed := b.wire.Level(pin) != level
	if err := b.wire.Write(pin, level); err != nil {
		return err
	}
	if pin == b.buttonPin && changed && b.bounce > 0 {
		b.chattering = true
		b.chatterUntil = b.now.Add(b.bounce)
		b.target = level
	}
	return nil
}

// Close closes the simulated bus.
func (b *Board) Close() error {
	return b.wire.Close()
}

// Now returns the simulated time.
func (b *Board) Now() time.Time {
	return b.now
}

// Sleep advances simulated time by d, stepping the device every tick.
func (b *Board) Sleep(d time.Duration) {
	for ; d >= b.tick; d -= b.tick {
		b.advance(b.tick)
	}
	b.now = b.now.Add(d)
}

func (b *Board) advance(dt time.Duration) {
	b.now = b.now.Add(dt)

	if b.chattering {
		if b.now.Before(b.chatterUntil) {
			b.wire.Set(b.buttonPin, b.wire.Level(b.buttonPin).Invert())
		} else {
			b.wire.Set(b.buttonPin, b.target)
			b.chattering = false
		}
	}

	events, err := b.device.Step(b.now)
	b.events = append(b.events, events...)
	if err != nil {
		log.Printf("sim: device step: %v", err)
		b.errs = append(b.errs, err)
	}
}

// Wire returns the fake bus, for injecting faults.
func (b *Board) Wire() *gpio.FakeLines {
	return b.wire
}

// Device returns the simulated device.
func (b *Board) Device() *device.Device {
	return b.device
}

// Events returns every LED change the device made.
func (b *Board) Events() []logic.ToggleEvent {
	return b.events
}

// Errors returns every error the device step reported.
func (b *Board) Errors() []error {
	return b.errs
}

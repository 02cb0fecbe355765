// Package harness verifies the LED/button device from the outside: it drives
// the button line, samples the LED line on a fixed schedule and checks the
// observed transitions against acceptance thresholds.
package harness

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sweeney/blinkcheck/internal/gpio"
	"github.com/sweeney/blinkcheck/internal/logic"
)

// Plan holds the timings and thresholds of the acceptance checks.
type Plan struct {
	LEDPin    int
	ButtonPin int

	// steady_state
	IdleWindow   time.Duration
	IdleInterval time.Duration

	// press_response
	PressCycles int
	PressHold   time.Duration
	ReleaseHold time.Duration

	// edge_debounce
	HoldDuration       time.Duration
	HoldInterval       time.Duration
	SettleDuration     time.Duration
	MaxHoldTransitions int

	// periodic_toggle
	PeriodicWindow   time.Duration
	PeriodicInterval time.Duration
	Period           time.Duration
	PeriodTolerance  float64
}

// DefaultPlan returns the acceptance thresholds for the reference device.
func DefaultPlan() Plan {
	return Plan{
		LEDPin:    gpio.PinLED,
		ButtonPin: gpio.PinButton,

		IdleWindow:   5 * time.Second,
		IdleInterval: 10 * time.Millisecond,

		PressCycles: 9,
		PressHold:   500 * time.Millisecond,
		ReleaseHold: 500 * time.Millisecond,

		HoldDuration:       3 * time.Second,
		HoldInterval:       time.Millisecond,
		SettleDuration:     500 * time.Millisecond,
		MaxHoldTransitions: 1,

		PeriodicWindow:   5 * time.Second,
		PeriodicInterval: 10 * time.Millisecond,
		Period:           time.Second,
		PeriodTolerance:  0.2,
	}
}

// MinPeriodicTransitions returns the fewest transitions a periodic window
// must contain: one less than the number of whole periods it spans.
func (p Plan) MinPeriodicTransitions() int {
	if p.Period <= 0 {
		return 0
	}
	n := int(p.PeriodicWindow/p.Period) - 1
	if n < 0 {
		return 0
	}
	return n
}

// PeriodBounds returns the accepted range for the mean toggle interval.
func (p Plan) PeriodBounds() (time.Duration, time.Duration) {
	delta := time.Duration(float64(p.Period) * p.PeriodTolerance)
	return p.Period - delta, p.Period + delta
}

// AssertionError reports observed behaviour outside an acceptance threshold.
type AssertionError struct {
	Check string
	Msg   string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Check, e.Msg)
}

// IsAssertion reports whether err is, or wraps, an *AssertionError.
func IsAssertion(err error) bool {
	var ae *AssertionError
	return errors.As(err, &ae)
}

// Harness drives and samples a device through GPIO lines.
type Harness struct {
	lines gpio.Lines
	clock Clock
	plan  Plan
}

// New creates a harness over lines using the given clock and plan.
func New(lines gpio.Lines, clock Clock, plan Plan) *Harness {
	return &Harness{
		lines: lines,
		clock: clock,
		plan:  plan,
	}
}

// Plan returns the harness plan.
func (h *Harness) Plan() Plan {
	return h.plan
}

// Observation is the record of one sampling window.
type Observation struct {
	Pin         int
	Start       time.Time
	End         time.Time
	Initial     logic.Level
	Final       logic.Level
	Samples     int
	ReadErrors  int
	Transitions []logic.Transition
}

// Count returns the number of transitions observed.
func (o Observation) Count() int {
	return len(o.Transitions)
}

// Intervals returns the durations between consecutive transitions.
func (o Observation) Intervals() []time.Duration {
	return logic.Intervals(o.Transitions)
}

// MeanInterval returns the mean time between transitions. The second result
// is false when fewer than two transitions were observed.
func (o Observation) MeanInterval() (time.Duration, bool) {
	return logic.MeanInterval(o.Transitions)
}

// Observe reads pin once, then samples it every interval for duration.
// A failure of the first read is returned. Failures inside the window are
// logged and the next slot is tried.
func (h *Harness) Observe(pin int, duration, interval time.Duration) (Observation, error) {
	initial, err := h.lines.Read(pin)
	if err != nil {
		return Observation{Pin: pin}, err
	}
	return h.observeFrom(pin, initial, duration, interval), nil
}

func (h *Harness) observeFrom(pin int, initial logic.Level, duration, interval time.Duration) Observation {
	rec := logic.NewRecorder(initial)
	s := NewSampler(h.clock, interval, duration)
	obs := Observation{
		Pin:     pin,
		Start:   s.Start(),
		Initial: initial,
	}

	for s.Next() {
		l, err := h.lines.Read(pin)
		if err != nil {
			obs.ReadErrors++
			log.Printf("harness: %v (retrying next sample)", err)
			continue
		}
		obs.Samples++
		now := h.clock.Now()
		if tr := rec.Record(logic.Sample{Time: now, Level: l}); tr != nil {
			log.Printf("harness: pin %d %s -> %s at %.3fs", pin, tr.From, tr.To, now.Sub(obs.Start).Seconds())
		}
	}

	obs.End = h.clock.Now()
	obs.Final = rec.Last()
	obs.Transitions = rec.Transitions()
	return obs
}

// Press drives the button LOW (active-low).
func (h *Harness) Press() error {
	if err := h.lines.Write(h.plan.ButtonPin, logic.Low); err != nil {
		return fmt.Errorf("press button: %w", err)
	}
	return nil
}

// Release drives the button HIGH.
func (h *Harness) Release() error {
	if err := h.lines.Write(h.plan.ButtonPin, logic.High); err != nil {
		return fmt.Errorf("release button: %w", err)
	}
	return nil
}

// Tap presses the button for PressHold then releases it for ReleaseHold.
func (h *Harness) Tap() error {
	if err := h.Press(); err != nil {
		return err
	}
	h.clock.Sleep(h.plan.PressHold)
	if err := h.Release(); err != nil {
		return err
	}
	h.clock.Sleep(h.plan.ReleaseHold)
	return nil
}

// Package logic contains the pure state machines behind the LED/button device
// and the timing analysis used by the acceptance harness.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import (
	"fmt"
	"time"
)

// Level is the electrical level of a GPIO line.
type Level string

const (
	High Level = "HIGH"
	Low  Level = "LOW"
)

// Invert returns the opposite level.
func (l Level) Invert() Level {
	if l == High {
		return Low
	}
	return High
}

// LevelOf converts a raw line value (0 or 1) to a Level.
func LevelOf(v int) Level {
	if v != 0 {
		return High
	}
	return Low
}

// Value returns the raw line value (0 or 1).
func (l Level) Value() int {
	if l == High {
		return 1
	}
	return 0
}

// State is the logical state of the LED.
type State string

const (
	StateOn  State = "ON"
	StateOff State = "OFF"
)

// StateOf maps an LED level to its logical state (HIGH = ON).
func StateOf(l Level) State {
	if l == High {
		return StateOn
	}
	return StateOff
}

// Mode selects how the controller drives the LED.
type Mode string

const (
	// ModePress flips the LED once per debounced press.
	ModePress Mode = "press"
	// ModeBlink flips the LED every period regardless of the button.
	ModeBlink Mode = "blink"
	// ModeBlinkOnPress starts or stops blinking on each debounced press.
	ModeBlinkOnPress Mode = "blink-on-press"
)

// ParseMode parses a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModePress, ModeBlink, ModeBlinkOnPress:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q (want %s, %s or %s)", s, ModePress, ModeBlink, ModeBlinkOnPress)
}

// Edge is a debounced transition of an input line.
type Edge struct {
	Timestamp time.Time
	From      Level
	To        Level
}

// IsPress reports whether the edge is a press on an active-low button.
func (e Edge) IsPress() bool {
	return e.From == High && e.To == Low
}

// IsRelease reports whether the edge is a release on an active-low button.
func (e Edge) IsRelease() bool {
	return e.From == Low && e.To == High
}

// Cause explains why the LED changed.
type Cause string

const (
	CausePress     Cause = "PRESS"
	CauseSchedule  Cause = "SCHEDULE"
	CauseBlinkStop Cause = "BLINK_STOP"
)

// ToggleEvent records a change of the LED.
type ToggleEvent struct {
	Timestamp time.Time
	From      Level
	To        Level
	Cause     Cause
}

// Counts tracks device activity since startup.
type Counts struct {
	Presses  int
	Releases int
	Toggles  int
}

// DeviceState is a point-in-time view of the device.
type DeviceState struct {
	LED       Level
	Button    Level
	Mode      Mode
	Blinking  bool
	Baselined bool
	Counts    Counts
}

// Sample is a single reading of a line.
type Sample struct {
	Time  time.Time
	Level Level
}

// Transition is a recorded change of an observed line.
type Transition struct {
	Time time.Time
	From Level
	To   Level
}

// CheckResult is the outcome of one acceptance check.
type CheckResult struct {
	Name         string
	Passed       bool
	Transitions  int
	MeanInterval time.Duration
	Final        Level
	Message      string
	Started      time.Time
	Elapsed      time.Duration
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    Counts
}

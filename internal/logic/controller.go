package logic

import "time"

// Controller owns the LED state and decides when it flips.
type Controller struct {
	mode     Mode
	level    Level
	armed    bool
	blinking bool
	schedule Schedule
}

// NewController creates a controller with the LED OFF. In blink mode the
// first toggle is due one period after start.
func NewController(mode Mode, period time.Duration, start time.Time) *Controller {
	c := &Controller{
		mode:     mode,
		level:    Low,
		armed:    true,
		schedule: Schedule{Period: period},
	}
	if mode == ModeBlink {
		c.blinking = true
		c.schedule.Reset(start)
	}
	return c
}

// HandleEdge applies a debounced button edge and returns the resulting LED
// change, if any. A press only counts once; the controller is re-armed by
// the next release.
func (c *Controller) HandleEdge(e Edge) *ToggleEvent {
	if e.IsRelease() {
		c.armed = true
		return nil
	}
	if !e.IsPress() || !c.armed {
		return nil
	}
	c.armed = false

	switch c.mode {
	case ModePress:
		return c.flip(e.Timestamp, CausePress)
	case ModeBlinkOnPress:
		if !c.blinking {
			c.blinking = true
			c.schedule.Reset(e.Timestamp)
			return nil
		}
		c.blinking = false
		if c.level == High {
			return c.flip(e.Timestamp, CauseBlinkStop)
		}
	}
	return nil
}

// Tick advances the blink schedule and returns the scheduled LED change, if any.
func (c *Controller) Tick(now time.Time) *ToggleEvent {
	if !c.blinking {
		return nil
	}
	if !c.schedule.Advance(now) {
		return nil
	}
	return c.flip(now, CauseSchedule)
}

func (c *Controller) flip(now time.Time, cause Cause) *ToggleEvent {
	from := c.level
	c.level = from.Invert()
	return &ToggleEvent{
		Timestamp: now,
		From:      from,
		To:        c.level,
		Cause:     cause,
	}
}

// Level returns the level the LED should be driven to.
func (c *Controller) Level() Level {
	return c.level
}

// State returns the logical LED state.
func (c *Controller) State() State {
	return StateOf(c.level)
}

// Mode returns the controller mode.
func (c *Controller) Mode() Mode {
	return c.mode
}

// Blinking reports whether the schedule is currently driving the LED.
func (c *Controller) Blinking() bool {
	return c.blinking
}

// NextToggle returns when the next scheduled toggle is due. The second
// result is false when the LED is not blinking.
func (c *Controller) NextToggle() (time.Time, bool) {
	if !c.blinking {
		return time.Time{}, false
	}
	return c.schedule.Next(), true
}

package logic

import "time"

// Schedule tracks the time-driven toggle of the LED.
type Schedule struct {
	Period     time.Duration
	LastToggle time.Time
}

// Reset makes the next toggle due one period after now.
func (s *Schedule) Reset(now time.Time) {
	s.LastToggle = now
}

// Advance reports whether a toggle is due at now. When it is, the schedule
// moves forward by exactly one period so that late ticks do not add drift.
// If more than one period was missed the schedule restarts from now instead
// of emitting a burst of catch-up toggles.
func (s *Schedule) Advance(now time.Time) bool {
	if s.Period <= 0 {
		return false
	}
	if now.Sub(s.LastToggle) < s.Period {
		return false
	}
	s.LastToggle = s.LastToggle.Add(s.Period)
	if now.Sub(s.LastToggle) >= s.Period {
		s.LastToggle = now
	}
	return true
}

// Next returns when the next toggle is due.
func (s *Schedule) Next() time.Time {
	return s.LastToggle.Add(s.Period)
}

package harness

import "time"

// Clock is the time source the harness samples against.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type realClock struct{}

func (realClock) Now() time.Time        { return time.Now() }
func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

// RealClock returns a Clock backed by the wall clock.
func RealClock() Clock {
	return realClock{}
}

// Sampler hands out sample slots at start + k*interval until a deadline.
// Slots are anchored to the start time, so slow reads do not stretch the
// schedule; slots that have already passed are skipped.
type Sampler struct {
	clock    Clock
	interval time.Duration
	start    time.Time
	deadline time.Time
	n        int
}

// NewSampler starts a sampler at the clock's current time.
// An interval <= 0 is treated as 1ms.
func NewSampler(clock Clock, interval, duration time.Duration) *Sampler {
	if interval <= 0 {
		interval = time.Millisecond
	}
	start := clock.Now()
	return &Sampler{
		clock:    clock,
		interval: interval,
		start:    start,
		deadline: start.Add(duration),
	}
}

// Next waits for the next slot. It returns false once the deadline is reached.
func (s *Sampler) Next() bool {
	now := s.clock.Now()
	slot := s.slot()
	if slot.Before(now) {
		s.n += int(now.Sub(slot) / s.interval)
		slot = s.slot()
	}
	if !slot.Before(s.deadline) || !now.Before(s.deadline) {
		return false
	}
	if wait := slot.Sub(now); wait > 0 {
		s.clock.Sleep(wait)
	}
	s.n++
	return true
}

func (s *Sampler) slot() time.Time {
	return s.start.Add(time.Duration(s.n) * s.interval)
}

// Start returns when the sampler started.
func (s *Sampler) Start() time.Time {
	return s.start
}

// Deadline returns when the sampler stops.
func (s *Sampler) Deadline() time.Time {
	return s.deadline
}

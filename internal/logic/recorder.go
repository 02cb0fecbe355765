package logic

import "time"

// Recorder tracks the changes of an observed line. Each sample is compared
// with the last recorded level, not the previous sample, so re-reads of an
// unchanged level never count.
type Recorder struct {
	last        Level
	transitions []Transition
}

// NewRecorder starts recording from the given level.
func NewRecorder(initial Level) *Recorder {
	return &Recorder{last: initial}
}

// Record adds a sample and returns the transition it produced, if any.
func (r *Recorder) Record(s Sample) *Transition {
	if s.Level == r.last {
		return nil
	}
	tr := Transition{Time: s.Time, From: r.last, To: s.Level}
	r.transitions = append(r.transitions, tr)
	r.last = s.Level
	return &tr
}

// Last returns the last recorded level.
func (r *Recorder) Last() Level {
	return r.last
}

// Transitions returns the recorded transitions in order.
func (r *Recorder) Transitions() []Transition {
	return r.transitions
}

// Intervals returns the durations between consecutive transitions.
func Intervals(ts []Transition) []time.Duration {
	if len(ts) < 2 {
		return nil
	}
	out := make([]time.Duration, 0, len(ts)-1)
	for i := 1; i < len(ts); i++ {
		out = append(out, ts[i].Time.Sub(ts[i-1].Time))
	}
	return out
}

// MeanInterval returns the mean time between consecutive transitions.
// The second result is false when fewer than two transitions exist.
func MeanInterval(ts []Transition) (time.Duration, bool) {
	iv := Intervals(ts)
	if len(iv) == 0 {
		return 0, false
	}
	var sum time.Duration
	for _, d := range iv {
		sum += d
	}
	return sum / time.Duration(len(iv)), true
}

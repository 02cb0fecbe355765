package logic

import "time"

// Heartbeat decides when a periodic liveness message is due.
type Heartbeat struct {
	interval  time.Duration
	startTime time.Time
	last      time.Time
}

// NewHeartbeat creates a heartbeat that first fires one interval after start.
// An interval <= 0 disables it.
func NewHeartbeat(interval time.Duration, start time.Time) *Heartbeat {
	return &Heartbeat{
		interval:  interval,
		startTime: start,
		last:      start,
	}
}

// Check returns heartbeat data if the interval has elapsed since the last
// heartbeat (or startup). Returns nil if the interval has not elapsed or the
// heartbeat is disabled.
func (h *Heartbeat) Check(now time.Time, counts Counts) *HeartbeatData {
	if h.interval <= 0 {
		return nil
	}
	if now.Sub(h.last) < h.interval {
		return nil
	}

	h.last = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(h.startTime),
		Counts:    counts,
	}
}

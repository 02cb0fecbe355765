package logic

import "time"

// Debouncer turns raw samples of one input line into debounced edges.
type Debouncer struct {
	window       time.Duration
	stable       Level
	pending      Level
	pendingSince time.Time
	baselined    bool
}

// NewDebouncer creates a debouncer that only accepts a level once it has
// persisted for the given window.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{window: window}
}

// Process takes a new sample and returns the edge it completes, if any.
// No edges are returned until a baseline level has been established.
func (d *Debouncer) Process(level Level, now time.Time) *Edge {
	// First time seeing this line
	if !d.baselined {
		if d.pending != level {
			// Start observing, or restart if the level moved during baseline
			d.pending = level
			d.pendingSince = now
		}
		if now.Sub(d.pendingSince) >= d.window {
			d.stable = level
			d.baselined = true
			d.pending = ""
		}
		return nil
	}

	if level == d.stable {
		// Bounced back before the window elapsed
		d.pending = ""
		return nil
	}

	if d.pending != level {
		d.pending = level
		d.pendingSince = now
	}

	if now.Sub(d.pendingSince) < d.window {
		return nil
	}

	edge := &Edge{Timestamp: now, From: d.stable, To: level}
	d.stable = level
	d.pending = ""
	return edge
}

// Stable returns the current debounced level. It is empty before baseline.
func (d *Debouncer) Stable() Level {
	return d.stable
}

// IsBaselined returns whether a baseline level has been established.
func (d *Debouncer) IsBaselined() bool {
	return d.baselined
}

// Window returns the debounce window.
func (d *Debouncer) Window() time.Duration {
	return d.window
}

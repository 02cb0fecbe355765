// Package status provides a thread-safe status tracker shared by the run loop,
// the HTTP handlers and the MQTT lifecycle events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/blinkcheck/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	Mode        logic.Mode
	PollMs      int64
	DebounceMs  int64
	PeriodMs    int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
	LEDPin      int
	ButtonPin   int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	LED           logic.Level
	Button        logic.Level
	Mode          logic.Mode
	Blinking      bool
	Baselined     bool
	Counts        logic.Counts
	Checks        []logic.CheckResult
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Mode:      cfg.Mode,
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update copies the device state. Called from runLoop on every tick.
func (t *Tracker) Update(st logic.DeviceState) {
	t.mu.Lock()
	t.snap.LED = st.LED
	t.snap.Button = st.Button
	t.snap.Mode = st.Mode
	t.snap.Blinking = st.Blinking
	t.snap.Baselined = st.Baselined
	t.snap.Counts = st.Counts
	t.mu.Unlock()
}

// RecordCheck appends a finished check result.
func (t *Tracker) RecordCheck(res logic.CheckResult) {
	t.mu.Lock()
	t.snap.Checks = append(t.snap.Checks, res)
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	if s.Checks != nil {
		s.Checks = append([]logic.CheckResult(nil), t.snap.Checks...)
	}
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}

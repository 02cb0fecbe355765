package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/blinkcheck/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string      `json:"event,omitempty"`
	Reason        string      `json:"reason,omitempty"`
	LED           string      `json:"led"`
	State         string      `json:"state"`
	Button        string      `json:"button"`
	Mode          string      `json:"mode"`
	Blinking      bool        `json:"blinking"`
	Ready         bool        `json:"ready"`
	UptimeSeconds int64       `json:"uptime_seconds"`
	StartTime     string      `json:"start_time"`
	Timestamp     string      `json:"timestamp"`
	MQTT          MQTTStatus  `json:"mqtt"`
	Counts        CountsJSON  `json:"counts"`
	Checks        []CheckJSON `json:"checks,omitempty"`
	Config        ConfigJSON  `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of device counts.
type CountsJSON struct {
	Presses  int `json:"presses"`
	Releases int `json:"releases"`
	Toggles  int `json:"toggles"`
}

// CheckJSON is the JSON representation of a finished check.
type CheckJSON struct {
	Name           string `json:"name"`
	Passed         bool   `json:"passed"`
	Transitions    int    `json:"transitions"`
	MeanIntervalMs int64  `json:"mean_interval_ms,omitempty"`
	Message        string `json:"message,omitempty"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Mode        string `json:"mode"`
	PollMs      int64  `json:"poll_ms"`
	DebounceMs  int64  `json:"debounce_ms"`
	PeriodMs    int64  `json:"period_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
	LEDPin      int    `json:"led_pin"`
	ButtonPin   int    `json:"button_pin"`
}

func orUnknown(s string) string {
	if s == "" {
		return "UNKNOWN"
	}
	return s
}

func buildInner(snap Snapshot) StatusInner {
	state := ""
	if snap.LED != "" {
		state = string(logic.StateOf(snap.LED))
	}

	inner := StatusInner{
		LED:           orUnknown(string(snap.LED)),
		State:         orUnknown(state),
		Button:        orUnknown(string(snap.Button)),
		Mode:          string(snap.Mode),
		Blinking:      snap.Blinking,
		Ready:         snap.Baselined,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Presses:  snap.Counts.Presses,
			Releases: snap.Counts.Releases,
			Toggles:  snap.Counts.Toggles,
		},
		Config: ConfigJSON{
			Mode:        string(snap.Config.Mode),
			PollMs:      snap.Config.PollMs,
			DebounceMs:  snap.Config.DebounceMs,
			PeriodMs:    snap.Config.PeriodMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			LEDPin:      snap.Config.LEDPin,
			ButtonPin:   snap.Config.ButtonPin,
		},
	}

	for _, c := range snap.Checks {
		inner.Checks = append(inner.Checks, CheckJSON{
			Name:           c.Name,
			Passed:         c.Passed,
			Transitions:    c.Transitions,
			MeanIntervalMs: c.MeanInterval.Milliseconds(),
			Message:        c.Message,
		})
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

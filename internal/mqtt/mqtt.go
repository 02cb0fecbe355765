// Package mqtt publishes LED events, check results and lifecycle events,
// with an interface so the daemons can be tested without a broker.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/blinkcheck/internal/logic"
)

// TopicLED is the MQTT topic for LED toggle events.
const TopicLED = "blinkcheck/led/events"

// TopicChecks is the MQTT topic for acceptance check results.
const TopicChecks = "blinkcheck/checks"

// TopicSystem is the MQTT topic for device lifecycle events.
const TopicSystem = "blinkcheck/system"

// TopicHarnessSystem is the MQTT topic for harness lifecycle events and the
// harness Last Will, kept apart from the device's retained status.
const TopicHarnessSystem = "blinkcheck/harness/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends an LED toggle event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.ToggleEvent) error

	// PublishCheck sends the result of one acceptance check.
	PublishCheck(result logic.CheckResult) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload is the MQTT message payload for an LED event.
type Payload struct {
	LED LEDPayload `json:"led"`
}

// LEDPayload contains the LED event details.
type LEDPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Cause     string `json:"cause"`
	From      string `json:"from"`
	To        string `json:"to"`
	State     string `json:"state"`
}

// EventName returns LED_ON or LED_OFF for the level the LED changed to.
func EventName(event logic.ToggleEvent) string {
	return "LED_" + string(logic.StateOf(event.To))
}

// FormatPayload creates the JSON payload for an LED event.
func FormatPayload(event logic.ToggleEvent) ([]byte, error) {
	payload := Payload{
		LED: LEDPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
			Event:     EventName(event),
			Cause:     string(event.Cause),
			From:      string(event.From),
			To:        string(event.To),
			State:     string(logic.StateOf(event.To)),
		},
	}
	return json.Marshal(payload)
}

// CheckPayload is the MQTT message payload for a check result.
type CheckPayload struct {
	Check CheckPayloadInner `json:"check"`
}

// CheckPayloadInner contains the check result details.
type CheckPayloadInner struct {
	Timestamp      string `json:"timestamp"`
	Name           string `json:"name"`
	Passed         bool   `json:"passed"`
	Transitions    int    `json:"transitions"`
	MeanIntervalMs int64  `json:"mean_interval_ms,omitempty"`
	Final          string `json:"final,omitempty"`
	ElapsedMs      int64  `json:"elapsed_ms"`
	Message        string `json:"message,omitempty"`
}

// FormatCheckPayload creates the JSON payload for a check result.
// The timestamp is when the check started.
func FormatCheckPayload(result logic.CheckResult) ([]byte, error) {
	payload := CheckPayload{
		Check: CheckPayloadInner{
			Timestamp:      result.Started.UTC().Format(time.RFC3339),
			Name:           result.Name,
			Passed:         result.Passed,
			Transitions:    result.Transitions,
			MeanIntervalMs: result.MeanInterval.Milliseconds(),
			Final:          string(result.Final),
			ElapsedMs:      result.Elapsed.Milliseconds(),
			Message:        result.Message,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// FormatWillPayload creates the Last Will payload the broker publishes if the
// connection drops without a clean disconnect. It carries no timestamp since
// it is registered at connect time.
func FormatWillPayload() []byte {
	b, _ := json.Marshal(SystemPayload{
		System: SystemPayloadInner{Event: "OFFLINE", Reason: "CONNECTION_LOST"},
	})
	return b
}

package mqtt

import "github.com/sweeney/blinkcheck/internal/logic"

// NopPublisher discards everything. Used when no broker is configured.
type NopPublisher struct{}

// Publish discards the LED event.
func (NopPublisher) Publish(logic.ToggleEvent) error {
	return nil
}

// PublishCheck discards the check result.
func (NopPublisher) PublishCheck(logic.CheckResult) error {
	return nil
}

// PublishSystem discards the system event.
func (NopPublisher) PublishSystem(SystemEvent) error {
	return nil
}

// Close does nothing.
func (NopPublisher) Close() error {
	return nil
}

// IsConnected always reports false.
func (NopPublisher) IsConnected() bool {
	return false
}

// Package config loads the YAML configuration shared by blinkd and blinkcheck.
// Every field has a default, so a missing file section keeps the reference
// wiring (LED on GPIO 17, active-low button on GPIO 27).
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/blinkcheck/internal/device"
	"github.com/sweeney/blinkcheck/internal/gpio"
	"github.com/sweeney/blinkcheck/internal/harness"
	"github.com/sweeney/blinkcheck/internal/logic"
)

// GPIOConfig selects the GPIO backend and pins.
type GPIOConfig struct {
	Backend   string `yaml:"backend"`    // cdev, rpio or fake
	Chip      string `yaml:"chip"`       // cdev only, e.g. "gpiochip0"
	LEDPin    int    `yaml:"led_pin"`    // BCM
	ButtonPin int    `yaml:"button_pin"` // BCM, active-low
}

// DeviceConfig describes the device behaviour.
type DeviceConfig struct {
	Mode        string `yaml:"mode"` // press, blink or blink-on-press
	DebounceMs  int    `yaml:"debounce_ms"`
	PollMs      int    `yaml:"poll_ms"`
	PeriodMs    int    `yaml:"period_ms"`
	HeartbeatMs int    `yaml:"heartbeat_ms"` // 0 disables
}

// HarnessConfig holds the acceptance check timings and thresholds.
// The expected blink period is device.period_ms.
type HarnessConfig struct {
	Checks             []string `yaml:"checks"` // empty = the checks for device.mode
	IdleWindowMs       int      `yaml:"idle_window_ms"`
	IdleIntervalMs     int      `yaml:"idle_interval_ms"`
	PressCycles        int      `yaml:"press_cycles"`
	PressHoldMs        int      `yaml:"press_hold_ms"`
	ReleaseHoldMs      int      `yaml:"release_hold_ms"`
	HoldDurationMs     int      `yaml:"hold_duration_ms"`
	HoldIntervalMs     int      `yaml:"hold_interval_ms"`
	SettleMs           int      `yaml:"settle_ms"`
	MaxHoldTransitions int      `yaml:"max_hold_transitions"`
	PeriodicWindowMs   int      `yaml:"periodic_window_ms"`
	PeriodicIntervalMs int      `yaml:"periodic_interval_ms"`
	PeriodTolerance    float64  `yaml:"period_tolerance"` // fraction of the period
	BounceMs           int      `yaml:"bounce_ms"`        // simulated board only
}

// MQTTConfig describes the broker connection. An empty broker disables MQTT.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
}

// HTTPConfig describes the status server. An empty address disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Config aggregates all application configuration.
type Config struct {
	GPIO    GPIOConfig    `yaml:"gpio"`
	Device  DeviceConfig  `yaml:"device"`
	Harness HarnessConfig `yaml:"harness"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	HTTP    HTTPConfig    `yaml:"http"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	p := harness.DefaultPlan()
	return &Config{
		GPIO: GPIOConfig{
			Backend:   string(gpio.BackendCdev),
			Chip:      "gpiochip0",
			LEDPin:    gpio.PinLED,
			ButtonPin: gpio.PinButton,
		},
		Device: DeviceConfig{
			Mode:        string(logic.ModePress),
			DebounceMs:  20,
			PollMs:      1,
			PeriodMs:    1000,
			HeartbeatMs: int((15 * time.Minute).Milliseconds()),
		},
		Harness: HarnessConfig{
			IdleWindowMs:       ms(p.IdleWindow),
			IdleIntervalMs:     ms(p.IdleInterval),
			PressCycles:        p.PressCycles,
			PressHoldMs:        ms(p.PressHold),
			ReleaseHoldMs:      ms(p.ReleaseHold),
			HoldDurationMs:     ms(p.HoldDuration),
			HoldIntervalMs:     ms(p.HoldInterval),
			SettleMs:           ms(p.SettleDuration),
			MaxHoldTransitions: p.MaxHoldTransitions,
			PeriodicWindowMs:   ms(p.PeriodicWindow),
			PeriodicIntervalMs: ms(p.PeriodicInterval),
			PeriodTolerance:    p.PeriodTolerance,
		},
		MQTT: MQTTConfig{
			ClientID: "blinkcheck",
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
	}
}

func ms(d time.Duration) int {
	return int(d.Milliseconds())
}

func dur(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every value is usable.
func (c *Config) Validate() error {
	switch gpio.Backend(c.GPIO.Backend) {
	case gpio.BackendCdev, gpio.BackendRPIO, gpio.BackendFake:
	default:
		return fmt.Errorf("gpio.backend must be cdev, rpio or fake, got %q", c.GPIO.Backend)
	}
	if c.GPIO.LEDPin < 0 || c.GPIO.ButtonPin < 0 {
		return fmt.Errorf("gpio pins must be >= 0")
	}
	if c.GPIO.LEDPin == c.GPIO.ButtonPin {
		return fmt.Errorf("gpio.led_pin and gpio.button_pin must differ, both are %d", c.GPIO.LEDPin)
	}

	if _, err := logic.ParseMode(c.Device.Mode); err != nil {
		return fmt.Errorf("device.mode: %w", err)
	}
	if c.Device.DebounceMs < 0 {
		return fmt.Errorf("device.debounce_ms must be >= 0, got %d", c.Device.DebounceMs)
	}
	if c.Device.PollMs <= 0 || c.Device.PollMs > 10 {
		return fmt.Errorf("device.poll_ms must be between 1 and 10, got %d", c.Device.PollMs)
	}
	if c.Device.PeriodMs <= 0 {
		return fmt.Errorf("device.period_ms must be > 0, got %d", c.Device.PeriodMs)
	}
	if c.Device.HeartbeatMs < 0 {
		return fmt.Errorf("device.heartbeat_ms must be >= 0, got %d", c.Device.HeartbeatMs)
	}

	if _, err := harness.ParseChecksList(c.Harness.Checks); err != nil {
		return fmt.Errorf("harness.checks: %w", err)
	}
	if c.Harness.PressCycles <= 0 {
		return fmt.Errorf("harness.press_cycles must be > 0, got %d", c.Harness.PressCycles)
	}
	if c.Harness.MaxHoldTransitions < 0 {
		return fmt.Errorf("harness.max_hold_transitions must be >= 0, got %d", c.Harness.MaxHoldTransitions)
	}
	if c.Harness.PeriodTolerance <= 0 || c.Harness.PeriodTolerance >= 1 {
		return fmt.Errorf("harness.period_tolerance must be between 0 and 1, got %.2f", c.Harness.PeriodTolerance)
	}
	for name, v := range map[string]int{
		"idle_window_ms":       c.Harness.IdleWindowMs,
		"idle_interval_ms":     c.Harness.IdleIntervalMs,
		"press_hold_ms":        c.Harness.PressHoldMs,
		"release_hold_ms":      c.Harness.ReleaseHoldMs,
		"hold_duration_ms":     c.Harness.HoldDurationMs,
		"hold_interval_ms":     c.Harness.HoldIntervalMs,
		"periodic_window_ms":   c.Harness.PeriodicWindowMs,
		"periodic_interval_ms": c.Harness.PeriodicIntervalMs,
	} {
		if v <= 0 {
			return fmt.Errorf("harness.%s must be > 0, got %d", name, v)
		}
	}
	if c.Harness.SettleMs < 0 || c.Harness.BounceMs < 0 {
		return fmt.Errorf("harness.settle_ms and harness.bounce_ms must be >= 0")
	}
	return nil
}

// Mode returns the parsed device mode. Call Validate first.
func (c *Config) Mode() logic.Mode {
	m, _ := logic.ParseMode(c.Device.Mode)
	return m
}

// Poll returns the device polling interval.
func (c *Config) Poll() time.Duration {
	return dur(c.Device.PollMs)
}

// Heartbeat returns the heartbeat interval (0 = disabled).
func (c *Config) Heartbeat() time.Duration {
	return dur(c.Device.HeartbeatMs)
}

// Bounce returns the simulated contact bounce.
func (c *Config) Bounce() time.Duration {
	return dur(c.Harness.BounceMs)
}

// DeviceConfig returns the device wiring and behaviour.
func (c *Config) DeviceConfig() device.Config {
	return device.Config{
		Mode:      c.Mode(),
		Debounce:  dur(c.Device.DebounceMs),
		Period:    dur(c.Device.PeriodMs),
		LEDPin:    c.GPIO.LEDPin,
		ButtonPin: c.GPIO.ButtonPin,
	}
}

// Plan returns the harness plan.
func (c *Config) Plan() harness.Plan {
	h := c.Harness
	return harness.Plan{
		LEDPin:             c.GPIO.LEDPin,
		ButtonPin:          c.GPIO.ButtonPin,
		IdleWindow:         dur(h.IdleWindowMs),
		IdleInterval:       dur(h.IdleIntervalMs),
		PressCycles:        h.PressCycles,
		PressHold:          dur(h.PressHoldMs),
		ReleaseHold:        dur(h.ReleaseHoldMs),
		HoldDuration:       dur(h.HoldDurationMs),
		HoldInterval:       dur(h.HoldIntervalMs),
		SettleDuration:     dur(h.SettleMs),
		MaxHoldTransitions: h.MaxHoldTransitions,
		PeriodicWindow:     dur(h.PeriodicWindowMs),
		PeriodicInterval:   dur(h.PeriodicIntervalMs),
		Period:             dur(c.Device.PeriodMs),
		PeriodTolerance:    h.PeriodTolerance,
	}
}

// Checks returns the checks to run: harness.checks, or the checks that
// apply to device.mode.
func (c *Config) Checks() []string {
	if names, _ := harness.ParseChecksList(c.Harness.Checks); len(names) > 0 {
		return names
	}
	return harness.ChecksFor(c.Mode())
}

// GPIOOptions returns the options for opening the lines from the device
// side: the button is an input with pull-up, the LED an output.
func (c *Config) GPIOOptions() gpio.Options {
	return gpio.Options{
		Backend: gpio.Backend(c.GPIO.Backend),
		Chip:    c.GPIO.Chip,
		Inputs:  []int{c.GPIO.ButtonPin},
		Outputs: []int{c.GPIO.LEDPin},
		PullUp:  true,
	}
}

// HarnessGPIOOptions returns the options for opening the lines from the
// harness side: the LED is sampled, the button is driven and starts released.
func (c *Config) HarnessGPIOOptions() gpio.Options {
	return gpio.Options{
		Backend: gpio.Backend(c.GPIO.Backend),
		Chip:    c.GPIO.Chip,
		Inputs:  []int{c.GPIO.LEDPin},
		Outputs: []int{c.GPIO.ButtonPin},
		Idle:    logic.High,
	}
}

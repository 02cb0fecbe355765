// Command blinkd runs the LED/button device: it debounces the button on one
// GPIO line, drives the LED on another and publishes every change to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/blinkcheck/internal/config"
	"github.com/sweeney/blinkcheck/internal/device"
	"github.com/sweeney/blinkcheck/internal/gpio"
	"github.com/sweeney/blinkcheck/internal/logic"
	"github.com/sweeney/blinkcheck/internal/mqtt"
	"github.com/sweeney/blinkcheck/internal/status"
	"github.com/sweeney/blinkcheck/internal/web"
)

func main() {
	cfg, printState, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	if err := run(cfg, printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// parseFlags loads the optional config file and applies the flags that were
// set explicitly on top of it.
func parseFlags(fs *flag.FlagSet, args []string) (*config.Config, bool, error) {
	def := config.Default()
	configPath := fs.String("config", "", "YAML config file (built-in defaults when empty)")
	backend := fs.String("backend", def.GPIO.Backend, "GPIO backend: cdev, rpio or fake")
	chip := fs.String("chip", def.GPIO.Chip, "GPIO chip (cdev backend)")
	pinLED := fs.Int("pin-led", def.GPIO.LEDPin, "BCM pin number for the LED")
	pinButton := fs.Int("pin-button", def.GPIO.ButtonPin, "BCM pin number for the active-low button")
	mode := fs.String("mode", def.Device.Mode, "Device mode: press, blink or blink-on-press")
	poll := fs.Duration("poll", def.Poll(), "Button polling interval")
	debounce := fs.Duration("debounce", def.DeviceConfig().Debounce, "Debounce window")
	period := fs.Duration("period", def.DeviceConfig().Period, "Blink period")
	heartbeat := fs.Duration("heartbeat", def.Heartbeat(), "Heartbeat interval (0 to disable)")
	broker := fs.String("broker", def.MQTT.Broker, "MQTT broker address (empty to disable)")
	httpAddr := fs.String("http", def.HTTP.Addr, "HTTP status address (empty to disable)")
	printState := fs.Bool("print-state", false, "Print current line levels and exit")

	if err := fs.Parse(args); err != nil {
		return nil, false, err
	}

	cfg := def
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return nil, false, err
		}
		cfg = loaded
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "backend":
			cfg.GPIO.Backend = *backend
		case "chip":
			cfg.GPIO.Chip = *chip
		case "pin-led":
			cfg.GPIO.LEDPin = *pinLED
		case "pin-button":
			cfg.GPIO.ButtonPin = *pinButton
		case "mode":
			cfg.Device.Mode = *mode
		case "poll":
			cfg.Device.PollMs = int(poll.Milliseconds())
		case "debounce":
			cfg.Device.DebounceMs = int(debounce.Milliseconds())
		case "period":
			cfg.Device.PeriodMs = int(period.Milliseconds())
		case "heartbeat":
			cfg.Device.HeartbeatMs = int(heartbeat.Milliseconds())
		case "broker":
			cfg.MQTT.Broker = *broker
		case "http":
			cfg.HTTP.Addr = *httpAddr
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, false, err
	}
	return cfg, *printState, nil
}

func run(cfg *config.Config, printState bool) error {
	lines, err := gpio.Open(cfg.GPIOOptions())
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer lines.Close()

	if printState {
		button, err := lines.Read(cfg.GPIO.ButtonPin)
		if err != nil {
			return fmt.Errorf("read button: %w", err)
		}
		led, err := lines.Read(cfg.GPIO.LEDPin)
		if err != nil {
			return fmt.Errorf("read led: %w", err)
		}
		fmt.Printf("LED: %s (%s), button: %s\n", led, logic.StateOf(led), button)
		return nil
	}

	var publisher interface {
		mqtt.Publisher
		mqtt.ConnectionStatus
	} = mqtt.NopPublisher{}
	if cfg.MQTT.Broker != "" {
		p, err := mqtt.NewRealPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID+"-device", mqtt.TopicSystem)
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		publisher = p
	}
	defer publisher.Close()

	start := time.Now()
	dev, err := device.New(lines, cfg.DeviceConfig(), start)
	if err != nil {
		return fmt.Errorf("init device: %w", err)
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(start, statusConfig(cfg))
	tracker.Update(dev.State())
	tracker.SetMQTTConnected(publisher.IsConnected())

	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	log.Printf("started: mode=%s led=%d button=%d poll=%v debounce=%v period=%v heartbeat=%v broker=%q",
		cfg.Mode(), cfg.GPIO.LEDPin, cfg.GPIO.ButtonPin, cfg.Poll(),
		cfg.DeviceConfig().Debounce, cfg.DeviceConfig().Period, cfg.Heartbeat(), cfg.MQTT.Broker)

	ticker := time.NewTicker(cfg.Poll())
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(dev, publisher, publisher, tracker, cfg.Heartbeat(), time.Now, ticker.C, sigCh)
}

func statusConfig(cfg *config.Config) status.Config {
	dc := cfg.DeviceConfig()
	return status.Config{
		Mode:        dc.Mode,
		PollMs:      cfg.Poll().Milliseconds(),
		DebounceMs:  dc.Debounce.Milliseconds(),
		PeriodMs:    dc.Period.Milliseconds(),
		HeartbeatMs: cfg.Heartbeat().Milliseconds(),
		Broker:      cfg.MQTT.Broker,
		HTTPAddr:    cfg.HTTP.Addr,
		LEDPin:      dc.LEDPin,
		ButtonPin:   dc.ButtonPin,
	}
}

func runLoop(dev *device.Device, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	hb := logic.NewHeartbeat(heartbeat, now())

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				tracker.Update(dev.State())
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()
			events, err := dev.Step(t)

			// Events are already on the pin even if a later write failed
			for _, event := range events {
				log.Printf("event: LED %s -> %s (%s)", event.From, event.To, event.Cause)
				if err := publisher.Publish(event); err != nil {
					log.Printf("publish error: %v", err)
				}
			}
			if err != nil {
				if gpio.IsReadError(err) {
					log.Printf("gpio read error: %v", err)
				} else {
					log.Printf("device error: %v", err)
				}
				continue
			}

			if !dev.IsBaselined() {
				// Still waiting for baseline
				continue
			}

			if hbData := hb.Check(t, dev.Counts()); hbData != nil {
				log.Printf("heartbeat: uptime=%v presses=%d releases=%d toggles=%d",
					hbData.Uptime, hbData.Counts.Presses, hbData.Counts.Releases, hbData.Counts.Toggles)

				hbEvent := mqtt.SystemEvent{
					Timestamp: hbData.Timestamp,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					if mqttStatus != nil {
						tracker.SetMQTTConnected(mqttStatus.IsConnected())
					}
					tracker.Update(dev.State())
					snap := tracker.Snapshot()
					hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}

			// Update status tracker for HTTP consumers
			if tracker != nil {
				tracker.Update(dev.State())
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}
		}
	}
}

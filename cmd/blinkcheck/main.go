// Command blinkcheck verifies an LED/button device from the outside. It
// drives the button line, samples the LED line and runs the acceptance
// checks for the device mode, either against real hardware or against a
// simulated board.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/sweeney/blinkcheck/internal/config"
	"github.com/sweeney/blinkcheck/internal/gpio"
	"github.com/sweeney/blinkcheck/internal/harness"
	"github.com/sweeney/blinkcheck/internal/logic"
	"github.com/sweeney/blinkcheck/internal/mqtt"
	"github.com/sweeney/blinkcheck/internal/sim"
	"github.com/sweeney/blinkcheck/internal/status"
	"github.com/sweeney/blinkcheck/internal/web"
)

// systemTopic carries the harness lifecycle and Last Will, apart from the
// device's retained status.
const systemTopic = mqtt.TopicHarnessSystem

// options are the flags that only make sense for a single run.
type options struct {
	Sim      bool
	HTTPAddr string
}

func main() {
	cfg, opts, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	passed, err := run(cfg, opts, os.Stdout)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	if !passed {
		os.Exit(1)
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (*config.Config, options, error) {
	def := config.Default()
	configPath := fs.String("config", "", "YAML config file (built-in defaults when empty)")
	backend := fs.String("backend", def.GPIO.Backend, "GPIO backend: cdev, rpio or fake")
	chip := fs.String("chip", def.GPIO.Chip, "GPIO chip (cdev backend)")
	pinLED := fs.Int("pin-led", def.GPIO.LEDPin, "BCM pin number of the LED to sample")
	pinButton := fs.Int("pin-button", def.GPIO.ButtonPin, "BCM pin number of the button to drive")
	mode := fs.String("mode", def.Device.Mode, "Device mode under test: press, blink or blink-on-press")
	debounce := fs.Duration("debounce", def.DeviceConfig().Debounce, "Debounce window of the simulated device")
	period := fs.Duration("period", def.DeviceConfig().Period, "Expected blink period")
	checks := fs.String("checks", "", "Comma-separated checks to run (default: the checks for -mode)")
	useSim := fs.Bool("sim", false, "Run against a simulated board instead of GPIO")
	bounce := fs.Duration("bounce", def.Bounce(), "Contact bounce of the simulated button")
	broker := fs.String("broker", def.MQTT.Broker, "MQTT broker for check results (empty to disable)")
	httpAddr := fs.String("http", "", "HTTP status address (empty to disable)")

	if err := fs.Parse(args); err != nil {
		return nil, options{}, err
	}

	cfg := def
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return nil, options{}, err
		}
		cfg = loaded
	}

	var checkErr error
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
		case "debounce":
			cfg.Device.DebounceMs = int(debounce.Milliseconds())
		case "period":
			cfg.Device.PeriodMs = int(period.Milliseconds())
		case "checks":
			cfg.Harness.Checks, checkErr = harness.ParseChecks(*checks)
		case "bounce":
			cfg.Harness.BounceMs = int(bounce.Milliseconds())
		case "broker":
			cfg.MQTT.Broker = *broker
		}
	})
	if checkErr != nil {
		return nil, options{}, checkErr
	}

	if err := cfg.Validate(); err != nil {
		return nil, options{}, err
	}
	return cfg, options{Sim: *useSim, HTTPAddr: *httpAddr}, nil
}

// fixture is the GPIO side of a run: the lines the harness drives, the clock
// it samples against and, on a simulated board, the device under test.
type fixture struct {
	lines gpio.Lines
	clock harness.Clock
	board *sim.Board
	pin   int
}

// setup acquires the lines and parks the button released.
func setup(cfg *config.Config, useSim bool) (*fixture, error) {
	if useSim {
		b, err := sim.New(cfg.DeviceConfig(), sim.Options{Start: time.Now(), Bounce: cfg.Bounce()})
		if err != nil {
			return nil, fmt.Errorf("init simulated board: %w", err)
		}
		return &fixture{lines: b, clock: b, board: b, pin: cfg.GPIO.ButtonPin}, nil
	}

	lines, err := gpio.Open(cfg.HarnessGPIOOptions())
	if err != nil {
		return nil, fmt.Errorf("init gpio: %w", err)
	}
	if err := lines.Write(cfg.GPIO.ButtonPin, logic.High); err != nil {
		lines.Close()
		return nil, fmt.Errorf("park button: %w", err)
	}
	return &fixture{lines: lines, clock: harness.RealClock(), pin: cfg.GPIO.ButtonPin}, nil
}

// teardown releases the button and closes the lines.
func (f *fixture) teardown() {
	if err := f.lines.Write(f.pin, logic.High); err != nil {
		log.Printf("teardown: release button: %v", err)
	}
	if err := f.lines.Close(); err != nil {
		log.Printf("teardown: close lines: %v", err)
	}
}

// state returns what the harness can see of the device.
func (f *fixture) state(cfg *config.Config) logic.DeviceState {
	if f.board != nil {
		return f.board.Device().State()
	}
	st := logic.DeviceState{Mode: cfg.Mode(), Baselined: true}
	if l, err := f.lines.Read(cfg.GPIO.LEDPin); err == nil {
		st.LED = l
	}
	return st
}

func run(cfg *config.Config, opts options, out io.Writer) (bool, error) {
	fx, err := setup(cfg, opts.Sim)
	if err != nil {
		return false, err
	}
	defer fx.teardown()

	var publisher interface {
		mqtt.Publisher
		mqtt.ConnectionStatus
	} = mqtt.NopPublisher{}
	if cfg.MQTT.Broker != "" {
		p, err := mqtt.NewRealPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID+"-harness", systemTopic)
		if err != nil {
			return false, fmt.Errorf("init mqtt: %w", err)
		}
		publisher = p
	}
	defer publisher.Close()

	tracker := status.NewTracker(time.Now(), statusConfig(cfg, opts))
	tracker.Update(fx.state(cfg))
	tracker.SetMQTTConnected(publisher.IsConnected())

	if opts.HTTPAddr != "" {
		srv := web.New(opts.HTTPAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", opts.HTTPAddr)
	}

	names := cfg.Checks()
	target := "gpio/" + cfg.GPIO.Backend
	if opts.Sim {
		target = "simulated board"
	}
	log.Printf("started: mode=%s checks=%v target=%s led=%d button=%d",
		cfg.Mode(), names, target, cfg.GPIO.LEDPin, cfg.GPIO.ButtonPin)

	h := harness.New(fx.lines, fx.clock, cfg.Plan())
	results := runChecks(h, names, publisher, tracker, func() {
		tracker.Update(fx.state(cfg))
		tracker.SetMQTTConnected(publisher.IsConnected())
	})

	fmt.Fprint(out, harness.Summary(results))
	return harness.AllPassed(results), nil
}

// runChecks runs each check in turn, recording and publishing its result
// as soon as it finishes.
func runChecks(h *harness.Harness, names []string, publisher mqtt.Publisher, tracker *status.Tracker, refresh func()) []logic.CheckResult {
	results := make([]logic.CheckResult, 0, len(names))
	for _, name := range names {
		res := h.Run([]string{name})[0]
		results = append(results, res)

		if refresh != nil {
			refresh()
		}
		if tracker != nil {
			tracker.RecordCheck(res)
		}
		if err := publisher.PublishCheck(res); err != nil {
			log.Printf("publish check %s: %v", name, err)
		}
	}
	return results
}

func statusConfig(cfg *config.Config, opts options) status.Config {
	dc := cfg.DeviceConfig()
	return status.Config{
		Mode:       dc.Mode,
		PollMs:     cfg.Poll().Milliseconds(),
		DebounceMs: dc.Debounce.Milliseconds(),
		PeriodMs:   dc.Period.Milliseconds(),
		Broker:     cfg.MQTT.Broker,
		HTTPAddr:   opts.HTTPAddr,
		LEDPin:     dc.LEDPin,
		ButtonPin:  dc.ButtonPin,
	}
}

package device

import (
	"errors"
	"testing"
	"time"

	"github.com/sweeney/blinkcheck/internal/gpio"
	"github.com/sweeney/blinkcheck/internal/logic"
)

var start = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// newWire returns fake lines with the button released (pulled up).
func newWire() *gpio.FakeLines {
	f := gpio.NewFakeLines()
	f.Set(gpio.PinButton, logic.High)
	return f
}

func newTestDevice(t *testing.T, mode logic.Mode) (*Device, *gpio.FakeLines) {
	t.Helper()
	wire := newWire()
	cfg := DefaultConfig()
	cfg.Mode = mode
	d, err := New(wire, cfg, start)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d, wire
}

// run steps the device every millisecond in (from, to] and returns all events.
func run(t *testing.T, d *Device, from, to time.Duration) []logic.ToggleEvent {
	t.Helper()
	var all []logic.ToggleEvent
	for ms := from + time.Millisecond; ms <= to; ms += time.Millisecond {
		events, err := d.Step(start.Add(ms))
		if err != nil {
			t.Fatalf("step at %v: %v", ms, err)
		}
		all = append(all, events...)
	}
	return all
}

func TestNewDrivesLEDLow(t *testing.T) {
	_, wire := newTestDevice(t, logic.ModePress)

	writes := wire.Writes()
	if len(writes) != 1 {
		t.Fatalf("expected 1 write, got %d", len(writes))
	}
	if writes[0].Pin != gpio.PinLED || writes[0].Level != logic.Low {
		t.Errorf("unexpected initial write: %+v", writes[0])
	}
}

func TestNewLEDWriteFailure(t *testing.T) {
	wire := newWire()
	wire.WriteError = errors.New("line busy")

	if _, err := New(wire, DefaultConfig(), start); err == nil {
		t.Error("expected error when the LED cannot be initialised")
	}
}

func TestMonitorSample(t *testing.T) {
	wire := newWire()
	m := NewMonitor(wire, gpio.PinButton, 20*time.Millisecond)

	l, err := m.Sample()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l != logic.High || m.Last() != logic.High {
		t.Errorf("expected HIGH, got %s (last %s)", l, m.Last())
	}
	if m.IsBaselined() {
		t.Error("Sample alone must not baseline")
	}
}

func TestPressTogglesLEDOncePerPress(t *testing.T) {
	d, wire := newTestDevice(t, logic.ModePress)
	run(t, d, 0, 100*time.Millisecond)
	if !d.IsBaselined() {
		t.Fatal("expected baseline after 100ms")
	}

	wire.Set(gpio.PinButton, logic.Low)
	events := run(t, d, 100*time.Millisecond, 600*time.Millisecond)
	if len(events) != 1 {
		t.Fatalf("expected 1 toggle for a press, got %d", len(events))
	}
	if events[0].Cause != logic.CausePress {
		t.Errorf("expected PRESS cause, got %s", events[0].Cause)
	}
	// First low sample at 101ms, confirmed after the 20ms debounce window
	if want := start.Add(121 * time.Millisecond); !events[0].Timestamp.Equal(want) {
		t.Errorf("toggle at %v, want %v", events[0].Timestamp, want)
	}
	if wire.Level(gpio.PinLED) != logic.High {
		t.Error("LED should be driven HIGH immediately")
	}

	wire.Set(gpio.PinButton, logic.High)
	if events := run(t, d, 600*time.Millisecond, 1100*time.Millisecond); len(events) != 0 {
		t.Errorf("expected no toggle on release, got %d", len(events))
	}

	counts := d.Counts()
	if counts.Presses != 1 || counts.Releases != 1 || counts.Toggles != 1 {
		t.Errorf("unexpected counts: %+v", counts)
	}

	st := d.State()
	if st.LED != logic.High || st.Button != logic.High || st.Mode != logic.ModePress || !st.Baselined {
		t.Errorf("unexpected state: %+v", st)
	}
}

func TestButtonHeldAtStartupDoesNotToggle(t *testing.T) {
	wire := gpio.NewFakeLines()
	wire.Set(gpio.PinButton, logic.Low)
	d, err := New(wire, DefaultConfig(), start)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if events := run(t, d, 0, time.Second); len(events) != 0 {
		t.Errorf("held button at startup must not toggle, got %d", len(events))
	}
}

func TestStepReadFailureLeavesStateUntouched(t *testing.T) {
	d, wire := newTestDevice(t, logic.ModePress)
	run(t, d, 0, 100*time.Millisecond)

	wire.FailReads(gpio.PinButton, 1, errors.New("EIO"))
	events, err := d.Step(start.Add(101 * time.Millisecond))
	if err == nil {
		t.Fatal("expected read error")
	}
	if !gpio.IsReadError(err) {
		t.Errorf("expected *gpio.ReadError, got %T", err)
	}
	if len(events) != 0 {
		t.Errorf("expected no events on read failure, got %d", len(events))
	}

	// Next step recovers
	if _, err := d.Step(start.Add(102 * time.Millisecond)); err != nil {
		t.Errorf("expected recovery on next step: %v", err)
	}
}

func TestStepWriteFailureRetried(t *testing.T) {
	d, wire := newTestDevice(t, logic.ModePress)
	run(t, d, 0, 100*time.Millisecond)

	wire.Set(gpio.PinButton, logic.Low)
	run(t, d, 100*time.Millisecond, 120*time.Millisecond)

	wire.WriteError = errors.New("line busy")
	events, err := d.Step(start.Add(121 * time.Millisecond))
	if err == nil {
		t.Fatal("expected write error")
	}
	if len(events) != 1 {
		t.Fatalf("expected the toggle to be reported, got %d events", len(events))
	}
	if wire.Level(gpio.PinLED) != logic.Low {
		t.Fatal("failed write must not reach the pin")
	}

	wire.WriteError = nil
	if _, err := d.Step(start.Add(122 * time.Millisecond)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wire.Level(gpio.PinLED) != logic.High {
		t.Error("expected the LED write to be retried")
	}
	if d.Counts().Toggles != 1 {
		t.Errorf("expected 1 toggle, got %d", d.Counts().Toggles)
	}
}

func TestBlinkModeDrivesLEDEverySecond(t *testing.T) {
	d, wire := newTestDevice(t, logic.ModeBlink)

	events := run(t, d, 0, 5*time.Second)
	if len(events) != 5 {
		t.Fatalf("expected 5 toggles in 5s, got %d", len(events))
	}
	for i, ev := range events {
		if want := start.Add(time.Duration(i+1) * time.Second); !ev.Timestamp.Equal(want) {
			t.Errorf("toggle %d at %v, want %v", i, ev.Timestamp, want)
		}
	}
	if wire.Level(gpio.PinLED) != logic.High {
		t.Error("expected LED HIGH after 5 toggles")
	}
	if !d.State().Blinking {
		t.Error("expected blinking state")
	}
}

package status

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/blinkcheck/internal/logic"
)

var start = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func testConfig() Config {
	return Config{
		Mode:        logic.ModePress,
		PollMs:      1,
		DebounceMs:  20,
		PeriodMs:    1000,
		HeartbeatMs: 900000,
		Broker:      "tcp://localhost:1883",
		HTTPAddr:    ":8080",
		LEDPin:      17,
		ButtonPin:   27,
	}
}

func TestNewTracker(t *testing.T) {
	tr := NewTracker(start, testConfig())

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Mode != logic.ModePress {
		t.Errorf("Mode: got %q, want press", snap.Mode)
	}
	if snap.Config.HTTPAddr != ":8080" {
		t.Errorf("Config.HTTPAddr: got %q", snap.Config.HTTPAddr)
	}
	if snap.Baselined || snap.MQTTConnected || snap.Blinking {
		t.Errorf("unexpected initial flags: %+v", snap)
	}
	if snap.LED != "" || len(snap.Checks) != 0 {
		t.Errorf("expected empty device state, got %+v", snap)
	}
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(start, testConfig())

	tr.Update(logic.DeviceState{
		LED:       logic.High,
		Button:    logic.Low,
		Mode:      logic.ModeBlinkOnPress,
		Blinking:  true,
		Baselined: true,
		Counts:    logic.Counts{Presses: 3, Releases: 2, Toggles: 7},
	})

	snap := tr.Snapshot()
	if snap.LED != logic.High || snap.Button != logic.Low {
		t.Errorf("levels: got LED=%s button=%s", snap.LED, snap.Button)
	}
	if snap.Mode != logic.ModeBlinkOnPress || !snap.Blinking || !snap.Baselined {
		t.Errorf("unexpected state: %+v", snap)
	}
	if snap.Counts != (logic.Counts{Presses: 3, Releases: 2, Toggles: 7}) {
		t.Errorf("unexpected counts: %+v", snap.Counts)
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(start, Config{})

	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}
	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestRecordCheckSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(start, Config{})
	tr.RecordCheck(logic.CheckResult{Name: "steady_state", Passed: true})

	snap := tr.Snapshot()
	snap.Checks[0].Passed = false
	tr.RecordCheck(logic.CheckResult{Name: "press_response"})

	again := tr.Snapshot()
	if len(again.Checks) != 2 {
		t.Fatalf("expected 2 checks, got %d", len(again.Checks))
	}
	if !again.Checks[0].Passed {
		t.Error("mutating a snapshot must not change the tracker")
	}
	if len(snap.Checks) != 1 {
		t.Error("an earlier snapshot must not see later checks")
	}
}

func TestSnapshotUptime(t *testing.T) {
	snap := Snapshot{StartTime: start, Now: start.Add(90 * time.Second)}
	if snap.Uptime() != 90*time.Second {
		t.Errorf("Uptime: got %v, want 90s", snap.Uptime())
	}
}

func TestSnapshotNowIsSet(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	before := time.Now()
	snap := tr.Snapshot()
	if snap.Now.Before(before) {
		t.Errorf("Now should be at or after %v, got %v", before, snap.Now)
	}
}

func TestFormatJSON(t *testing.T) {
	snap := Snapshot{
		LED:       logic.High,
		Button:    logic.High,
		Mode:      logic.ModePress,
		Baselined: true,
		Counts:    logic.Counts{Presses: 2, Releases: 2, Toggles: 2},
		Checks: []logic.CheckResult{
			{Name: "periodic_toggle", Passed: true, Transitions: 4, MeanInterval: time.Second},
		},
		StartTime:     start,
		Now:           start.Add(65 * time.Second),
		MQTTConnected: true,
		Config:        testConfig(),
	}

	data := FormatJSON(snap)
	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, data)
	}

	s := parsed.Status
	if s.LED != "HIGH" || s.State != "ON" || s.Button != "HIGH" {
		t.Errorf("levels: led=%s state=%s button=%s", s.LED, s.State, s.Button)
	}
	if !s.Ready || s.Mode != "press" {
		t.Errorf("unexpected ready/mode: %v %s", s.Ready, s.Mode)
	}
	if s.UptimeSeconds != 65 {
		t.Errorf("uptime: got %d, want 65", s.UptimeSeconds)
	}
	if s.StartTime != "2026-01-01T00:00:00Z" || s.Timestamp != "2026-01-01T00:01:05Z" {
		t.Errorf("times: start=%s now=%s", s.StartTime, s.Timestamp)
	}
	if !s.MQTT.Connected || s.MQTT.Broker != "tcp://localhost:1883" {
		t.Errorf("unexpected mqtt: %+v", s.MQTT)
	}
	if s.Counts.Toggles != 2 {
		t.Errorf("unexpected counts: %+v", s.Counts)
	}
	if len(s.Checks) != 1 || s.Checks[0].MeanIntervalMs != 1000 {
		t.Errorf("unexpected checks: %+v", s.Checks)
	}
	if s.Config.DebounceMs != 20 || s.Config.LEDPin != 17 || s.Config.ButtonPin != 27 {
		t.Errorf("unexpected config: %+v", s.Config)
	}
	if s.Event != "" || s.Reason != "" {
		t.Error("web status carries no event")
	}
	if !strings.Contains(string(data), "\n  ") {
		t.Error("web status should be indented")
	}
}

func TestFormatJSONUnknownState(t *testing.T) {
	data := FormatJSON(Snapshot{StartTime: start, Now: start})

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.LED != "UNKNOWN" || parsed.Status.State != "UNKNOWN" || parsed.Status.Button != "UNKNOWN" {
		t.Errorf("expected UNKNOWN before baseline, got %+v", parsed.Status)
	}
	if strings.Contains(string(data), `"checks"`) {
		t.Error("checks should be omitted when none ran")
	}
}

func TestFormatStatusEvent(t *testing.T) {
	snap := Snapshot{LED: logic.Low, StartTime: start, Now: start.Add(time.Minute), Config: testConfig()}

	data := FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM")
	if strings.Contains(string(data), "\n") {
		t.Error("event payload should be compact")
	}

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Event != "SHUTDOWN" || parsed.Status.Reason != "SIGTERM" {
		t.Errorf("unexpected event/reason: %s/%s", parsed.Status.Event, parsed.Status.Reason)
	}
	if parsed.Status.State != "OFF" {
		t.Errorf("expected state OFF, got %s", parsed.Status.State)
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	data := FormatStatusEvent(Snapshot{StartTime: start, Now: start}, "HEARTBEAT", "")
	if strings.Contains(string(data), `"reason"`) {
		t.Errorf("reason should be omitted: %s", data)
	}
	if !strings.Contains(string(data), `"event":"HEARTBEAT"`) {
		t.Errorf("missing event: %s", data)
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.Update(logic.DeviceState{LED: logic.High, Counts: logic.Counts{Toggles: i}})
			tr.SetMQTTConnected(i%2 == 0)
			if i%100 == 0 {
				tr.RecordCheck(logic.CheckResult{Name: "steady_state"})
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = FormatJSON(snap)
		}
	}()

	wg.Wait()
}

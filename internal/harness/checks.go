package harness

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/sweeney/blinkcheck/internal/logic"
)

// Check names.
const (
	CheckSteadyState    = "steady_state"
	CheckPressResponse  = "press_response"
	CheckEdgeDebounce   = "edge_debounce"
	CheckPeriodicToggle = "periodic_toggle"
	CheckBlinkOnPress   = "blink_on_press"
)

// ChecksFor returns the checks that apply to a device mode, in run order.
func ChecksFor(mode logic.Mode) []string {
	switch mode {
	case logic.ModeBlink:
		return []string{CheckPeriodicToggle}
	case logic.ModeBlinkOnPress:
		return []string{CheckBlinkOnPress}
	}
	return []string{CheckSteadyState, CheckPressResponse, CheckEdgeDebounce}
}

// ParseChecks splits a comma-separated list of check names.
func ParseChecks(s string) ([]string, error) {
	return ParseChecksList(strings.Split(s, ","))
}

// ParseChecksList trims and validates check names, skipping empty ones.
func ParseChecksList(list []string) ([]string, error) {
	var names []string
	for _, n := range list {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if !knownCheck(n) {
			return nil, fmt.Errorf("unknown check %q", n)
		}
		names = append(names, n)
	}
	return names, nil
}

func knownCheck(name string) bool {
	switch name {
	case CheckSteadyState, CheckPressResponse, CheckEdgeDebounce, CheckPeriodicToggle, CheckBlinkOnPress:
		return true
	}
	return false
}

// Run executes the named checks independently and returns every result.
func (h *Harness) Run(names []string) []logic.CheckResult {
	results := make([]logic.CheckResult, 0, len(names))
	for _, name := range names {
		res, err := h.Check(name)
		if err != nil {
			log.Printf("check %s: FAIL: %v", name, err)
		} else {
			log.Printf("check %s: PASS (%d transitions)", name, res.Transitions)
		}
		results = append(results, res)
	}
	return results
}

// Check runs a single named check. The result is filled in even on failure.
func (h *Harness) Check(name string) (logic.CheckResult, error) {
	started := h.clock.Now()
	var (
		res logic.CheckResult
		err error
	)
	switch name {
	case CheckSteadyState:
		res, err = h.SteadyState()
	case CheckPressResponse:
		res, err = h.PressResponse()
	case CheckEdgeDebounce:
		res, err = h.EdgeDebounce()
	case CheckPeriodicToggle:
		res, err = h.PeriodicToggle()
	case CheckBlinkOnPress:
		res, err = h.BlinkOnPress()
	default:
		err = fmt.Errorf("unknown check %q", name)
	}
	res.Name = name
	res.Started = started
	res.Elapsed = h.clock.Now().Sub(started)
	res.Passed = err == nil
	if err != nil {
		res.Message = err.Error()
	}
	return res, err
}

// SteadyState checks that the LED does not change while the button is idle
// and that it is OFF at the end of the window.
func (h *Harness) SteadyState() (logic.CheckResult, error) {
	p := h.plan
	obs, err := h.Observe(p.LEDPin, p.IdleWindow, p.IdleInterval)
	if err != nil {
		return logic.CheckResult{}, err
	}
	final, err := h.lines.Read(p.LEDPin)
	if err != nil {
		return logic.CheckResult{Transitions: obs.Count()}, err
	}

	res := logic.CheckResult{Transitions: obs.Count(), Final: final}
	if obs.Count() != 0 {
		return res, &AssertionError{Check: CheckSteadyState,
			Msg: fmt.Sprintf("LED should not blink while idle, but detected %d transitions", obs.Count())}
	}
	if final != logic.Low {
		return res, &AssertionError{Check: CheckSteadyState,
			Msg: fmt.Sprintf("LED should be off (LOW) while idle, but found %s", final)}
	}
	return res, nil
}

// PressResponse presses and releases the button PressCycles times and
// checks that the LED toggled at least once and at most once per press.
func (h *Harness) PressResponse() (logic.CheckResult, error) {
	p := h.plan
	last, err := h.lines.Read(p.LEDPin)
	if err != nil {
		return logic.CheckResult{}, err
	}

	toggles := 0
	for i := 1; i <= p.PressCycles; i++ {
		if err := h.Press(); err != nil {
			return logic.CheckResult{Transitions: toggles, Final: last}, err
		}
		h.clock.Sleep(p.PressHold)

		l, err := h.lines.Read(p.LEDPin)
		if err != nil {
			return logic.CheckResult{Transitions: toggles, Final: last}, err
		}
		if l != last {
			toggles++
			log.Printf("harness: press %d: LED %s -> %s", i, last, l)
			last = l
		} else {
			log.Printf("harness: press %d: LED stayed %s", i, l)
		}

		if err := h.Release(); err != nil {
			return logic.CheckResult{Transitions: toggles, Final: last}, err
		}
		h.clock.Sleep(p.ReleaseHold)
	}

	res := logic.CheckResult{Transitions: toggles, Final: last}
	if toggles == 0 {
		return res, &AssertionError{Check: CheckPressResponse,
			Msg: fmt.Sprintf("LED did not toggle despite %d presses", p.PressCycles)}
	}
	if toggles > p.PressCycles {
		return res, &AssertionError{Check: CheckPressResponse,
			Msg: fmt.Sprintf("more LED toggles (%d) than presses (%d)", toggles, p.PressCycles)}
	}
	return res, nil
}

// EdgeDebounce holds the button down for HoldDuration while sampling the LED
// quickly, releases it, waits SettleDuration and checks that the whole
// press produced at most MaxHoldTransitions LED changes.
func (h *Harness) EdgeDebounce() (logic.CheckResult, error) {
	p := h.plan
	initial, err := h.lines.Read(p.LEDPin)
	if err != nil {
		return logic.CheckResult{}, err
	}

	if err := h.Press(); err != nil {
		return logic.CheckResult{Final: initial}, err
	}
	obs := h.observeFrom(p.LEDPin, initial, p.HoldDuration, p.HoldInterval)
	if err := h.Release(); err != nil {
		return logic.CheckResult{Transitions: obs.Count(), Final: obs.Final}, err
	}

	h.clock.Sleep(p.SettleDuration)
	final, err := h.lines.Read(p.LEDPin)
	if err != nil {
		return logic.CheckResult{Transitions: obs.Count(), Final: obs.Final}, err
	}

	transitions := obs.Count()
	if final != obs.Final {
		transitions++
		log.Printf("harness: LED %s -> %s after release", obs.Final, final)
	}

	res := logic.CheckResult{Transitions: transitions, Final: final}
	if transitions > p.MaxHoldTransitions {
		return res, &AssertionError{Check: CheckEdgeDebounce,
			Msg: fmt.Sprintf("too many LED transitions (%d) for a single press", transitions)}
	}
	return res, nil
}

// PeriodicToggle samples the LED for PeriodicWindow and checks that it
// toggles regularly with a mean interval close to Period.
func (h *Harness) PeriodicToggle() (logic.CheckResult, error) {
	p := h.plan
	obs, err := h.Observe(p.LEDPin, p.PeriodicWindow, p.PeriodicInterval)
	if err != nil {
		return logic.CheckResult{}, err
	}
	return h.assertPeriodic(CheckPeriodicToggle, obs)
}

func (h *Harness) assertPeriodic(check string, obs Observation) (logic.CheckResult, error) {
	p := h.plan
	res := logic.CheckResult{Transitions: obs.Count(), Final: obs.Final}

	if want := p.MinPeriodicTransitions(); obs.Count() < want || obs.Count() < 2 {
		return res, &AssertionError{Check: check,
			Msg: fmt.Sprintf("not enough transitions detected: %d (want >= %d)", obs.Count(), want)}
	}

	mean, _ := obs.MeanInterval()
	res.MeanInterval = mean
	lo, hi := p.PeriodBounds()
	if mean < lo || mean > hi {
		return res, &AssertionError{Check: check,
			Msg: fmt.Sprintf("average toggle interval %.3fs is not within [%.3fs, %.3fs]",
				mean.Seconds(), lo.Seconds(), hi.Seconds())}
	}
	return res, nil
}

// BlinkOnPress checks a device whose button starts and stops blinking:
// idle without blinking, a tap starts a regular blink, a second tap stops
// it and leaves the LED OFF.
func (h *Harness) BlinkOnPress() (logic.CheckResult, error) {
	p := h.plan
	idle := 2 * p.Period

	obs, err := h.Observe(p.LEDPin, idle, p.IdleInterval)
	if err != nil {
		return logic.CheckResult{}, err
	}
	if obs.Count() != 0 {
		return logic.CheckResult{Transitions: obs.Count(), Final: obs.Final}, &AssertionError{Check: CheckBlinkOnPress,
			Msg: fmt.Sprintf("LED should not blink before a press, but detected %d transitions", obs.Count())}
	}

	if err := h.Tap(); err != nil {
		return logic.CheckResult{Final: obs.Final}, err
	}
	obs, err = h.Observe(p.LEDPin, p.PeriodicWindow, p.PeriodicInterval)
	if err != nil {
		return logic.CheckResult{}, err
	}
	res, err := h.assertPeriodic(CheckBlinkOnPress, obs)
	if err != nil {
		return res, err
	}

	if err := h.Tap(); err != nil {
		return res, err
	}
	obs, err = h.Observe(p.LEDPin, idle, p.IdleInterval)
	if err != nil {
		return res, err
	}
	res.Final = obs.Final
	if obs.Count() != 0 {
		return res, &AssertionError{Check: CheckBlinkOnPress,
			Msg: fmt.Sprintf("LED should stop blinking after the second press, but detected %d transitions", obs.Count())}
	}
	if obs.Final != logic.Low {
		return res, &AssertionError{Check: CheckBlinkOnPress,
			Msg: fmt.Sprintf("LED should be off (LOW) after blinking stops, but found %s", obs.Final)}
	}
	return res, nil
}

// Summary formats results one per line.
func Summary(results []logic.CheckResult) string {
	var b strings.Builder
	for _, r := range results {
		status := "PASS"
		if !r.Passed {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "%-16s %s transitions=%d", r.Name, status, r.Transitions)
		if r.MeanInterval > 0 {
			fmt.Fprintf(&b, " mean=%.3fs", r.MeanInterval.Seconds())
		}
		fmt.Fprintf(&b, " elapsed=%s", r.Elapsed.Truncate(time.Millisecond))
		if r.Message != "" {
			fmt.Fprintf(&b, " (%s)", r.Message)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// AllPassed reports whether every result passed.
func AllPassed(results []logic.CheckResult) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}

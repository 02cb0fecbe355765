package gpio

import (
	"errors"
	"sync"

	"github.com/sweeney/blinkcheck/internal/logic"
)

// FakeLines is an in-memory wire shared by whoever holds it.
// A write to a pin is immediately visible to reads of the same pin.
// Safe for concurrent use.
type FakeLines struct {
	mu     sync.Mutex
	levels map[int]logic.Level
	fails  map[int][]error
	writes []WriteCall
	reads  int
	closed bool

	// WriteError, if set, will be returned by Write.
	WriteError error
}

// WriteCall records a single Write call.
type WriteCall struct {
	Pin   int
	Level logic.Level
}

// NewFakeLines creates a FakeLines with no pins set. Unset pins read LOW.
func NewFakeLines() *FakeLines {
	return &FakeLines{
		levels: make(map[int]logic.Level),
		fails:  make(map[int][]error),
	}
}

// Read returns the current level of the pin, or the next scripted failure.
func (f *FakeLines) Read(pin int) (logic.Level, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.reads++
	if q := f.fails[pin]; len(q) > 0 {
		err := q[0]
		f.fails[pin] = q[1:]
		return logic.Low, &ReadError{Pin: pin, Err: err}
	}
	if f.closed {
		return logic.Low, &ReadError{Pin: pin, Err: errors.New("lines closed")}
	}

	if l, ok := f.levels[pin]; ok {
		return l, nil
	}
	return logic.Low, nil
}

// Write sets the level of the pin.
func (f *FakeLines) Write(pin int, level logic.Level) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.WriteError != nil {
		return f.WriteError
	}
	f.levels[pin] = level
	f.writes = append(f.writes, WriteCall{Pin: pin, Level: level})
	return nil
}

// Set changes the level of a pin without recording a write. Use it to
// emulate the outside world driving an input.
func (f *FakeLines) Set(pin int, level logic.Level) {
	f.mu.Lock()
	f.levels[pin] = level
	f.mu.Unlock()
}

// Level returns the current level of a pin without counting a read.
func (f *FakeLines) Level(pin int) logic.Level {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.levels[pin]; ok {
		return l
	}
	return logic.Low
}

// FailReads makes the next n reads of pin fail with err.
func (f *FakeLines) FailReads(pin, n int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := 0; i < n; i++ {
		f.fails[pin] = append(f.fails[pin], err)
	}
}

// Writes returns a copy of all recorded writes.
func (f *FakeLines) Writes() []WriteCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]WriteCall, len(f.writes))
	copy(out, f.writes)
	return out
}

// Reads returns the number of Read calls.
func (f *FakeLines) Reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

// Close marks the lines as closed. Subsequent reads fail.
func (f *FakeLines) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (f *FakeLines) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

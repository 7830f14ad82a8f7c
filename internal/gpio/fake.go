package gpio

import (
	"errors"
	"time"
)

// Segment is one step of a scripted input waveform: the line holds Level
// for Duration.
type Segment struct {
	Level    Level
	Duration time.Duration
}

// FakeLine is a test double that replays a scripted waveform.
// While in output mode Read returns the last driven level. Once Input is
// called the waveform starts, timed against Now; after the waveform ends the
// line reads Idle.
type FakeLine struct {
	// Waveform is replayed from the moment Input is called.
	Waveform []Segment

	// Idle is the level read once the waveform is exhausted.
	Idle Level

	// Now reports the current time. It must not advance the clock.
	Now func() time.Time

	// ReadError, if set, will be returned by Read() in input mode.
	ReadError error

	// Writes records every level driven, via Output or Write, in order.
	Writes []Level

	// Inputs counts calls to Input.
	Inputs int

	// Closed tracks if Close was called.
	Closed bool

	output     bool
	driven     Level
	inputSince time.Time
}

// NewFakeLine creates a FakeLine replaying waveform against now.
func NewFakeLine(now func() time.Time, waveform []Segment, idle Level) *FakeLine {
	return &FakeLine{Now: now, Waveform: waveform, Idle: idle}
}

// Output switches to output mode at level.
func (f *FakeLine) Output(level Level) error {
	f.output = true
	f.driven = level
	f.Writes = append(f.Writes, level)
	return nil
}

// Input switches to input mode and restarts the waveform.
func (f *FakeLine) Input() error {
	f.output = false
	f.Inputs++
	f.inputSince = f.Now()
	return nil
}

// Write drives level. It fails in input mode.
func (f *FakeLine) Write(level Level) error {
	if !f.output {
		return errors.New("gpio: write on input line")
	}
	f.driven = level
	f.Writes = append(f.Writes, level)
	return nil
}

// Read returns the driven level in output mode, otherwise the waveform level
// at the current time.
func (f *FakeLine) Read() (Level, error) {
	if f.output {
		return f.driven, nil
	}
	if f.ReadError != nil {
		return Low, f.ReadError
	}

	at := f.Now().Sub(f.inputSince)
	for _, seg := range f.Waveform {
		if at < seg.Duration {
			return seg.Level, nil
		}
		at -= seg.Duration
	}
	return f.Idle, nil
}

// Close marks the line as closed.
func (f *FakeLine) Close() error {
	f.Closed = true
	return nil
}

// Reset clears recorded writes and counters.
func (f *FakeLine) Reset() {
	f.Writes = nil
	f.Inputs = 0
	f.Closed = false
	f.output = false
	f.driven = Low
}

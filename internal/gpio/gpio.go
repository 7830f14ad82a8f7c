// Package gpio provides single-line GPIO access with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation replays a scripted waveform for tests.
package gpio

// Level is the logic level of a line.
type Level int

const (
	Low  Level = 0
	High Level = 1
)

func (l Level) String() string {
	if l == High {
		return "HIGH"
	}
	return "LOW"
}

// Line is a single bidirectional GPIO line.
type Line interface {
	// Output switches the line to output mode, driving it at level.
	Output(level Level) error

	// Input switches the line to input mode with the pull-up enabled.
	Input() error

	// Write sets the output level. The line must be in output mode.
	Write(level Level) error

	// Read returns the current logic level of the line.
	Read() (Level, error)

	// Close releases GPIO resources.
	Close() error
}

// Defaults (BCM numbering on the Raspberry Pi header).
const (
	DefaultChip = "gpiochip0"
	DefaultPin  = 4
)

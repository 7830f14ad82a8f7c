//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealLine drives a GPIO line on actual hardware using the Linux GPIO character device.
type RealLine struct {
	line *gpiocdev.Line
}

// OpenLine requests the line at offset on the named chip. The line starts as
// an output held HIGH, which is the idle state of a single-wire data bus.
func OpenLine(chip string, offset int) (*RealLine, error) {
	l, err := gpiocdev.RequestLine(chip, offset,
		gpiocdev.AsOutput(int(High)),
		gpiocdev.WithConsumer("dht22-sensor"))
	if err != nil {
		return nil, fmt.Errorf("request %s line %d: %w", chip, offset, err)
	}
	return &RealLine{line: l}, nil
}

// Output switches the line to output mode at the given level.
func (r *RealLine) Output(level Level) error {
	if err := r.line.Reconfigure(gpiocdev.AsOutput(int(level))); err != nil {
		return fmt.Errorf("set output: %w", err)
	}
	return nil
}

// Input switches the line to input mode with pull-up so the bus idles HIGH.
func (r *RealLine) Input() error {
	if err := r.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullUp); err != nil {
		return fmt.Errorf("set input: %w", err)
	}
	return nil
}

// Write sets the output level.
func (r *RealLine) Write(level Level) error {
	if err := r.line.SetValue(int(level)); err != nil {
		return fmt.Errorf("write line: %w", err)
	}
	return nil
}

// Read returns the current level of the line.
func (r *RealLine) Read() (Level, error) {
	v, err := r.line.Value()
	if err != nil {
		return Low, fmt.Errorf("read line: %w", err)
	}
	if v != 0 {
		return High, nil
	}
	return Low, nil
}

// Close releases the line.
// Reconfigures it as input with pull-up first so the bus is left idle HIGH
// and nothing is driven while the process is not running.
func (r *RealLine) Close() error {
	if r.line == nil {
		return nil
	}
	var errs []error
	if err := r.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullUp); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure line: %w", err))
	}
	if err := r.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close line: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

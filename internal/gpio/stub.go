//go:build !linux

package gpio

import "errors"

// RealLine is not available on non-Linux platforms.
type RealLine struct{}

// OpenLine returns an error on non-Linux platforms.
func OpenLine(chip string, offset int) (*RealLine, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

func (r *RealLine) Output(Level) error { return errors.New("gpio: not supported") }

func (r *RealLine) Input() error { return errors.New("gpio: not supported") }

func (r *RealLine) Write(Level) error { return errors.New("gpio: not supported") }

func (r *RealLine) Read() (Level, error) { return Low, errors.New("gpio: not supported") }

// Close is a no-op on non-Linux platforms.
func (r *RealLine) Close() error {
	return nil
}

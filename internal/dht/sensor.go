package dht

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sweeney/dht22-sensor/internal/gpio"
	"github.com/sweeney/dht22-sensor/internal/sched"
)

// Retry budget defaults.
const (
	DefaultRetries  = 4
	DefaultCooldown = 2 * time.Second
)

var (
	// ErrInit means the GPIO line could not be opened. No exchange can be
	// attempted; callers should treat it as fatal.
	ErrInit = errors.New("dht22: gpio init failed")

	// ErrEdgeTimeout means an expected level transition did not happen in time.
	ErrEdgeTimeout = errors.New("dht22: edge timeout")

	// ErrChecksum means the frame checksum did not match its payload.
	ErrChecksum = errors.New("dht22: checksum mismatch")

	// ErrTimingOverrun means the exchange took longer than ExchangeTimeout,
	// usually because the thread was preempted.
	ErrTimingOverrun = errors.New("dht22: timing overrun")

	// ErrImplausible means a checksummed frame decoded outside the sensor's
	// operating range.
	ErrImplausible = errors.New("dht22: implausible value")
)

// Outcome classifies the result of one attempt for logs and metrics.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrEdgeTimeout):
		return "edge_timeout"
	case errors.Is(err, ErrChecksum):
		return "checksum"
	case errors.Is(err, ErrTimingOverrun):
		return "timing_overrun"
	case errors.Is(err, ErrImplausible):
		return "implausible"
	default:
		return "io"
	}
}

// Observer is told about every attempt. elapsed is zero when the exchange
// did not get as far as reading data.
type Observer interface {
	ObserveAttempt(err error, elapsed time.Duration)
}

// Releaser ends a real-time section.
type Releaser interface {
	Release()
}

// Sensor is a DHT22 on one GPIO line. It is not safe for concurrent use:
// each exchange owns the line exclusively.
type Sensor struct {
	line     gpio.Line
	clock    Clock
	raise    func() Releaser
	observer Observer
	retries  int
	cooldown time.Duration
}

// Option configures a Sensor.
type Option func(*Sensor)

// WithRetries sets how many times a failed attempt is retried.
func WithRetries(n int) Option {
	return func(s *Sensor) {
		if n >= 0 {
			s.retries = n
		}
	}
}

// WithCooldown sets the pause between attempts.
func WithCooldown(d time.Duration) Option {
	return func(s *Sensor) { s.cooldown = d }
}

// WithObserver reports every attempt to o.
func WithObserver(o Observer) Option {
	return func(s *Sensor) { s.observer = o }
}

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(s *Sensor) { s.clock = c }
}

// WithPriority replaces the real-time scheduling section.
func WithPriority(raise func() Releaser) Option {
	return func(s *Sensor) { s.raise = raise }
}

// New creates a Sensor on an already opened line.
func New(line gpio.Line, opts ...Option) *Sensor {
	s := &Sensor{
		line:     line,
		clock:    realClock{},
		raise:    func() Releaser { return sched.Raise() },
		retries:  DefaultRetries,
		cooldown: DefaultCooldown,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open initializes GPIO access to the line at offset on chip and returns a
// Sensor on it. The error wraps ErrInit.
func Open(chip string, offset int, opts ...Option) (*Sensor, error) {
	line, err := gpio.OpenLine(chip, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInit, err)
	}
	return New(line, opts...), nil
}

// Close releases the GPIO line.
func (s *Sensor) Close() error {
	return s.line.Close()
}

// Read measures temperature and humidity. It makes up to retries+1
// attempts, pausing for the cooldown between them, and returns the first
// reading that passes the checksum, timing and range checks. If none does
// it returns NotAvailable. Failures are absorbed; the kind of the last
// failure is not reported.
func (s *Sensor) Read() Reading {
	attempts := s.retries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		r, elapsed, err := s.attempt()
		if s.observer != nil {
			s.observer.ObserveAttempt(err, elapsed)
		}
		if err == nil {
			return r
		}

		log.Printf("dht22: attempt %d/%d failed: %v", attempt, attempts, err)
		if attempt < attempts {
			s.clock.Sleep(s.cooldown)
		}
	}
	return NotAvailable
}

func (s *Sensor) attempt() (Reading, time.Duration, error) {
	frame, elapsed, err := s.query()
	if err != nil {
		return NotAvailable, elapsed, err
	}

	r := DecodeReading(frame.Payload())
	if !r.Plausible() {
		return NotAvailable, elapsed, fmt.Errorf("%w: %v", ErrImplausible, r)
	}
	return r, elapsed, nil
}

// query performs one exchange with the sensor.
//
// A byte whose decode times out is left as zero and the remaining bytes are
// still read, so the frame is judged only by the timing and checksum gates.
// An all-zero frame from a silent bus passes the checksum; the range check
// in attempt is what rejects anything implausible.
func (s *Sensor) query() (Frame, time.Duration, error) {
	var frame Frame

	guard := s.raise()
	defer guard.Release()

	start := s.clock.Now()

	if err := s.line.Output(gpio.Low); err != nil {
		return frame, 0, err
	}
	s.clock.Delay(WakeLow)
	if err := s.line.Write(gpio.High); err != nil {
		return frame, 0, err
	}
	s.clock.Delay(WakeHigh)
	if err := s.line.Input(); err != nil {
		return frame, 0, err
	}

	if err := waitPulse(s.line, s.clock); err != nil {
		return frame, 0, fmt.Errorf("acknowledge: %w", err)
	}

	var decodeErr error
	for i := range frame {
		b, err := readByte(s.line, s.clock)
		if err != nil && decodeErr == nil {
			decodeErr = fmt.Errorf("byte %d: %w", i, err)
		}
		frame[i] = b
	}

	elapsed := s.clock.Now().Sub(start)

	if elapsed > ExchangeTimeout {
		return frame, elapsed, fmt.Errorf("%w: exchange took %v", ErrTimingOverrun, elapsed)
	}
	if !frame.Valid() {
		if decodeErr != nil {
			return frame, elapsed, fmt.Errorf("%w: got %#02x, want %#02x (%v)", ErrChecksum, frame[4], frame.Checksum(), decodeErr)
		}
		return frame, elapsed, fmt.Errorf("%w: got %#02x, want %#02x", ErrChecksum, frame[4], frame.Checksum())
	}
	return frame, elapsed, nil
}

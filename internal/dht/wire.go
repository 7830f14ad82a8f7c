package dht

import (
	"fmt"
	"time"

	"github.com/sweeney/dht22-sensor/internal/gpio"
)

// Timing budget of one exchange.
const (
	// EdgeTimeout bounds each wait for a level transition.
	EdgeTimeout = time.Millisecond

	// ExchangeTimeout bounds a whole exchange. The protocol needs
	// 10ms + 40µs wake, 2 × 80µs acknowledgment and 40 × (50µs + 27µs or
	// 70µs) of data: 15.01ms at worst. Anything longer was preempted.
	ExchangeTimeout = 16 * time.Millisecond

	// SampleDelay is how long after a rising edge a bit is sampled. A 0 bit
	// is a ~27µs HIGH pulse, a 1 bit ~70µs.
	SampleDelay = 30 * time.Microsecond

	// WakeLow and WakeHigh are the host start signal.
	WakeLow  = 10 * time.Millisecond
	WakeHigh = 40 * time.Microsecond
)

// Clock is the time source of the protocol. Tests inject a simulated one.
type Clock interface {
	Now() time.Time

	// Delay blocks for d with microsecond precision.
	Delay(d time.Duration)

	// Sleep blocks for d where precision does not matter.
	Sleep(d time.Duration)
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Delay spins for sub-millisecond durations; the runtime timer cannot wake
// a goroutine that precisely.
func (realClock) Delay(d time.Duration) {
	if d >= time.Millisecond {
		time.Sleep(d)
		return
	}
	start := time.Now()
	for time.Since(start) < d {
	}
}

func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

// waitForLevel busy-polls line until it reads want, or fails with
// ErrEdgeTimeout once timeout has passed since the call began.
func waitForLevel(line gpio.Line, clock Clock, want gpio.Level, timeout time.Duration) error {
	deadline := clock.Now().Add(timeout)
	for {
		level, err := line.Read()
		if err != nil {
			return err
		}
		if level == want {
			return nil
		}
		if clock.Now().After(deadline) {
			return fmt.Errorf("%w: waiting for %v", ErrEdgeTimeout, want)
		}
	}
}

// waitPulse waits for the end of the current HIGH (a LOW level) and then the
// next rising edge, each phase with its own EdgeTimeout.
func waitPulse(line gpio.Line, clock Clock) error {
	if err := waitForLevel(line, clock, gpio.Low, EdgeTimeout); err != nil {
		return err
	}
	return waitForLevel(line, clock, gpio.High, EdgeTimeout)
}

// readByte decodes eight bits, most significant first. On failure the byte
// is abandoned and 0 is returned with the error.
func readByte(line gpio.Line, clock Clock) (byte, error) {
	var b byte
	for bit := 0; bit < 8; bit++ {
		if err := waitPulse(line, clock); err != nil {
			return 0, fmt.Errorf("bit %d: %w", bit, err)
		}

		clock.Delay(SampleDelay)

		level, err := line.Read()
		if err != nil {
			return 0, fmt.Errorf("bit %d: %w", bit, err)
		}
		b <<= 1
		if level == gpio.High {
			b |= 1
		}
	}
	return b, nil
}

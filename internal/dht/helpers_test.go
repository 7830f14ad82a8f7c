package dht

import (
	"time"

	"github.com/sweeney/dht22-sensor/internal/gpio"
)

// fakeClock is a simulated time source. Every Now call advances time by
// step, so busy-wait loops make progress the way they do on hardware.
type fakeClock struct {
	t      time.Time
	step   time.Duration
	stall  time.Duration // added to every millisecond-scale Delay
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{
		t:    time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		step: time.Microsecond,
	}
}

func (c *fakeClock) Now() time.Time {
	t := c.t
	c.t = c.t.Add(c.step)
	return t
}

func (c *fakeClock) peek() time.Time { return c.t }

func (c *fakeClock) Delay(d time.Duration) {
	if d >= time.Millisecond {
		d += c.stall
	}
	c.t = c.t.Add(d)
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.sleeps = append(c.sleeps, d)
	c.t = c.t.Add(d)
}

// frameWaveform is what a healthy sensor puts on the bus after the host
// releases it: a short pull-up HIGH, the 80µs LOW/HIGH acknowledgment, then
// 40 bits of 50µs LOW followed by a 27µs (0) or 70µs (1) HIGH.
func frameWaveform(f Frame) []gpio.Segment {
	w := []gpio.Segment{
		{Level: gpio.High, Duration: 20 * time.Microsecond},
		{Level: gpio.Low, Duration: 80 * time.Microsecond},
		{Level: gpio.High, Duration: 80 * time.Microsecond},
	}
	for _, b := range f {
		for bit := 7; bit >= 0; bit-- {
			high := 27 * time.Microsecond
			if b>>uint(bit)&1 == 1 {
				high = 70 * time.Microsecond
			}
			w = append(w,
				gpio.Segment{Level: gpio.Low, Duration: 50 * time.Microsecond},
				gpio.Segment{Level: gpio.High, Duration: high},
			)
		}
	}
	return append(w, gpio.Segment{Level: gpio.Low, Duration: 50 * time.Microsecond})
}

// checksummed fills in the checksum byte for a payload.
func checksummed(b0, b1, b2, b3 byte) Frame {
	return Frame{b0, b1, b2, b3, b0 + b1 + b2 + b3}
}

// attemptLine replays a different waveform for each exchange; the last one
// repeats once the list is exhausted.
type attemptLine struct {
	*gpio.FakeLine
	waveforms [][]gpio.Segment
}

func newAttemptLine(clk *fakeClock, waveforms ...[]gpio.Segment) *attemptLine {
	return &attemptLine{
		FakeLine:  gpio.NewFakeLine(clk.peek, nil, gpio.High),
		waveforms: waveforms,
	}
}

func (l *attemptLine) Input() error {
	i := l.FakeLine.Inputs
	if i >= len(l.waveforms) {
		i = len(l.waveforms) - 1
	}
	l.Waveform = l.waveforms[i]
	return l.FakeLine.Input()
}

// fakePriority counts real-time sections.
type fakePriority struct {
	raised   int
	released int
}

type fakeGuard struct {
	p    *fakePriority
	done bool
}

func (g *fakeGuard) Release() {
	if g.done {
		return
	}
	g.done = true
	g.p.released++
}

func (p *fakePriority) raise() Releaser {
	p.raised++
	return &fakeGuard{p: p}
}

// recordingObserver keeps the outcome of every attempt.
type recordingObserver struct {
	outcomes []string
	elapsed  []time.Duration
}

func (o *recordingObserver) ObserveAttempt(err error, elapsed time.Duration) {
	o.outcomes = append(o.outcomes, Outcome(err))
	o.elapsed = append(o.elapsed, elapsed)
}

// noAck is a bus on which the sensor never answers.
var noAck = []gpio.Segment(nil)

func newTestSensor(clk *fakeClock, line gpio.Line, opts ...Option) (*Sensor, *fakePriority, *recordingObserver) {
	prio := &fakePriority{}
	obs := &recordingObserver{}
	opts = append([]Option{WithClock(clk), WithPriority(prio.raise), WithObserver(obs)}, opts...)
	return New(line, opts...), prio, obs
}

// Package status provides a thread-safe status tracker for the dht22-sensor daemon.
// It is written by the run loop and read by HTTP handlers.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/dht22-sensor/internal/dht"
	"github.com/sweeney/dht22-sensor/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	Chip        string
	Pin         int
	PollMs      int64
	Retries     int
	CooldownMs  int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	State         logic.State
	Reading       dht.Reading // last valid reading, NotAvailable before the first
	ReadingAt     time.Time
	Baselined     bool
	Counts        logic.Counts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Reading:   dht.NotAvailable,
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// Update records the monitor's current view. Called from the run loop after
// every read.
func (t *Tracker) Update(state logic.State, reading dht.Reading, readingAt time.Time, baselined bool, counts logic.Counts) {
	t.mu.Lock()
	t.snap.State = state
	t.snap.Reading = reading
	t.snap.ReadingAt = readingAt
	t.snap.Baselined = baselined
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}

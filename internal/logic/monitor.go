package logic

import (
	"time"

	"github.com/sweeney/dht22-sensor/internal/dht"
)

// Monitor turns successive reads into publishable events.
type Monitor struct {
	lossAfter     int
	state         State
	missed        int // consecutive not-available reads
	last          dht.Reading
	lastAt        time.Time
	startTime     time.Time
	counts        Counts
	lastHeartbeat time.Time
}

// NewMonitor creates a Monitor. The sensor is declared lost after lossAfter
// consecutive reads without a value (at least 1). The startTime is used for
// calculating uptime in heartbeat events.
func NewMonitor(lossAfter int, startTime time.Time) *Monitor {
	if lossAfter < 1 {
		lossAfter = 1
	}
	return &Monitor{
		lossAfter:     lossAfter,
		last:          dht.NotAvailable,
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Process takes the result of a read and returns the events to publish.
// Every valid reading yields a READING event. Availability changes yield
// SENSOR_LOST or SENSOR_RECOVERED, except for the first state established
// after startup, which is the baseline.
func (m *Monitor) Process(in Input) []Event {
	if !in.Reading.Valid() {
		return m.processMissing(in.Time)
	}

	var events []Event
	m.counts.Valid++
	m.missed = 0
	m.last = in.Reading
	m.lastAt = in.Time

	if m.state == StateUnavailable {
		m.counts.Recovered++
		events = append(events, Event{
			Timestamp: in.Time,
			Type:      EventRecovered,
			Reading:   in.Reading,
			State:     StateAvailable,
		})
	}
	m.state = StateAvailable

	return append(events, Event{
		Timestamp: in.Time,
		Type:      EventReading,
		Reading:   in.Reading,
		State:     StateAvailable,
	})
}

func (m *Monitor) processMissing(now time.Time) []Event {
	m.counts.NotAvailable++
	m.missed++

	if m.state == StateUnavailable || m.missed < m.lossAfter {
		return nil
	}

	wasAvailable := m.state == StateAvailable
	m.state = StateUnavailable
	if !wasAvailable {
		return nil // baseline
	}

	m.counts.Lost++
	return []Event{{
		Timestamp: now,
		Type:      EventLost,
		Reading:   dht.NotAvailable,
		State:     StateUnavailable,
	}}
}

// IsBaselined returns whether availability has been established.
func (m *Monitor) IsBaselined() bool {
	return m.state != ""
}

// CurrentState returns the availability state and the last valid reading
// with its time. The reading is NotAvailable until the first valid read.
func (m *Monitor) CurrentState() (State, dht.Reading, time.Time) {
	return m.state, m.last, m.lastAt
}

// CountsSnapshot returns a copy of the counters.
func (m *Monitor) CountsSnapshot() Counts {
	return m.counts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if not yet baselined, if the
// interval has not elapsed, or if interval is <= 0 (disabled).
func (m *Monitor) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if !m.IsBaselined() {
		return nil
	}

	if now.Sub(m.lastHeartbeat) < interval {
		return nil
	}

	m.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(m.startTime),
		Counts:    m.counts,
	}
}

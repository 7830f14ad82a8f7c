// Package logic contains pure logic for tracking sensor availability.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import (
	"time"

	"github.com/sweeney/dht22-sensor/internal/dht"
)

// State is whether the sensor is currently delivering readings.
type State string

const (
	StateAvailable   State = "AVAILABLE"
	StateUnavailable State = "UNAVAILABLE"
)

// EventType identifies an event to be published.
type EventType string

const (
	EventReading   EventType = "READING"
	EventLost      EventType = "SENSOR_LOST"
	EventRecovered EventType = "SENSOR_RECOVERED"
)

// Event is something to be published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Reading   dht.Reading // NotAvailable for SENSOR_LOST
	State     State
}

// Input is the result of one completed sensor read.
type Input struct {
	Reading dht.Reading
	Time    time.Time
}

// Counts tracks read results and availability transitions since startup.
type Counts struct {
	Valid        int
	NotAvailable int
	Lost         int
	Recovered    int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    Counts
}

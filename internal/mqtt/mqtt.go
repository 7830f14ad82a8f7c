// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/dht22-sensor/internal/dht"
	"github.com/sweeney/dht22-sensor/internal/logic"
)

// Topic is the MQTT topic for readings and availability events.
const Topic = "environment/dht22/sensor/readings"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "environment/dht22/sensor/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a sensor event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT", "RECONNECTED"
	Reason     string // e.g., "SIGTERM", "MQTT_DISCONNECT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Reading ReadingPayload `json:"reading"`
}

// ReadingPayload contains the event details. Values are null when the
// sensor is not available.
type ReadingPayload struct {
	Timestamp    string   `json:"timestamp"`
	Event        string   `json:"event"`
	State        string   `json:"state"`
	TemperatureC *float64 `json:"temperature_c"`
	HumidityPct  *float64 `json:"humidity_pct"`
}

// FormatPayload creates the JSON payload for a sensor event.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		Reading: ReadingPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(event.Type),
			State:     string(event.State),
		},
	}
	payload.Reading.TemperatureC, payload.Reading.HumidityPct = readingValues(event.Reading)
	return json.Marshal(payload)
}

func readingValues(r dht.Reading) (temperature, humidity *float64) {
	if r.Temperature.Valid() {
		v := r.Temperature.Celsius()
		temperature = &v
	}
	if r.Humidity.Valid() {
		v := r.Humidity.Percent()
		humidity = &v
	}
	return temperature, humidity
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

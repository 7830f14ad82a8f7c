package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Sensor        string       `json:"sensor"`
	Reading       *ReadingJSON `json:"reading"`
	Ready         bool         `json:"ready"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"read_counts"`
	Config        ConfigJSON   `json:"config"`
}

// ReadingJSON is the last valid reading.
type ReadingJSON struct {
	TemperatureC float64 `json:"temperature_c"`
	HumidityPct  float64 `json:"humidity_pct"`
	Timestamp    string  `json:"timestamp"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of read counts.
type CountsJSON struct {
	Valid        int `json:"valid"`
	NotAvailable int `json:"not_available"`
	Lost         int `json:"lost"`
	Recovered    int `json:"recovered"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Chip        string `json:"chip"`
	Pin         int    `json:"pin"`
	PollMs      int64  `json:"poll_ms"`
	Retries     int    `json:"retries"`
	CooldownMs  int64  `json:"cooldown_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	sensor := string(snap.State)
	if sensor == "" {
		sensor = "UNKNOWN"
	}

	inner := StatusInner{
		Sensor:        sensor,
		Ready:         snap.Baselined,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Valid:        snap.Counts.Valid,
			NotAvailable: snap.Counts.NotAvailable,
			Lost:         snap.Counts.Lost,
			Recovered:    snap.Counts.Recovered,
		},
		Config: ConfigJSON{
			Chip:        snap.Config.Chip,
			Pin:         snap.Config.Pin,
			PollMs:      snap.Config.PollMs,
			Retries:     snap.Config.Retries,
			CooldownMs:  snap.Config.CooldownMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
		},
	}

	if snap.Reading.Valid() {
		inner.Reading = &ReadingJSON{
			TemperatureC: snap.Reading.Temperature.Celsius(),
			HumidityPct:  snap.Reading.Humidity.Percent(),
			Timestamp:    snap.ReadingAt.UTC().Format(time.RFC3339),
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

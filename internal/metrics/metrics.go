// Package metrics exposes sensor attempt statistics and the latest reading
// as Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sweeney/dht22-sensor/internal/dht"
)

// Collector implements dht.Observer and records readings.
type Collector struct {
	attempts    *prometheus.CounterVec
	exchange    prometheus.Histogram
	readings    *prometheus.CounterVec
	temperature prometheus.Gauge
	humidity    prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dht22_attempts_total",
			Help: "Sensor exchange attempts by outcome.",
		}, []string{"outcome"}),
		exchange: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dht22_exchange_duration_seconds",
			Help:    "Wall-clock duration of exchanges that reached the data phase.",
			Buckets: []float64{0.0125, 0.013, 0.0135, 0.014, 0.0145, 0.015, 0.0155, 0.016, 0.02, 0.05},
		}),
		readings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dht22_readings_total",
			Help: "Completed reads by result.",
		}, []string{"result"}),
		temperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dht22_temperature_celsius",
			Help: "Last valid temperature.",
		}),
		humidity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dht22_humidity_percent",
			Help: "Last valid relative humidity.",
		}),
	}

	// Pre-create every outcome so rates are defined from the first scrape.
	for _, o := range []string{"ok", "edge_timeout", "checksum", "timing_overrun", "implausible", "io"} {
		c.attempts.WithLabelValues(o)
	}
	c.readings.WithLabelValues("valid")
	c.readings.WithLabelValues("not_available")

	reg.MustRegister(c.attempts, c.exchange, c.readings, c.temperature, c.humidity)
	return c
}

// ObserveAttempt records one exchange attempt.
func (c *Collector) ObserveAttempt(err error, elapsed time.Duration) {
	c.attempts.WithLabelValues(dht.Outcome(err)).Inc()
	if elapsed > 0 {
		c.exchange.Observe(elapsed.Seconds())
	}
}

// ObserveReading records the result of a completed read. Gauges keep the
// last valid values when the sensor is not available.
func (c *Collector) ObserveReading(r dht.Reading) {
	if !r.Valid() {
		c.readings.WithLabelValues("not_available").Inc()
		return
	}
	c.readings.WithLabelValues("valid").Inc()
	c.temperature.Set(r.Temperature.Celsius())
	c.humidity.Set(r.Humidity.Percent())
}

// Package dht reads a DHT22 (AM2302) humidity/temperature sensor over a
// single GPIO line.
//
// The sensor answers a host wake pulse with a 40-bit frame: 16 bits of
// humidity, 16 bits of temperature and an 8-bit checksum, each bit encoded
// in the width of a HIGH pulse. Decoding depends on microsecond timing, so
// every exchange runs inside a real-time scheduling section and is
// discarded when it takes longer than the protocol allows.
package dht

import (
	"fmt"
	"math"
)

// Temperature is a temperature in tenths of a degree Celsius.
type Temperature int16

// Humidity is a relative humidity in tenths of a percent.
type Humidity uint16

// Sentinels for "not available". Neither value can be produced by decoding
// a frame within the sensor's operating range.
const (
	TemperatureNA Temperature = math.MinInt16
	HumidityNA    Humidity    = math.MaxUint16
)

// Documented operating range of the DHT22, in tenths.
const (
	MinTemperature Temperature = -400
	MaxTemperature Temperature = 800
	MinHumidity    Humidity    = 0
	MaxHumidity    Humidity    = 1000
)

// Valid reports whether t holds a measurement.
func (t Temperature) Valid() bool { return t != TemperatureNA }

// Celsius returns the temperature in degrees Celsius.
func (t Temperature) Celsius() float64 { return float64(t) / 10 }

func (t Temperature) String() string {
	if !t.Valid() {
		return "N/A"
	}
	return fmt.Sprintf("%.1f", t.Celsius())
}

// Valid reports whether h holds a measurement.
func (h Humidity) Valid() bool { return h != HumidityNA }

// Percent returns the relative humidity in percent.
func (h Humidity) Percent() float64 { return float64(h) / 10 }

func (h Humidity) String() string {
	if !h.Valid() {
		return "N/A"
	}
	return fmt.Sprintf("%.1f", h.Percent())
}

// Reading is one measurement. It is a value type and never modified after
// Sensor.Read returns it.
type Reading struct {
	Temperature Temperature
	Humidity    Humidity
}

// NotAvailable is returned when no valid measurement was obtained.
var NotAvailable = Reading{Temperature: TemperatureNA, Humidity: HumidityNA}

// Valid reports whether both fields hold measurements.
func (r Reading) Valid() bool {
	return r.Temperature.Valid() && r.Humidity.Valid()
}

// Plausible reports whether both values lie within the sensor's operating
// range. A frame with a matching checksum can still decode to a value the
// sensor cannot produce.
func (r Reading) Plausible() bool {
	return r.Temperature >= MinTemperature && r.Temperature <= MaxTemperature &&
		r.Humidity >= MinHumidity && r.Humidity <= MaxHumidity
}

func (r Reading) String() string {
	return fmt.Sprintf("temperature=%sC humidity=%s%%", r.Temperature, r.Humidity)
}

// DecodeReading converts the four payload bytes of a frame
// (humidity high/low, temperature high/low) into a Reading.
// The top bit of the temperature high byte is a sign flag applied after
// the magnitude is decoded.
func DecodeReading(p [4]byte) Reading {
	h := Humidity(uint16(p[0])<<8 | uint16(p[1]))

	t := Temperature(uint16(p[2]&0x7F)<<8 | uint16(p[3]))
	if p[2]&0x80 != 0 {
		t = -t
	}

	return Reading{Temperature: t, Humidity: h}
}

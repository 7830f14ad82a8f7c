package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/sweeney/dht22-sensor/internal/dht"
	"github.com/sweeney/dht22-sensor/internal/logic"
	"github.com/sweeney/dht22-sensor/internal/mqtt"
	"github.com/sweeney/dht22-sensor/internal/status"
)

// fakeClock returns a function that yields start, start+step, start+2*step, ...
// on successive calls. Not safe for concurrent use (only called from runLoop's goroutine).
func fakeClock(start time.Time, step time.Duration) func() time.Time {
	n := 0
	return func() time.Time {
		t := start.Add(time.Duration(n) * step)
		n++
		return t
	}
}

// scriptedSensor returns its readings in order, then NotAvailable.
type scriptedSensor struct {
	readings []dht.Reading
	calls    int
}

func (s *scriptedSensor) Read() dht.Reading {
	i := s.calls
	s.calls++
	if i >= len(s.readings) {
		return dht.NotAvailable
	}
	return s.readings[i]
}

var (
	warm = dht.Reading{Temperature: 215, Humidity: 452}
	na   = dht.NotAvailable
)

type loopOpts struct {
	lostAfter int
	heartbeat time.Duration
	step      time.Duration
	tracker   *status.Tracker
	observe   func(dht.Reading)
}

// runRunLoop drives runLoop with one tick per scripted reading and then the
// given signal.
func runRunLoop(t *testing.T, readings []dht.Reading, pub *mqtt.FakePublisher, o loopOpts, signal os.Signal) error {
	t.Helper()
	if o.lostAfter == 0 {
		o.lostAfter = 1
	}
	if o.step == 0 {
		o.step = time.Minute
	}
	sensor := &scriptedSensor{readings: readings}
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), o.step)
	tick := make(chan time.Time)
	sig := make(chan os.Signal, 1)

	errCh := make(chan error, 1)
	go func() {
		errCh <- runLoop(sensor, pub, pub, o.tracker, o.observe, o.lostAfter, o.heartbeat, clock, tick, sig)
	}()

	for range readings {
		tick <- time.Time{}
	}
	sig <- signal

	return <-errCh
}

func eventTypes(events []logic.Event) []logic.EventType {
	out := make([]logic.EventType, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}

func TestRunLoopPublishesReadings(t *testing.T) {
	pub := mqtt.NewFakePublisher()

	err := runRunLoop(t, []dht.Reading{warm, warm, warm}, pub, loopOpts{}, syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if len(pub.Events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(pub.Events))
	}
	for i, e := range pub.Events {
		if e.Type != logic.EventReading {
			t.Errorf("event %d: expected READING, got %s", i, e.Type)
		}
	}
	if !strings.Contains(string(pub.Payloads[0]), `"temperature_c":21.5`) {
		t.Errorf("payload missing temperature: %s", pub.Payloads[0])
	}

	if len(pub.SystemEvents) != 1 {
		t.Fatalf("expected 1 system event, got %d", len(pub.SystemEvents))
	}
	if pub.SystemEvents[0].Event != "SHUTDOWN" {
		t.Errorf("expected SHUTDOWN event, got %q", pub.SystemEvents[0].Event)
	}
}

func TestRunLoopSensorLostAndRecovered(t *testing.T) {
	pub := mqtt.NewFakePublisher()

	err := runRunLoop(t, []dht.Reading{warm, na, na, warm}, pub, loopOpts{lostAfter: 2}, syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	got := eventTypes(pub.Events)
	want := []logic.EventType{logic.EventReading, logic.EventLost, logic.EventRecovered, logic.EventReading}
	if len(got) != len(want) {
		t.Fatalf("events: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: got %s, want %s", i, got[i], want[i])
		}
	}

	if !strings.Contains(string(pub.Payloads[1]), `"temperature_c":null`) {
		t.Errorf("SENSOR_LOST payload should carry null values: %s", pub.Payloads[1])
	}
}

func TestRunLoopNoEventsWhenNeverAvailable(t *testing.T) {
	pub := mqtt.NewFakePublisher()

	err := runRunLoop(t, []dht.Reading{na, na, na}, pub, loopOpts{lostAfter: 2}, syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if len(pub.Events) != 0 {
		t.Errorf("expected 0 events for an unavailable baseline, got %v", eventTypes(pub.Events))
	}
}

func TestRunLoopHeartbeat(t *testing.T) {
	// Clock calls: t0 start, +5m, +10m, +15m, +20m. The heartbeat is due at
	// the third tick and not again at the fourth.
	pub := mqtt.NewFakePublisher()
	tracker := status.NewTracker(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), status.Config{})

	err := runRunLoop(t, []dht.Reading{warm, warm, warm, warm}, pub, loopOpts{
		heartbeat: 15 * time.Minute,
		step:      5 * time.Minute,
		tracker:   tracker,
	}, syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	var heartbeats, shutdowns int
	for i, se := range pub.SystemEvents {
		switch se.Event {
		case "HEARTBEAT":
			heartbeats++
			var sj status.StatusJSON
			if err := json.Unmarshal(pub.SystemPayloads[i], &sj); err != nil {
				t.Fatalf("decode heartbeat payload: %v", err)
			}
			if sj.Status.Event != "HEARTBEAT" {
				t.Errorf("payload event: got %q, want HEARTBEAT", sj.Status.Event)
			}
			if sj.Status.Counts.Valid != 3 {
				t.Errorf("payload valid count: got %d, want 3", sj.Status.Counts.Valid)
			}
		case "SHUTDOWN":
			shutdowns++
		}
	}
	if heartbeats != 1 {
		t.Errorf("expected 1 HEARTBEAT event, got %d", heartbeats)
	}
	if shutdowns != 1 {
		t.Errorf("expected 1 SHUTDOWN event, got %d", shutdowns)
	}
}

func TestRunLoopHeartbeatDisabled(t *testing.T) {
	pub := mqtt.NewFakePublisher()

	err := runRunLoop(t, []dht.Reading{warm, warm, warm, warm}, pub, loopOpts{step: time.Hour}, syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	for _, se := range pub.SystemEvents {
		if se.Event == "HEARTBEAT" {
			t.Error("unexpected HEARTBEAT with heartbeat disabled")
		}
	}
}

func TestRunLoopPublishError(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	pub.PublishError = fmt.Errorf("broker unavailable")

	err := runRunLoop(t, []dht.Reading{warm, warm}, pub, loopOpts{}, syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if len(pub.Events) != 0 {
		t.Errorf("expected 0 recorded events (publish failed), got %d", len(pub.Events))
	}
	if len(pub.SystemEvents) != 1 || pub.SystemEvents[0].Event != "SHUTDOWN" {
		t.Errorf("expected SHUTDOWN despite publish errors, got %+v", pub.SystemEvents)
	}
}

func TestRunLoopShutdownSIGINT(t *testing.T) {
	pub := mqtt.NewFakePublisher()

	err := runRunLoop(t, []dht.Reading{warm}, pub, loopOpts{}, syscall.SIGINT)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if len(pub.SystemEvents) != 1 {
		t.Fatalf("expected 1 system event, got %d", len(pub.SystemEvents))
	}
	se := pub.SystemEvents[0]
	if se.Event != "SHUTDOWN" {
		t.Errorf("expected SHUTDOWN, got %q", se.Event)
	}
	if se.Reason != "SIGINT" {
		t.Errorf("expected reason SIGINT, got %q", se.Reason)
	}
	if !se.Retained {
		t.Error("expected Retained=true for SHUTDOWN")
	}
}

func TestRunLoopShutdownCarriesStatus(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	pub.Connected = true
	tracker := status.NewTracker(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), status.Config{Broker: "tcp://broker:1883"})

	err := runRunLoop(t, []dht.Reading{warm, na}, pub, loopOpts{lostAfter: 3, tracker: tracker}, syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	var sj status.StatusJSON
	if err := json.Unmarshal(pub.SystemPayloads[0], &sj); err != nil {
		t.Fatalf("decode shutdown payload: %v", err)
	}
	if sj.Status.Event != "SHUTDOWN" || sj.Status.Reason != "SIGTERM" {
		t.Errorf("event/reason: got %q/%q, want SHUTDOWN/SIGTERM", sj.Status.Event, sj.Status.Reason)
	}
	if sj.Status.Sensor != "AVAILABLE" {
		t.Errorf("sensor: got %q, want AVAILABLE", sj.Status.Sensor)
	}
	if sj.Status.Reading == nil || sj.Status.Reading.HumidityPct != 45.2 {
		t.Errorf("reading: got %+v, want last valid reading", sj.Status.Reading)
	}
	if sj.Status.Counts.Valid != 1 || sj.Status.Counts.NotAvailable != 1 {
		t.Errorf("counts: got %+v", sj.Status.Counts)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected mqtt connected in shutdown payload")
	}
}

func TestRunLoopObservesEveryRead(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	var seen []dht.Reading

	err := runRunLoop(t, []dht.Reading{warm, na, warm}, pub, loopOpts{
		lostAfter: 5,
		observe:   func(r dht.Reading) { seen = append(seen, r) },
	}, syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if len(seen) != 3 {
		t.Fatalf("observed %d reads, want 3", len(seen))
	}
	if seen[1].Valid() {
		t.Errorf("read 1: got %v, want not available", seen[1])
	}
}

func TestReadOnceOK(t *testing.T) {
	var buf bytes.Buffer
	code := readOnce(&buf, &scriptedSensor{readings: []dht.Reading{warm}})

	if code != exitOK {
		t.Errorf("exit code: got %d, want %d", code, exitOK)
	}
	want := "DHT22 OK - temperature=21.5C humidity=45.2% | temperature=21.5 humidity=45.2\n"
	if buf.String() != want {
		t.Errorf("output: got %q, want %q", buf.String(), want)
	}
}

func TestReadOnceNegativeTemperature(t *testing.T) {
	var buf bytes.Buffer
	readOnce(&buf, &scriptedSensor{readings: []dht.Reading{{Temperature: -258, Humidity: 567}}})

	if !strings.Contains(buf.String(), "temperature=-25.8C humidity=56.7%") {
		t.Errorf("output: got %q", buf.String())
	}
}

func TestReadOnceUnknown(t *testing.T) {
	var buf bytes.Buffer
	code := readOnce(&buf, &scriptedSensor{})

	if code != exitUnknown {
		t.Errorf("exit code: got %d, want %d", code, exitUnknown)
	}
	if !strings.HasPrefix(buf.String(), "DHT22 UNKNOWN") {
		t.Errorf("output: got %q", buf.String())
	}
}

func TestConfigValidate(t *testing.T) {
	good := config{poll: time.Minute, retries: 4, cooldown: 2 * time.Second, lostAfter: 3}
	if err := good.validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		modify func(*config)
	}{
		{"poll too short", func(c *config) { c.poll = time.Second }},
		{"negative retries", func(c *config) { c.retries = -1 }},
		{"negative cooldown", func(c *config) { c.cooldown = -time.Second }},
		{"zero lost-after", func(c *config) { c.lostAfter = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := good
			tt.modify(&c)
			if err := c.validate(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestPollTickerFiresImmediately(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick, stop := pollTicker(time.Hour, func() time.Time { return at })
	defer stop()

	select {
	case got := <-tick:
		if !got.Equal(at) {
			t.Errorf("first tick: got %v, want %v", got, at)
		}
	case <-time.After(time.Second):
		t.Fatal("no immediate tick")
	}
}

func TestSignalName(t *testing.T) {
	if got := signalName(syscall.SIGINT); got != "SIGINT" {
		t.Errorf("SIGINT: got %q", got)
	}
	if got := signalName(syscall.SIGTERM); got != "SIGTERM" {
		t.Errorf("SIGTERM: got %q", got)
	}
	if got := signalName(syscall.SIGHUP); got != "UNKNOWN" {
		t.Errorf("SIGHUP: got %q", got)
	}
}

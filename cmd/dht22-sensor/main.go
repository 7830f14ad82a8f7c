// Command dht22-sensor reads a DHT22 temperature/humidity sensor and
// publishes readings to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/dht22-sensor/internal/dht"
	"github.com/sweeney/dht22-sensor/internal/gpio"
	"github.com/sweeney/dht22-sensor/internal/logic"
	"github.com/sweeney/dht22-sensor/internal/metrics"
	"github.com/sweeney/dht22-sensor/internal/mqtt"
	"github.com/sweeney/dht22-sensor/internal/status"
	"github.com/sweeney/dht22-sensor/internal/web"
)

// minPoll is the shortest interval the sensor tolerates between reads.
const minPoll = 2 * time.Second

// Exit codes for -once, as used by monitoring plugins.
const (
	exitOK      = 0
	exitUnknown = 3
)

type config struct {
	chip      string
	pin       int
	once      bool
	poll      time.Duration
	retries   int
	cooldown  time.Duration
	lostAfter int
	broker    string
	heartbeat time.Duration
	httpAddr  string
}

func (c config) validate() error {
	if c.poll < minPoll {
		return fmt.Errorf("poll interval %v is below the sensor minimum of %v", c.poll, minPoll)
	}
	if c.retries < 0 {
		return errors.New("retries must not be negative")
	}
	if c.cooldown < 0 {
		return errors.New("cooldown must not be negative")
	}
	if c.lostAfter < 1 {
		return errors.New("lost-after must be at least 1")
	}
	return nil
}

// reader is the part of dht.Sensor the command needs.
type reader interface {
	Read() dht.Reading
}

func main() {
	var cfg config
	flag.StringVar(&cfg.chip, "chip", gpio.DefaultChip, "GPIO chip name")
	flag.IntVar(&cfg.pin, "pin", gpio.DefaultPin, "GPIO line offset the sensor data pin is wired to")
	flag.BoolVar(&cfg.once, "once", false, "Read once, print the result and exit (0 OK, 3 UNKNOWN)")
	flag.DurationVar(&cfg.poll, "poll", time.Minute, "Polling interval (at least 2s)")
	flag.IntVar(&cfg.retries, "retries", dht.DefaultRetries, "Retries after a failed attempt")
	flag.DurationVar(&cfg.cooldown, "cooldown", dht.DefaultCooldown, "Pause between attempts")
	flag.IntVar(&cfg.lostAfter, "lost-after", 3, "Consecutive failed reads before SENSOR_LOST")
	flag.StringVar(&cfg.broker, "broker", "tcp://192.168.1.200:1883", "MQTT broker address")
	flag.DurationVar(&cfg.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	flag.StringVar(&cfg.httpAddr, "http", ":80", "HTTP status address (empty to disable)")

	flag.Parse()

	if err := cfg.validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	if cfg.once {
		sensor, err := dht.Open(cfg.chip, cfg.pin, dht.WithRetries(cfg.retries), dht.WithCooldown(cfg.cooldown))
		if err != nil {
			log.Fatalf("fatal: %v", err)
		}
		code := readOnce(os.Stdout, sensor)
		sensor.Close()
		os.Exit(code)
	}

	if err := run(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// readOnce prints a single monitoring-plugin style line and returns the
// exit code to use.
func readOnce(w io.Writer, sensor reader) int {
	r := sensor.Read()
	if !r.Valid() {
		fmt.Fprintln(w, "DHT22 UNKNOWN - sensor not available")
		return exitUnknown
	}
	fmt.Fprintf(w, "DHT22 OK - %s | temperature=%s humidity=%s\n", r, r.Temperature, r.Humidity)
	return exitOK
}

func run(cfg config) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.New(reg)

	sensor, err := dht.Open(cfg.chip, cfg.pin,
		dht.WithRetries(cfg.retries),
		dht.WithCooldown(cfg.cooldown),
		dht.WithObserver(collector),
	)
	if err != nil {
		return err
	}
	defer sensor.Close()

	publisher := mqtt.NewRealPublisher(cfg.broker)
	defer publisher.Close()

	// Tracker comes first so the STARTUP event carries a full snapshot.
	tracker := status.NewTracker(time.Now(), status.Config{
		Chip:        cfg.chip,
		Pin:         cfg.pin,
		PollMs:      cfg.poll.Milliseconds(),
		Retries:     cfg.retries,
		CooldownMs:  cfg.cooldown.Milliseconds(),
		HeartbeatMs: cfg.heartbeat.Milliseconds(),
		Broker:      cfg.broker,
		HTTPAddr:    cfg.httpAddr,
	})

	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	if cfg.httpAddr != "" {
		srv := web.New(cfg.httpAddr, tracker, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.httpAddr)
	}

	log.Printf("started: line=%s/%d poll=%v retries=%d cooldown=%v broker=%s heartbeat=%v",
		cfg.chip, cfg.pin, cfg.poll, cfg.retries, cfg.cooldown, cfg.broker, cfg.heartbeat)

	tick, stop := pollTicker(cfg.poll, time.Now)
	defer stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(sensor, publisher, publisher, tracker, collector.ObserveReading, cfg.lostAfter, cfg.heartbeat, time.Now, tick, sigCh)
}

// pollTicker fires once straight away and then every interval.
func pollTicker(interval time.Duration, now func() time.Time) (<-chan time.Time, func()) {
	ticker := time.NewTicker(interval)
	ch := make(chan time.Time, 1)
	ch <- now()
	done := make(chan struct{})
	go func() {
		for {
			select {
			case t := <-ticker.C:
				select {
				case ch <- t:
				default: // previous tick still pending
				}
			case <-done:
				return
			}
		}
	}()
	return ch, func() {
		ticker.Stop()
		close(done)
	}
}

func runLoop(sensor reader, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, observe func(dht.Reading), lostAfter int, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	startTime := now()
	monitor := logic.NewMonitor(lostAfter, startTime)

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName(s),
				Retained:  true,
			}
			if tracker != nil {
				refreshTracker(tracker, monitor, mqttStatus)
				event.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "SHUTDOWN", event.Reason)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-tick:
			r := sensor.Read()
			t := now()
			if observe != nil {
				observe(r)
			}

			events := monitor.Process(logic.Input{Reading: r, Time: t})
			for _, event := range events {
				log.Printf("event: %s (%s)", event.Type, event.Reading)
				if err := publisher.Publish(event); err != nil {
					log.Printf("publish error: %v", err)
				}
			}

			if tracker != nil {
				refreshTracker(tracker, monitor, mqttStatus)
			}

			if hbData := monitor.CheckHeartbeat(t, heartbeat); hbData != nil {
				log.Printf("heartbeat: uptime=%v valid=%d not_available=%d lost=%d recovered=%d",
					hbData.Uptime, hbData.Counts.Valid, hbData.Counts.NotAvailable, hbData.Counts.Lost, hbData.Counts.Recovered)

				hbEvent := mqtt.SystemEvent{
					Timestamp: hbData.Timestamp,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					hbEvent.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "HEARTBEAT", "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}
		}
	}
}

func refreshTracker(tracker *status.Tracker, monitor *logic.Monitor, mqttStatus mqtt.ConnectionStatus) {
	state, reading, at := monitor.CurrentState()
	tracker.Update(state, reading, at, monitor.IsBaselined(), monitor.CountsSnapshot())
	if mqttStatus != nil {
		tracker.SetMQTTConnected(mqttStatus.IsConnected())
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

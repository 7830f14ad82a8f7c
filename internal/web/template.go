package web

import (
	"fmt"
	"html/template"
	"io"
	"log"
	"time"

	"github.com/sweeney/dht22-sensor/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="30">
<title>DHT22 Sensor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.available { color: green; font-weight: bold; }
.unavailable { color: red; font-weight: bold; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>DHT22 Sensor</h1>

<h2>Reading</h2>
<table>
<tr><th>Sensor</th><td id="sensor-state" class="{{if eq .State "AVAILABLE"}}available{{else if eq .State "UNAVAILABLE"}}unavailable{{else}}unknown{{end}}">{{.State}}</td></tr>
<tr><th>Temperature</th><td id="temperature">{{.Reading.Temperature}} &deg;C</td></tr>
<tr><th>Humidity</th><td id="humidity">{{.Reading.Humidity}} %RH</td></tr>
<tr><th>Measured</th><td>{{if .Reading.Valid}}{{.ReadingAt.UTC.Format "2006-01-02T15:04:05Z"}}{{else}}never{{end}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>Read Counts</h2>
<table>
<tr><th>Valid</th><td>{{.Counts.Valid}}</td></tr>
<tr><th>Not available</th><td>{{.Counts.NotAvailable}}</td></tr>
<tr><th>Sensor lost</th><td>{{.Counts.Lost}}</td></tr>
<tr><th>Sensor recovered</th><td>{{.Counts.Recovered}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Line</th><td>{{.Config.Chip}} / {{.Config.Pin}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Retries</th><td>{{.Config.Retries}} ({{.Config.CooldownMs}}ms apart)</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> &middot; <a href="/metrics">Metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// The template needs Uptime as a field, and UNKNOWN before the first read.
	data := struct {
		status.Snapshot
		State  string
		Uptime time.Duration
	}{
		Snapshot: snap,
		State:    stateOrUnknown(string(snap.State)),
		Uptime:   snap.Uptime(),
	}
	if err := indexTmpl.Execute(w, data); err != nil {
		log.Printf("web: render index: %v", err)
	}
}

func stateOrUnknown(s string) string {
	if s == "" {
		return "UNKNOWN"
	}
	return s
}

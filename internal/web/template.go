package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/blinkcheck/internal/logic"
	"github.com/sweeney/blinkcheck/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		switch {
		case days > 0:
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		case h > 0:
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		case m > 0:
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"ledState": func(l logic.Level) string {
		if l == "" {
			return "UNKNOWN"
		}
		return string(logic.StateOf(l))
	},
	"levelOrUnknown": func(l logic.Level) string {
		if l == "" {
			return "UNKNOWN"
		}
		return string(l)
	},
	"ms": func(d time.Duration) int64 {
		return d.Milliseconds()
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>blinkcheck</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on, .pass, .connected { color: green; font-weight: bold; }
.off { color: #888; }
.unknown { color: orange; }
.fail, .disconnected { color: red; }
</style>
</head>
<body>
<h1>blinkcheck</h1>

<h2>Device</h2>
<table>
<tr><th>LED (GPIO {{.Config.LEDPin}})</th><td id="led-state" class="{{if eq (ledState .LED) "ON"}}on{{else if eq (ledState .LED) "OFF"}}off{{else}}unknown{{end}}">{{ledState .LED}}</td></tr>
<tr><th>Button (GPIO {{.Config.ButtonPin}})</th><td id="button-level">{{levelOrUnknown .Button}}</td></tr>
<tr><th>Mode</th><td>{{.Mode}}{{if .Blinking}} (blinking){{end}}</td></tr>
<tr><th>Ready</th><td>{{if .Baselined}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Counts</h2>
<table>
<tr><th>Presses</th><td>{{.Counts.Presses}}</td></tr>
<tr><th>Releases</th><td>{{.Counts.Releases}}</td></tr>
<tr><th>Toggles</th><td id="toggles">{{.Counts.Toggles}}</td></tr>
</table>
{{if .Checks}}
<h2>Checks</h2>
<table>
{{range .Checks}}<tr><th>{{.Name}}</th><td class="{{if .Passed}}pass{{else}}fail{{end}}">{{if .Passed}}PASS{{else}}FAIL{{end}} ({{.Transitions}} transitions{{if .MeanInterval}}, mean {{ms .MeanInterval}}ms{{end}}){{if .Message}}<br>{{.Message}}{{end}}</td></tr>
{{end}}</table>
{{end}}
<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceMs}}ms</td></tr>
<tr><th>Blink period</th><td>{{.Config.PeriodMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
<script>
(function() {
  var led = document.getElementById("led-state");
  var button = document.getElementById("button-level");
  var toggles = document.getElementById("toggles");
  setInterval(function() {
    fetch("/index.json").then(function(r) { return r.json(); }).then(function(j) {
      var s = j.status;
      led.textContent = s.state;
      led.className = s.state === "ON" ? "on" : s.state === "OFF" ? "off" : "unknown";
      button.textContent = s.button;
      toggles.textContent = s.counts.toggles;
    }).catch(function() {});
  }, 1000);
})();
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}

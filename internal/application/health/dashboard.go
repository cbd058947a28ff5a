package health

import (
	"bytes"
	"html/template"
)

var dashboardTmpl = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"pillClass": func(status string) string {
		switch status {
		case statusConnected, "reachable", "available":
			return "ok"
		case "unknown":
			return "idle"
		}
		return "err"
	},
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>EPOS · API Status</title>
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <style>
    :root { --brand: #b91c1c; --dark: #1f2937; --bg: #f8fafc; --muted: #64748b; }
    body { background: var(--bg); color: var(--dark); font-family: system-ui, sans-serif; margin: 0; padding: 40px 20px; }
    .container { max-width: 1000px; margin: 0 auto; }
    h1 { font-size: 44px; font-weight: 900; letter-spacing: -2px; margin: 0; }
    h1.issue { color: var(--brand); }
    .subtext { color: var(--muted); font-weight: 700; margin: 10px 0 30px; }
    .card { background: #fff; border-radius: 24px; box-shadow: 0 20px 60px -20px rgba(0,0,0,0.15); overflow: hidden; }
    .grid { display: grid; grid-template-columns: repeat(3, 1fr); }
    .col { padding: 35px; border-right: 1px solid #f1f5f9; }
    .col:last-child { border-right: none; }
    .label { text-transform: uppercase; font-size: 11px; font-weight: 900; letter-spacing: 2px; color: #94a3b8; margin-bottom: 20px; }
    .big { font-size: 38px; font-weight: 900; margin-bottom: 10px; }
    .row { display: flex; justify-content: space-between; padding: 8px 0; border-bottom: 1px solid #f8fafc; font-size: 14px; font-weight: 700; }
    .pill { padding: 4px 10px; border-radius: 10px; font-size: 11px; font-weight: 900; }
    .ok { background: #ecfdf5; color: #047857; }
    .err { background: #fef2f2; color: #dc2626; }
    .idle { background: #f1f5f9; color: var(--muted); }
    .footer { background: #f8fafc; padding: 16px 35px; display: flex; justify-content: space-between; font-family: monospace; font-size: 13px; }
    @media (max-width: 900px) { .grid { grid-template-columns: 1fr; } .col { border-right: none; } }
  </style>
</head>
<body>
  <div class="container">
    {{if eq .Status "ok"}}<h1>All Systems Operational</h1>{{else}}<h1 class="issue">System Issues Detected</h1>{{end}}
    <p class="subtext">Emergency plan service · API performance and dependencies.</p>
    <div class="card">
      <div class="grid">
        <div class="col">
          <div class="label">Traffic &amp; Quality</div>
          <div class="big">{{.Traffic.TotalRequests}}</div>
          <div class="row"><span>Successful</span><span>{{.Traffic.SuccessCount}}</span></div>
          <div class="row"><span>Failed</span><span>{{.Traffic.FailedCount}}</span></div>
          <div class="row"><span>Success Rate</span><span>{{.Traffic.SuccessRate}}%</span></div>
          <div class="row"><span>Avg Latency</span><span>{{.Traffic.AvgResponseTime}}ms</span></div>
        </div>
        <div class="col">
          <div class="label">Resources</div>
          <div class="big">{{.Runtime.UptimeSeconds}}s</div>
          <div class="row"><span>Heap In Use</span><span>{{.Runtime.Memory.HeapInMB}} MB</span></div>
          <div class="row"><span>Allocated</span><span>{{.Runtime.Memory.AllocMB}} MB</span></div>
          <div class="row"><span>Goroutines</span><span>{{.Runtime.Goroutines}}</span></div>
          <div class="row"><span>Platform</span><span>{{.Runtime.Platform}} · {{.Runtime.GoVersion}}</span></div>
        </div>
        <div class="col">
          <div class="label">Connectivity</div>
          {{range $name, $dep := .Dependencies}}
          <div class="row"><span>{{$name}}</span><span class="pill {{pillClass $dep.Status}}">{{$dep.Status}}{{if $dep.PingMs}} · {{$dep.PingMs}} ms{{end}}</span></div>
          {{end}}
        </div>
      </div>
      <div class="footer">
        <span>LAST INBOUND</span>
        {{with .Traffic.LastRequest}}<span>{{.Method}} {{.Path}}</span><span>{{.IP}}</span>{{else}}<span>-</span>{{end}}
      </div>
    </div>
    <p class="subtext"><a href="/health/json">JSON</a> · <a href="/health/errors">Error log</a> · <a href="/metrics">Metrics</a></p>
  </div>
</body>
</html>`))

// RenderDashboardHTML returns the status page served at GET /.
func RenderDashboardHTML(health CollectResult) (string, error) {
	var buf bytes.Buffer
	if err := dashboardTmpl.Execute(&buf, health); err != nil {
		return "", err
	}
	return buf.String(), nil
}

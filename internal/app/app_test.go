package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"annwatch/internal/config"
	"annwatch/internal/monitor"
)

const yeepayFixture = `<table><tbody class="ant-table-tbody">
<tr><td><a href="/notice-detail/1">通知一</a></td><td class="ant-table-row-cell-break-word">2025-01-20 10:00:00</td></tr>
</tbody></table>`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "annwatch.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestNewAndRunOnceBuildsBaseline(t *testing.T) {
	t.Setenv(config.EnvWebhookURL, "")
	t.Setenv(config.EnvDebugCutoff, "")
	t.Setenv(config.EnvInterval, "")
	t.Setenv(config.EnvLogLevel, "")

	var hooks atomic.Int32
	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hooks.Add(1)
		_, _ = w.Write([]byte(`{"errcode":0}`))
	}))
	defer webhook.Close()
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(yeepayFixture))
	}))
	defer site.Close()

	dir := t.TempDir()
	p := writeConfig(t, `
webhook:
  url: `+webhook.URL+`
monitor:
  interval: 1m
sources:
  - type: yeepay
    url: `+site.URL+`
storage:
  driver: file
  path: `+filepath.Join(dir, "deliveries.jsonl")+`
logging:
  level: error
`)

	a, err := New(p)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rep := a.RunOnce(context.Background())
	if rep.Fetched != 1 || rep.New != 0 {
		t.Fatalf("report = %+v", rep)
	}
	if a.Monitor().State() != monitor.SteadyState {
		t.Fatalf("state = %v", a.Monitor().State())
	}
	if hooks.Load() != 0 {
		t.Fatal("baseline cycle must not call the webhook")
	}
	if a.Store() == nil {
		t.Fatal("storage should be enabled")
	}
	if err := a.Stop(context.Background(), StopOnce); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	t.Setenv(config.EnvWebhookURL, "https://hooks.example.com/x")
	t.Setenv(config.EnvDebugCutoff, "")
	t.Setenv(config.EnvInterval, "")

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "unknown source", body: "sources:\n  - type: alipay\n", want: "unknown source type"},
		{name: "bad schedule", body: "monitor:\n  schedule: \"* * *\"\n", want: "monitor.schedule"},
		{name: "bad interval", body: "monitor:\n  interval: soon\n", want: "monitor.interval"},
		{name: "sqlite without path", body: "storage:\n  driver: sqlite\n", want: "storage.path"},
		{name: "unknown storage", body: "storage:\n  driver: redis\n", want: "storage.driver"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestStartAndStop(t *testing.T) {
	t.Setenv(config.EnvWebhookURL, "")
	t.Setenv(config.EnvDebugCutoff, "")
	t.Setenv(config.EnvInterval, "")
	t.Setenv(config.EnvLogLevel, "")
	t.Setenv("NOTIFY_SOCKET", "")
	t.Setenv("WATCHDOG_USEC", "")

	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(yeepayFixture))
	}))
	defer site.Close()

	p := writeConfig(t, `
webhook:
  url: https://hooks.example.com/unused
monitor:
  interval: 1h
sources:
  - type: yeepay
    url: `+site.URL+`
logging:
  level: error
`)
	a, err := New(p)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for a.Monitor().State() != monitor.SteadyState {
		if time.Now().After(deadline) {
			t.Fatal("first cycle did not complete")
		}
		time.Sleep(10 * time.Millisecond)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if err := a.Stop(stopCtx, StopSignal); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	select {
	case <-a.Done():
	default:
		t.Fatal("Done not closed after Stop")
	}
	if err := a.Err(); err != nil {
		t.Fatalf("Err = %v", err)
	}
}

func TestApplyConfigUpdatesLiveSections(t *testing.T) {
	t.Setenv(config.EnvWebhookURL, "https://hooks.example.com/x")
	t.Setenv(config.EnvDebugCutoff, "")
	t.Setenv(config.EnvInterval, "")
	t.Setenv(config.EnvLogLevel, "")

	a, err := New(writeConfig(t, "logging:\n  level: error\n"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Stop(context.Background(), StopOnce)

	old := a.cfgm.Get()
	next := *old
	next.Webhook.RatePerSec = 9
	next.Monitor.Interval = "5m"
	if got := a.applyConfig(old, &next); got != &next {
		t.Fatal("applyConfig should return the applied config")
	}
}

func TestMapScheduleIntervalForms(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		interval string
		schedule string
		kind     monitor.ScheduleKind
		every    time.Duration
	}{
		{name: "duration", interval: "90s", kind: monitor.ScheduleInterval, every: 90 * time.Second},
		{name: "hh:mm", interval: "00:10", kind: monitor.ScheduleInterval, every: 10 * time.Minute},
		{name: "cron in interval", interval: "*/5 * * * *", kind: monitor.ScheduleCron},
		{name: "schedule wins", interval: "1m", schedule: "@hourly", kind: monitor.ScheduleCron},
		{name: "default", kind: monitor.ScheduleInterval, every: monitor.DefaultInterval},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := &config.Config{Monitor: config.MonitorConfig{Interval: tt.interval, Schedule: tt.schedule}}
			got, err := mapSchedule(cfg)
			if err != nil {
				t.Fatalf("mapSchedule: %v", err)
			}
			if got.Kind != tt.kind || (tt.kind == monitor.ScheduleInterval && got.Every != tt.every) {
				t.Fatalf("got %+v", got)
			}
		})
	}
}

func TestCycleStatus(t *testing.T) {
	t.Parallel()
	at := time.Date(2025, 1, 20, 10, 30, 0, 0, time.Local)
	tests := []struct {
		name string
		rep  monitor.CycleReport
		want string
	}{
		{name: "baseline", rep: monitor.CycleReport{Started: at, State: monitor.FirstRun, LedgerSize: 12}, want: "baseline collected at 10:30:00: ledger 12"},
		{name: "steady", rep: monitor.CycleReport{Started: at, State: monitor.SteadyState, New: 2, NotifyFailed: 1, LedgerSize: 14}, want: "last cycle 10:30:00: 2 new, 1 failed, ledger 14"},
		{name: "aborted", rep: monitor.CycleReport{Started: at, State: monitor.SteadyState, Aborted: true, LedgerSize: 14}, want: "last cycle aborted at 10:30:00; ledger 14"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := cycleStatus(tt.rep); got != tt.want {
				t.Fatalf("cycleStatus = %q, want %q", got, tt.want)
			}
		})
	}
}

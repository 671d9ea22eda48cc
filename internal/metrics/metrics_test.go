package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	logx "annwatch/pkg/logx"
)

func TestRecording(t *testing.T) {
	t.Parallel()
	m := New()
	if got := testutil.ToFloat64(m.FirstRun); got != 1 {
		t.Fatalf("first_run = %v before any cycle", got)
	}

	m.AddFetched("Yeepay", 3)
	m.AddFetched("Yeepay", 2)
	m.NewAnnouncement("Yeepay")
	m.NotifyFailed("Yeepay")
	m.SourceFailed("TencentCloud")
	m.ObserveCycle("ok", 1500*time.Millisecond, 42, false, time.Unix(1737340200, 0))

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"fetched", testutil.ToFloat64(m.ItemsFetched.WithLabelValues("Yeepay")), 5},
		{"new", testutil.ToFloat64(m.NewAnnouncements.WithLabelValues("Yeepay")), 1},
		{"notify failures", testutil.ToFloat64(m.NotifyFailures.WithLabelValues("Yeepay")), 1},
		{"source failures", testutil.ToFloat64(m.SourceFailures.WithLabelValues("TencentCloud")), 1},
		{"cycles", testutil.ToFloat64(m.CyclesTotal.WithLabelValues("ok")), 1},
		{"ledger", testutil.ToFloat64(m.LedgerSize), 42},
		{"first run", testutil.ToFloat64(m.FirstRun), 0},
		{"last cycle", testutil.ToFloat64(m.LastCycle), 1737340200},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	t.Parallel()
	var m *Metrics
	m.AddFetched("x", 1)
	m.SourceFailed("x")
	m.NewAnnouncement("x")
	m.NotifyFailed("x")
	m.ObserveCycle("ok", time.Second, 1, true, time.Now())
}

func TestServerEndpoints(t *testing.T) {
	t.Parallel()
	m := New()
	m.NewAnnouncement("WeixinPay")
	healthy := false
	srv := NewServer("", m, func() (any, bool) {
		return map[string]bool{"healthy": healthy}, healthy
	}, logx.Nop())

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), `annwatch_new_announcements_total{source="WeixinPay"} 1`) {
		t.Fatalf("metrics body missing counter:\n%s", body)
	}

	resp, err = http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("healthz status = %d", resp.StatusCode)
	}
}

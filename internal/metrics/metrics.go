// Package metrics exposes poll-loop counters for Prometheus.
//
// All recording methods are safe on a nil *Metrics, so the monitor can run
// with metrics disabled without branching.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "annwatch"

// Metrics holds the collectors registered on its own registry.
type Metrics struct {
	Registry *prometheus.Registry

	CyclesTotal      *prometheus.CounterVec // labels: result=ok|aborted
	CycleDuration    prometheus.Histogram
	LastCycle        prometheus.Gauge
	ItemsFetched     *prometheus.CounterVec // labels: source
	SourceFailures   *prometheus.CounterVec // labels: source
	NewAnnouncements *prometheus.CounterVec // labels: source
	NotifyFailures   *prometheus.CounterVec // labels: source
	LedgerSize       prometheus.Gauge
	FirstRun         prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Completed poll cycles by result",
		}, []string{"result"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of one poll cycle across all sources",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}),
		LastCycle: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_cycle_timestamp_seconds",
			Help:      "Unix time the last poll cycle finished",
		}),
		ItemsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_fetched_total",
			Help:      "Raw items returned by each source",
		}, []string{"source"}),
		SourceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_failures_total",
			Help:      "Source polls aborted by a panic or unexpected error",
		}, []string{"source"}),
		NewAnnouncements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "new_announcements_total",
			Help:      "Announcements detected as new after the baseline",
		}, []string{"source"}),
		NotifyFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notify_failures_total",
			Help:      "Announcements whose notification failed on at least one channel",
		}, []string{"source"}),
		LedgerSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ledger_keys",
			Help:      "Identity keys held in the seen ledger",
		}),
		FirstRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "first_run",
			Help:      "1 until the baseline cycle has completed",
		}),
	}
	m.Registry.MustRegister(
		m.CyclesTotal,
		m.CycleDuration,
		m.LastCycle,
		m.ItemsFetched,
		m.SourceFailures,
		m.NewAnnouncements,
		m.NotifyFailures,
		m.LedgerSize,
		m.FirstRun,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m.FirstRun.Set(1)
	return m
}

// ObserveCycle records a finished cycle.
func (m *Metrics) ObserveCycle(result string, took time.Duration, ledgerSize int, firstRun bool, at time.Time) {
	if m == nil {
		return
	}
	m.CyclesTotal.WithLabelValues(result).Inc()
	m.CycleDuration.Observe(took.Seconds())
	m.LastCycle.Set(float64(at.Unix()))
	m.LedgerSize.Set(float64(ledgerSize))
	if firstRun {
		m.FirstRun.Set(1)
	} else {
		m.FirstRun.Set(0)
	}
}

func (m *Metrics) AddFetched(source string, n int) {
	if m == nil {
		return
	}
	m.ItemsFetched.WithLabelValues(source).Add(float64(n))
}

func (m *Metrics) SourceFailed(source string) {
	if m == nil {
		return
	}
	m.SourceFailures.WithLabelValues(source).Inc()
}

func (m *Metrics) NewAnnouncement(source string) {
	if m == nil {
		return
	}
	m.NewAnnouncements.WithLabelValues(source).Inc()
}

func (m *Metrics) NotifyFailed(source string) {
	if m == nil {
		return
	}
	m.NotifyFailures.WithLabelValues(source).Inc()
}

// Package monitor runs the poll cycle: fetch every source in order, decide
// which announcements are new against the ledger, and notify.
//
// The first completed cycle only builds a baseline. Nothing is notified
// until the second cycle.
package monitor

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"annwatch/internal/announce"
	"annwatch/internal/ledger"
	"annwatch/internal/metrics"
	logx "annwatch/pkg/logx"
)

// State is the one-way baseline state of a Monitor.
type State int

const (
	// FirstRun records a baseline without notifying.
	FirstRun State = iota
	// SteadyState notifies every announcement not yet in the ledger.
	SteadyState
)

func (s State) String() string {
	switch s {
	case FirstRun:
		return "first_run"
	case SteadyState:
		return "steady_state"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Notifier delivers one announcement. Errors are logged by the monitor and
// never change what is recorded in the ledger.
type Notifier interface {
	Notify(ctx context.Context, a announce.Announcement) error
}

// Options configure a Monitor.
type Options struct {
	Log logx.Logger

	// DebugCutoff switches the monitor into debug mode when non-zero: only
	// announcements dated on or after this calendar date are candidates.
	DebugCutoff time.Time

	// Metrics may be nil.
	Metrics *metrics.Metrics

	// Now defaults to time.Now.
	Now func() time.Time

	// OnCycle, if set, is called after every cycle, including aborted ones.
	OnCycle func(CycleReport)
}

// CycleReport summarizes one call to CheckUpdates.
type CycleReport struct {
	Started  time.Time
	Took     time.Duration
	State    State // state the cycle ran in
	Fetched  int
	New      int
	Notified int
	// NotifyFailed counts new announcements whose delivery failed on at
	// least one channel. They are still in the ledger.
	NotifyFailed   int
	Skipped        int
	SourceFailures int
	Aborted        bool
	LedgerSize     int // ledger size when the cycle ended
}

// Snapshot is a point-in-time view for health checks and metrics.
type Snapshot struct {
	State      string    `json:"state"`
	Debug      bool      `json:"debug"`
	Cutoff     string    `json:"debug_cutoff,omitempty"`
	Sources    []string  `json:"sources"`
	LedgerSize int       `json:"ledger_size"`
	Cycles     uint64    `json:"cycles"`
	LastCycle  time.Time `json:"last_cycle,omitempty"`
	LastTook   string    `json:"last_took,omitempty"`
	LastNew    int       `json:"last_new"`
}

// Monitor polls an ordered list of sources against one ledger. Cycles are
// serialized; Monitor is safe for concurrent use.
type Monitor struct {
	sources  []announce.Source
	ledger   ledger.Ledger
	notifier Notifier

	log     logx.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	onCycle func(CycleReport)

	debug  bool
	cutoff time.Time

	// cycleMu serializes cycles; Run and a manual trigger can never overlap.
	cycleMu sync.Mutex

	mu     sync.Mutex
	state  State
	cycles uint64
	last   CycleReport
}

// New builds a Monitor over sources, polled in the given order.
func New(sources []announce.Source, l ledger.Ledger, n Notifier, opts Options) *Monitor {
	if opts.Log.IsZero() {
		opts.Log = logx.Nop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if l == nil {
		l = ledger.NewMemory()
	}
	m := &Monitor{
		sources:  append([]announce.Source(nil), sources...),
		ledger:   l,
		notifier: n,
		log:      opts.Log,
		metrics:  opts.Metrics,
		now:      opts.Now,
		onCycle:  opts.OnCycle,
		state:    FirstRun,
	}
	if !opts.DebugCutoff.IsZero() {
		y, mo, d := opts.DebugCutoff.Date()
		m.debug = true
		m.cutoff = time.Date(y, mo, d, 0, 0, 0, 0, time.Local)
	}
	return m
}

func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Monitor) Debug() bool { return m.debug }

func (m *Monitor) SourceNames() []string {
	out := make([]string, 0, len(m.sources))
	for _, s := range m.sources {
		out = append(out, s.Name())
	}
	return out
}

func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Snapshot{
		State:      m.state.String(),
		Debug:      m.debug,
		Sources:    m.SourceNames(),
		LedgerSize: m.ledger.Len(),
		Cycles:     m.cycles,
		LastNew:    m.last.New,
	}
	if m.debug {
		s.Cutoff = m.cutoff.Format(announce.DateLayout)
	}
	if !m.last.Started.IsZero() {
		s.LastCycle = m.last.Started
		s.LastTook = m.last.Took.Round(time.Millisecond).String()
	}
	return s
}

// CheckUpdates runs one full cycle. It never panics and never returns an
// error: failures are logged and reflected in the report.
func (m *Monitor) CheckUpdates(ctx context.Context) (rep CycleReport) {
	m.cycleMu.Lock()
	defer m.cycleMu.Unlock()

	state := m.State()
	rep = CycleReport{Started: m.now(), State: state}
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			rep.Aborted = true
			m.log.Error("poll cycle aborted",
				logx.Any("panic", r),
				logx.String("stack", string(debug.Stack())),
			)
		}
		rep.Took = time.Since(start)
		rep.LedgerSize = m.ledger.Len()
		m.finish(rep)
	}()

	for _, src := range m.sources {
		if ctx.Err() != nil {
			rep.Aborted = true
			return rep
		}
		m.pollSource(ctx, src, state, &rep)
	}

	if state == FirstRun && ctx.Err() == nil {
		m.mu.Lock()
		m.state = SteadyState
		m.mu.Unlock()
		m.log.Info("baseline collected", logx.Int("announcements", m.ledger.Len()), logx.Bool("debug", m.debug))
	}
	return rep
}

func (m *Monitor) finish(rep CycleReport) {
	m.mu.Lock()
	m.cycles++
	m.last = rep
	firstRun := m.state == FirstRun
	m.mu.Unlock()

	result := "ok"
	if rep.Aborted {
		result = "aborted"
	}
	m.metrics.ObserveCycle(result, rep.Took, rep.LedgerSize, firstRun, rep.Started.Add(rep.Took))
	m.log.Debug("poll cycle done",
		logx.String("state", rep.State.String()),
		logx.Int("fetched", rep.Fetched),
		logx.Int("new", rep.New),
		logx.Int("notify_failed", rep.NotifyFailed),
		logx.Int("skipped", rep.Skipped),
		logx.Duration("took", rep.Took),
	)
	if m.onCycle != nil {
		m.onCycle(rep)
	}
}

// pollSource handles one adapter. A panic inside the adapter is contained
// here so the remaining sources still run.
func (m *Monitor) pollSource(ctx context.Context, src announce.Source, state State, rep *CycleReport) {
	name := src.Name()
	defer func() {
		if r := recover(); r != nil {
			rep.SourceFailures++
			m.metrics.SourceFailed(name)
			m.log.Error("source failed",
				logx.String("source", name),
				logx.Any("panic", r),
				logx.String("stack", string(debug.Stack())),
			)
		}
	}()

	items := src.Announcements(ctx)
	m.log.Info("source polled", logx.String("source", name), logx.Int("items", len(items)))
	rep.Fetched += len(items)
	m.metrics.AddFetched(name, len(items))

	for _, raw := range items {
		a, date, ok := m.normalize(src, raw)
		if !ok {
			rep.Skipped++
			continue
		}
		m.evaluate(ctx, name, a, date, state, rep)
	}
}

// normalize formats one raw item. Any failure skips only this item.
func (m *Monitor) normalize(src announce.Source, raw announce.RawItem) (a announce.Announcement, date time.Time, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Warn("item skipped: format panicked", logx.String("source", src.Name()), logx.Any("panic", r))
			ok = false
		}
	}()
	a = src.Format(raw)
	date, err := a.ParsedDate()
	if err != nil {
		m.log.Warn("item skipped", logx.String("source", src.Name()), logx.Err(err))
		return a, time.Time{}, false
	}
	return a, date, true
}

func (m *Monitor) evaluate(ctx context.Context, source string, a announce.Announcement, date time.Time, state State, rep *CycleReport) {
	key := a.Key()

	if m.debug {
		if date.Before(m.cutoff) {
			return
		}
		if state == FirstRun {
			m.ledger.Add(key)
			return
		}
		if m.ledger.Contains(key) {
			return
		}
		m.log.Info("new announcement (debug)", logx.String("key", key))
		m.deliver(ctx, source, a, rep)
		m.ledger.Add(key)
		return
	}

	if m.ledger.Contains(key) {
		return
	}
	if state == FirstRun {
		m.ledger.Add(key)
		return
	}
	m.log.Info("new announcement", logx.String("key", key))
	m.deliver(ctx, source, a, rep)
	m.ledger.Add(key)
}

func (m *Monitor) deliver(ctx context.Context, source string, a announce.Announcement, rep *CycleReport) {
	rep.New++
	m.metrics.NewAnnouncement(source)
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Notify(ctx, a); err != nil {
		rep.NotifyFailed++
		m.metrics.NotifyFailed(source)
		m.log.Warn("notify failed; announcement stays marked as seen", logx.String("title", a.Title), logx.Err(err))
		return
	}
	rep.Notified++
}

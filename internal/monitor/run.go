package monitor

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	logx "annwatch/pkg/logx"
)

// Run polls until ctx is done. The first cycle starts immediately; after
// that, cycles follow sched. A cycle in progress is allowed to finish its
// current source before Run returns.
func (m *Monitor) Run(ctx context.Context, sched Schedule) error {
	m.log.Info("monitor started",
		logx.String("schedule", sched.String()),
		logx.Bool("debug", m.debug),
		logx.Any("sources", m.SourceNames()),
	)
	m.CheckUpdates(ctx)

	switch sched.Kind {
	case ScheduleCron:
		return m.runCron(ctx, sched)
	default:
		return m.runInterval(ctx, sched.Every)
	}
}

// runInterval sleeps a fixed interval between the end of one cycle and the
// start of the next, so cycles cannot overlap.
func (m *Monitor) runInterval(ctx context.Context, every time.Duration) error {
	if every <= 0 {
		every = DefaultInterval
	}
	t := time.NewTimer(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
		m.CheckUpdates(ctx)
		t.Reset(every)
	}
}

func (m *Monitor) runCron(ctx context.Context, sched Schedule) error {
	cl := cronLogger{log: m.log}
	c := cron.New(
		cron.WithLocation(time.Local),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	c.Schedule(sched.Cron, cron.FuncJob(func() { m.CheckUpdates(ctx) }))
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// cronLogger adapts logx to cron.Logger.
type cronLogger struct {
	log logx.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, kvFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Warn("cron: "+msg, append(kvFields(keysAndValues), logx.Err(err))...)
}

func kvFields(kv []any) []logx.Field {
	out := make([]logx.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			continue
		}
		out = append(out, logx.Any(k, kv[i+1]))
	}
	return out
}

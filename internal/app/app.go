// Package app wires configuration, sources, the monitor and its delivery
// channels into one process.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"annwatch/internal/config"
	"annwatch/internal/ledger"
	"annwatch/internal/metrics"
	"annwatch/internal/monitor"
	"annwatch/internal/notifier"
	"annwatch/internal/runtime/supervisor"
	"annwatch/internal/source"
	"annwatch/internal/storage"
	logx "annwatch/pkg/logx"
	"annwatch/pkg/systemd"
)

type App struct {
	cfgm  *config.ConfigManager
	sched monitor.Schedule

	log  logx.Logger
	logs *logx.Service

	store   storage.Store
	notif   *notifier.Service
	mon     *monitor.Monitor
	metrics *metrics.Metrics
	msrv    *metrics.Server

	startupMessage bool

	sup *supervisor.Supervisor
}

// New loads the config and builds every component. Nothing touches the
// network until Start.
func New(cfgPath string) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLogging(cfg))
	log = log.With(logx.String("comp", "app"))

	sched, err := mapSchedule(cfg)
	if err != nil {
		return nil, err
	}

	var cutoff time.Time
	if d, ok, err := config.ParseDateField("monitor.debug_cutoff", cfg.Monitor.DebugCutoff); err != nil {
		return nil, err
	} else if ok {
		cutoff = d
	}

	var store storage.Store
	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, err
		}
		store = st
		log.Info("delivery log enabled", logx.String("driver", sc.Driver), logx.String("path", sc.Path))
	}

	ncfg, err := mapNotifierConfig(cfg)
	if err != nil {
		return nil, closeOnErr(store, err)
	}
	nlog := log.With(logx.String("comp", "notifier"))
	channels := []notifier.Channel{notifier.NewWebhook(cfg.Webhook.URL, ncfg.SendTimeout, ncfg.RatePerSec, nlog)}
	if tg := cfg.Telegram; tg != nil && tg.Enabled {
		ch, err := notifier.NewTelegram(notifier.TelegramConfig{Token: tg.Token, ChatID: tg.ChatID, ThreadID: tg.ThreadID})
		if err != nil {
			return nil, closeOnErr(store, fmt.Errorf("telegram: %w", err))
		}
		channels = append(channels, ch)
	}
	notif := notifier.New(ncfg, nlog, store, channels...)

	sopts, err := mapSourceOptions(cfg, log.With(logx.String("comp", "source")))
	if err != nil {
		return nil, closeOnErr(store, err)
	}
	sources, err := source.FromConfig(cfg.Sources, sopts)
	if err != nil {
		return nil, closeOnErr(store, err)
	}

	var (
		mx   *metrics.Metrics
		msrv *metrics.Server
	)
	if cfg.Metrics.Enabled {
		mx = metrics.New()
	}

	mon := monitor.New(sources, ledger.NewMemory(), notif, monitor.Options{
		Log:         log.With(logx.String("comp", "monitor")),
		DebugCutoff: cutoff,
		Metrics:     mx,
		OnCycle: func(rep monitor.CycleReport) {
			_, _ = systemd.Status(cycleStatus(rep))
		},
	})
	if mx != nil {
		msrv = metrics.NewServer(cfg.Metrics.Addr, mx, func() (any, bool) {
			return mon.Snapshot(), true
		}, log.With(logx.String("comp", "metrics")))
	}

	return &App{
		cfgm:           cfgm,
		sched:          sched,
		log:            log,
		logs:           logSvc,
		store:          store,
		notif:          notif,
		mon:            mon,
		metrics:        mx,
		msrv:           msrv,
		startupMessage: cfg.Webhook.StartupMessage,
	}, nil
}

// cycleStatus is the one-line summary shown by systemctl status.
func cycleStatus(rep monitor.CycleReport) string {
	if rep.Aborted {
		return fmt.Sprintf("last cycle aborted at %s; ledger %d", rep.Started.Format("15:04:05"), rep.LedgerSize)
	}
	if rep.State == monitor.FirstRun {
		return fmt.Sprintf("baseline collected at %s: ledger %d", rep.Started.Format("15:04:05"), rep.LedgerSize)
	}
	return fmt.Sprintf("last cycle %s: %d new, %d failed, ledger %d",
		rep.Started.Format("15:04:05"), rep.New, rep.NotifyFailed, rep.LedgerSize)
}

func closeOnErr(store storage.Store, err error) error {
	if store != nil {
		_ = store.Close()
	}
	return err
}

func (a *App) Monitor() *monitor.Monitor { return a.mon }

func (a *App) Store() storage.Store { return a.store }

// Done is closed when the app context is cancelled (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error from a supervised goroutine.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// Start launches the poll loop, config watcher and optional metrics server.
func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error { return validate(cfg) })

	a.log.Info("annwatch starting",
		logx.Any("sources", a.mon.SourceNames()),
		logx.Any("channels", a.notif.ChannelNames()),
		logx.String("schedule", a.sched.String()),
		logx.Bool("debug", a.mon.Debug()),
	)

	if a.startupMessage {
		msg := fmt.Sprintf("### 🚀 公告监控服务已启动\n\n**启动时间**：%s\n\n**监控对象**：%s\n\n**巡检计划**：%s",
			time.Now().Format(notifier.CheckedAtLayout),
			strings.Join(a.mon.SourceNames(), "、"),
			a.sched.String(),
		)
		sctx, cancel := context.WithTimeout(ctx, 15*time.Second)
		_ = a.notif.Announce(sctx, msg)
		cancel()
	}

	a.sup.Go("monitor", func(c context.Context) error {
		return a.mon.Run(c, a.sched)
	})

	if a.msrv != nil {
		a.sup.GoRestart("metrics.server", a.msrv.Run)
	}

	a.startConfigReload()
	a.sup.GoRestart("config.watch", a.cfgm.Watch)

	if iv := systemd.WatchdogInterval(); iv > 0 {
		a.sup.Go("systemd.watchdog", func(c context.Context) error {
			return systemd.Watchdog(c, iv, a.healthy(iv))
		})
	}
	if _, err := systemd.Ready(); err != nil {
		a.log.Debug("sd_notify ready failed", logx.Err(err))
	}
	return nil
}

// healthy reports false once the poll loop has gone quiet for far longer
// than the schedule allows, so the watchdog lets systemd restart a wedged
// process.
func (a *App) healthy(watchdog time.Duration) func() bool {
	started := time.Now()
	return func() bool {
		limit := 3 * a.sched.Every
		if a.sched.Kind == monitor.ScheduleCron || limit <= 0 {
			return true
		}
		limit += 10 * watchdog
		last := a.mon.Snapshot().LastCycle
		if last.IsZero() {
			last = started
		}
		return time.Since(last) < limit
	}
}

// startConfigReload applies hot-reloadable settings (logging, webhook rate
// and timeout) and warns about sections that need a restart.
func (a *App) startConfigReload() {
	sub := a.cfgm.Subscribe(8)
	a.sup.Go("config.reload", func(c context.Context) error {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			var newCfg *config.Config
			select {
			case <-c.Done():
				return nil
			case cfg, ok := <-sub:
				if !ok {
					return nil
				}
				newCfg = cfg
			}
			// Keep only the newest of a burst.
		drain:
			for {
				select {
				case newer := <-sub:
					if newer != nil {
						newCfg = newer
					}
				default:
					break drain
				}
			}
			lastApplied = a.applyConfig(lastApplied, newCfg)
		}
	})
}

func (a *App) applyConfig(old, newCfg *config.Config) *config.Config {
	sections, attrs := config.SummarizeConfigChange(old, newCfg)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return newCfg
	}

	var restart []string
	for _, s := range sections {
		if config.RestartSections[s] {
			restart = append(restart, s)
		}
	}
	if len(restart) > 0 {
		a.log.Warn("config sections changed; restart required for them to take effect",
			logx.String("sections", strings.Join(restart, ",")))
	}

	a.logs.Apply(mapLogging(newCfg))
	if ncfg, err := mapNotifierConfig(newCfg); err != nil {
		a.log.Warn("invalid notifier config; keeping previous", logx.Err(err))
	} else {
		a.notif.Apply(ncfg)
	}

	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)
	return newCfg
}

// RunOnce runs a single cycle without starting background loops. The first
// cycle only builds the baseline, so nothing is notified.
func (a *App) RunOnce(ctx context.Context) monitor.CycleReport {
	return a.mon.CheckUpdates(ctx)
}

// Stop cancels every loop and releases resources. Each step is bounded so
// one slow component cannot stall shutdown.
func (a *App) Stop(ctx context.Context, reason StopReason) error {
	a.log.Info("stopping", logx.String("reason", string(reason)))
	_, _ = systemd.Stopping()

	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		sctx, cancel := context.WithTimeout(ctx, max)
		defer cancel()
		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(sctx)
		}()
		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-sctx.Done():
			a.log.Warn("stop step deadline reached (continuing)", logx.String("name", name), logx.Duration("elapsed", time.Since(start)))
		}
	}

	if a.sup != nil {
		step("supervisor", 5*time.Second, a.sup.Stop)
	}
	step("storage", time.Second, func(context.Context) error {
		if a.store != nil {
			return a.store.Close()
		}
		return nil
	})

	snap := a.mon.Snapshot()
	a.log.Info("stopped", logx.Uint64("cycles", snap.Cycles), logx.Int("ledger_size", snap.LedgerSize))
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}

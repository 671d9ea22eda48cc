package app

import (
	"fmt"
	"strings"
	"time"

	"annwatch/internal/config"
	"annwatch/internal/monitor"
	"annwatch/internal/notifier"
	"annwatch/internal/source"
	"annwatch/internal/storage"
	logx "annwatch/pkg/logx"
)

func mapLogging(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false, nil
	}
	path := strings.TrimSpace(sc.Path)

	switch driver {
	case "file", "jsonl":
		if path == "" {
			path = "./data/deliveries.jsonl"
		}
		return storage.Config{Driver: "file", Path: path}, true, nil
	case "sqlite", "sqlite3":
		if path == "" {
			return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=sqlite")
		}
		busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, 5*time.Second)
		if err != nil {
			return storage.Config{}, false, err
		}
		return storage.Config{Driver: "sqlite", Path: path, BusyTimeout: busy}, true, nil
	default:
		return storage.Config{}, false, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}

func mapNotifierConfig(cfg *config.Config) (notifier.Config, error) {
	timeout, err := config.ParseDurationOrDefault("webhook.timeout", cfg.Webhook.Timeout, 10*time.Second)
	if err != nil {
		return notifier.Config{}, err
	}
	return notifier.Config{RatePerSec: cfg.Webhook.RatePerSec, SendTimeout: timeout}, nil
}

func mapSchedule(cfg *config.Config) (monitor.Schedule, error) {
	field, raw := "monitor.schedule", strings.TrimSpace(cfg.Monitor.Schedule)
	if raw == "" {
		field, raw = "monitor.interval", strings.TrimSpace(cfg.Monitor.Interval)
	}
	sched, err := monitor.ParseSchedule(raw)
	if err != nil {
		return monitor.Schedule{}, fmt.Errorf("%s: %w", field, err)
	}
	return sched, nil
}

func mapSourceOptions(cfg *config.Config, log logx.Logger) (source.Options, error) {
	timeout, err := config.ParseDurationOrDefault("monitor.fetch_timeout", cfg.Monitor.FetchTimeout, 15*time.Second)
	if err != nil {
		return source.Options{}, err
	}
	return source.Options{
		Log:       log,
		UserAgent: cfg.Monitor.UserAgent,
		Timeout:   timeout,
	}, nil
}

// validate runs the checks that need other packages (schedule syntax,
// source registry, storage driver). Used at startup and on hot reload.
func validate(cfg *config.Config) error {
	if _, err := mapSchedule(cfg); err != nil {
		return err
	}
	for i, sc := range cfg.Sources {
		if _, err := source.New(sc, source.Options{}); err != nil {
			return fmt.Errorf("sources[%d]: %w", i, err)
		}
	}
	if _, _, err := mapStorageConfig(cfg); err != nil {
		return err
	}
	if _, err := mapNotifierConfig(cfg); err != nil {
		return err
	}
	if _, err := mapSourceOptions(cfg, logx.Nop()); err != nil {
		return err
	}
	return nil
}

package config

import (
	"reflect"
	"sort"
	"strings"

	logx "annwatch/pkg/logx"
)

// RestartSections are config sections that are only read at startup.
var RestartSections = map[string]bool{
	"monitor":  true,
	"sources":  true,
	"storage":  true,
	"metrics":  true,
	"telegram": true,
}

// SummarizeConfigChange returns a sorted list of changed sections and safe
// structured attrs for logging. Secrets (webhook URL, bot token) are never
// included; only whether they are set.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 8)
	attrs := make([]logx.Field, 0, 16)

	if !reflect.DeepEqual(oldCfg.Webhook, newCfg.Webhook) {
		changed = append(changed, "webhook")
		attrs = append(attrs,
			logx.Bool("webhook.url_changed", strings.TrimSpace(oldCfg.Webhook.URL) != strings.TrimSpace(newCfg.Webhook.URL)),
			logx.String("webhook.timeout", strings.TrimSpace(newCfg.Webhook.Timeout)),
			logx.Int("webhook.rate_per_sec", newCfg.Webhook.RatePerSec),
		)
	}

	if !reflect.DeepEqual(oldCfg.Telegram, newCfg.Telegram) {
		changed = append(changed, "telegram")
		enabled := newCfg.Telegram != nil && newCfg.Telegram.Enabled
		attrs = append(attrs, logx.Bool("telegram.enabled", enabled))
	}

	if oldCfg.Monitor != newCfg.Monitor {
		changed = append(changed, "monitor")
		attrs = append(attrs,
			logx.String("monitor.interval", strings.TrimSpace(newCfg.Monitor.Interval)),
			logx.String("monitor.schedule", strings.TrimSpace(newCfg.Monitor.Schedule)),
			logx.String("monitor.debug_cutoff", strings.TrimSpace(newCfg.Monitor.DebugCutoff)),
		)
	}

	if !reflect.DeepEqual(oldCfg.Sources, newCfg.Sources) {
		changed = append(changed, "sources")
		attrs = append(attrs, logx.Int("sources.count", len(newCfg.Sources)))
	}

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logx.level", newCfg.Logging.Level),
			logx.Bool("logx.console", newCfg.Logging.Console),
			logx.Bool("logx.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	// Nil means disabled.
	var oS, nS StorageConfig
	if oldCfg.Storage != nil {
		oS = *oldCfg.Storage
	}
	if newCfg.Storage != nil {
		nS = *newCfg.Storage
	}
	if oS != nS {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", strings.TrimSpace(nS.Driver)),
			logx.Bool("storage.path_set", strings.TrimSpace(nS.Path) != ""),
		)
	}

	if oldCfg.Metrics != newCfg.Metrics {
		changed = append(changed, "metrics")
		attrs = append(attrs,
			logx.Bool("metrics.enabled", newCfg.Metrics.Enabled),
			logx.String("metrics.addr", strings.TrimSpace(newCfg.Metrics.Addr)),
		)
	}

	sort.Strings(changed)
	return changed, attrs
}

package config

// Config is the on-disk configuration (JSON or YAML).
//
// Only webhook.url is required; it is usually supplied through the
// WEBHOOK_URL environment variable (or a .env file) rather than the file.
type Config struct {
	Webhook  WebhookConfig   `json:"webhook"`
	Telegram *TelegramConfig `json:"telegram,omitempty"`
	Monitor  MonitorConfig   `json:"monitor"`

	// Sources lists adapters in polling order. If omitted, every built-in
	// source is polled in its default order.
	Sources []SourceConfig `json:"sources,omitempty"`

	Logging LoggingConfig  `json:"logging"`
	Storage *StorageConfig `json:"storage,omitempty"`
	Metrics MetricsConfig  `json:"metrics,omitempty"`
}

// WebhookConfig controls the chat webhook notifier.
type WebhookConfig struct {
	URL string `json:"url"`
	// Timeout is a Go duration string (default "10s").
	Timeout    string `json:"timeout,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"` // default 2 (webhook robots throttle at ~20/min)

	// StartupMessage posts a "monitor started" message once on boot.
	StartupMessage bool `json:"startup_message,omitempty"`
}

// TelegramConfig enables an optional second delivery channel.
type TelegramConfig struct {
	Enabled  bool   `json:"enabled"`
	Token    string `json:"token"`
	ChatID   int64  `json:"chat_id"`
	ThreadID int    `json:"thread_id,omitempty"`
}

// MonitorConfig controls the poll loop.
//
// Durations are Go duration strings (e.g. "30s", "10m").
type MonitorConfig struct {
	// Interval between the end of one cycle and the start of the next
	// (default "10m"). Accepts Go durations and HH:MM.
	Interval string `json:"interval,omitempty"`

	// Schedule optionally replaces Interval with a cron expression
	// ("*/10 * * * *", "@every 10m"). Cycles never overlap.
	Schedule string `json:"schedule,omitempty"`

	// DebugCutoff (YYYY-MM-DD) switches the monitor into debug mode: only
	// announcements dated on/after the cutoff are considered.
	DebugCutoff string `json:"debug_cutoff,omitempty"`

	// FetchTimeout bounds a single HTTP request made by a source (default "15s").
	FetchTimeout string `json:"fetch_timeout,omitempty"`
	UserAgent    string `json:"user_agent,omitempty"`
}

// SourceConfig selects one adapter.
//
// Enabled is a pointer so an omitted value means "enabled".
type SourceConfig struct {
	Type    string `json:"type"`
	Enabled *bool  `json:"enabled,omitempty"`
	// URL overrides the provider endpoint (tests, mirrors).
	URL string `json:"url,omitempty"`
}

func (s SourceConfig) IsEnabled() bool { return s.Enabled == nil || *s.Enabled }

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StorageConfig controls the optional delivery audit log.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./data/annwatch.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// MetricsConfig controls the Prometheus /metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default "127.0.0.1:9464"
}

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrWebhookRequired is returned when no webhook destination is configured.
var ErrWebhookRequired = errors.New("webhook url is required (set " + EnvWebhookURL + " or webhook.url)")

// Validate performs static checks that do not depend on other packages.
// Component-specific checks (source types, monitor.schedule and
// monitor.interval syntax) happen where those components are built.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	raw := strings.TrimSpace(cfg.Webhook.URL)
	if raw == "" {
		return ErrWebhookRequired
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("webhook.url: must be an absolute http(s) URL")
	}
	if cfg.Webhook.RatePerSec < 0 {
		return fmt.Errorf("webhook.rate_per_sec must be >= 0")
	}
	if _, err := ParseDurationField("webhook.timeout", cfg.Webhook.Timeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("monitor.fetch_timeout", cfg.Monitor.FetchTimeout); err != nil {
		return err
	}
	if _, _, err := ParseDateField("monitor.debug_cutoff", cfg.Monitor.DebugCutoff); err != nil {
		return err
	}
	if t := cfg.Telegram; t != nil && t.Enabled {
		if strings.TrimSpace(t.Token) == "" {
			return fmt.Errorf("telegram.token is required when telegram.enabled=true")
		}
		if t.ChatID == 0 {
			return fmt.Errorf("telegram.chat_id is required when telegram.enabled=true")
		}
	}
	seen := map[string]bool{}
	for i, s := range cfg.Sources {
		typ := strings.ToLower(strings.TrimSpace(s.Type))
		if typ == "" {
			return fmt.Errorf("sources[%d].type is required", i)
		}
		if seen[typ] {
			return fmt.Errorf("sources[%d]: duplicate type %q", i, typ)
		}
		seen[typ] = true
	}
	return nil
}

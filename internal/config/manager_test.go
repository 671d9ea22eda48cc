package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestLoadYAMLWithEnvOverride(t *testing.T) {
	t.Setenv(EnvWebhookURL, "https://hooks.example.com/env")
	t.Setenv(EnvDebugCutoff, "")
	t.Setenv(EnvInterval, "")
	t.Setenv(EnvLogLevel, "")

	p := writeFile(t, t.TempDir(), "annwatch.yaml", `
webhook:
  url: https://hooks.example.com/file
  rate_per_sec: 5
monitor:
  interval: 5m
  debug_cutoff: "2025-01-15"
sources:
  - type: yeepay
  - type: weixinpay
    enabled: false
logging:
  level: debug
`)
	cfg, err := NewConfigManager(p).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Webhook.URL != "https://hooks.example.com/env" {
		t.Fatalf("env override not applied: %q", cfg.Webhook.URL)
	}
	if cfg.Webhook.RatePerSec != 5 || cfg.Monitor.Interval != "5m" || cfg.Monitor.DebugCutoff != "2025-01-15" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if len(cfg.Sources) != 2 || cfg.Sources[0].Type != "yeepay" || cfg.Sources[1].IsEnabled() {
		t.Fatalf("unexpected sources: %+v", cfg.Sources)
	}
}

func TestLoadMissingFileUsesEnv(t *testing.T) {
	t.Setenv(EnvWebhookURL, "https://hooks.example.com/x")
	cfg, err := NewConfigManager(filepath.Join(t.TempDir(), "absent.json")).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Webhook.URL != "https://hooks.example.com/x" {
		t.Fatalf("unexpected webhook url %q", cfg.Webhook.URL)
	}
}

func TestLoadRequiresWebhook(t *testing.T) {
	t.Setenv(EnvWebhookURL, "")
	_, err := NewConfigManager(filepath.Join(t.TempDir(), "absent.json")).Load()
	if !errors.Is(err, ErrWebhookRequired) {
		t.Fatalf("expected ErrWebhookRequired, got %v", err)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	t.Setenv(EnvWebhookURL, "")
	p := writeFile(t, t.TempDir(), "c.json", `{"webhook":{"url":"https://x.example"},"bogus":1}`)
	if _, err := NewConfigManager(p).Parse(); err == nil {
		t.Fatal("expected unknown field error")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	ok := func() *Config {
		return &Config{Webhook: WebhookConfig{URL: "https://qyapi.example.com/send?key=1"}}
	}
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "relative url", mutate: func(c *Config) { c.Webhook.URL = "/hook" }, want: "absolute"},
		{name: "interval checked by the monitor", mutate: func(c *Config) { c.Monitor.Interval = "00:10" }},
		{name: "bad cutoff", mutate: func(c *Config) { c.Monitor.DebugCutoff = "15.01.2025" }, want: "monitor.debug_cutoff"},
		{name: "dup source", mutate: func(c *Config) {
			c.Sources = []SourceConfig{{Type: "yeepay"}, {Type: "YeePay"}}
		}, want: "duplicate"},
		{name: "telegram without token", mutate: func(c *Config) {
			c.Telegram = &TelegramConfig{Enabled: true, ChatID: 1}
		}, want: "telegram.token"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := ok()
			tt.mutate(c)
			err := Validate(c)
			if tt.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestSummarizeConfigChangeHidesSecrets(t *testing.T) {
	t.Parallel()
	oldCfg := &Config{Webhook: WebhookConfig{URL: "https://a.example/secret-key"}}
	newCfg := &Config{
		Webhook: WebhookConfig{URL: "https://b.example/other-key"},
		Logging: LoggingConfig{Level: "debug"},
		Storage: &StorageConfig{Driver: "file", Path: "./x"},
	}
	sections, attrs := SummarizeConfigChange(oldCfg, newCfg)
	want := []string{"logging", "storage", "webhook"}
	if strings.Join(sections, ",") != strings.Join(want, ",") {
		t.Fatalf("sections = %v, want %v", sections, want)
	}
	if len(attrs) == 0 {
		t.Fatal("expected attrs")
	}
}

func TestWatchPublishesReload(t *testing.T) {
	t.Setenv(EnvWebhookURL, "")
	dir := t.TempDir()
	p := writeFile(t, dir, "annwatch.json", `{"webhook":{"url":"https://a.example/h"},"logging":{"level":"info"}}`)

	m := NewConfigManager(p)
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	sub := m.Subscribe(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = m.Watch(ctx)
		close(done)
	}()

	// Give the watcher a moment to register before writing.
	time.Sleep(200 * time.Millisecond)
	writeFile(t, dir, "annwatch.json", `{"webhook":{"url":"https://a.example/h"},"logging":{"level":"debug"}}`)

	select {
	case cfg := <-sub:
		if cfg.Logging.Level != "debug" {
			t.Fatalf("published level = %q", cfg.Logging.Level)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for reload")
	}
	cancel()
	<-done
}

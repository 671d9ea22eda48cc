package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment overrides. They win over values from the config file.
const (
	EnvWebhookURL  = "WEBHOOK_URL"
	EnvDebugCutoff = "ANNWATCH_DEBUG_CUTOFF"
	EnvInterval    = "ANNWATCH_INTERVAL"
	EnvLogLevel    = "ANNWATCH_LOG_LEVEL"
)

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment. Missing files are ignored; variables already set are kept.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v, ok := lookupEnv(EnvWebhookURL); ok {
		cfg.Webhook.URL = v
	}
	if v, ok := lookupEnv(EnvDebugCutoff); ok {
		cfg.Monitor.DebugCutoff = v
	}
	if v, ok := lookupEnv(EnvInterval); ok {
		cfg.Monitor.Interval = v
	}
	if v, ok := lookupEnv(EnvLogLevel); ok {
		cfg.Logging.Level = v
	}
}

func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

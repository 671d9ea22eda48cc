package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Delivery records one attempt to deliver one announcement on one channel.
type Delivery struct {
	At      time.Time `json:"at"`
	Key     string    `json:"key"`
	Source  string    `json:"source"`
	Title   string    `json:"title"`
	URL     string    `json:"url,omitempty"`
	Channel string    `json:"channel"`
	OK      bool      `json:"ok"`
	Error   string    `json:"error,omitempty"`
	TookMS  int64     `json:"took_ms"`
}

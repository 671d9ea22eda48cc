package notifier

import (
	"context"
	"time"

	"annwatch/internal/announce"
)

// Message is what a Channel delivers. Either Announcement or Text is set;
// Text carries operational messages such as the startup notice.
type Message struct {
	Announcement announce.Announcement
	Text         string
	CheckedAt    time.Time
}

func (m Message) IsAnnouncement() bool { return m.Text == "" }

// Channel is one delivery destination.
type Channel interface {
	Name() string
	Send(ctx context.Context, m Message) error
}

// Config controls the Service.
type Config struct {
	// RatePerSec limits sends per channel (default 2).
	RatePerSec int
	// SendTimeout bounds one send (default 10s).
	SendTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.RatePerSec <= 0 {
		c.RatePerSec = 2
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 10 * time.Second
	}
	return c
}

package systemd

import (
	"context"
	"testing"
	"time"
)

func TestNoopOutsideSystemd(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")
	t.Setenv("WATCHDOG_USEC", "")

	if sent, err := Ready(); sent || err != nil {
		t.Fatalf("Ready = (%v, %v), want (false, nil)", sent, err)
	}
	if sent, err := Status("polling"); sent || err != nil {
		t.Fatalf("Status = (%v, %v)", sent, err)
	}
	if d := WatchdogInterval(); d != 0 {
		t.Fatalf("WatchdogInterval = %v", d)
	}
}

func TestWatchdogReturnsOnCancel(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := Watchdog(ctx, 5*time.Millisecond, func() bool { return true }); err != nil {
		t.Fatalf("Watchdog: %v", err)
	}
}

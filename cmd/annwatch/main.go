package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"annwatch/internal/app"
	"annwatch/internal/config"
)

func main() {
	var (
		cfgPath     string
		envFiles    string
		once        bool
		checkConfig bool
		deliveries  int
	)
	flag.StringVar(&cfgPath, "config", "./annwatch.yaml", "path to config file (yaml or json); optional")
	flag.StringVar(&envFiles, "env", ".env", "comma-separated dotenv files to load (missing files are ignored)")
	flag.BoolVar(&once, "once", false, "run a single baseline cycle and exit (never notifies)")
	flag.BoolVar(&checkConfig, "check-config", false, "validate config and exit")
	flag.IntVar(&deliveries, "deliveries", 0, "print the last N recorded deliveries and exit (needs storage)")
	flag.Parse()

	if err := config.LoadDotEnv(splitList(envFiles)...); err != nil {
		fmt.Fprintln(os.Stderr, "fatal: env:", err)
		os.Exit(1)
	}

	a, err := app.New(cfgPath)
	if err != nil {
		if errors.Is(err, config.ErrWebhookRequired) {
			fmt.Fprintln(os.Stderr, "fatal:", err)
		} else {
			fmt.Fprintln(os.Stderr, "fatal: config:", err)
		}
		os.Exit(1)
	}

	if checkConfig {
		fmt.Println("config ok")
		_ = a.Stop(context.Background(), app.StopOnce)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if deliveries > 0 {
		os.Exit(printDeliveries(ctx, a, deliveries))
	}

	if once {
		rep := a.RunOnce(ctx)
		_ = a.Stop(context.Background(), app.StopOnce)
		fmt.Printf("fetched=%d skipped=%d source_failures=%d ledger=%d took=%s\n",
			rep.Fetched, rep.Skipped, rep.SourceFailures, a.Monitor().Snapshot().LedgerSize, rep.Took.Round(time.Millisecond))
		if rep.Aborted {
			os.Exit(1)
		}
		return
	}

	if err := a.Start(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "fatal start:", err)
		os.Exit(1)
	}

	reason := app.StopSignal
	select {
	case <-ctx.Done():
	case <-a.Done():
		if a.Err() != nil {
			reason = app.StopFatalError
		}
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	_ = a.Stop(stopCtx, reason)

	if err := a.Err(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func printDeliveries(ctx context.Context, a *app.App, n int) int {
	defer a.Stop(context.Background(), app.StopOnce)
	st := a.Store()
	if st == nil {
		fmt.Fprintln(os.Stderr, "storage is disabled; set storage.driver to file or sqlite")
		return 1
	}
	ds, err := st.RecentDeliveries(ctx, n)
	if err != nil {
		fmt.Fprintln(os.Stderr, "deliveries:", err)
		return 1
	}
	enc := json.NewEncoder(os.Stdout)
	for _, d := range ds {
		_ = enc.Encode(d)
	}
	return 0
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

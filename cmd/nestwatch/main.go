package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NasaVasa/nestwatch/internal/app"
	"github.com/NasaVasa/nestwatch/internal/config"
)

type options struct {
	once bool
	now  time.Time
}

func main() {
	once := flag.Bool("once", false, "run a single matching pass, print its summary and exit")
	nowFlag := flag.String("now", "", "pass time for -once (RFC3339, defaults to the current time)")
	flag.Parse()

	opts, err := parseOptions(*once, *nowFlag, time.Now())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, opts, os.Stdout)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func parseOptions(once bool, rawNow string, fallback time.Time) (options, error) {
	opts := options{once: once, now: fallback}
	if rawNow == "" {
		return opts, nil
	}
	parsed, err := time.Parse(time.RFC3339, rawNow)
	if err != nil {
		return options{}, fmt.Errorf("invalid -now: %w", err)
	}
	opts.now = parsed
	return opts, nil
}

// run owns the application lifetime so deferred shutdown runs on every return path.
func run(ctx context.Context, opts options, out io.Writer) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	application, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize app: %w", err)
	}
	defer application.Shutdown()

	if opts.once {
		summary, err := application.RunOnce(ctx, opts.now)
		if err != nil {
			return fmt.Errorf("pass failed: %w", err)
		}
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(summary)
	}

	if err := application.Run(ctx); err != nil {
		return fmt.Errorf("application error: %w", err)
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/Dicklesworthstone/procpulse/internal/config"
	"github.com/Dicklesworthstone/procpulse/internal/sampler"
	"github.com/Dicklesworthstone/procpulse/internal/server"
	"github.com/Dicklesworthstone/procpulse/internal/ui"
)

func main() {
	cfg, err := config.FromFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "procpulse: %v\n", err)
		os.Exit(2)
	}

	if cfg.Serve {
		err = serve(cfg)
	} else {
		err = dashboard(cfg)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "procpulse: %v\n", err)
		os.Exit(1)
	}
}

// serve runs the process API backed by the local machine.
func serve(cfg config.Config) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg.Listen, logger, os.Stderr)
	return srv.Run(ctx, sampler.New(cfg.SampleInterval, logger))
}

// dashboard runs the TUI. Logs go to a file so they do not corrupt the
// alternate screen.
func dashboard(cfg config.Config) error {
	out, closeLog, err := openLog(cfg.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	logger.Info("starting dashboard", "api", cfg.APIURL, "ollama", cfg.OllamaURL, "model", cfg.Model, "interval", cfg.Interval)
	return ui.RunTUI(cfg, logger)
}

func openLog(path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return io.Discard, func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

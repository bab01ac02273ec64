package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/drawbot/config"
	"github.com/alejandrodnm/drawbot/internal/adapters/notify"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	simulate := flag.Bool("simulate", false, "run the offline simulator and exit")
	matches := flag.Int("matches", 0, "simulated matches (overrides config)")
	seed := flag.Uint64("seed", 0, "simulation seed (overrides config)")
	dryRun := flag.Bool("dry-run", false, "live feed, but orders are accepted locally and nothing is persisted in simulate mode")
	report := flag.Bool("report", false, "print the bet journal and the last run, then exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	output := flag.String("output", notify.FormatTable, "report output: table|json")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if errors.Is(err, fs.ErrNotExist) && (*simulate || *report) {
		cfg = config.Default()
		err = nil
	}
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *matches > 0 {
		cfg.Simulation.Matches = *matches
	}
	if *seed > 0 {
		cfg.Simulation.Seed = *seed
	}
	setupLogger(cfg.Log)

	slog.Info("drawbot starting",
		"config", *configPath,
		"simulate", *simulate,
		"dry_run", *dryRun,
		"report", *report,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	console := notify.NewConsole(*output)

	switch {
	case *report:
		err = runReport(ctx, cfg, console)
	case *simulate:
		err = runSimulate(ctx, cfg, console, !*dryRun)
	default:
		err = runLive(ctx, cfg, console, *dryRun)
	}
	if err != nil {
		slog.Error("drawbot exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("drawbot stopped cleanly")
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	// stderr: stdout queda para los reportes (-output json).
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

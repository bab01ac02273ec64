package main

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/drawbot/config"
	"github.com/alejandrodnm/drawbot/internal/adapters/notify"
	"github.com/alejandrodnm/drawbot/internal/adapters/storage"
)

func runReport(ctx context.Context, cfg *config.Config, console *notify.Console) error {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		return fmt.Errorf("report: open storage: %w", err)
	}
	defer store.Close()

	stats, err := store.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	bets, err := store.GetBets(ctx, "")
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if err := console.PrintBetReport(stats, bets); err != nil {
		return err
	}

	last, ok, err := store.LastRun(ctx)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if !ok {
		return nil
	}
	return console.PrintSummary("LAST RUN", last)
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/drawbot/config"
	"github.com/alejandrodnm/drawbot/internal/adapters/notify"
	"github.com/alejandrodnm/drawbot/internal/adapters/storage"
	"github.com/alejandrodnm/drawbot/internal/application/simulation"
	"github.com/alejandrodnm/drawbot/internal/domain"
	"github.com/alejandrodnm/drawbot/internal/domain/strategy"
	"github.com/shopspring/decimal"
)

// runSimulate corre el simulador offline. Con persist, la corrida queda en la
// tabla runs para -report; las apuestas simuladas nunca tocan el journal.
func runSimulate(ctx context.Context, cfg *config.Config, console *notify.Console, persist bool) error {
	simCfg := simulation.Config{
		Matches:         cfg.Simulation.Matches,
		Seed:            cfg.Simulation.Seed,
		UpdatesPerMatch: cfg.Simulation.UpdatesPerMatch,
		InitialBankroll: cfg.InitialBankroll(),
		Stake:           domain.StakePolicy{Percentage: cfg.StakePercentage(), Minimum: cfg.MinimumStake()},
		Rule:            strategy.LateDrawConfig{MinMinute: cfg.Strategy.MinMinute, MinDrawOdds: cfg.MinDrawOdds()},
	}
	if cfg.Simulation.FixedWinOdds > 0 {
		simCfg.FixedWinOdds = decimal.NewFromFloat(cfg.Simulation.FixedWinOdds)
	}

	var store *storage.SQLiteStorage
	var runID int64
	if persist {
		var err error
		store, err = storage.NewSQLiteStorage(cfg.Storage.DSN)
		if err != nil {
			return fmt.Errorf("simulate: open storage: %w", err)
		}
		defer store.Close()

		runID, err = store.StartRun(ctx, "simulate", simCfg.InitialBankroll)
		if err != nil {
			return fmt.Errorf("simulate: %w", err)
		}
	}

	summary, err := simulation.Run(ctx, simCfg)
	if err != nil {
		return err
	}

	if store != nil {
		finishCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.FinishRun(finishCtx, runID, summary); err != nil {
			slog.Warn("simulate: could not record run", "err", err)
		}
	}

	return console.PrintSimulation(summary)
}

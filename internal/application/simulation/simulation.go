package simulation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/drawbot/internal/adapters/feed"
	"github.com/alejandrodnm/drawbot/internal/adapters/outcome"
	"github.com/alejandrodnm/drawbot/internal/adapters/venue"
	"github.com/alejandrodnm/drawbot/internal/application/engine"
	"github.com/alejandrodnm/drawbot/internal/application/ledger"
	"github.com/alejandrodnm/drawbot/internal/domain"
	"github.com/alejandrodnm/drawbot/internal/domain/strategy"
	"github.com/shopspring/decimal"
)

const defaultMatches = 100

// Config holds configuration for a simulation run.
type Config struct {
	Matches         int
	Seed            uint64
	UpdatesPerMatch int

	InitialBankroll decimal.Decimal
	Stake           domain.StakePolicy
	Rule            strategy.LateDrawConfig

	// FixedWinOdds, when non-zero, pays every win at these odds instead of
	// the snapshot's draw odds.
	FixedWinOdds decimal.Decimal
}

// DefaultConfig returns 100 matches on a 100.0 bankroll with the default
// stake policy and entry thresholds.
func DefaultConfig() Config {
	return Config{
		Matches:         defaultMatches,
		Seed:            1,
		InitialBankroll: domain.DefaultInitialBankroll,
		Stake:           domain.DefaultStakePolicy(),
	}
}

// Run replays cfg.Matches synthetic matches through a fresh ledger and a
// synchronous engine. Orders are accepted locally and outcomes come from a
// seeded coin flip, so the same seed always yields the same summary.
// Extra engine options (store, publisher, recorder) are passed through.
func Run(ctx context.Context, cfg Config, opts ...engine.Option) (domain.SimulationSummary, error) {
	if cfg.InitialBankroll.IsZero() {
		cfg.InitialBankroll = domain.DefaultInitialBankroll
	}
	if cfg.Stake.Percentage.IsZero() && cfg.Stake.Minimum.IsZero() {
		cfg.Stake = domain.DefaultStakePolicy()
	}

	src, err := feed.NewSimulationFeed(feed.SimulationConfig{
		Matches:         cfg.Matches,
		Seed:            cfg.Seed,
		UpdatesPerMatch: cfg.UpdatesPerMatch,
	})
	if err != nil {
		return domain.SimulationSummary{}, fmt.Errorf("simulation.Run: %w", err)
	}

	l := ledger.New(cfg.InitialBankroll, cfg.Stake)
	eng := engine.New(
		l,
		strategy.NewLateDraw(cfg.Rule),
		venue.NewDryRunPlacer(true),
		outcome.NewCoinFlip(cfg.Seed),
		engine.Config{FixedSettleOdds: cfg.FixedWinOdds},
		opts...,
	)

	slog.Info("simulation: starting", "matches", cfg.Matches, "seed", cfg.Seed, "bankroll", cfg.InitialBankroll.StringFixed(2))
	if err := eng.Run(ctx, src); err != nil {
		return domain.SimulationSummary{}, fmt.Errorf("simulation.Run: %w", err)
	}

	stats := eng.Stats()
	summary := domain.NewSimulationSummary(stats.TotalBets, stats.Wins, stats.Losses, l.Initial(), l.Balance())
	slog.Info("simulation: done",
		"bets", summary.TotalBets,
		"wins", summary.Wins,
		"losses", summary.Losses,
		"bankroll", summary.FinalBankroll.StringFixed(2),
		"roi_pct", fmt.Sprintf("%.2f", summary.ROIPercent),
	)
	return summary, nil
}

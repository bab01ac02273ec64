package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/alejandrodnm/drawbot/config"
	"github.com/alejandrodnm/drawbot/internal/adapters/events"
	"github.com/alejandrodnm/drawbot/internal/adapters/feed"
	"github.com/alejandrodnm/drawbot/internal/adapters/guard"
	"github.com/alejandrodnm/drawbot/internal/adapters/metrics"
	"github.com/alejandrodnm/drawbot/internal/adapters/notify"
	"github.com/alejandrodnm/drawbot/internal/adapters/outcome"
	"github.com/alejandrodnm/drawbot/internal/adapters/storage"
	"github.com/alejandrodnm/drawbot/internal/adapters/venue"
	"github.com/alejandrodnm/drawbot/internal/application/engine"
	"github.com/alejandrodnm/drawbot/internal/application/ledger"
	"github.com/alejandrodnm/drawbot/internal/domain"
	"github.com/alejandrodnm/drawbot/internal/domain/strategy"
	"github.com/alejandrodnm/drawbot/internal/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

const (
	stopFile          = "STOP_DRAWBOT"
	stopPollInterval  = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
	liveAbortCooldown = 5 * time.Second
)

// runLive conecta al feed y apuesta hasta que el feed termina, llega una señal
// o aparece el archivo STOP_DRAWBOT.
func runLive(ctx context.Context, cfg *config.Config, console *notify.Console, dryRun bool) error {
	mode := "live"
	if dryRun {
		mode = "dry-run"
	}

	var placer ports.OrderPlacer
	if dryRun {
		placer = venue.NewDryRunPlacer(false)
	} else {
		if cfg.Venue.Username == "" || cfg.Venue.Password == "" {
			return fmt.Errorf("live: VENUE_USERNAME and VENUE_PASSWORD are required (or use -dry-run)")
		}
		fmt.Fprintf(os.Stderr, "\n⚠️  LIVE MODE — REAL MONEY WILL BE STAKED\n")
		fmt.Fprintf(os.Stderr, "   Bankroll: %.2f | Stake: %.1f%% (min %.2f) | Entry: minute >= %d, draw odds > %.2f\n",
			cfg.Bankroll.Initial, cfg.Bankroll.StakePercentage*100, cfg.Bankroll.MinimumStake,
			cfg.Strategy.MinMinute, cfg.Strategy.MinDrawOdds)
		fmt.Fprintf(os.Stderr, "   Press Ctrl+C within 5 seconds to abort...\n\n")

		select {
		case <-time.After(liveAbortCooldown):
		case <-ctx.Done():
			slog.Info("live: aborted by user")
			return nil
		}

		placer = venue.NewClient(venue.Config{
			BaseURL:    cfg.Venue.BaseURL,
			Username:   cfg.Venue.Username,
			Password:   cfg.Venue.Password,
			Price:      decimal.NewFromFloat(cfg.Venue.Price),
			Timeout:    time.Duration(cfg.Venue.TimeoutSeconds) * time.Second,
			RatePerSec: cfg.Venue.RatePerSec,
		})
	}

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		return fmt.Errorf("live: open storage: %w", err)
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	recorder, err := metrics.NewRecorder(reg)
	if err != nil {
		return fmt.Errorf("live: %w", err)
	}

	publisher, closePublisher, err := newPublisher(cfg.Events)
	if err != nil {
		return err
	}
	defer closePublisher()

	matchGuard, closeGuard := newGuard(cfg)
	defer closeGuard()

	l := ledger.New(cfg.InitialBankroll(), domain.StakePolicy{
		Percentage: cfg.StakePercentage(),
		Minimum:    cfg.MinimumStake(),
	})
	engCfg := engine.Config{
		Async:            cfg.Engine.Async,
		PlacementTimeout: cfg.PlacementTimeout(),
	}
	if cfg.Engine.FixedSettleOdds > 0 {
		engCfg.FixedSettleOdds = decimal.NewFromFloat(cfg.Engine.FixedSettleOdds)
	}
	eng := engine.New(
		l,
		strategy.NewLateDraw(strategy.LateDrawConfig{MinMinute: cfg.Strategy.MinMinute, MinDrawOdds: cfg.MinDrawOdds()}),
		placer,
		outcome.NewClockParity(time.Now),
		engCfg,
		engine.WithStore(store),
		engine.WithPublisher(publisher),
		engine.WithGuard(matchGuard),
		engine.WithRecorder(recorder),
	)

	if cfg.Metrics.Addr != "" {
		srv := metrics.NewServer(cfg.Metrics.Addr, reg, func() metrics.Status {
			st := eng.Stats()
			return metrics.Status{
				Mode:      mode,
				Bankroll:  l.Balance(),
				Available: l.Available(),
				Reserved:  l.Reserved(),
				TotalBets: st.TotalBets,
				Wins:      st.Wins,
				Losses:    st.Losses,
				Pending:   st.Pending,
				Skipped:   st.Skipped,
				Rejected:  st.Rejected,

				Unresolved: eng.Unresolved(),
			}
		})
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Warn("live: metrics shutdown", "err", err)
			}
		}()
	}

	runID, err := store.StartRun(ctx, mode, l.Initial())
	if err != nil {
		return fmt.Errorf("live: %w", err)
	}

	src := feed.NewWebSocketFeed(feed.Config{
		URL:               cfg.Feed.URL,
		Token:             cfg.Feed.Token,
		Channels:          cfg.Feed.Channels,
		Market:            cfg.Feed.Market,
		HandshakeTimeout:  time.Duration(cfg.Feed.HandshakeTimeoutSecs) * time.Second,
		Reconnect:         cfg.Feed.Reconnect,
		ReconnectDelay:    time.Duration(cfg.Feed.ReconnectDelayMillis) * time.Millisecond,
		ReconnectMaxDelay: time.Duration(cfg.Feed.ReconnectMaxDelaySecs) * time.Second,
		ReconnectMax:      cfg.Feed.ReconnectMax,
	}, feed.WithDropHook(recorder.FeedMessageDropped))

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	go watchStopFile(runCtx, stop)

	slog.Info("live: started, press Ctrl+C or create "+stopFile+" to exit",
		"mode", mode,
		"feed", cfg.Feed.URL,
		"bankroll", l.Initial().StringFixed(2),
		"async", cfg.Engine.Async,
	)
	runErr := eng.Run(runCtx, src)

	st := eng.Stats()
	summary := domain.NewSimulationSummary(st.TotalBets, st.Wins, st.Losses, l.Initial(), l.Balance())

	finishCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := store.FinishRun(finishCtx, runID, summary); err != nil {
		slog.Warn("live: could not record run", "err", err)
	}

	slog.Info("live: stopped",
		"bets", st.TotalBets,
		"wins", st.Wins,
		"losses", st.Losses,
		"skipped", st.Skipped,
		"rejected", st.Rejected,
		"bankroll", l.Balance().StringFixed(2),
	)
	if stuck := eng.Unresolved(); len(stuck) > 0 {
		slog.Warn("live: bets left without a result, stake still reserved", "matches", stuck)
	}
	if err := console.PrintSummary("SESSION RESULTS", summary); err != nil {
		slog.Warn("live: print summary", "err", err)
	}
	if runErr != nil {
		return fmt.Errorf("live: %w", runErr)
	}
	return nil
}

func newPublisher(cfg config.EventsConfig) (ports.BetPublisher, func(), error) {
	if len(cfg.Brokers) == 0 {
		return events.NopPublisher{}, func() {}, nil
	}
	p, err := events.NewKafkaPublisher(cfg.Brokers, cfg.Topic)
	if err != nil {
		return nil, nil, fmt.Errorf("live: %w", err)
	}
	slog.Info("live: publishing bet events", "brokers", cfg.Brokers, "topic", cfg.Topic)
	return p, func() {
		if err := p.Close(); err != nil {
			slog.Warn("live: kafka close", "err", err)
		}
	}, nil
}

func newGuard(cfg *config.Config) (ports.MatchGuard, func()) {
	if cfg.Guard.RedisAddr == "" {
		return guard.NewLocal(), func() {}
	}
	client := guard.NewRedisClient(cfg.Guard.RedisAddr, cfg.Guard.RedisPassword, cfg.Guard.RedisDB)
	slog.Info("live: match guard on redis", "addr", cfg.Guard.RedisAddr, "instance", cfg.Guard.Instance)
	return guard.NewRedisGuard(client, cfg.GuardTTL(), cfg.Guard.Instance), func() {
		if err := client.Close(); err != nil {
			slog.Warn("live: redis close", "err", err)
		}
	}
}

// watchStopFile cancela la ejecución cuando aparece el archivo de parada.
func watchStopFile(ctx context.Context, stop context.CancelFunc) {
	ticker := time.NewTicker(stopPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := os.Stat(stopFile); err == nil {
				slog.Info(stopFile + " file detected, shutting down")
				os.Remove(stopFile)
				stop()
				return
			}
		}
	}
}

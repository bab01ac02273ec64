package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alejandrodnm/drawbot/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "")
	t.Setenv("STORAGE_DSN", "")
	t.Setenv("SIMULATION_SEED", "")

	cfg, err := config.Load(writeConfig(t, "log:\n  level: warn\n"))
	require.NoError(t, err)

	assert.Equal(t, 80, cfg.Strategy.MinMinute)
	assert.True(t, decimal.RequireFromString("1.2").Equal(cfg.MinDrawOdds()))
	assert.True(t, decimal.NewFromInt(100).Equal(cfg.InitialBankroll()))
	assert.True(t, decimal.RequireFromString("0.02").Equal(cfg.StakePercentage()))
	assert.True(t, decimal.NewFromInt(2).Equal(cfg.MinimumStake()))
	assert.Equal(t, 10*time.Second, cfg.PlacementTimeout())
	assert.Equal(t, 6*time.Hour, cfg.GuardTTL())
	assert.Equal(t, 100, cfg.Simulation.Matches)
	assert.Equal(t, uint64(1), cfg.Simulation.Seed)
	assert.Equal(t, "drawbot.db", cfg.Storage.DSN)
	assert.Equal(t, "drawbot.bets", cfg.Events.Topic)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.NotEmpty(t, cfg.Guard.Instance)
}

func TestLoad_YAMLValues(t *testing.T) {
	path := writeConfig(t, `
strategy:
  min_minute: 75
  min_draw_odds: 1.5
bankroll:
  initial: 250
  stake_percentage: 0.05
  minimum_stake: 1
feed:
  url: "wss://feed.test/ws"
  market: "live"
  reconnect: true
  reconnect_max: 4
engine:
  async: true
  placement_timeout_seconds: 3
events:
  brokers: ["k1:9092", "k2:9092"]
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 75, cfg.Strategy.MinMinute)
	assert.True(t, decimal.RequireFromString("1.5").Equal(cfg.MinDrawOdds()))
	assert.True(t, decimal.NewFromInt(250).Equal(cfg.InitialBankroll()))
	assert.True(t, decimal.RequireFromString("0.05").Equal(cfg.StakePercentage()))
	assert.Equal(t, "wss://feed.test/ws", cfg.Feed.URL)
	assert.Equal(t, "live", cfg.Feed.Market)
	assert.True(t, cfg.Feed.Reconnect)
	assert.Equal(t, 4, cfg.Feed.ReconnectMax)
	assert.True(t, cfg.Engine.Async)
	assert.Equal(t, 3*time.Second, cfg.PlacementTimeout())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Events.Brokers)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("VENUE_USERNAME", "alice")
	t.Setenv("VENUE_PASSWORD", "s3cret")
	t.Setenv("FEED_TOKEN", "tok")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")
	t.Setenv("SIMULATION_SEED", "42")

	cfg, err := config.Load(writeConfig(t, "venue:\n  username: bob\n"))
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "alice", cfg.Venue.Username)
	assert.Equal(t, "s3cret", cfg.Venue.Password)
	assert.Equal(t, "tok", cfg.Feed.Token)
	assert.Equal(t, "redis:6379", cfg.Guard.RedisAddr)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Events.Brokers)
	assert.Equal(t, uint64(42), cfg.Simulation.Seed)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := config.Load(writeConfig(t, "strategy: [unclosed"))
	assert.Error(t, err)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	_, err := config.Load(writeConfig(t, "bankroll:\n  stake_percentage: 1.5\nstrategy:\n  min_draw_odds: 0.5\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stake_percentage")
	assert.Contains(t, err.Error(), "min_draw_odds")
}

func TestDefault(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 80, cfg.Strategy.MinMinute)
}

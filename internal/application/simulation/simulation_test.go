package simulation_test

import (
	"context"
	"testing"

	"github.com/alejandrodnm/drawbot/internal/application/engine"
	"github.com/alejandrodnm/drawbot/internal/application/simulation"
	"github.com/alejandrodnm/drawbot/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_ZeroMatches(t *testing.T) {
	cfg := simulation.DefaultConfig()
	cfg.Matches = 0

	s, err := simulation.Run(context.Background(), cfg)

	require.NoError(t, err)
	assert.Equal(t, 0, s.TotalBets)
	assert.Equal(t, 0, s.Wins)
	assert.Equal(t, 0, s.Losses)
	assert.True(t, decimal.NewFromInt(100).Equal(s.FinalBankroll))
	assert.Equal(t, 0.0, s.ROIPercent)
}

func TestRun_SameSeedSameSummary(t *testing.T) {
	cfg := simulation.DefaultConfig()
	cfg.Matches = 300
	cfg.Seed = 2024

	a, err := simulation.Run(context.Background(), cfg)
	require.NoError(t, err)
	b, err := simulation.Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, a.TotalBets, b.TotalBets)
	assert.Equal(t, a.Wins, b.Wins)
	assert.True(t, a.FinalBankroll.Equal(b.FinalBankroll))
	assert.Equal(t, a.ROIPercent, b.ROIPercent)
}

func TestRun_SummaryIsConsistent(t *testing.T) {
	cfg := simulation.DefaultConfig()
	cfg.Matches = 500
	cfg.Seed = 11

	s, err := simulation.Run(context.Background(), cfg)

	require.NoError(t, err)
	assert.Equal(t, s.TotalBets, s.Wins+s.Losses)
	// ~1/4 de los partidos están empatados y en minuto >= 80; con 500 alguno apuesta
	assert.Positive(t, s.TotalBets)
	assert.LessOrEqual(t, s.TotalBets, cfg.Matches)

	want := s.FinalBankroll.Sub(s.InitialBankroll).Div(s.InitialBankroll).Mul(decimal.NewFromInt(100)).InexactFloat64()
	assert.InDelta(t, want, s.ROIPercent, 1e-9)
}

func TestRun_FixedWinOdds(t *testing.T) {
	cfg := simulation.DefaultConfig()
	cfg.Matches = 400
	cfg.Seed = 5
	cfg.FixedWinOdds = decimal.RequireFromString("1.5")
	// sin porcentaje el stake es siempre el mínimo: el resultado es exacto
	cfg.Stake = domain.StakePolicy{Percentage: decimal.Zero, Minimum: decimal.NewFromInt(2)}

	s, err := simulation.Run(context.Background(), cfg)
	require.NoError(t, err)

	want := decimal.NewFromInt(100).
		Add(decimal.NewFromInt(int64(s.Wins))).
		Sub(decimal.NewFromInt(int64(2 * s.Losses)))
	assert.True(t, want.Equal(s.FinalBankroll), "want %s got %s", want, s.FinalBankroll)
}

func TestRun_PassesEngineOptions(t *testing.T) {
	rec := &countingRecorder{}
	cfg := simulation.DefaultConfig()
	cfg.Matches = 200
	cfg.Seed = 9

	s, err := simulation.Run(context.Background(), cfg, engine.WithRecorder(rec))

	require.NoError(t, err)
	assert.Equal(t, s.TotalBets, rec.placed)
	assert.Equal(t, s.TotalBets, rec.settled)
}

func TestRun_InvalidMatchCount(t *testing.T) {
	cfg := simulation.DefaultConfig()
	cfg.Matches = -5

	_, err := simulation.Run(context.Background(), cfg)
	assert.Error(t, err)
}

type countingRecorder struct {
	placed, settled int
}

func (c *countingRecorder) BetPlaced()        { c.placed++ }
func (c *countingRecorder) BetSettled(bool)   { c.settled++ }
func (c *countingRecorder) BetSkipped(string) {}
func (c *countingRecorder) Bankroll(float64)  {}

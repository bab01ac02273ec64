package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// --- StakePolicy ---

func TestStakeFor_PercentageAboveMinimum(t *testing.T) {
	p := DefaultStakePolicy()
	assert.True(t, dec("10").Equal(p.StakeFor(dec("500"))), "2% of 500 = 10")
}

func TestStakeFor_MinimumWins(t *testing.T) {
	p := DefaultStakePolicy()
	// 2% de 100 = 2.0 → justo el mínimo
	assert.True(t, dec("2").Equal(p.StakeFor(dec("100"))))
	assert.True(t, dec("2").Equal(p.StakeFor(dec("1"))))
	assert.True(t, dec("2").Equal(p.StakeFor(decimal.Zero)))
}

func TestStakeFor_MatchesFormulaAcrossBankrolls(t *testing.T) {
	p := StakePolicy{Percentage: dec("0.05"), Minimum: dec("3")}
	for _, b := range []string{"0", "10", "59.99", "60", "60.01", "1000", "-20"} {
		bankroll := dec(b)
		want := decimal.Max(bankroll.Mul(dec("0.05")), dec("3"))
		assert.True(t, want.Equal(p.StakeFor(bankroll)), "bankroll %s", b)
	}
}

// --- SimulationSummary ---

func TestNewSimulationSummary_ROI(t *testing.T) {
	s := NewSimulationSummary(10, 6, 4, dec("100"), dec("112.5"))
	assert.InDelta(t, 12.5, s.ROIPercent, 1e-9)
	assert.InDelta(t, 0.6, s.WinRate(), 1e-9)
}

func TestNewSimulationSummary_NoBets(t *testing.T) {
	s := NewSimulationSummary(0, 0, 0, dec("100"), dec("100"))
	assert.Equal(t, 0.0, s.ROIPercent)
	assert.Equal(t, 0.0, s.WinRate())
}

func TestNewSimulationSummary_ZeroInitial(t *testing.T) {
	s := NewSimulationSummary(1, 1, 0, decimal.Zero, dec("5"))
	assert.Equal(t, 0.0, s.ROIPercent)
}

// --- BetRecord ---

func TestBetRecord_ResolveWon(t *testing.T) {
	b := BetRecord{Stake: dec("2"), OddsAtEntry: dec("1.5"), Status: BetStatusPending}
	require.NoError(t, b.Resolve(true, dec("1.5"), time.Now()))
	assert.Equal(t, BetStatusWon, b.Status)
	assert.True(t, dec("1").Equal(b.PnL))
	assert.NotNil(t, b.SettledAt)
}

func TestBetRecord_ResolveLost(t *testing.T) {
	b := BetRecord{Stake: dec("2"), Status: BetStatusPending}
	require.NoError(t, b.Resolve(false, dec("1.5"), time.Now()))
	assert.Equal(t, BetStatusLost, b.Status)
	assert.True(t, dec("-2").Equal(b.PnL))
}

func TestBetRecord_ResolveTwiceIsNoop(t *testing.T) {
	b := BetRecord{Stake: dec("2"), Status: BetStatusPending}
	require.NoError(t, b.Resolve(false, dec("1.5"), time.Now()))

	err := b.Resolve(true, dec("1.5"), time.Now())
	assert.ErrorIs(t, err, ErrAlreadySettled)
	assert.Equal(t, BetStatusLost, b.Status)
	assert.True(t, dec("-2").Equal(b.PnL))
}

// --- MatchSnapshot ---

func TestMatchSnapshot_Validate(t *testing.T) {
	ok := MatchSnapshot{MatchID: "m1", MinutePlayed: 85, ScoreHome: 1, ScoreAway: 1, DrawOdds: dec("1.5")}
	assert.NoError(t, ok.Validate())
	assert.True(t, ok.IsLevel())

	cases := map[string]MatchSnapshot{
		"empty id":       {MinutePlayed: 85, DrawOdds: dec("1.5")},
		"negative min":   {MatchID: "m", MinutePlayed: -1, DrawOdds: dec("1.5")},
		"negative score": {MatchID: "m", ScoreHome: -1, DrawOdds: dec("1.5")},
		"odds at one":    {MatchID: "m", DrawOdds: dec("1.0")},
	}
	for name, s := range cases {
		assert.ErrorIs(t, s.Validate(), ErrInvalidSnapshot, name)
	}
}

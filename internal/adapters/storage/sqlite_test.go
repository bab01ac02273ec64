package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/alejandrodnm/drawbot/internal/adapters/storage"
	"github.com/alejandrodnm/drawbot/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC)

func makeBet(id, matchID string, placedAt time.Time) domain.BetRecord {
	return domain.BetRecord{
		ID:          id,
		MatchID:     matchID,
		Stake:       decimal.RequireFromString("2"),
		OddsAtEntry: decimal.RequireFromString("1.5"),
		PlacedAt:    placedAt,
		Status:      domain.BetStatusPending,
		OrderID:     "ord-" + id,
		PnL:         decimal.Zero,
	}
}

func settle(t *testing.T, bet domain.BetRecord, won bool, at time.Time) domain.BetRecord {
	t.Helper()
	require.NoError(t, bet.Resolve(won, bet.OddsAtEntry, at))
	return bet
}

func newDB(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteStorage_SaveAndGetBets(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()

	require.NoError(t, db.SaveBet(ctx, makeBet("b2", "m2", base.Add(time.Second))))
	require.NoError(t, db.SaveBet(ctx, makeBet("b1", "m1", base.Add(500*time.Millisecond))))

	bets, err := db.GetBets(ctx, "")
	require.NoError(t, err)
	require.Len(t, bets, 2)

	// ordenadas por placed_at
	assert.Equal(t, "b1", bets[0].ID)
	assert.Equal(t, "b2", bets[1].ID)

	b := bets[0]
	assert.Equal(t, "m1", b.MatchID)
	assert.Equal(t, "ord-b1", b.OrderID)
	assert.Equal(t, domain.BetStatusPending, b.Status)
	assert.True(t, decimal.RequireFromString("2").Equal(b.Stake))
	assert.True(t, decimal.RequireFromString("1.5").Equal(b.OddsAtEntry))
	assert.True(t, base.Add(500*time.Millisecond).Equal(b.PlacedAt))
	assert.Nil(t, b.SettledAt)
}

func TestSQLiteStorage_SaveBetIsIdempotent(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()
	bet := makeBet("b1", "m1", base)

	require.NoError(t, db.SaveBet(ctx, bet))
	require.NoError(t, db.SaveBet(ctx, bet))

	bets, err := db.GetBets(ctx, "")
	require.NoError(t, err)
	assert.Len(t, bets, 1)
}

func TestSQLiteStorage_SettleBetOnce(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()
	bet := makeBet("b1", "m1", base)
	require.NoError(t, db.SaveBet(ctx, bet))

	won := settle(t, bet, true, base.Add(time.Minute))
	require.NoError(t, db.SettleBet(ctx, won, decimal.RequireFromString("101")))

	err := db.SettleBet(ctx, won, decimal.RequireFromString("102"))
	assert.ErrorIs(t, err, storage.ErrNotPending)

	bets, err := db.GetBets(ctx, domain.BetStatusWon)
	require.NoError(t, err)
	require.Len(t, bets, 1)
	assert.True(t, decimal.RequireFromString("1").Equal(bets[0].PnL))
	require.NotNil(t, bets[0].SettledAt)
	assert.True(t, base.Add(time.Minute).Equal(*bets[0].SettledAt))

	stats, err := db.GetStats(ctx)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("101").Equal(stats.Bankroll))
}

func TestSQLiteStorage_SettleUnknownBet(t *testing.T) {
	db := newDB(t)

	bet := settle(t, makeBet("ghost", "m1", base), false, base)
	err := db.SettleBet(context.Background(), bet, decimal.NewFromInt(98))
	assert.ErrorIs(t, err, storage.ErrNotPending)
}

func TestSQLiteStorage_GetBetsByStatus(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, db.SaveBet(ctx, makeBet(id, "m-"+id, base.Add(time.Duration(i)*time.Second))))
	}
	require.NoError(t, db.SettleBet(ctx, settle(t, makeBet("a", "m-a", base), true, base.Add(time.Hour)), decimal.NewFromInt(101)))
	require.NoError(t, db.SettleBet(ctx, settle(t, makeBet("b", "m-b", base), false, base.Add(2*time.Hour)), decimal.NewFromInt(99)))

	pending, err := db.GetBets(ctx, domain.BetStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "c", pending[0].ID)

	lost, err := db.GetBets(ctx, domain.BetStatusLost)
	require.NoError(t, err)
	require.Len(t, lost, 1)
	assert.Equal(t, "b", lost[0].ID)
}

func TestSQLiteStorage_GetStats(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, db.SaveBet(ctx, makeBet(id, "m-"+id, base.Add(time.Duration(i)*time.Second))))
	}
	require.NoError(t, db.SettleBet(ctx, settle(t, makeBet("a", "m-a", base), true, base.Add(time.Hour)), decimal.NewFromInt(101)))
	require.NoError(t, db.SettleBet(ctx, settle(t, makeBet("b", "m-b", base), false, base.Add(2*time.Hour)), decimal.NewFromInt(99)))

	stats, err := db.GetStats(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalBets)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 1, stats.Wins)
	assert.Equal(t, 1, stats.Losses)
	assert.True(t, decimal.NewFromInt(6).Equal(stats.Staked))
	// +1 (2 × 0.5) − 2
	assert.True(t, decimal.NewFromInt(-1).Equal(stats.NetPnL), "got %s", stats.NetPnL)
	// bankroll de la última liquidación
	assert.True(t, decimal.NewFromInt(99).Equal(stats.Bankroll))
}

func TestSQLiteStorage_GetStats_Empty(t *testing.T) {
	db := newDB(t)

	stats, err := db.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalBets)
	assert.True(t, stats.Bankroll.IsZero())
}

func TestSQLiteStorage_Runs(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()

	_, ok, err := db.LastRun(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	id, err := db.StartRun(ctx, "simulate", decimal.NewFromInt(100))
	require.NoError(t, err)

	// una ejecución sin terminar no cuenta
	_, ok, err = db.LastRun(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	summary := domain.NewSimulationSummary(10, 6, 4, decimal.NewFromInt(100), decimal.NewFromInt(104))
	require.NoError(t, db.FinishRun(ctx, id, summary))

	got, ok, err := db.LastRun(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 10, got.TotalBets)
	assert.Equal(t, 6, got.Wins)
	assert.Equal(t, 4, got.Losses)
	assert.True(t, decimal.NewFromInt(104).Equal(got.FinalBankroll))
	assert.InDelta(t, 4.0, got.ROIPercent, 1e-9)
}

package venue

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/alejandrodnm/drawbot/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DryRunPlacer acepta todas las órdenes sin tocar la red. Lo usan el
// simulador y el flag -dry-run.
type DryRunPlacer struct {
	orders atomic.Int64
	quiet  bool
}

// NewDryRunPlacer crea un placer local. quiet silencia el log por orden.
func NewDryRunPlacer(quiet bool) *DryRunPlacer {
	return &DryRunPlacer{quiet: quiet}
}

func (d *DryRunPlacer) PlaceOrder(_ context.Context, matchID string, stake decimal.Decimal) (domain.PlaceOrderResult, error) {
	d.orders.Add(1)
	id := "dry-" + uuid.NewString()
	if !d.quiet {
		slog.Info("venue: dry-run order", "match", matchID, "stake", stake.StringFixed(2), "order", id)
	}
	return domain.PlaceOrderResult{Accepted: true, OrderID: id}, nil
}

// Orders devuelve cuántas órdenes se aceptaron.
func (d *DryRunPlacer) Orders() int64 {
	return d.orders.Load()
}

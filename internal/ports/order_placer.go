package ports

import (
	"context"

	"github.com/alejandrodnm/drawbot/internal/domain"
	"github.com/shopspring/decimal"
)

// OrderPlacer submits draw bets to the venue.
type OrderPlacer interface {
	// PlaceOrder backs the draw on matchID for stake. A non-nil error means
	// the order could not be submitted (timeout, transport, auth); a rejected
	// order is reported through PlaceOrderResult.Accepted=false.
	PlaceOrder(ctx context.Context, matchID string, stake decimal.Decimal) (domain.PlaceOrderResult, error)
}

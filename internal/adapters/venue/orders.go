package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alejandrodnm/drawbot/internal/domain"
	"github.com/shopspring/decimal"
)

type orderRequest struct {
	ContractID string      `json:"contract_id"`
	Price      json.Number `json:"price"`
	Quantity   json.Number `json:"quantity"`
	Side       string      `json:"side"`
}

type orderResponse struct {
	OrderID string `json:"order_id"`
	ID      string `json:"id"`
}

// PlaceOrder envía una orden de compra del empate. 201 = aceptada, cualquier
// otro status = rechazada con el cuerpo como motivo. Nunca se reintenta: un
// POST repetido podría duplicar la apuesta.
func (c *Client) PlaceOrder(ctx context.Context, matchID string, stake decimal.Decimal) (domain.PlaceOrderResult, error) {
	token, err := c.sessionToken(ctx)
	if err != nil {
		return domain.PlaceOrderResult{}, fmt.Errorf("venue.PlaceOrder: %w", err)
	}

	body := orderRequest{
		ContractID: matchID,
		Price:      json.Number(c.price.String()),
		Quantity:   json.Number(stake.StringFixed(2)),
		Side:       "buy",
	}
	req, err := c.newJSONRequest(ctx, "orders/", body, token)
	if err != nil {
		return domain.PlaceOrderResult{}, fmt.Errorf("venue.PlaceOrder: %w", err)
	}

	resp, err := c.do(ctx, req)
	if err != nil {
		return domain.PlaceOrderResult{}, fmt.Errorf("venue.PlaceOrder: %w", err)
	}

	if resp.status != http.StatusCreated {
		if resp.status == http.StatusUnauthorized {
			c.invalidate(token)
		}
		reason := strings.TrimSpace(string(resp.body))
		if reason == "" {
			reason = http.StatusText(resp.status)
		}
		slog.Warn("venue: order rejected", "match", matchID, "status", resp.status, "reason", reason)
		return domain.PlaceOrderResult{Accepted: false, Reason: reason}, nil
	}

	var out orderResponse
	_ = json.Unmarshal(resp.body, &out)
	orderID := out.OrderID
	if orderID == "" {
		orderID = out.ID
	}
	return domain.PlaceOrderResult{Accepted: true, OrderID: orderID}, nil
}

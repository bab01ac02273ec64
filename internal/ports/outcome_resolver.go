package ports

import (
	"context"

	"github.com/alejandrodnm/drawbot/internal/domain"
)

// OutcomeResolver decide si una apuesta pendiente se gana o se pierde.
type OutcomeResolver interface {
	Resolve(ctx context.Context, bet domain.BetRecord) (won bool, err error)
}

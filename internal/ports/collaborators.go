package ports

import (
	"context"

	"github.com/alejandrodnm/drawbot/internal/domain"
)

// BetPublisher emite los cambios de estado de cada apuesta a un journal externo.
type BetPublisher interface {
	Publish(ctx context.Context, event domain.BetEvent) error
}

// MatchGuard reclama un partido antes de apostar para que dos procesos nunca
// apuesten el mismo partido. Claim devuelve false si otro ya lo reclamó.
// Release libera el reclamo cuando la orden no llegó a colocarse.
type MatchGuard interface {
	Claim(ctx context.Context, matchID string) (bool, error)
	Release(ctx context.Context, matchID string) error
}

// Recorder recibe las métricas del engine.
type Recorder interface {
	BetPlaced()
	BetSettled(won bool)
	BetSkipped(reason string)
	Bankroll(value float64)
}

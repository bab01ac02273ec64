package ports

import (
	"context"

	"github.com/alejandrodnm/drawbot/internal/domain"
	"github.com/shopspring/decimal"
)

// BetStore persiste el historial de apuestas. No se restaura estado al arrancar:
// el bankroll vive en memoria, el journal solo alimenta los reportes.
type BetStore interface {
	// SaveBet inserta una apuesta recién aceptada por el venue.
	SaveBet(ctx context.Context, bet domain.BetRecord) error

	// SettleBet registra el resultado y el bankroll tras la liquidación.
	SettleBet(ctx context.Context, bet domain.BetRecord, bankrollAfter decimal.Decimal) error

	// GetBets devuelve las apuestas con el status dado, o todas si status es "".
	GetBets(ctx context.Context, status domain.BetStatus) ([]domain.BetRecord, error)

	// GetStats agrega el historial completo.
	GetStats(ctx context.Context) (domain.BetStats, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}

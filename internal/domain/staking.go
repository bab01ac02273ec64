package domain

import "github.com/shopspring/decimal"

// Valores por defecto de la estrategia original.
var (
	DefaultInitialBankroll = decimal.NewFromInt(100)
	DefaultStakePercentage = decimal.RequireFromString("0.02")
	DefaultMinimumStake    = decimal.NewFromInt(2)
)

// StakePolicy dimensiona la apuesta como porcentaje del bankroll con un mínimo fijo.
//
// Fórmula: stake = max(bankroll × percentage, minimum)
type StakePolicy struct {
	Percentage decimal.Decimal
	Minimum    decimal.Decimal
}

// DefaultStakePolicy devuelve 2% con mínimo de 2.0.
func DefaultStakePolicy() StakePolicy {
	return StakePolicy{Percentage: DefaultStakePercentage, Minimum: DefaultMinimumStake}
}

// StakeFor calcula el stake para el bankroll dado.
func (p StakePolicy) StakeFor(bankroll decimal.Decimal) decimal.Decimal {
	return decimal.Max(bankroll.Mul(p.Percentage), p.Minimum)
}

// SimulationSummary resume una corrida del simulador.
type SimulationSummary struct {
	TotalBets       int
	Wins            int
	Losses          int
	InitialBankroll decimal.Decimal
	FinalBankroll   decimal.Decimal
	ROIPercent      float64
}

// NewSimulationSummary calcula el ROI como (final - initial) / initial × 100.
// Devuelve ROI 0 si el bankroll inicial es 0.
func NewSimulationSummary(totalBets, wins, losses int, initial, final decimal.Decimal) SimulationSummary {
	s := SimulationSummary{
		TotalBets:       totalBets,
		Wins:            wins,
		Losses:          losses,
		InitialBankroll: initial,
		FinalBankroll:   final,
	}
	if !initial.IsZero() {
		s.ROIPercent = final.Sub(initial).Div(initial).Mul(decimal.NewFromInt(100)).InexactFloat64()
	}
	return s
}

// WinRate devuelve wins / totalBets, o 0 sin apuestas.
func (s SimulationSummary) WinRate() float64 {
	if s.TotalBets == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.TotalBets)
}

// BetStats agrega el historial de apuestas registrado en el journal.
type BetStats struct {
	TotalBets int
	Pending   int
	Wins      int
	Losses    int
	Staked    decimal.Decimal
	NetPnL    decimal.Decimal
	Bankroll  decimal.Decimal // bankroll after the last settled bet
}

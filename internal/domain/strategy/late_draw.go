package strategy

import (
	"github.com/alejandrodnm/drawbot/internal/domain"
	"github.com/shopspring/decimal"
)

const defaultMinMinute = 80

var defaultMinDrawOdds = decimal.RequireFromString("1.20")

// LateDraw implementa la estrategia "back the draw": apostar al empate a partir
// del minuto MinMinute si el marcador está igualado y la cuota supera MinDrawOdds.
type LateDraw struct {
	MinMinute   int
	MinDrawOdds decimal.Decimal // exclusive
}

// LateDrawConfig configura la estrategia. Ceros usan los valores por defecto (80, 1.20).
type LateDrawConfig struct {
	MinMinute   int
	MinDrawOdds decimal.Decimal
}

// NewLateDraw crea la regla con la configuración dada.
func NewLateDraw(cfg LateDrawConfig) LateDraw {
	if cfg.MinMinute <= 0 {
		cfg.MinMinute = defaultMinMinute
	}
	if cfg.MinDrawOdds.IsZero() {
		cfg.MinDrawOdds = defaultMinDrawOdds
	}
	return LateDraw{MinMinute: cfg.MinMinute, MinDrawOdds: cfg.MinDrawOdds}
}

// DefaultLateDraw devuelve la regla con los umbrales originales.
func DefaultLateDraw() LateDraw {
	return NewLateDraw(LateDrawConfig{})
}

// Qualifies implementa Rule.
func (r LateDraw) Qualifies(s domain.MatchSnapshot) bool {
	return s.MinutePlayed >= r.MinMinute &&
		s.ScoreHome == s.ScoreAway &&
		s.DrawOdds.GreaterThan(r.MinDrawOdds)
}

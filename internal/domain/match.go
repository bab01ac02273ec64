package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidSnapshot se devuelve cuando un mensaje del feed no describe un partido válido.
var ErrInvalidSnapshot = errors.New("invalid match snapshot")

// MatchSnapshot es una observación normalizada de un partido en un instante.
// Inmutable: cada update recibido produce un valor nuevo.
type MatchSnapshot struct {
	MatchID      string
	MinutePlayed int
	ScoreHome    int
	ScoreAway    int
	DrawOdds     decimal.Decimal // payout multiple for the draw, > 1.0
	ReceivedAt   time.Time
}

// IsLevel indica si el marcador está empatado.
func (s MatchSnapshot) IsLevel() bool {
	return s.ScoreHome == s.ScoreAway
}

// Validate comprueba la forma mínima del snapshot. Los decoders lo usan para
// descartar mensajes malformados sin propagar el error.
func (s MatchSnapshot) Validate() error {
	switch {
	case s.MatchID == "":
		return fmt.Errorf("%w: empty match id", ErrInvalidSnapshot)
	case s.MinutePlayed < 0:
		return fmt.Errorf("%w: negative minute %d", ErrInvalidSnapshot, s.MinutePlayed)
	case s.ScoreHome < 0 || s.ScoreAway < 0:
		return fmt.Errorf("%w: negative score %d-%d", ErrInvalidSnapshot, s.ScoreHome, s.ScoreAway)
	case s.DrawOdds.LessThanOrEqual(decimal.NewFromInt(1)):
		return fmt.Errorf("%w: draw odds %s <= 1.0", ErrInvalidSnapshot, s.DrawOdds)
	}
	return nil
}

// String devuelve una representación corta para logs.
func (s MatchSnapshot) String() string {
	return fmt.Sprintf("%s %d' %d-%d draw@%s", s.MatchID, s.MinutePlayed, s.ScoreHome, s.ScoreAway, s.DrawOdds.StringFixed(2))
}

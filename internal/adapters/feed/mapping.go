package feed

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/alejandrodnm/drawbot/internal/domain"
	"github.com/shopspring/decimal"
)

// inboundMessage cubre las dos formas que manda el venue: una lista de
// eventos "quote" o un objeto "match" plano.
type inboundMessage struct {
	Events []quoteEvent  `json:"events"`
	Match  *matchPayload `json:"match"`
}

type quoteEvent struct {
	Type   string      `json:"type"`
	Market quoteMarket `json:"market"`
}

type quoteMarket struct {
	TimeElapsed *float64      `json:"time_elapsed"`
	Odds        oddsPayload   `json:"odds"`
	Contract    quoteContract `json:"contract"`
	Score       *scorePayload `json:"score"` // algunas variantes lo mandan a nivel market
}

type quoteContract struct {
	ID    matchID       `json:"id"`
	Score *scorePayload `json:"score"`
}

type scorePayload struct {
	Home *int `json:"home"`
	Away *int `json:"away"`
}

type oddsPayload struct {
	Draw decimal.NullDecimal `json:"draw"`
}

type matchPayload struct {
	ID        matchID     `json:"id"`
	Time      *float64    `json:"time"`
	ScoreHome *int        `json:"score_home"`
	ScoreAway *int        `json:"score_away"`
	Odds      oddsPayload `json:"odds"`
}

// matchID acepta ids numéricos o string.
type matchID string

func (id *matchID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = matchID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = matchID(n.String())
	return nil
}

// decodeMessage convierte un mensaje del feed en cero o más snapshots.
// Devuelve error solo si el JSON no se puede leer; los eventos incompletos
// se cuentan en dropped y se descartan.
func decodeMessage(raw []byte, at time.Time) (snaps []domain.MatchSnapshot, dropped int, err error) {
	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, 0, fmt.Errorf("feed.decodeMessage: %w", err)
	}

	for _, ev := range msg.Events {
		if ev.Type != "quote" {
			continue
		}
		snap, ok := mapQuote(ev.Market, at)
		if !ok {
			dropped++
			continue
		}
		snaps = append(snaps, snap)
	}

	if msg.Match != nil {
		snap, ok := mapMatch(*msg.Match, at)
		if ok {
			snaps = append(snaps, snap)
		} else {
			dropped++
		}
	}

	return snaps, dropped, nil
}

// mapQuote convierte un evento quote. El score del contrato tiene prioridad
// sobre el del market.
func mapQuote(m quoteMarket, at time.Time) (domain.MatchSnapshot, bool) {
	score := m.Contract.Score
	if score == nil || score.Home == nil || score.Away == nil {
		score = m.Score
	}
	if m.TimeElapsed == nil || score == nil || score.Home == nil || score.Away == nil || !m.Odds.Draw.Valid {
		return domain.MatchSnapshot{}, false
	}

	snap := domain.MatchSnapshot{
		MatchID:      string(m.Contract.ID),
		MinutePlayed: int(*m.TimeElapsed),
		ScoreHome:    *score.Home,
		ScoreAway:    *score.Away,
		DrawOdds:     m.Odds.Draw.Decimal,
		ReceivedAt:   at,
	}
	return snap, snap.Validate() == nil
}

// mapMatch convierte un payload match plano.
func mapMatch(m matchPayload, at time.Time) (domain.MatchSnapshot, bool) {
	if m.Time == nil || m.ScoreHome == nil || m.ScoreAway == nil || !m.Odds.Draw.Valid {
		return domain.MatchSnapshot{}, false
	}

	snap := domain.MatchSnapshot{
		MatchID:      string(m.ID),
		MinutePlayed: int(*m.Time),
		ScoreHome:    *m.ScoreHome,
		ScoreAway:    *m.ScoreAway,
		DrawOdds:     m.Odds.Draw.Decimal,
		ReceivedAt:   at,
	}
	return snap, snap.Validate() == nil
}

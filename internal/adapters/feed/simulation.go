package feed

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/alejandrodnm/drawbot/internal/domain"
	"github.com/shopspring/decimal"
)

// Rangos de los partidos sintéticos.
const (
	simMinID     = 1000
	simMaxID     = 9999
	simMinMinute = 70
	simMaxMinute = 90
	simMaxGoals  = 3
	simMinOdds   = 1.1
	simMaxOdds   = 3.0
)

// SimulationConfig configura el generador de partidos sintéticos.
type SimulationConfig struct {
	Matches         int
	Seed            uint64
	UpdatesPerMatch int // 0 o 1 = un snapshot por partido
	Now             func() time.Time
}

// SimulationFeed genera partidos sintéticos deterministas a partir de una semilla.
// Cada llamada a Stream vuelve a generar la misma secuencia.
type SimulationFeed struct {
	cfg SimulationConfig
}

// NewSimulationFeed valida la configuración y crea el feed.
func NewSimulationFeed(cfg SimulationConfig) (*SimulationFeed, error) {
	if cfg.Matches < 0 {
		return nil, fmt.Errorf("feed.NewSimulationFeed: negative match count %d", cfg.Matches)
	}
	if cfg.Matches > simMaxID-simMinID+1 {
		return nil, fmt.Errorf("feed.NewSimulationFeed: %d matches exceed the id space", cfg.Matches)
	}
	if cfg.UpdatesPerMatch < 1 {
		cfg.UpdatesPerMatch = 1
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &SimulationFeed{cfg: cfg}, nil
}

// Generate devuelve la secuencia completa que Stream emitiría.
func (f *SimulationFeed) Generate() []domain.MatchSnapshot {
	r := rand.New(rand.NewPCG(f.cfg.Seed, f.cfg.Seed^0x9e3779b97f4a7c15))
	now := f.cfg.Now().UTC()

	type match struct {
		id         string
		minute     int
		home, away int
	}

	seen := make(map[int]struct{}, f.cfg.Matches)
	matches := make([]match, 0, f.cfg.Matches)
	for len(matches) < f.cfg.Matches {
		id := simMinID + r.IntN(simMaxID-simMinID+1)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		matches = append(matches, match{
			id:     strconv.Itoa(id),
			minute: simMinMinute + r.IntN(simMaxMinute-simMinMinute+1),
			home:   r.IntN(simMaxGoals + 1),
			away:   r.IntN(simMaxGoals + 1),
		})
	}

	snaps := make([]domain.MatchSnapshot, 0, f.cfg.Matches*f.cfg.UpdatesPerMatch)
	for round := 0; round < f.cfg.UpdatesPerMatch; round++ {
		for i := range matches {
			m := &matches[i]
			if round > 0 {
				m.minute = min(simMaxMinute, m.minute+r.IntN(4))
			}
			odds := simMinOdds + r.Float64()*(simMaxOdds-simMinOdds)
			snaps = append(snaps, domain.MatchSnapshot{
				MatchID:      m.id,
				MinutePlayed: m.minute,
				ScoreHome:    m.home,
				ScoreAway:    m.away,
				DrawOdds:     decimal.NewFromFloat(odds).Round(2),
				ReceivedAt:   now,
			})
		}
	}
	return snaps
}

// Stream emite la secuencia generada y termina con nil.
func (f *SimulationFeed) Stream(ctx context.Context, out chan<- domain.MatchSnapshot) error {
	return emit(ctx, out, f.Generate())
}

// ReplayFeed reproduce una secuencia fija de snapshots, por ejemplo un
// histórico guardado.
type ReplayFeed struct {
	snaps []domain.MatchSnapshot
}

// NewReplayFeed copia snaps para que el feed sea reutilizable.
func NewReplayFeed(snaps []domain.MatchSnapshot) *ReplayFeed {
	return &ReplayFeed{snaps: append([]domain.MatchSnapshot(nil), snaps...)}
}

func (f *ReplayFeed) Stream(ctx context.Context, out chan<- domain.MatchSnapshot) error {
	return emit(ctx, out, f.snaps)
}

func emit(ctx context.Context, out chan<- domain.MatchSnapshot, snaps []domain.MatchSnapshot) error {
	for _, snap := range snaps {
		select {
		case out <- snap:
		case <-ctx.Done():
			return nil
		}
	}
	return nil
}

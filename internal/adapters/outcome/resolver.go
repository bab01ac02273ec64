package outcome

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/alejandrodnm/drawbot/internal/domain"
)

// ClockParity es el resolvedor provisional del modo live: la apuesta se gana si
// el segundo Unix actual es par. No mira el partido real; sirve para ejercitar
// el flujo completo hasta que exista un feed de resultados.
type ClockParity struct {
	now func() time.Time
}

// NewClockParity crea el resolvedor. now nil usa time.Now.
func NewClockParity(now func() time.Time) *ClockParity {
	if now == nil {
		now = time.Now
	}
	return &ClockParity{now: now}
}

func (c *ClockParity) Resolve(_ context.Context, _ domain.BetRecord) (bool, error) {
	return c.now().Unix()%2 == 0, nil
}

// CoinFlip resuelve cada apuesta con probabilidad 1/2 a partir de una semilla.
// Seguro para uso concurrente.
type CoinFlip struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewCoinFlip crea un CoinFlip reproducible.
func NewCoinFlip(seed uint64) *CoinFlip {
	return &CoinFlip{rng: rand.New(rand.NewPCG(seed, seed+1))}
}

func (c *CoinFlip) Resolve(ctx context.Context, _ domain.BetRecord) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rng.IntN(2) == 0, nil
}

package guard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "drawbot:bet:"
	defaultTTL = 6 * time.Hour
)

// keyStore es el subconjunto de *redis.Client que usa el guard.
type keyStore interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisGuard reclama partidos en Redis para que varias instancias del bot (o
// una reiniciada) nunca apuesten dos veces el mismo partido.
type RedisGuard struct {
	store    keyStore
	ttl      time.Duration
	instance string
}

// NewRedisGuard crea un guard. ttl <= 0 usa 6h, suficiente para que el
// partido haya terminado.
func NewRedisGuard(store keyStore, ttl time.Duration, instance string) *RedisGuard {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisGuard{store: store, ttl: ttl, instance: instance}
}

// NewRedisClient abre un cliente contra addr.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}

// Claim hace SETNX de la clave del partido. false = otra instancia ya lo tiene.
func (g *RedisGuard) Claim(ctx context.Context, matchID string) (bool, error) {
	ok, err := g.store.SetNX(ctx, key(matchID), g.instance, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("guard.Claim: setnx %s: %w", matchID, err)
	}
	return ok, nil
}

// Release borra la clave cuando la orden no llegó a colocarse.
func (g *RedisGuard) Release(ctx context.Context, matchID string) error {
	if err := g.store.Del(ctx, key(matchID)).Err(); err != nil {
		return fmt.Errorf("guard.Release: del %s: %w", matchID, err)
	}
	return nil
}

func key(matchID string) string {
	return keyPrefix + matchID
}

// Local es el guard en memoria para una sola instancia.
type Local struct {
	mu      sync.Mutex
	claimed map[string]struct{}
}

// NewLocal crea un guard en memoria.
func NewLocal() *Local {
	return &Local{claimed: make(map[string]struct{})}
}

func (l *Local) Claim(_ context.Context, matchID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.claimed[matchID]; ok {
		return false, nil
	}
	l.claimed[matchID] = struct{}{}
	return true, nil
}

func (l *Local) Release(_ context.Context, matchID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.claimed, matchID)
	return nil
}

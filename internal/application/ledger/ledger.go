package ledger

import (
	"errors"
	"fmt"
	"sync"

	"github.com/alejandrodnm/drawbot/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	// ErrAlreadySettled is returned when a reservation is settled a second time.
	ErrAlreadySettled = errors.New("ledger: reservation already settled")
	// ErrUnknownReservation is returned for reservations this ledger never issued.
	ErrUnknownReservation = errors.New("ledger: unknown reservation")
)

// Reservation is a provisional debit held between sizing and settlement.
type Reservation struct {
	ID     uint64
	Amount decimal.Decimal
}

type reservationState int

const (
	reservationOpen reservationState = iota
	reservationReleased
	reservationSettled
)

// Ledger holds the bankroll. All mutation goes through TryReserve, Release
// and Settle under a single mutex.
//
// balance is settled capital; reserved is the sum of open reservations.
// available = balance - reserved.
type Ledger struct {
	mu           sync.Mutex
	policy       domain.StakePolicy
	initial      decimal.Decimal
	balance      decimal.Decimal
	reserved     decimal.Decimal
	nextID       uint64
	reservations map[uint64]reservationEntry
}

type reservationEntry struct {
	amount decimal.Decimal
	state  reservationState
}

// New creates a ledger with the given starting bankroll and stake policy.
func New(initial decimal.Decimal, policy domain.StakePolicy) *Ledger {
	return &Ledger{
		policy:       policy,
		initial:      initial,
		balance:      initial,
		reserved:     decimal.Zero,
		reservations: make(map[uint64]reservationEntry),
	}
}

// CurrentStake returns max(balance × percentage, minimum).
func (l *Ledger) CurrentStake() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.policy.StakeFor(l.balance)
}

// TryReserve debits amount provisionally if the available bankroll covers it.
// The check and the debit happen under the same lock, so concurrent callers
// can never both succeed against the same bankroll snapshot.
func (l *Ledger) TryReserve(amount decimal.Decimal) (Reservation, bool) {
	if !amount.IsPositive() {
		return Reservation{}, false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balance.Sub(l.reserved).LessThan(amount) {
		return Reservation{}, false
	}

	l.nextID++
	l.reserved = l.reserved.Add(amount)
	l.reservations[l.nextID] = reservationEntry{amount: amount, state: reservationOpen}
	return Reservation{ID: l.nextID, Amount: amount}, true
}

// Release refunds an open reservation without touching the balance. Used
// when the order is never placed. Returns false if the reservation was
// already released or settled.
func (l *Ledger) Release(res Reservation) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.reservations[res.ID]
	if !ok || entry.state != reservationOpen {
		return false
	}
	l.reserved = l.reserved.Sub(entry.amount)
	entry.state = reservationReleased
	l.reservations[res.ID] = entry
	return true
}

// Settle applies the outcome of a bet exactly once:
//
//	won:  balance += amount × (odds - 1)
//	lost: balance -= amount
//
// A repeated settlement returns ErrAlreadySettled and leaves the balance as is.
func (l *Ledger) Settle(res Reservation, won bool, odds decimal.Decimal) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.reservations[res.ID]
	if !ok {
		return l.balance, fmt.Errorf("ledger.Settle: reservation %d: %w", res.ID, ErrUnknownReservation)
	}
	switch entry.state {
	case reservationSettled:
		return l.balance, ErrAlreadySettled
	case reservationReleased:
		return l.balance, fmt.Errorf("ledger.Settle: reservation %d was released: %w", res.ID, ErrUnknownReservation)
	}

	l.reserved = l.reserved.Sub(entry.amount)
	if won {
		l.balance = l.balance.Add(entry.amount.Mul(odds.Sub(decimal.NewFromInt(1))))
	} else {
		l.balance = l.balance.Sub(entry.amount)
	}
	entry.state = reservationSettled
	l.reservations[res.ID] = entry
	return l.balance, nil
}

// Balance returns the settled bankroll.
func (l *Ledger) Balance() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance
}

// Available returns balance minus open reservations.
func (l *Ledger) Available() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance.Sub(l.reserved)
}

// Reserved returns the sum of open reservations.
func (l *Ledger) Reserved() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reserved
}

// Initial returns the starting bankroll.
func (l *Ledger) Initial() decimal.Decimal {
	return l.initial
}

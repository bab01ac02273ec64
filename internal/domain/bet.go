package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrAlreadySettled is returned when a bet that already reached a terminal
// status is resolved again.
var ErrAlreadySettled = errors.New("bet already settled")

// BetStatus represents the lifecycle of a draw bet: PENDING → WON | LOST.
type BetStatus string

const (
	BetStatusPending BetStatus = "PENDING"
	BetStatusWon     BetStatus = "WON"
	BetStatusLost    BetStatus = "LOST"
)

// IsTerminal reports whether the status can no longer change.
func (s BetStatus) IsTerminal() bool {
	return s == BetStatusWon || s == BetStatusLost
}

// BetRecord is a draw bet the engine decided to place on a match.
type BetRecord struct {
	ID          string
	MatchID     string
	Stake       decimal.Decimal
	OddsAtEntry decimal.Decimal
	PlacedAt    time.Time
	Status      BetStatus
	OrderID     string // venue order id, empty in dry-run
	SettledAt   *time.Time
	PnL         decimal.Decimal // +stake*(odds-1) when won, -stake when lost
}

// Resolve moves a pending bet to WON or LOST. It succeeds exactly once;
// later calls return ErrAlreadySettled and leave the record untouched.
func (b *BetRecord) Resolve(won bool, odds decimal.Decimal, at time.Time) error {
	if b.Status.IsTerminal() {
		return ErrAlreadySettled
	}
	if won {
		b.Status = BetStatusWon
		b.PnL = b.Stake.Mul(odds.Sub(decimal.NewFromInt(1)))
	} else {
		b.Status = BetStatusLost
		b.PnL = b.Stake.Neg()
	}
	b.SettledAt = &at
	return nil
}

// PlaceOrderResult is the venue's answer to an order submission.
type PlaceOrderResult struct {
	Accepted bool
	OrderID  string
	Reason   string // decoded response body when rejected
}

// BetEventType identifies the entries of the bet journal.
type BetEventType string

const (
	BetEventPlaced   BetEventType = "bet_placed"
	BetEventSettled  BetEventType = "bet_settled"
	BetEventRejected BetEventType = "bet_rejected"
)

// BetEvent is published every time a bet changes state.
type BetEvent struct {
	Type     BetEventType    `json:"type"`
	BetID    string          `json:"bet_id"`
	MatchID  string          `json:"match_id"`
	Stake    decimal.Decimal `json:"stake"`
	Odds     decimal.Decimal `json:"odds"`
	Status   BetStatus       `json:"status,omitempty"`
	PnL      decimal.Decimal `json:"pnl"`
	Bankroll decimal.Decimal `json:"bankroll"`
	Reason   string          `json:"reason,omitempty"`
	At       time.Time       `json:"at"`
}

// NewBetEvent builds a journal entry from the current state of a bet.
func NewBetEvent(t BetEventType, bet BetRecord, bankroll decimal.Decimal, at time.Time) BetEvent {
	return BetEvent{
		Type:     t,
		BetID:    bet.ID,
		MatchID:  bet.MatchID,
		Stake:    bet.Stake,
		Odds:     bet.OddsAtEntry,
		Status:   bet.Status,
		PnL:      bet.PnL,
		Bankroll: bankroll,
		At:       at,
	}
}

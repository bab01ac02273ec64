package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/alejandrodnm/drawbot/internal/application/ledger"
	"github.com/alejandrodnm/drawbot/internal/domain"
	"github.com/alejandrodnm/drawbot/internal/domain/strategy"
	"github.com/alejandrodnm/drawbot/internal/ports"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	defaultPlacementTimeout = 10 * time.Second
	eventBuffer             = 64
)

// Skip reasons reported to the Recorder.
const (
	SkipDuplicate    = "duplicate"
	SkipInsufficient = "insufficient_bankroll"
	SkipRejected     = "rejected"
	SkipClaimed      = "claimed_elsewhere"
	SkipClosed       = "closed"
)

// ErrNotPlaced is returned by SettleMatch while the venue has not yet
// accepted the order backing the match's bet.
var ErrNotPlaced = errors.New("engine: order not placed yet")

// Config holds configuration for the staking engine.
type Config struct {
	// Async runs placement and settlement of each bet in its own goroutine
	// so ingestion keeps flowing. The simulator runs inline for determinism.
	Async            bool
	PlacementTimeout time.Duration
	// FixedSettleOdds, when non-zero, replaces the entry odds at settlement.
	FixedSettleOdds decimal.Decimal
}

// Stats summarizes what the engine did so far.
type Stats struct {
	TotalBets int // orders accepted by the venue
	Wins      int
	Losses    int
	Pending   int
	Skipped   int // insufficient bankroll
	Rejected  int // placement failures

	// Unresolved counts placed bets whose outcome lookup failed; they wait
	// for an external SettleMatch with their stake still reserved.
	Unresolved int
}

// Option configures optional collaborators.
type Option func(*Engine)

// WithStore persists accepted and settled bets.
func WithStore(s ports.BetStore) Option { return func(e *Engine) { e.store = s } }

// WithPublisher emits bet events to a journal.
func WithPublisher(p ports.BetPublisher) Option { return func(e *Engine) { e.publisher = p } }

// WithGuard claims each match before placing an order.
func WithGuard(g ports.MatchGuard) Option { return func(e *Engine) { e.guard = g } }

// WithRecorder reports metrics.
func WithRecorder(r ports.Recorder) Option { return func(e *Engine) { e.recorder = r } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// betEntry couples a bet with the ledger reservation backing it.
type betEntry struct {
	bet         domain.BetRecord
	reservation ledger.Reservation
	placed      bool // venue accepted the order
	unresolved  bool // outcome lookup failed
}

// Engine turns match snapshots into draw bets. It guarantees at most one bet
// per match: once a match has a pending or settled bet, later snapshots for
// it are ignored.
type Engine struct {
	ledger    *ledger.Ledger
	rule      strategy.Rule
	placer    ports.OrderPlacer
	resolver  ports.OutcomeResolver
	store     ports.BetStore
	publisher ports.BetPublisher
	guard     ports.MatchGuard
	recorder  ports.Recorder
	cfg       Config
	now       func() time.Time

	mu      sync.Mutex
	bets    map[string]*betEntry // matchID → bet
	claimed map[string]struct{}  // matches another process already bet
	closed  bool
	stats   Stats

	inflight sync.WaitGroup
}

// New creates a staking engine over the given ledger and rule.
func New(
	l *ledger.Ledger,
	rule strategy.Rule,
	placer ports.OrderPlacer,
	resolver ports.OutcomeResolver,
	cfg Config,
	opts ...Option,
) *Engine {
	if cfg.PlacementTimeout <= 0 {
		cfg.PlacementTimeout = defaultPlacementTimeout
	}
	e := &Engine{
		ledger:   l,
		rule:     rule,
		placer:   placer,
		resolver: resolver,
		recorder: nopRecorder{},
		cfg:      cfg,
		now:      time.Now,
		bets:     make(map[string]*betEntry),
		claimed:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run drives source until it ends or ctx is cancelled. Once the source stops
// no new bets are placed, but bets already pending are settled before Run
// returns. The returned error is the source's terminal error.
func (e *Engine) Run(ctx context.Context, source ports.EventSource) error {
	events := make(chan domain.MatchSnapshot, eventBuffer)
	errCh := make(chan error, 1)

	go func() {
		errCh <- source.Stream(ctx, events)
		close(events)
	}()

	for snap := range events {
		if ctx.Err() != nil {
			continue
		}
		e.Handle(ctx, snap)
	}

	err := <-errCh
	e.Close()
	e.Wait()

	if err != nil {
		return fmt.Errorf("engine.Run: source: %w", err)
	}
	return nil
}

// Handle evaluates a single snapshot and, if it qualifies, places and settles
// a bet. The bet flow does not inherit ctx cancellation: once a bet is
// pending it always reaches settlement or abandonment.
func (e *Engine) Handle(ctx context.Context, snap domain.MatchSnapshot) {
	entry, ok := e.admit(snap)
	if !ok {
		return
	}

	flowCtx := context.WithoutCancel(ctx)
	if e.cfg.Async {
		go e.execute(flowCtx, entry)
		return
	}
	e.execute(flowCtx, entry)
}

// admit applies idempotence, the entry rule and stake sizing atomically.
// On success the match holds a PENDING bet and funds are reserved.
func (e *Engine) admit(snap domain.MatchSnapshot) (betEntry, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		e.recorder.BetSkipped(SkipClosed)
		return betEntry{}, false
	}
	if _, exists := e.bets[snap.MatchID]; exists {
		slog.Debug("engine: match already has a bet, ignoring", "match", snap.MatchID, "minute", snap.MinutePlayed)
		e.recorder.BetSkipped(SkipDuplicate)
		return betEntry{}, false
	}
	if _, taken := e.claimed[snap.MatchID]; taken {
		e.recorder.BetSkipped(SkipClaimed)
		return betEntry{}, false
	}
	if !e.rule.Qualifies(snap) {
		return betEntry{}, false
	}

	stake := e.ledger.CurrentStake()
	res, ok := e.ledger.TryReserve(stake)
	if !ok {
		e.stats.Skipped++
		e.recorder.BetSkipped(SkipInsufficient)
		slog.Warn("engine: insufficient bankroll, skipping",
			"match", snap.MatchID,
			"stake", stake.StringFixed(2),
			"available", e.ledger.Available().StringFixed(2),
		)
		return betEntry{}, false
	}

	entry := &betEntry{
		bet: domain.BetRecord{
			ID:          uuid.New().String(),
			MatchID:     snap.MatchID,
			Stake:       stake,
			OddsAtEntry: snap.DrawOdds,
			PlacedAt:    e.now().UTC(),
			Status:      domain.BetStatusPending,
		},
		reservation: res,
	}
	e.bets[snap.MatchID] = entry
	e.stats.Pending++
	e.inflight.Add(1)

	slog.Info("engine: qualifying snapshot, backing the draw",
		"match", snap.MatchID,
		"minute", snap.MinutePlayed,
		"score", fmt.Sprintf("%d-%d", snap.ScoreHome, snap.ScoreAway),
		"odds", snap.DrawOdds.StringFixed(2),
		"stake", stake.StringFixed(2),
	)
	return *entry, true
}

// execute runs claim → place → resolve → settle for an admitted bet.
func (e *Engine) execute(ctx context.Context, entry betEntry) {
	defer e.inflight.Done()
	bet := entry.bet

	if e.guard != nil {
		claimed, err := e.guard.Claim(ctx, bet.MatchID)
		if err != nil {
			e.abandon(ctx, bet, fmt.Sprintf("guard: %v", err), false)
			return
		}
		if !claimed {
			e.abandon(ctx, bet, "match claimed by another instance", true)
			return
		}
	}

	placeCtx, cancel := context.WithTimeout(ctx, e.cfg.PlacementTimeout)
	result, err := e.placer.PlaceOrder(placeCtx, bet.MatchID, bet.Stake)
	cancel()
	if err == nil && !result.Accepted {
		err = fmt.Errorf("order rejected: %s", result.Reason)
	}
	if err != nil {
		if e.guard != nil {
			if rerr := e.guard.Release(ctx, bet.MatchID); rerr != nil {
				slog.Warn("engine: error releasing match claim", "match", bet.MatchID, "err", rerr)
			}
		}
		e.abandon(ctx, bet, err.Error(), false)
		return
	}

	bet = e.markPlaced(bet.MatchID, result.OrderID)
	e.recorder.BetPlaced()
	slog.Info("engine: BET PLACED",
		"match", bet.MatchID,
		"order", result.OrderID,
		"stake", bet.Stake.StringFixed(2),
		"odds", bet.OddsAtEntry.StringFixed(2),
	)
	if e.store != nil {
		if err := e.store.SaveBet(ctx, bet); err != nil {
			slog.Warn("engine: error saving bet", "match", bet.MatchID, "err", err)
		}
	}
	e.publish(ctx, domain.NewBetEvent(domain.BetEventPlaced, bet, e.ledger.Balance(), e.now()))

	won, err := e.resolver.Resolve(ctx, bet)
	if err != nil {
		e.markUnresolved(bet.MatchID)
		slog.Error("engine: outcome resolution failed, bet stays pending until settled externally",
			"match", bet.MatchID,
			"stake", bet.Stake.StringFixed(2),
			"err", err,
		)
		return
	}

	if err := e.SettleMatch(ctx, bet.MatchID, won); err != nil && !errors.Is(err, domain.ErrAlreadySettled) {
		slog.Error("engine: settlement failed", "match", bet.MatchID, "err", err)
	}
}

// SettleMatch applies an outcome to the pending bet of a match. Settlement
// happens exactly once; re-delivering a result returns
// domain.ErrAlreadySettled and changes nothing.
func (e *Engine) SettleMatch(ctx context.Context, matchID string, won bool) error {
	e.mu.Lock()
	entry, ok := e.bets[matchID]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("engine.SettleMatch: no bet for match %s", matchID)
	}
	if entry.bet.Status.IsTerminal() {
		e.mu.Unlock()
		return domain.ErrAlreadySettled
	}
	if !entry.placed {
		e.mu.Unlock()
		return fmt.Errorf("engine.SettleMatch: match %s: %w", matchID, ErrNotPlaced)
	}

	odds := entry.bet.OddsAtEntry
	if !e.cfg.FixedSettleOdds.IsZero() {
		odds = e.cfg.FixedSettleOdds
	}

	balance, err := e.ledger.Settle(entry.reservation, won, odds)
	if err != nil {
		e.mu.Unlock()
		return fmt.Errorf("engine.SettleMatch: %w", err)
	}
	if err := entry.bet.Resolve(won, odds, e.now().UTC()); err != nil {
		e.mu.Unlock()
		return err
	}

	e.stats.Pending--
	if entry.unresolved {
		entry.unresolved = false
		e.stats.Unresolved--
	}
	if won {
		e.stats.Wins++
	} else {
		e.stats.Losses++
	}
	bet := entry.bet
	e.mu.Unlock()

	e.recorder.BetSettled(won)
	e.recorder.Bankroll(balance.InexactFloat64())
	if won {
		slog.Info("engine: BET WON", "match", matchID, "pnl", bet.PnL.StringFixed(2), "bankroll", balance.StringFixed(2))
	} else {
		slog.Info("engine: BET LOST", "match", matchID, "pnl", bet.PnL.StringFixed(2), "bankroll", balance.StringFixed(2))
	}

	if e.store != nil {
		if err := e.store.SettleBet(ctx, bet, balance); err != nil {
			slog.Warn("engine: error saving settlement", "match", matchID, "err", err)
		}
	}
	e.publish(ctx, domain.NewBetEvent(domain.BetEventSettled, bet, balance, e.now()))
	return nil
}

// markPlaced records the accepted order and counts the bet.
func (e *Engine) markPlaced(matchID, orderID string) domain.BetRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	entry := e.bets[matchID]
	entry.bet.OrderID = orderID
	entry.placed = true
	e.stats.TotalBets++
	return entry.bet
}

func (e *Engine) markUnresolved(matchID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	entry, ok := e.bets[matchID]
	if !ok || entry.unresolved || entry.bet.Status.IsTerminal() {
		return
	}
	entry.unresolved = true
	e.stats.Unresolved++
}

// abandon discards a bet whose order was never placed. The reservation is
// refunded, so a failed placement has no bankroll effect.
func (e *Engine) abandon(ctx context.Context, bet domain.BetRecord, reason string, claimedElsewhere bool) {
	e.mu.Lock()
	// Only a bet still waiting on its order is discarded; a placed or
	// settled one keeps its record and its ledger entry.
	if entry, ok := e.bets[bet.MatchID]; ok && entry.bet.ID == bet.ID && !entry.placed && !entry.bet.Status.IsTerminal() {
		e.ledger.Release(entry.reservation)
		delete(e.bets, bet.MatchID)
		e.stats.Pending--
	}
	if claimedElsewhere {
		e.claimed[bet.MatchID] = struct{}{}
		e.recorder.BetSkipped(SkipClaimed)
	} else {
		e.stats.Rejected++
		e.recorder.BetSkipped(SkipRejected)
	}
	e.mu.Unlock()

	slog.Warn("engine: order not placed, bet discarded",
		"match", bet.MatchID,
		"stake", bet.Stake.StringFixed(2),
		"reason", reason,
	)

	ev := domain.NewBetEvent(domain.BetEventRejected, bet, e.ledger.Balance(), e.now())
	ev.Reason = reason
	e.publish(ctx, ev)
}

func (e *Engine) publish(ctx context.Context, ev domain.BetEvent) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(ctx, ev); err != nil {
		slog.Warn("engine: error publishing bet event", "type", ev.Type, "match", ev.MatchID, "err", err)
	}
}

// Close stops admitting new bets. Pending bets still settle.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
}

// Wait blocks until every in-flight bet has settled or been abandoned.
func (e *Engine) Wait() {
	e.inflight.Wait()
}

// Stats returns a snapshot of the counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// Bets returns a copy of every bet the engine knows about.
func (e *Engine) Bets() []domain.BetRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.BetRecord, 0, len(e.bets))
	for _, entry := range e.bets {
		out = append(out, entry.bet)
	}
	return out
}

// Unresolved returns the matches whose placed bet is waiting for an
// external result, sorted by match id.
func (e *Engine) Unresolved() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []string
	for matchID, entry := range e.bets {
		if entry.unresolved {
			out = append(out, matchID)
		}
	}
	sort.Strings(out)
	return out
}

// Ledger exposes the bankroll the engine stakes from.
func (e *Engine) Ledger() *ledger.Ledger {
	return e.ledger
}

type nopRecorder struct{}

func (nopRecorder) BetPlaced()        {}
func (nopRecorder) BetSettled(bool)   {}
func (nopRecorder) BetSkipped(string) {}
func (nopRecorder) Bankroll(float64)  {}

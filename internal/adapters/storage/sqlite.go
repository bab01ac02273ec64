package storage

// sqlite.go: journal de apuestas.
//
// Tablas:
//   - `bets`: una fila por apuesta aceptada por el venue. Se inserta PENDING y
//     se actualiza una sola vez al liquidar (WON/LOST + pnl + bankroll tras liquidar).
//   - `runs`: una fila por ejecución del bot (live o simulate) con el resumen final.
//
// Los importes se guardan como TEXT para no perder precisión decimal.
// El bankroll no se restaura al arrancar: el journal solo alimenta los reportes.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alejandrodnm/drawbot/internal/domain"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// ErrNotPending se devuelve al liquidar una apuesta que no está PENDING en el journal.
var ErrNotPending = errors.New("storage: bet is not pending")

const schema = `
CREATE TABLE IF NOT EXISTS bets (
    id             TEXT PRIMARY KEY,
    match_id       TEXT NOT NULL,
    order_id       TEXT NOT NULL DEFAULT '',
    stake          TEXT NOT NULL,
    odds           TEXT NOT NULL,
    status         TEXT NOT NULL DEFAULT 'PENDING',
    placed_at      TEXT NOT NULL,
    settled_at     TEXT,
    pnl            TEXT NOT NULL DEFAULT '0',
    bankroll_after TEXT
);

CREATE INDEX IF NOT EXISTS idx_bets_status ON bets(status);
CREATE INDEX IF NOT EXISTS idx_bets_match  ON bets(match_id);

CREATE TABLE IF NOT EXISTS runs (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    mode             TEXT NOT NULL,
    started_at       TEXT NOT NULL,
    finished_at      TEXT,
    initial_bankroll TEXT NOT NULL,
    final_bankroll   TEXT,
    total_bets       INTEGER NOT NULL DEFAULT 0,
    wins             INTEGER NOT NULL DEFAULT 0,
    losses           INTEGER NOT NULL DEFAULT 0
);
`

// Ancho fijo para que ORDER BY sobre TEXT respete el orden cronológico.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStorage implementa ports.BetStore usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada y aplica el schema.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	return &SQLiteStorage{db: db, now: time.Now}, nil
}

// SaveBet inserta una apuesta recién colocada. Repetir el insert no duplica filas.
func (s *SQLiteStorage) SaveBet(ctx context.Context, bet domain.BetRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bets (id, match_id, order_id, stake, odds, status, placed_at, pnl)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		bet.ID,
		bet.MatchID,
		bet.OrderID,
		bet.Stake.String(),
		bet.OddsAtEntry.String(),
		string(bet.Status),
		bet.PlacedAt.UTC().Format(timeLayout),
		bet.PnL.String(),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveBet: insert %s: %w", bet.ID, err)
	}
	return nil
}

// SettleBet registra el resultado. Solo actualiza filas PENDING, así que una
// liquidación repetida devuelve ErrNotPending sin tocar nada.
func (s *SQLiteStorage) SettleBet(ctx context.Context, bet domain.BetRecord, bankrollAfter decimal.Decimal) error {
	settledAt := s.now().UTC()
	if bet.SettledAt != nil {
		settledAt = bet.SettledAt.UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE bets
		SET status = ?, settled_at = ?, pnl = ?, bankroll_after = ?
		WHERE id = ? AND status = ?`,
		string(bet.Status),
		settledAt.Format(timeLayout),
		bet.PnL.String(),
		bankrollAfter.String(),
		bet.ID,
		string(domain.BetStatusPending),
	)
	if err != nil {
		return fmt.Errorf("storage.SettleBet: update %s: %w", bet.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage.SettleBet: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("storage.SettleBet: %s: %w", bet.ID, ErrNotPending)
	}
	return nil
}

// GetBets devuelve las apuestas con el status dado (todas si status es "")
// ordenadas por fecha de colocación.
func (s *SQLiteStorage) GetBets(ctx context.Context, status domain.BetStatus) ([]domain.BetRecord, error) {
	query := `SELECT id, match_id, order_id, stake, odds, status, placed_at, settled_at, pnl FROM bets`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY placed_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage.GetBets: query: %w", err)
	}
	defer rows.Close()

	var bets []domain.BetRecord
	for rows.Next() {
		bet, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("storage.GetBets: %w", err)
		}
		bets = append(bets, bet)
	}
	return bets, rows.Err()
}

// GetStats agrega el journal completo. Bankroll es el bankroll_after de la
// última liquidación (cero si no hay ninguna).
func (s *SQLiteStorage) GetStats(ctx context.Context) (domain.BetStats, error) {
	bets, err := s.GetBets(ctx, "")
	if err != nil {
		return domain.BetStats{}, fmt.Errorf("storage.GetStats: %w", err)
	}

	stats := domain.BetStats{Staked: decimal.Zero, NetPnL: decimal.Zero, Bankroll: decimal.Zero}
	for _, b := range bets {
		stats.TotalBets++
		stats.Staked = stats.Staked.Add(b.Stake)
		switch b.Status {
		case domain.BetStatusPending:
			stats.Pending++
		case domain.BetStatusWon:
			stats.Wins++
			stats.NetPnL = stats.NetPnL.Add(b.PnL)
		case domain.BetStatusLost:
			stats.Losses++
			stats.NetPnL = stats.NetPnL.Add(b.PnL)
		}
	}

	var last sql.NullString
	err = s.db.QueryRowContext(ctx, `
		SELECT bankroll_after FROM bets
		WHERE settled_at IS NOT NULL
		ORDER BY settled_at DESC, rowid DESC
		LIMIT 1`).Scan(&last)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return domain.BetStats{}, fmt.Errorf("storage.GetStats: last bankroll: %w", err)
	case last.Valid:
		if stats.Bankroll, err = decimal.NewFromString(last.String); err != nil {
			return domain.BetStats{}, fmt.Errorf("storage.GetStats: parse bankroll: %w", err)
		}
	}
	return stats, nil
}

// StartRun abre una fila en runs y devuelve su id.
func (s *SQLiteStorage) StartRun(ctx context.Context, mode string, initial decimal.Decimal) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (mode, started_at, initial_bankroll) VALUES (?, ?, ?)`,
		mode, s.now().UTC().Format(timeLayout), initial.String(),
	)
	if err != nil {
		return 0, fmt.Errorf("storage.StartRun: insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage.StartRun: last id: %w", err)
	}
	return id, nil
}

// FinishRun cierra la ejecución con su resumen.
func (s *SQLiteStorage) FinishRun(ctx context.Context, id int64, summary domain.SimulationSummary) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET finished_at = ?, final_bankroll = ?, total_bets = ?, wins = ?, losses = ?
		WHERE id = ?`,
		s.now().UTC().Format(timeLayout),
		summary.FinalBankroll.String(),
		summary.TotalBets,
		summary.Wins,
		summary.Losses,
		id,
	)
	if err != nil {
		return fmt.Errorf("storage.FinishRun: update %d: %w", id, err)
	}
	return nil
}

// LastRun devuelve el resumen de la última ejecución terminada.
func (s *SQLiteStorage) LastRun(ctx context.Context) (domain.SimulationSummary, bool, error) {
	var initial, final string
	var summary domain.SimulationSummary
	err := s.db.QueryRowContext(ctx, `
		SELECT initial_bankroll, final_bankroll, total_bets, wins, losses FROM runs
		WHERE finished_at IS NOT NULL
		ORDER BY id DESC
		LIMIT 1`).Scan(&initial, &final, &summary.TotalBets, &summary.Wins, &summary.Losses)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SimulationSummary{}, false, nil
	}
	if err != nil {
		return domain.SimulationSummary{}, false, fmt.Errorf("storage.LastRun: query: %w", err)
	}

	in, err := decimal.NewFromString(initial)
	if err != nil {
		return domain.SimulationSummary{}, false, fmt.Errorf("storage.LastRun: parse initial: %w", err)
	}
	out, err := decimal.NewFromString(final)
	if err != nil {
		return domain.SimulationSummary{}, false, fmt.Errorf("storage.LastRun: parse final: %w", err)
	}
	return domain.NewSimulationSummary(summary.TotalBets, summary.Wins, summary.Losses, in, out), true, nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

func scanBet(rows *sql.Rows) (domain.BetRecord, error) {
	var bet domain.BetRecord
	var stake, odds, status, placedAt, pnl string
	var settledAt sql.NullString
	if err := rows.Scan(&bet.ID, &bet.MatchID, &bet.OrderID, &stake, &odds, &status, &placedAt, &settledAt, &pnl); err != nil {
		return bet, fmt.Errorf("scan row: %w", err)
	}

	var err error
	if bet.Stake, err = decimal.NewFromString(stake); err != nil {
		return bet, fmt.Errorf("parse stake %q: %w", stake, err)
	}
	if bet.OddsAtEntry, err = decimal.NewFromString(odds); err != nil {
		return bet, fmt.Errorf("parse odds %q: %w", odds, err)
	}
	if bet.PnL, err = decimal.NewFromString(pnl); err != nil {
		return bet, fmt.Errorf("parse pnl %q: %w", pnl, err)
	}
	if bet.PlacedAt, err = time.Parse(timeLayout, placedAt); err != nil {
		return bet, fmt.Errorf("parse placed_at %q: %w", placedAt, err)
	}
	if settledAt.Valid {
		t, err := time.Parse(timeLayout, settledAt.String)
		if err != nil {
			return bet, fmt.Errorf("parse settled_at %q: %w", settledAt.String, err)
		}
		bet.SettledAt = &t
	}
	bet.Status = domain.BetStatus(status)
	return bet, nil
}

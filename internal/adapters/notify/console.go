package notify

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/alejandrodnm/drawbot/internal/domain"
	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"
)

// Formatos de salida.
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

// Console imprime los resultados de simulación y el reporte de apuestas.
type Console struct {
	out    io.Writer
	format string
}

// NewConsole crea un Console que escribe a stdout.
func NewConsole(format string) *Console {
	return NewConsoleWriter(os.Stdout, format)
}

// NewConsoleWriter crea un Console sobre w (para tests). Formato desconocido = tabla.
func NewConsoleWriter(w io.Writer, format string) *Console {
	if format != FormatJSON {
		format = FormatTable
	}
	return &Console{out: w, format: format}
}

type simulationJSON struct {
	TotalBets       int             `json:"total_bets"`
	Wins            int             `json:"wins"`
	Losses          int             `json:"losses"`
	WinRate         float64         `json:"win_rate"`
	InitialBankroll decimal.Decimal `json:"initial_bankroll"`
	FinalBankroll   decimal.Decimal `json:"final_bankroll"`
	ROIPercent      float64         `json:"roi_percent"`
}

// PrintSimulation imprime el resumen de una corrida del simulador.
func (c *Console) PrintSimulation(s domain.SimulationSummary) error {
	return c.PrintSummary("SIMULATION RESULTS", s)
}

// PrintSummary imprime un resumen de ejecución bajo el título dado.
func (c *Console) PrintSummary(title string, s domain.SimulationSummary) error {
	if c.format == FormatJSON {
		return c.writeJSON(simulationJSON{
			TotalBets:       s.TotalBets,
			Wins:            s.Wins,
			Losses:          s.Losses,
			WinRate:         s.WinRate(),
			InitialBankroll: s.InitialBankroll,
			FinalBankroll:   s.FinalBankroll,
			ROIPercent:      s.ROIPercent,
		})
	}

	c.boxHeader(title)

	table := tablewriter.NewWriter(c.out)
	table.Header("Metric", "Value")
	table.Append("Total bets", strconv.Itoa(s.TotalBets))
	table.Append("Wins", strconv.Itoa(s.Wins))
	table.Append("Losses", strconv.Itoa(s.Losses))
	table.Append("Win rate", fmt.Sprintf("%.1f%%", s.WinRate()*100))
	table.Append("Initial bankroll", s.InitialBankroll.StringFixed(2))
	table.Append("Final bankroll", s.FinalBankroll.StringFixed(2))
	table.Append("ROI", fmt.Sprintf("%.2f%%", s.ROIPercent))
	return table.Render()
}

type betJSON struct {
	ID        string          `json:"id"`
	MatchID   string          `json:"match_id"`
	Stake     decimal.Decimal `json:"stake"`
	Odds      decimal.Decimal `json:"odds"`
	Status    string          `json:"status"`
	PnL       decimal.Decimal `json:"pnl"`
	PlacedAt  string          `json:"placed_at"`
	SettledAt string          `json:"settled_at,omitempty"`
}

type reportJSON struct {
	TotalBets int             `json:"total_bets"`
	Pending   int             `json:"pending"`
	Wins      int             `json:"wins"`
	Losses    int             `json:"losses"`
	Staked    decimal.Decimal `json:"staked"`
	NetPnL    decimal.Decimal `json:"net_pnl"`
	Bankroll  decimal.Decimal `json:"bankroll"`
	Bets      []betJSON       `json:"bets"`
}

// PrintBetReport imprime los totales del journal y una fila por apuesta.
func (c *Console) PrintBetReport(stats domain.BetStats, bets []domain.BetRecord) error {
	if c.format == FormatJSON {
		out := reportJSON{
			TotalBets: stats.TotalBets,
			Pending:   stats.Pending,
			Wins:      stats.Wins,
			Losses:    stats.Losses,
			Staked:    stats.Staked,
			NetPnL:    stats.NetPnL,
			Bankroll:  stats.Bankroll,
			Bets:      make([]betJSON, 0, len(bets)),
		}
		for _, b := range bets {
			bj := betJSON{
				ID:       b.ID,
				MatchID:  b.MatchID,
				Stake:    b.Stake,
				Odds:     b.OddsAtEntry,
				Status:   string(b.Status),
				PnL:      b.PnL,
				PlacedAt: b.PlacedAt.UTC().Format("2006-01-02T15:04:05Z"),
			}
			if b.SettledAt != nil {
				bj.SettledAt = b.SettledAt.UTC().Format("2006-01-02T15:04:05Z")
			}
			out.Bets = append(out.Bets, bj)
		}
		return c.writeJSON(out)
	}

	fmt.Fprintf(c.out, "\n── BET REPORT ──\n")
	fmt.Fprintf(c.out, "  Bets:     %d (won %d, lost %d, pending %d)\n", stats.TotalBets, stats.Wins, stats.Losses, stats.Pending)
	fmt.Fprintf(c.out, "  Staked:   %s\n", stats.Staked.StringFixed(2))
	fmt.Fprintf(c.out, "  Net P&L:  %s\n", signed(stats.NetPnL))
	if !stats.Bankroll.IsZero() {
		fmt.Fprintf(c.out, "  Bankroll: %s\n", stats.Bankroll.StringFixed(2))
	}

	if len(bets) == 0 {
		fmt.Fprintln(c.out, "  (no bets)")
		return nil
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Match", "Stake", "Odds", "Status", "PnL", "Placed")
	for i, b := range bets {
		pnl := "-"
		if b.Status.IsTerminal() {
			pnl = signed(b.PnL)
		}
		table.Append(
			strconv.Itoa(i+1),
			b.MatchID,
			b.Stake.StringFixed(2),
			b.OddsAtEntry.StringFixed(2),
			string(b.Status),
			pnl,
			b.PlacedAt.Local().Format("01-02 15:04:05"),
		)
	}
	return table.Render()
}

const boxWidth = 38

func (c *Console) boxHeader(title string) {
	pad := boxWidth - utf8.RuneCountInString(title)
	if pad < 0 {
		pad = 0
	}
	left := pad / 2
	fmt.Fprintf(c.out, "\n╔%s╗\n", strings.Repeat("═", boxWidth))
	fmt.Fprintf(c.out, "║%s%s%s║\n", strings.Repeat(" ", left), title, strings.Repeat(" ", pad-left))
	fmt.Fprintf(c.out, "╚%s╝\n", strings.Repeat("═", boxWidth))
}

func (c *Console) writeJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("notify: encode json: %w", err)
	}
	return nil
}

// signed formatea con signo explícito: +1.00 / -2.00.
func signed(d decimal.Decimal) string {
	if d.IsNegative() {
		return d.StringFixed(2)
	}
	return "+" + d.StringFixed(2)
}

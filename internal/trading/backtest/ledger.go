package backtest

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/Alias1177/CycleTrader/internal/model"
)

// LedgerKind selects the columns written for a trade ledger
type LedgerKind int

const (
	LedgerBasic LedgerKind = iota
	LedgerEnhanced
	LedgerSwing
)

// LedgerFormat describes a delimited ledger export. A zero Comma means ','.
type LedgerFormat struct {
	Kind  LedgerKind
	Comma rune
}

// LedgerFormat returns the export format matching the run's strategy
func (r *CycleResult) LedgerFormat() LedgerFormat {
	if r.Strategy == StrategyEnhanced {
		return LedgerFormat{Kind: LedgerEnhanced}
	}
	return LedgerFormat{Kind: LedgerBasic}
}

const (
	dateLayout = "2006-01-02"
	timeLayout = "2006-01-02T15:04:05Z07:00"
)

// WriteTradesCSV writes a header row and one row per trade, with no index column
func WriteTradesCSV(out io.Writer, trades []model.Trade, format LedgerFormat) error {
	w := newWriter(out, format.Comma)

	var header []string
	switch format.Kind {
	case LedgerSwing:
		header = []string{"entry_time", "exit_time", "entry_price", "exit_price", "shares", "return_pct", "profit", "exit_reason"}
	case LedgerEnhanced:
		header = []string{"entry_date", "exit_date", "entry_price", "exit_price", "return_pct", "days_held", "exit_reason", "entry_cycle", "exit_cycle"}
	default:
		header = []string{"entry_date", "exit_date", "entry_price", "exit_price", "return_pct", "days_held"}
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write ledger header: %w", err)
	}

	for _, t := range trades {
		var record []string
		switch format.Kind {
		case LedgerSwing:
			record = []string{
				t.EntryTime.Format(timeLayout), t.ExitTime.Format(timeLayout),
				formatF(t.EntryPrice), formatF(t.ExitPrice),
				strconv.FormatInt(t.Shares, 10),
				formatF(t.ReturnPct), formatF(t.Profit), string(t.ExitReason),
			}
		case LedgerEnhanced:
			record = []string{
				t.EntryTime.Format(dateLayout), t.ExitTime.Format(dateLayout),
				formatF(t.EntryPrice), formatF(t.ExitPrice), formatF(t.ReturnPct),
				strconv.Itoa(t.DaysHeld), string(t.ExitReason),
				string(t.EntryStage), string(t.ExitStage),
			}
		default:
			record = []string{
				t.EntryTime.Format(dateLayout), t.ExitTime.Format(dateLayout),
				formatF(t.EntryPrice), formatF(t.ExitPrice), formatF(t.ReturnPct),
				strconv.Itoa(t.DaysHeld),
			}
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write ledger row: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}

// SaveTradesCSV writes the ledger to a file at path
func SaveTradesCSV(path string, trades []model.Trade, format LedgerFormat) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create ledger file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	return WriteTradesCSV(f, trades, format)
}

// WriteCycleRowsCSV exports the daily result table of a cycle run. Stop-loss
// columns are included when withStops is set.
func WriteCycleRowsCSV(out io.Writer, rows []model.CycleRow, withStops bool) error {
	w := newWriter(out, 0)

	header := []string{"date", "price", "cycle", "position", "market_return", "strategy_return", "strategy_value", "buyhold_value"}
	if withStops {
		header = append(header, "entry_price", "peak_since_entry", "stop_loss_level", "stop_loss_hit")
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write result header: %w", err)
	}

	for _, r := range rows {
		record := []string{
			r.Date.Format(dateLayout), formatF(r.Price), string(r.Stage), strconv.Itoa(r.Position),
			formatF(r.MarketReturn), formatF(r.StrategyReturn), formatF(r.StrategyValue), formatF(r.BuyHoldValue),
		}
		if withStops {
			record = append(record, formatF(r.EntryPrice), formatF(r.PeakSinceEntry),
				formatF(r.StopLossLevel), strconv.FormatBool(r.StopLossHit))
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write result row: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}

// WriteSwingRowsCSV exports the per-bar result table of a swing run
func WriteSwingRowsCSV(out io.Writer, rows []model.SwingRow) error {
	w := newWriter(out, 0)

	header := []string{"timestamp", "close", "position", "equity", "signal", "rsi", "bb_upper", "bb_middle", "bb_lower", "kc_upper", "kc_lower"}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write result header: %w", err)
	}

	for _, r := range rows {
		record := []string{
			r.Time.Format(time.RFC3339), formatF(r.Close), strconv.FormatInt(r.Position, 10), formatF(r.Equity), r.Signal,
			formatF(r.RSI), formatF(r.BBUpper), formatF(r.BBMiddle), formatF(r.BBLower), formatF(r.KCUpper), formatF(r.KCLower),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write result row: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}

func newWriter(out io.Writer, comma rune) *csv.Writer {
	w := csv.NewWriter(out)
	if comma != 0 {
		w.Comma = comma
	}
	return w
}

// formatF renders missing values as empty cells
func formatF(f float64) string {
	if math.IsNaN(f) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

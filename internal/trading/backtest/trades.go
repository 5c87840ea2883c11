package backtest

import (
	"github.com/Alias1177/CycleTrader/internal/model"
)

// extractTrades pairs every flat-to-long transition with the first long-to-flat
// transition after it. An entry that is never followed by an exit produces no
// trade. The first row has no previous position, so it is never an entry.
func extractTrades(rows []model.CycleRow, withReason bool) []model.Trade {
	if len(rows) == 0 {
		return nil
	}

	var entries, exits []int
	prev := rows[0].Position
	for i := 1; i < len(rows); i++ {
		cur := rows[i].Position
		switch {
		case prev == 0 && cur == 1:
			entries = append(entries, i)
		case prev == 1 && cur == 0:
			exits = append(exits, i)
		}
		prev = cur
	}

	var trades []model.Trade
	next := 0
	for _, entry := range entries {
		for next < len(exits) && exits[next] <= entry {
			next++
		}
		if next == len(exits) {
			break
		}

		in, out := rows[entry], rows[exits[next]]
		trade := model.Trade{
			EntryTime:  in.Date,
			ExitTime:   out.Date,
			EntryPrice: in.Price,
			ExitPrice:  out.Price,
			ReturnPct:  (out.Price - in.Price) / in.Price * 100,
			DaysHeld:   calendarDays(in.Date, out.Date),
			Held:       out.Date.Sub(in.Date),
		}
		if withReason {
			trade.ExitReason = model.ExitCycleChange
			if out.StopLossHit {
				trade.ExitReason = model.ExitStopLoss
			}
			trade.EntryStage = in.Stage
			trade.ExitStage = out.Stage
		}
		trades = append(trades, trade)
	}

	return trades
}

// RecentTrades returns the last n trades, or all of them when there are fewer
func RecentTrades(trades []model.Trade, n int) []model.Trade {
	if n <= 0 {
		return nil
	}
	if len(trades) <= n {
		return trades
	}
	return trades[len(trades)-n:]
}

package backtest

import (
	"fmt"
	"strings"

	"github.com/Alias1177/CycleTrader/internal/model"
)

// FormatResults creates a human-readable summary of a cycle backtest
func FormatResults(result *CycleResult) string {
	if result == nil {
		return "No backtest results available"
	}

	title := "BACKTEST RESULTS SUMMARY"
	if result.Strategy == StrategyEnhanced {
		title = "ENHANCED BACKTEST RESULTS SUMMARY"
	}

	s, b := result.Metrics, result.Benchmark
	output := "\n" + strings.Repeat("=", 70) + "\n" + title + "\n" + strings.Repeat("=", 70) + "\n\n"
	output += fmt.Sprintf("%-30s %15s %15s %10s\n", "Metric", "Strategy", "Buy & Hold", "Difference")
	output += strings.Repeat("-", 70) + "\n"
	output += pctLine("Total Return", s.TotalReturn, b.TotalReturn)
	output += pctLine("Annual Return", s.AnnualizedReturn, b.AnnualizedReturn)
	output += pctLine("Volatility (Annual)", s.Volatility, b.Volatility)
	output += fmt.Sprintf("%-30s %15.2f %15.2f %10.2f\n", "Sharpe Ratio", s.SharpeRatio, b.SharpeRatio, s.SharpeRatio-b.SharpeRatio)
	output += pctLine("Max Drawdown", s.MaxDrawdown, b.MaxDrawdown)
	output += fmt.Sprintf("%-30s $%14.0f $%14.0f\n", "Final Portfolio Value", s.FinalValue, b.FinalValue)

	output += "\nTRADING STATISTICS\n" + strings.Repeat("-", 70) + "\n"
	output += formatTradeStats(s)
	if result.Strategy == StrategyEnhanced {
		output += fmt.Sprintf("Stop-loss Exits: %d (%.1f%%)\n", s.StopLossExits, s.StopLossExitPct*100)
		output += fmt.Sprintf("Stop-loss Triggers: %d\n", s.StopLossTriggers)
	}

	return output + strings.Repeat("=", 70) + "\n"
}

// FormatSwingResults creates a human-readable summary of a swing backtest
func FormatSwingResults(result *SwingResult) string {
	if result == nil {
		return "No backtest results available"
	}

	m := result.Metrics
	output := "\n===== SWING BACKTEST RESULTS =====\n"
	output += fmt.Sprintf("Total return: %.2f%%\n", m.TotalReturn*100)
	output += fmt.Sprintf("Annual return: %.2f%%\n", m.AnnualizedReturn*100)
	output += fmt.Sprintf("Volatility: %.2f%%\n", m.Volatility*100)
	output += fmt.Sprintf("Sharpe ratio: %.2f\n", m.SharpeRatio)
	output += fmt.Sprintf("Maximum drawdown: %.2f%%\n", m.MaxDrawdown*100)
	output += fmt.Sprintf("Final value: $%.2f\n", m.FinalValue)
	output += formatTradeStats(m)
	output += fmt.Sprintf("Average Return: %.2f%%\n", m.AverageReturn)
	output += fmt.Sprintf("Best Trade: %.2f%%\n", m.BestTrade)
	output += fmt.Sprintf("Worst Trade: %.2f%%\n", m.WorstTrade)
	return output
}

// FormatComparison lays the original, enhanced and buy & hold runs side by side
func FormatComparison(c *Comparison) string {
	if c == nil || c.Original == nil || c.Enhanced == nil {
		return "No comparison available"
	}

	o, e, b := c.Original.Metrics, c.Enhanced.Metrics, c.Original.Benchmark
	output := "\n" + strings.Repeat("=", 80) + "\nSTRATEGY COMPARISON\n" + strings.Repeat("=", 80) + "\n\n"
	output += fmt.Sprintf("%-24s %14s %14s %14s %10s\n", "Metric", "Original", "Enhanced", "Buy & Hold", "Change")
	output += strings.Repeat("-", 80) + "\n"

	row := func(name string, orig, enh, bh float64) {
		output += fmt.Sprintf("%-24s %13.2f%% %13.2f%% %13.2f%% %9.2f%%\n", name, orig*100, enh*100, bh*100, (enh-orig)*100)
	}
	row("Total Return", o.TotalReturn, e.TotalReturn, b.TotalReturn)
	row("Annual Return", o.AnnualizedReturn, e.AnnualizedReturn, b.AnnualizedReturn)
	row("Volatility", o.Volatility, e.Volatility, b.Volatility)
	output += fmt.Sprintf("%-24s %14.2f %14.2f %14.2f %10.2f\n", "Sharpe Ratio", o.SharpeRatio, e.SharpeRatio, b.SharpeRatio, e.SharpeRatio-o.SharpeRatio)
	row("Max Drawdown", o.MaxDrawdown, e.MaxDrawdown, b.MaxDrawdown)
	output += fmt.Sprintf("%-24s $%13.0f $%13.0f $%13.0f\n", "Final Value", o.FinalValue, e.FinalValue, b.FinalValue)
	output += fmt.Sprintf("%-24s %14d %14d\n", "Total Trades", o.TotalTrades, e.TotalTrades)
	output += fmt.Sprintf("%-24s %13.1f%% %13.1f%%\n", "Win Rate", o.WinRate*100, e.WinRate*100)

	return output + strings.Repeat("=", 80) + "\n"
}

// FormatTrades renders a short trade table
func FormatTrades(trades []model.Trade) string {
	if len(trades) == 0 {
		return "No trades recorded\n"
	}

	output := fmt.Sprintf("%-20s %-20s %12s %12s %10s %s\n", "Entry", "Exit", "Entry Px", "Exit Px", "Return", "Reason")
	for _, t := range trades {
		output += fmt.Sprintf("%-20s %-20s %12.2f %12.2f %9.2f%% %s\n",
			t.EntryTime.Format("2006-01-02 15:04"), t.ExitTime.Format("2006-01-02 15:04"),
			t.EntryPrice, t.ExitPrice, t.ReturnPct, t.ExitReason)
	}
	return output
}

func formatTradeStats(m model.Metrics) string {
	output := fmt.Sprintf("Total Trades: %d\n", m.TotalTrades)
	output += fmt.Sprintf("Win Rate: %.1f%%\n", m.WinRate*100)
	output += fmt.Sprintf("Average Win: %.2f%%\n", m.AverageWin)
	output += fmt.Sprintf("Average Loss: %.2f%%\n", m.AverageLoss)
	return output
}

func pctLine(name string, strategy, benchmark float64) string {
	return fmt.Sprintf("%-30s %14.2f%% %14.2f%% %9.2f%%\n", name, strategy*100, benchmark*100, (strategy-benchmark)*100)
}

package risk

import (
	"github.com/shopspring/decimal"
)

// PositionSizingResult holds position sizing calculation results
type PositionSizingResult struct {
	Shares    int64           `json:"shares"`
	Cost      decimal.Decimal `json:"cost"`
	Remaining decimal.Decimal `json:"remaining"`
}

// CalculatePositionSize buys as many whole shares as fraction of cash affords at
// price. A non-positive price or fraction buys nothing.
func CalculatePositionSize(cash decimal.Decimal, price float64, fraction float64) PositionSizingResult {
	result := PositionSizingResult{Cost: decimal.Zero, Remaining: cash}
	if price <= 0 || fraction <= 0 || !cash.IsPositive() {
		return result
	}
	if fraction > 1 {
		fraction = 1
	}

	px := decimal.NewFromFloat(price)
	budget := cash.Mul(decimal.NewFromFloat(fraction))
	shares := budget.Div(px).Floor()

	result.Shares = shares.IntPart()
	result.Cost = shares.Mul(px)
	result.Remaining = cash.Sub(result.Cost)
	return result
}

// MarkToMarket values cash plus shares held at price
func MarkToMarket(cash decimal.Decimal, shares int64, price float64) decimal.Decimal {
	return cash.Add(decimal.NewFromInt(shares).Mul(decimal.NewFromFloat(price)))
}

// ChangeFraction is the relative move from entry to price
func ChangeFraction(entry, price float64) float64 {
	if entry == 0 {
		return 0
	}
	return (price - entry) / entry
}

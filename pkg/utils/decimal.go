package utils

import (
	"github.com/shopspring/decimal"
)

// decimal.go holds the fixed-point counterparts of math.go's float64 helpers.
//
// math.go stays float64 and cheap: it backs fast pre-filters (is this
// spread even worth a closer look) where a few ULPs of error cost nothing.
// Anything that ends up in a signal, an order, or a ledger row goes through
// here instead, at decimal.Decimal precision, since float64 rounding error
// compounded over thousands of trades is real money.

// SpreadPct returns ((high - low) / low) * 100, or zero if low <= 0.
func SpreadPct(high, low decimal.Decimal) decimal.Decimal {
	if low.Sign() <= 0 {
		return decimal.Zero
	}
	return high.Sub(low).Div(low).Mul(decimal.NewFromInt(100))
}

// NetSpreadPct subtracts round-trip taker fees (in decimal fraction, e.g.
// 0.0004 for 4bps) on both legs from a gross spread.
func NetSpreadPct(grossSpreadPct, feeBuy, feeSell decimal.Decimal) decimal.Decimal {
	totalFeePct := feeBuy.Add(feeSell).Mul(decimal.NewFromInt(100))
	return grossSpreadPct.Sub(totalFeePct)
}

// VWAP computes the volume-weighted average price across order book levels,
// walking from the best price until targetQty is exhausted or the book runs
// out. It returns the average fill price and the quantity actually filled.
func VWAP(levels []PriceLevelQty, targetQty decimal.Decimal) (avgPrice, filledQty decimal.Decimal) {
	if len(levels) == 0 || targetQty.Sign() <= 0 {
		return decimal.Zero, decimal.Zero
	}

	remaining := targetQty
	sumCost := decimal.Zero

	for _, lvl := range levels {
		if lvl.Price.Sign() <= 0 || lvl.Qty.Sign() <= 0 {
			continue
		}
		take := decimal.Min(remaining, lvl.Qty)
		sumCost = sumCost.Add(lvl.Price.Mul(take))
		filledQty = filledQty.Add(take)
		remaining = remaining.Sub(take)
		if remaining.Sign() <= 0 {
			break
		}
	}

	if filledQty.Sign() == 0 {
		return decimal.Zero, decimal.Zero
	}
	return sumCost.Div(filledQty), filledQty
}

// PriceLevelQty is the minimal shape VWAP needs; models.PriceLevel satisfies it.
type PriceLevelQty struct {
	Price decimal.Decimal
	Qty   decimal.Decimal
}

// RoundToLotSizeDecimal rounds value down to the nearest multiple of lotSize.
func RoundToLotSizeDecimal(value, lotSize decimal.Decimal) decimal.Decimal {
	if lotSize.Sign() <= 0 {
		return value
	}
	steps := value.Div(lotSize).Floor()
	return steps.Mul(lotSize)
}

// SplitQty divides totalQty into nParts roughly equal pieces, each rounded
// down to lotSize. If a single part would round to zero, the whole quantity
// is returned as one part instead.
func SplitQty(totalQty decimal.Decimal, nParts int, lotSize decimal.Decimal) []decimal.Decimal {
	if nParts <= 0 || totalQty.Sign() <= 0 {
		return nil
	}
	if nParts == 1 {
		return []decimal.Decimal{RoundToLotSizeDecimal(totalQty, lotSize)}
	}

	part := totalQty.Div(decimal.NewFromInt(int64(nParts)))
	rounded := RoundToLotSizeDecimal(part, lotSize)
	if rounded.Sign() <= 0 {
		return []decimal.Decimal{RoundToLotSizeDecimal(totalQty, lotSize)}
	}

	parts := make([]decimal.Decimal, nParts)
	for i := range parts {
		parts[i] = rounded
	}
	return parts
}

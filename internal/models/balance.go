package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Balance is one asset's free/locked amount on one exchange. Owned by the
// Ledger; updated on fill and on periodic reconciliation against the
// exchange's reported balance.
type Balance struct {
	Exchange string          `json:"exchange"`
	Asset    string          `json:"asset"`
	Free     decimal.Decimal `json:"free"`
	Locked   decimal.Decimal `json:"locked"`
}

// Total is free + locked.
func (b Balance) Total() decimal.Decimal {
	return b.Free.Add(b.Locked)
}

// Position is the derived exposure view computed from balances and open
// orders; it is never itself the source of truth.
type Position struct {
	Asset             string          `json:"asset"`
	TotalFreeUSD      decimal.Decimal `json:"total_free_usd"`
	TotalExposureUSD  decimal.Decimal `json:"total_exposure_usd"`
}

// PortfolioSnapshot is a persisted point-in-time balance valuation.
type PortfolioSnapshot struct {
	Timestamp time.Time       `json:"timestamp" db:"timestamp"`
	Exchange  string          `json:"exchange" db:"exchange"`
	Asset     string          `json:"asset" db:"asset"`
	Balance   decimal.Decimal `json:"balance" db:"balance"`
	USDValue  decimal.Decimal `json:"usd_value" db:"usd_value"`
}

// DailyPerformance is the persisted end-of-day aggregate, including
// Sharpe ratio and win rate (supplemented from original_source's
// pipeline aggregation, not spelled out in the distilled data model).
type DailyPerformance struct {
	Date           time.Time       `json:"date" db:"date"`
	ExecutionMode  ExecutionMode   `json:"execution_mode" db:"execution_mode"`
	TotalSignals   int             `json:"total_signals" db:"total_signals"`
	ExecutedTrades int             `json:"executed_trades" db:"executed_trades"`
	TotalPnl       decimal.Decimal `json:"total_pnl" db:"total_pnl"`
	TotalFees      decimal.Decimal `json:"total_fees" db:"total_fees"`
	NetPnl         decimal.Decimal `json:"net_pnl" db:"net_pnl"`
	SharpeRatio    float64         `json:"sharpe_ratio" db:"sharpe_ratio"`
	MaxDrawdownPct float64         `json:"max_drawdown" db:"max_drawdown"`
	WinRate        float64         `json:"win_rate" db:"win_rate"`
}

package models

import (
	"time"
)

// PairConfig is a tracked symbol's detector configuration and local stats.
// Adapted from the futures-pair config of the per-pair stop-loss/leverage
// source into a spot-arbitrage symbol config: no leverage or stop-loss in
// USDT terms, since the core never holds a position beyond closing both
// legs of an arbitrage (spec Non-goals).
type PairConfig struct {
	ID           int       `json:"id" db:"id"`
	Symbol       string    `json:"symbol" db:"symbol"` // BTC/USDT
	Base         string    `json:"base" db:"base"`
	Quote        string    `json:"quote" db:"quote"`
	MinSpreadPct float64   `json:"min_spread_pct" db:"min_spread_pct"`
	MinDepthUSD  float64   `json:"min_depth_usd" db:"min_depth_usd"`
	NOrders      int       `json:"n_orders" db:"n_orders"` // split into N partial orders
	Status       string    `json:"status" db:"status"`     // paused, active
	TradesCount  int       `json:"trades_count" db:"trades_count"`
	TotalPnl     float64   `json:"total_pnl" db:"total_pnl"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Pair statuses.
const (
	PairStatusPaused = "paused"
	PairStatusActive = "active"
)

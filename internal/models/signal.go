package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Strategy identifies which detector produced a Signal.
type Strategy string

const (
	StrategySpatial    Strategy = "spatial"
	StrategyTriangular Strategy = "triangular"
)

// SignalStatus tracks a signal's lifecycle after detection.
type SignalStatus string

const (
	SignalDetected SignalStatus = "detected"
	SignalExecuted SignalStatus = "executed"
	SignalMissed   SignalStatus = "missed"
	SignalRejected SignalStatus = "rejected"
)

// Side is a leg's trading direction.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// SignalLeg is one planned trade within a Signal.
type SignalLeg struct {
	Exchange    string          `json:"exchange"`
	Symbol      string          `json:"symbol"`
	Side        Side            `json:"side"`
	TargetPrice decimal.Decimal `json:"target_price"`
	MaxQty      decimal.Decimal `json:"max_qty"`
}

// Signal is an emitted arbitrage opportunity, consumed exactly once by Risk.
type Signal struct {
	ID       string   `json:"id"`
	Strategy Strategy `json:"strategy"`
	Symbol   string   `json:"symbol"`
	Legs     []SignalLeg `json:"legs"`

	GrossSpreadPct   decimal.Decimal `json:"gross_spread_pct"`
	NetSpreadPct     decimal.Decimal `json:"net_spread_pct"`
	EstimatedPnlUSD  decimal.Decimal `json:"estimated_pnl_usd"`
	ActualPnlUSD     decimal.Decimal `json:"actual_pnl_usd"`
	NotionalUSD      decimal.Decimal `json:"notional_usd"`
	OrderbookDepthUSD decimal.Decimal `json:"orderbook_depth_usd"`
	Confidence       float64         `json:"confidence"`

	// BuyExchange/SellExchange are populated for spatial signals; empty for triangular.
	BuyExchange  string `json:"buy_exchange,omitempty"`
	SellExchange string `json:"sell_exchange,omitempty"`

	Status     SignalStatus           `json:"status"`
	DetectedTS time.Time              `json:"detected_ts"`
	ExecutedTS *time.Time             `json:"executed_ts,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// NewSignal allocates a Signal with a fresh ID and Detected status.
func NewSignal(strategy Strategy, symbol string, legs []SignalLeg) *Signal {
	return &Signal{
		ID:       uuid.NewString(),
		Strategy: strategy,
		Symbol:   symbol,
		Legs:     legs,
		Status:   SignalDetected,
		DetectedTS: time.Now().UTC(),
		Metadata:   make(map[string]interface{}),
	}
}

// RiskDecision is the transient output of the Risk Manager pipeline for one Signal.
type RiskDecision struct {
	Approved           bool
	Reason             string
	AdjustedNotionalUSD decimal.Decimal
}

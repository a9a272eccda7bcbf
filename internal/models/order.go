package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderType is the instruction type sent to an exchange.
type OrderType string

const (
	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeIOC    OrderType = "IOC"
)

// OrderState is an order's position in its lifecycle.
type OrderState string

const (
	OrderPending         OrderState = "PENDING"
	OrderOpen            OrderState = "OPEN"
	OrderFilled          OrderState = "FILLED"
	OrderPartiallyFilled OrderState = "PARTIAL"
	OrderCancelled       OrderState = "CANCELLED"
	OrderFailed          OrderState = "FAILED"
)

// ExecutionMode selects which executor handles a signal.
type ExecutionMode string

const (
	ModeBacktest ExecutionMode = "backtest"
	ModePaper    ExecutionMode = "paper"
	ModeLive     ExecutionMode = "live"
)

// Order is one submitted leg of a signal's execution.
type Order struct {
	ID            string        `json:"id" db:"id"`
	SignalID      string        `json:"signal_id" db:"signal_id"`
	Exchange      string        `json:"exchange" db:"exchange"`
	Symbol        string        `json:"symbol" db:"symbol"`
	Side          Side          `json:"side" db:"side"`
	Type          OrderType     `json:"type" db:"order_type"`
	ExecutionMode ExecutionMode `json:"execution_mode" db:"execution_mode"`

	RequestedQty   decimal.Decimal `json:"requested_qty" db:"requested_qty"`
	RequestedPrice decimal.Decimal `json:"requested_price" db:"requested_price"`
	FilledQty      decimal.Decimal `json:"filled_qty" db:"filled_qty"`
	FilledPrice    decimal.Decimal `json:"filled_price" db:"filled_price"`
	Fee            decimal.Decimal `json:"fee" db:"fee"`
	FeeAsset       string          `json:"fee_asset" db:"fee_asset"`

	State        OrderState `json:"state" db:"status"`
	LatencyMs    int64      `json:"latency_ms" db:"latency_ms"`
	ErrorMessage string     `json:"error_message,omitempty" db:"error_message"`

	// ExchangeOrderID is the exchange's own identifier, used to poll/reconcile.
	ExchangeOrderID string `json:"exchange_order_id,omitempty" db:"exchange_order_id"`

	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	FilledAt  *time.Time `json:"filled_at,omitempty" db:"filled_at"`
}

// Remaining is the quantity still unfilled.
func (o *Order) Remaining() decimal.Decimal {
	return o.RequestedQty.Sub(o.FilledQty)
}

// Terminal reports whether the order has reached a final state.
func (o *Order) Terminal() bool {
	switch o.State {
	case OrderFilled, OrderCancelled, OrderFailed:
		return true
	default:
		return false
	}
}

// Fill is one append-only execution report against an Order.
type Fill struct {
	OrderID        string          `json:"order_id" db:"order_id"`
	ExchangeFillID string          `json:"exchange_fill_id" db:"exchange_fill_id"`
	Qty            decimal.Decimal `json:"qty" db:"qty"`
	Price          decimal.Decimal `json:"price" db:"price"`
	Fee            decimal.Decimal `json:"fee" db:"fee"`
	FeeAsset       string          `json:"fee_asset" db:"fee_asset"`
	TS             time.Time       `json:"ts" db:"ts"`
}

// TradeOutcome classifies how a signal's two legs resolved, per the
// reconciliation table: both filled, both partial, partial imbalance,
// one filled/one failed, both failed.
type TradeOutcome string

const (
	OutcomeBothFilled         TradeOutcome = "both_filled"
	OutcomeBothPartial        TradeOutcome = "both_partial"
	OutcomePartialImbalance   TradeOutcome = "partial_imbalance"
	OutcomeOneFilledOneFailed TradeOutcome = "one_filled_one_failed"
	OutcomeBothFailed         TradeOutcome = "both_failed"
)

// TradeRecord is the persisted record of one signal's full execution,
// covering all orders (including any hedging order) that resulted from it.
type TradeRecord struct {
	SignalID    string          `json:"signal_id" db:"signal_id"`
	Outcome     TradeOutcome    `json:"outcome" db:"outcome"`
	Orders      []Order         `json:"orders" db:"-"`
	RealizedPnl decimal.Decimal `json:"realized_pnl" db:"realized_pnl"`
	TotalFees   decimal.Decimal `json:"total_fees" db:"total_fees"`
	IsLoss      bool            `json:"is_loss" db:"is_loss"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

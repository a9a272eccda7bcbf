package exchange

import (
	"context"
	"time"

	"arbot/internal/models"
)

// Exchange is the unified contract every connector implements. The
// teacher's interface described a perpetual-futures account (positions,
// leverage, liquidation callbacks); this one describes a spot account,
// which is all spatial/triangular arbitrage needs: order books, balances
// per asset, and plain buy/sell orders.
type Exchange interface {
	// Connect authenticates the REST/WS clients. secret/passphrase may be
	// empty for exchanges that don't require one (passphrase: OKX/Bitget only).
	Connect(apiKey, secret, passphrase string) error

	// Name returns the exchange's canonical lowercase identifier.
	Name() string

	// GetBalances returns free/locked balances for every asset the account holds.
	GetBalances(ctx context.Context) ([]models.Balance, error)

	// GetOrderBook fetches a REST snapshot of depth levels per side.
	GetOrderBook(ctx context.Context, symbol string, depth int) (*models.OrderBook, error)

	// SubscribeOrderBook streams incremental order book updates over the
	// exchange's websocket feed, invoking callback on each update until ctx
	// is cancelled. The reconnect/backoff state machine lives in
	// WSReconnectManager (ws_reconnect.go); this method plugs a connector's
	// read loop into it.
	SubscribeOrderBook(ctx context.Context, symbol string, callback func(*models.OrderBook)) error

	// PlaceOrder submits order.Side/order.Type at order.RequestedPrice/Qty
	// and returns the exchange's view of it (ExchangeOrderID populated).
	PlaceOrder(ctx context.Context, order *models.Order) (*models.Order, error)

	// CancelOrder cancels a resting order by exchange order ID.
	CancelOrder(ctx context.Context, symbol, exchangeOrderID string) error

	// GetOrderStatus polls an order's current fill state.
	GetOrderStatus(ctx context.Context, symbol, exchangeOrderID string) (*models.Order, error)

	// GetTradingFee returns (maker, taker) fee fractions for a symbol.
	GetTradingFee(ctx context.Context, symbol string) (maker, taker float64, err error)

	// GetLimits returns lot-size/tick-size/min-notional constraints.
	GetLimits(ctx context.Context, symbol string) (*Limits, error)

	// Close tears down REST/WS connections.
	Close() error
}

// Limits constrains order sizing and pricing for a symbol.
type Limits struct {
	Symbol      string  `json:"symbol"`
	MinOrderQty float64 `json:"min_order_qty"`
	MaxOrderQty float64 `json:"max_order_qty"`
	QtyStep     float64 `json:"qty_step"`     // lot size
	MinNotional float64 `json:"min_notional"`
	PriceStep   float64 `json:"price_step"` // tick size
}

// ExchangeError wraps a connector-reported failure with the exchange name
// and the exchange's own error code and message.
type ExchangeError struct {
	Exchange string
	Code     string
	Message  string
	Original error
}

func (e *ExchangeError) Error() string {
	return e.Exchange + ": " + e.Message
}

func (e *ExchangeError) Unwrap() error {
	return e.Original
}

// Ticker is a lightweight last-price snapshot, used for anomaly detection's
// flash-crash check rather than full order-book depth.
type Ticker struct {
	Symbol    string
	LastPrice float64
	Timestamp time.Time
}

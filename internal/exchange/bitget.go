package exchange

import (
	"context"
	"fmt"

	"arbot/internal/models"
)

// Bitget is a stub connector: authentication holds the credentials Bitget's
// v2 API needs (including the passphrase, unlike Bybit/BingX/Gate/HTX), but
// the signed-request plumbing to actually call it hasn't been built yet.
type Bitget struct {
	apiKey     string
	secretKey  string
	passphrase string
}

func NewBitget() *Bitget {
	return &Bitget{}
}

func (b *Bitget) Connect(apiKey, secret, passphrase string) error {
	b.apiKey = apiKey
	b.secretKey = secret
	b.passphrase = passphrase
	return nil
}

func (b *Bitget) Name() string {
	return "bitget"
}

func (b *Bitget) GetBalances(ctx context.Context) ([]models.Balance, error) {
	return nil, fmt.Errorf("not implemented")
}

func (b *Bitget) GetOrderBook(ctx context.Context, symbol string, depth int) (*models.OrderBook, error) {
	return nil, fmt.Errorf("not implemented")
}

func (b *Bitget) SubscribeOrderBook(ctx context.Context, symbol string, callback func(*models.OrderBook)) error {
	return fmt.Errorf("not implemented")
}

func (b *Bitget) PlaceOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	return nil, fmt.Errorf("not implemented")
}

func (b *Bitget) CancelOrder(ctx context.Context, symbol, exchangeOrderID string) error {
	return fmt.Errorf("not implemented")
}

func (b *Bitget) GetOrderStatus(ctx context.Context, symbol, exchangeOrderID string) (*models.Order, error) {
	return nil, fmt.Errorf("not implemented")
}

func (b *Bitget) GetTradingFee(ctx context.Context, symbol string) (maker, taker float64, err error) {
	return 0.0002, 0.0004, nil // 0.02% / 0.04% spot maker/taker
}

func (b *Bitget) GetLimits(ctx context.Context, symbol string) (*Limits, error) {
	return nil, fmt.Errorf("not implemented")
}

func (b *Bitget) Close() error {
	return nil
}

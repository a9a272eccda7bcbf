package exchange

import (
	"context"
	"fmt"

	"arbot/internal/models"
)

// OKX is a stub connector pending signed-request support (OKX v5 requires
// an OK-ACCESS-PASSPHRASE header and base64 HMAC signature this connector
// doesn't build yet).
type OKX struct {
	apiKey     string
	secretKey  string
	passphrase string
}

func NewOKX() *OKX {
	return &OKX{}
}

func (o *OKX) Connect(apiKey, secret, passphrase string) error {
	o.apiKey = apiKey
	o.secretKey = secret
	o.passphrase = passphrase
	return nil
}

func (o *OKX) Name() string {
	return "okx"
}

func (o *OKX) GetBalances(ctx context.Context) ([]models.Balance, error) {
	return nil, fmt.Errorf("not implemented")
}

func (o *OKX) GetOrderBook(ctx context.Context, symbol string, depth int) (*models.OrderBook, error) {
	return nil, fmt.Errorf("not implemented")
}

func (o *OKX) SubscribeOrderBook(ctx context.Context, symbol string, callback func(*models.OrderBook)) error {
	return fmt.Errorf("not implemented")
}

func (o *OKX) PlaceOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	return nil, fmt.Errorf("not implemented")
}

func (o *OKX) CancelOrder(ctx context.Context, symbol, exchangeOrderID string) error {
	return fmt.Errorf("not implemented")
}

func (o *OKX) GetOrderStatus(ctx context.Context, symbol, exchangeOrderID string) (*models.Order, error) {
	return nil, fmt.Errorf("not implemented")
}

func (o *OKX) GetTradingFee(ctx context.Context, symbol string) (maker, taker float64, err error) {
	return 0.0008, 0.001, nil // 0.08% / 0.10% spot maker/taker
}

func (o *OKX) GetLimits(ctx context.Context, symbol string) (*Limits, error) {
	return nil, fmt.Errorf("not implemented")
}

func (o *OKX) Close() error {
	return nil
}

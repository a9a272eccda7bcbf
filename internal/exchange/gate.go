package exchange

import (
	"context"
	"fmt"

	"arbot/internal/models"
)

// Gate is a stub connector pending signed-request support (Gate.io's v4 API
// signs the full request line, not just the params).
type Gate struct {
	apiKey    string
	secretKey string
}

func NewGate() *Gate {
	return &Gate{}
}

func (g *Gate) Connect(apiKey, secret, passphrase string) error {
	g.apiKey = apiKey
	g.secretKey = secret
	return nil
}

func (g *Gate) Name() string {
	return "gate"
}

func (g *Gate) GetBalances(ctx context.Context) ([]models.Balance, error) {
	return nil, fmt.Errorf("not implemented")
}

func (g *Gate) GetOrderBook(ctx context.Context, symbol string, depth int) (*models.OrderBook, error) {
	return nil, fmt.Errorf("not implemented")
}

func (g *Gate) SubscribeOrderBook(ctx context.Context, symbol string, callback func(*models.OrderBook)) error {
	return fmt.Errorf("not implemented")
}

func (g *Gate) PlaceOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	return nil, fmt.Errorf("not implemented")
}

func (g *Gate) CancelOrder(ctx context.Context, symbol, exchangeOrderID string) error {
	return fmt.Errorf("not implemented")
}

func (g *Gate) GetOrderStatus(ctx context.Context, symbol, exchangeOrderID string) (*models.Order, error) {
	return nil, fmt.Errorf("not implemented")
}

func (g *Gate) GetTradingFee(ctx context.Context, symbol string) (maker, taker float64, err error) {
	return 0.002, 0.002, nil // 0.20% default spot maker/taker
}

func (g *Gate) GetLimits(ctx context.Context, symbol string) (*Limits, error) {
	return nil, fmt.Errorf("not implemented")
}

func (g *Gate) Close() error {
	return nil
}

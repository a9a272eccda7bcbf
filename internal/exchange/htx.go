package exchange

import (
	"context"
	"fmt"

	"arbot/internal/models"
)

// HTX is a stub connector pending signed-request support (HTX v1 signs with
// AWS-style query-string canonicalization, distinct from the other five).
type HTX struct {
	apiKey    string
	secretKey string
}

func NewHTX() *HTX {
	return &HTX{}
}

func (h *HTX) Connect(apiKey, secret, passphrase string) error {
	h.apiKey = apiKey
	h.secretKey = secret
	return nil
}

func (h *HTX) Name() string {
	return "htx"
}

func (h *HTX) GetBalances(ctx context.Context) ([]models.Balance, error) {
	return nil, fmt.Errorf("not implemented")
}

func (h *HTX) GetOrderBook(ctx context.Context, symbol string, depth int) (*models.OrderBook, error) {
	return nil, fmt.Errorf("not implemented")
}

func (h *HTX) SubscribeOrderBook(ctx context.Context, symbol string, callback func(*models.OrderBook)) error {
	return fmt.Errorf("not implemented")
}

func (h *HTX) PlaceOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	return nil, fmt.Errorf("not implemented")
}

func (h *HTX) CancelOrder(ctx context.Context, symbol, exchangeOrderID string) error {
	return fmt.Errorf("not implemented")
}

func (h *HTX) GetOrderStatus(ctx context.Context, symbol, exchangeOrderID string) (*models.Order, error) {
	return nil, fmt.Errorf("not implemented")
}

func (h *HTX) GetTradingFee(ctx context.Context, symbol string) (maker, taker float64, err error) {
	return 0.002, 0.002, nil // 0.20% default spot maker/taker
}

func (h *HTX) GetLimits(ctx context.Context, symbol string) (*Limits, error) {
	return nil, fmt.Errorf("not implemented")
}

func (h *HTX) Close() error {
	return nil
}

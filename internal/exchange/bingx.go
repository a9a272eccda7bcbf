package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"arbot/internal/models"
)

const (
	bingxBaseURL = "https://open-api.bingx.com"
	bingxWSURL   = "wss://open-api-ws.bingx.com/market"
)

// BingX implements Exchange against BingX's spot REST/WS API.
type BingX struct {
	apiKey    string
	secretKey string

	httpClient *http.Client

	wsManager *WSReconnectManager
	wsMu      sync.Mutex

	bookCallbacks map[string]func(*models.OrderBook)
	callbackMu    sync.RWMutex

	connected bool
	closeChan chan struct{}
}

// NewBingX constructs a BingX connector over the shared pooled HTTP client.
func NewBingX() *BingX {
	return &BingX{
		httpClient:    GetGlobalHTTPClient().GetClient(),
		bookCallbacks: make(map[string]func(*models.OrderBook)),
		closeChan:     make(chan struct{}),
	}
}

func (b *BingX) sign(params string) string {
	h := hmac.New(sha256.New, []byte(b.secretKey))
	h.Write([]byte(params))
	return hex.EncodeToString(h.Sum(nil))
}

func (b *BingX) doRequest(ctx context.Context, method, endpoint string, params map[string]string, signed bool) ([]byte, error) {
	reqURL := bingxBaseURL + endpoint
	query := url.Values{}
	for k, v := range params {
		query.Set(k, v)
	}

	if signed {
		query.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
		query.Set("signature", b.sign(query.Encode()))
	}

	var reqBody string
	if method == http.MethodGet {
		if len(query) > 0 {
			reqURL += "?" + query.Encode()
		}
	} else {
		reqBody = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, strings.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("X-BX-APIKEY", b.apiKey)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var baseResp struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.Unmarshal(body, &baseResp); err != nil {
		return nil, err
	}
	if baseResp.Code != 0 {
		return nil, &ExchangeError{Exchange: "bingx", Code: strconv.Itoa(baseResp.Code), Message: baseResp.Msg}
	}
	return body, nil
}

func (b *BingX) Connect(apiKey, secret, passphrase string) error {
	b.apiKey = apiKey
	b.secretKey = secret

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := b.GetBalances(ctx); err != nil {
		return fmt.Errorf("failed to connect to bingx: %w", err)
	}
	b.connected = true
	return nil
}

func (b *BingX) Name() string { return "bingx" }

// toBingXSymbol converts BTCUSDT -> BTC-USDT, the dash-delimited form BingX
// expects on spot endpoints.
func (b *BingX) toBingXSymbol(symbol string) string {
	if strings.Contains(symbol, "-") {
		return symbol
	}
	base := strings.TrimSuffix(symbol, "USDT")
	return base + "-USDT"
}

func (b *BingX) fromBingXSymbol(contract string) string {
	return strings.ReplaceAll(contract, "-", "")
}

func (b *BingX) GetBalances(ctx context.Context) ([]models.Balance, error) {
	body, err := b.doRequest(ctx, http.MethodGet, "/openApi/spot/v1/account/balance", nil, true)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Data struct {
			Balances []struct {
				Asset  string `json:"asset"`
				Free   string `json:"free"`
				Locked string `json:"locked"`
			} `json:"balances"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	balances := make([]models.Balance, 0, len(resp.Data.Balances))
	for _, bal := range resp.Data.Balances {
		balances = append(balances, models.Balance{
			Exchange: "bingx",
			Asset:    bal.Asset,
			Free:     parseDecimal(bal.Free),
			Locked:   parseDecimal(bal.Locked),
		})
	}
	return balances, nil
}

func (b *BingX) GetOrderBook(ctx context.Context, symbol string, depth int) (*models.OrderBook, error) {
	if depth > 1000 {
		depth = 1000
	}
	params := map[string]string{"symbol": b.toBingXSymbol(symbol), "limit": strconv.Itoa(depth)}
	body, err := b.doRequest(ctx, http.MethodGet, "/openApi/spot/v1/market/depth", params, false)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Data struct {
			Bids [][]string `json:"bids"`
			Asks [][]string `json:"asks"`
			T    int64      `json:"T"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	ts := time.Now().UTC()
	if resp.Data.T > 0 {
		ts = time.UnixMilli(resp.Data.T).UTC()
	}
	return &models.OrderBook{
		Exchange:  "bingx",
		Symbol:    symbol,
		Bids:      priceLevels(resp.Data.Bids),
		Asks:      priceLevels(resp.Data.Asks),
		EventTS:   ts,
		IngressTS: time.Now().UTC(),
	}, nil
}

func (b *BingX) SubscribeOrderBook(ctx context.Context, symbol string, callback func(*models.OrderBook)) error {
	b.callbackMu.Lock()
	b.bookCallbacks[symbol] = callback
	b.callbackMu.Unlock()

	b.wsMu.Lock()
	if b.wsManager == nil {
		config := DefaultWSReconnectConfig()
		b.wsManager = NewWSReconnectManager("bingx-spot", bingxWSURL, config)
		b.wsManager.SetOnMessage(b.handleBookMessage)
		b.wsManager.SetOnConnect(func() { log.Printf("[bingx] websocket connected") })
		b.wsManager.SetOnDisconnect(func(err error) {
			if err != nil {
				log.Printf("[bingx] websocket disconnected: %v", err)
			}
		})
		if err := b.wsManager.Connect(); err != nil {
			b.wsMu.Unlock()
			return fmt.Errorf("failed to connect to bingx websocket: %w", err)
		}
	}
	wsManager := b.wsManager
	b.wsMu.Unlock()

	bingxSymbol := b.toBingXSymbol(symbol)
	subMsg := map[string]interface{}{
		"id":       fmt.Sprintf("depth_%s", symbol),
		"reqType":  "sub",
		"dataType": fmt.Sprintf("%s@depth50", bingxSymbol),
	}
	wsManager.AddSubscription(subMsg)

	go func() {
		<-ctx.Done()
		b.callbackMu.Lock()
		delete(b.bookCallbacks, symbol)
		b.callbackMu.Unlock()
	}()

	return wsManager.Send(subMsg)
}

func (b *BingX) handleBookMessage(message []byte) {
	var msg struct {
		DataType string `json:"dataType"`
		Data     struct {
			Bids [][]string `json:"bids"`
			Asks [][]string `json:"asks"`
		} `json:"data"`
	}
	if err := json.Unmarshal(message, &msg); err != nil {
		return
	}
	if !strings.Contains(msg.DataType, "@depth") {
		return
	}

	parts := strings.SplitN(msg.DataType, "@", 2)
	if len(parts) != 2 {
		return
	}
	symbol := b.fromBingXSymbol(parts[0])

	b.callbackMu.RLock()
	callback, ok := b.bookCallbacks[symbol]
	b.callbackMu.RUnlock()
	if !ok || callback == nil {
		return
	}

	callback(&models.OrderBook{
		Exchange:  "bingx",
		Symbol:    symbol,
		Bids:      priceLevels(msg.Data.Bids),
		Asks:      priceLevels(msg.Data.Asks),
		EventTS:   time.Now().UTC(),
		IngressTS: time.Now().UTC(),
	})
}

func bingxSide(side models.Side) string {
	if side == models.SideSell {
		return "SELL"
	}
	return "BUY"
}

func bingxOrderType(t models.OrderType) string {
	if t == models.OrderTypeLimit || t == models.OrderTypeIOC {
		return "LIMIT"
	}
	return "MARKET"
}

func (b *BingX) PlaceOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	params := map[string]string{
		"symbol":   b.toBingXSymbol(order.Symbol),
		"side":     bingxSide(order.Side),
		"type":     bingxOrderType(order.Type),
		"quantity": order.RequestedQty.String(),
	}
	if order.Type == models.OrderTypeLimit || order.Type == models.OrderTypeIOC {
		params["price"] = order.RequestedPrice.String()
	}
	if order.Type == models.OrderTypeIOC {
		params["timeInForce"] = "IOC"
	}

	body, err := b.doRequest(ctx, http.MethodPost, "/openApi/spot/v1/trade/order", params, true)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Data struct {
			OrderId     int64  `json:"orderId"`
			ExecutedQty string `json:"executedQty"`
			AvgPrice    string `json:"avgPrice"`
			Status      string `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	placed := *order
	placed.ExchangeOrderID = strconv.FormatInt(resp.Data.OrderId, 10)
	placed.FilledQty = parseDecimal(resp.Data.ExecutedQty)
	placed.FilledPrice = parseDecimal(resp.Data.AvgPrice)
	placed.State = bingxOrderState(resp.Data.Status)
	if placed.FilledQty.Sign() > 0 {
		now := time.Now().UTC()
		placed.FilledAt = &now
	}
	return &placed, nil
}

func (b *BingX) CancelOrder(ctx context.Context, symbol, exchangeOrderID string) error {
	params := map[string]string{"symbol": b.toBingXSymbol(symbol), "orderId": exchangeOrderID}
	_, err := b.doRequest(ctx, http.MethodPost, "/openApi/spot/v1/trade/cancel", params, true)
	return err
}

func (b *BingX) GetOrderStatus(ctx context.Context, symbol, exchangeOrderID string) (*models.Order, error) {
	params := map[string]string{"symbol": b.toBingXSymbol(symbol), "orderId": exchangeOrderID}
	body, err := b.doRequest(ctx, http.MethodGet, "/openApi/spot/v1/trade/query", params, true)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Data struct {
			ExecutedQty string `json:"executedQty"`
			AvgPrice    string `json:"avgPrice"`
			Status      string `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	return &models.Order{
		ExchangeOrderID: exchangeOrderID,
		Symbol:          symbol,
		FilledQty:       parseDecimal(resp.Data.ExecutedQty),
		FilledPrice:     parseDecimal(resp.Data.AvgPrice),
		State:           bingxOrderState(resp.Data.Status),
	}, nil
}

func bingxOrderState(status string) models.OrderState {
	switch status {
	case "FILLED":
		return models.OrderFilled
	case "PARTIALLY_FILLED":
		return models.OrderPartiallyFilled
	case "CANCELED":
		return models.OrderCancelled
	case "FAILED", "REJECTED":
		return models.OrderFailed
	case "NEW":
		return models.OrderOpen
	default:
		return models.OrderPending
	}
}

func (b *BingX) GetTradingFee(ctx context.Context, symbol string) (maker, taker float64, err error) {
	return 0.001, 0.001, nil
}

func (b *BingX) GetLimits(ctx context.Context, symbol string) (*Limits, error) {
	params := map[string]string{"symbol": b.toBingXSymbol(symbol)}
	body, err := b.doRequest(ctx, http.MethodGet, "/openApi/spot/v1/common/symbols", params, false)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Data struct {
			Symbols []struct {
				MinQty    string `json:"minQty"`
				MaxQty    string `json:"maxQty"`
				StepSize  string `json:"stepSize"`
				TickSize  string `json:"tickSize"`
				MinNotional string `json:"minNotional"`
			} `json:"symbols"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data.Symbols) == 0 {
		return nil, fmt.Errorf("symbol info not found for %s", symbol)
	}

	s := resp.Data.Symbols[0]
	minQty, _ := parseDecimal(s.MinQty).Float64()
	maxQty, _ := parseDecimal(s.MaxQty).Float64()
	step, _ := parseDecimal(s.StepSize).Float64()
	tick, _ := parseDecimal(s.TickSize).Float64()
	minNotional, _ := parseDecimal(s.MinNotional).Float64()

	return &Limits{
		Symbol:      symbol,
		MinOrderQty: minQty,
		MaxOrderQty: maxQty,
		QtyStep:     step,
		MinNotional: minNotional,
		PriceStep:   tick,
	}, nil
}

func (b *BingX) Close() error {
	select {
	case <-b.closeChan:
	default:
		close(b.closeChan)
	}

	b.wsMu.Lock()
	if b.wsManager != nil {
		b.wsManager.Close()
		b.wsManager = nil
	}
	b.wsMu.Unlock()

	b.connected = false
	return nil
}

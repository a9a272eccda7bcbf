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
	bybitBaseURL    = "https://api.bybit.com"
	bybitWSPublic   = "wss://stream.bybit.com/v5/public/spot"
	bybitRecvWindow = "5000"
)

// Bybit implements Exchange against Bybit's v5 unified API, spot category.
type Bybit struct {
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

// NewBybit constructs a Bybit connector over the shared pooled HTTP client.
func NewBybit() *Bybit {
	return &Bybit{
		httpClient:    GetGlobalHTTPClient().GetClient(),
		bookCallbacks: make(map[string]func(*models.OrderBook)),
		closeChan:     make(chan struct{}),
	}
}

func (b *Bybit) sign(timestamp, params string) string {
	message := timestamp + b.apiKey + bybitRecvWindow + params
	h := hmac.New(sha256.New, []byte(b.secretKey))
	h.Write([]byte(message))
	return hex.EncodeToString(h.Sum(nil))
}

func (b *Bybit) doRequest(ctx context.Context, method, endpoint string, params map[string]string, signed bool) ([]byte, error) {
	var reqBody, reqURL string

	if method == http.MethodGet {
		query := url.Values{}
		for k, v := range params {
			query.Set(k, v)
		}
		reqBody = query.Encode()
		if reqBody != "" {
			reqURL = bybitBaseURL + endpoint + "?" + reqBody
		} else {
			reqURL = bybitBaseURL + endpoint
		}
	} else {
		reqURL = bybitBaseURL + endpoint
		if len(params) > 0 {
			jsonBytes, _ := json.Marshal(params)
			reqBody = string(jsonBytes)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, strings.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	if signed {
		timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
		signature := b.sign(timestamp, reqBody)
		req.Header.Set("X-BAPI-API-KEY", b.apiKey)
		req.Header.Set("X-BAPI-SIGN", signature)
		req.Header.Set("X-BAPI-TIMESTAMP", timestamp)
		req.Header.Set("X-BAPI-RECV-WINDOW", bybitRecvWindow)
	}

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
		RetCode int    `json:"retCode"`
		RetMsg  string `json:"retMsg"`
	}
	if err := json.Unmarshal(body, &baseResp); err != nil {
		return nil, err
	}
	if baseResp.RetCode != 0 {
		return nil, &ExchangeError{Exchange: "bybit", Code: strconv.Itoa(baseResp.RetCode), Message: baseResp.RetMsg}
	}
	return body, nil
}

func (b *Bybit) Connect(apiKey, secret, passphrase string) error {
	b.apiKey = apiKey
	b.secretKey = secret

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := b.GetBalances(ctx); err != nil {
		return fmt.Errorf("failed to connect to bybit: %w", err)
	}
	b.connected = true
	return nil
}

func (b *Bybit) Name() string { return "bybit" }

func (b *Bybit) GetBalances(ctx context.Context) ([]models.Balance, error) {
	params := map[string]string{"accountType": "UNIFIED"}
	body, err := b.doRequest(ctx, http.MethodGet, "/v5/account/wallet-balance", params, true)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Result struct {
			List []struct {
				Coin []struct {
					Coin            string `json:"coin"`
					WalletBalance   string `json:"walletBalance"`
					Locked          string `json:"locked"`
				} `json:"coin"`
			} `json:"list"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	var balances []models.Balance
	if len(resp.Result.List) > 0 {
		for _, c := range resp.Result.List[0].Coin {
			total := parseDecimal(c.WalletBalance)
			locked := parseDecimal(c.Locked)
			balances = append(balances, models.Balance{
				Exchange: "bybit",
				Asset:    c.Coin,
				Free:     total.Sub(locked),
				Locked:   locked,
			})
		}
	}
	return balances, nil
}

func (b *Bybit) GetOrderBook(ctx context.Context, symbol string, depth int) (*models.OrderBook, error) {
	if depth > 200 {
		depth = 200
	}
	params := map[string]string{"category": "spot", "symbol": symbol, "limit": strconv.Itoa(depth)}
	body, err := b.doRequest(ctx, http.MethodGet, "/v5/market/orderbook", params, false)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Result struct {
			Bids [][]string `json:"b"`
			Asks [][]string `json:"a"`
			Ts   int64      `json:"ts"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	ts := time.UnixMilli(resp.Result.Ts).UTC()
	ob := &models.OrderBook{
		Exchange:  "bybit",
		Symbol:    symbol,
		Bids:      priceLevels(resp.Result.Bids),
		Asks:      priceLevels(resp.Result.Asks),
		EventTS:   ts,
		IngressTS: time.Now().UTC(),
	}
	return ob, nil
}

func (b *Bybit) SubscribeOrderBook(ctx context.Context, symbol string, callback func(*models.OrderBook)) error {
	b.callbackMu.Lock()
	b.bookCallbacks[symbol] = callback
	b.callbackMu.Unlock()

	b.wsMu.Lock()
	if b.wsManager == nil {
		config := DefaultWSReconnectConfig()
		b.wsManager = NewWSReconnectManager("bybit-spot", bybitWSPublic, config)
		b.wsManager.SetOnMessage(b.handleBookMessage)
		b.wsManager.SetOnConnect(func() { log.Printf("[bybit] public websocket connected") })
		b.wsManager.SetOnDisconnect(func(err error) {
			if err != nil {
				log.Printf("[bybit] public websocket disconnected: %v", err)
			}
		})
		if err := b.wsManager.Connect(); err != nil {
			b.wsMu.Unlock()
			return fmt.Errorf("failed to connect to bybit websocket: %w", err)
		}
	}
	wsManager := b.wsManager
	b.wsMu.Unlock()

	subMsg := map[string]interface{}{"op": "subscribe", "args": []string{"orderbook.50." + symbol}}
	wsManager.AddSubscription(subMsg)

	go func() {
		<-ctx.Done()
		b.callbackMu.Lock()
		delete(b.bookCallbacks, symbol)
		b.callbackMu.Unlock()
	}()

	return wsManager.Send(subMsg)
}

func (b *Bybit) handleBookMessage(message []byte) {
	var msg struct {
		Topic string `json:"topic"`
		Data  struct {
			Symbol string     `json:"s"`
			Bids   [][]string `json:"b"`
			Asks   [][]string `json:"a"`
			Seq    int64      `json:"seq"`
		} `json:"data"`
		Ts int64 `json:"ts"`
	}
	if err := json.Unmarshal(message, &msg); err != nil {
		return
	}
	if !strings.HasPrefix(msg.Topic, "orderbook.") {
		return
	}

	b.callbackMu.RLock()
	callback, ok := b.bookCallbacks[msg.Data.Symbol]
	b.callbackMu.RUnlock()
	if !ok || callback == nil {
		return
	}

	callback(&models.OrderBook{
		Exchange:  "bybit",
		Symbol:    msg.Data.Symbol,
		Bids:      priceLevels(msg.Data.Bids),
		Asks:      priceLevels(msg.Data.Asks),
		EventTS:   time.UnixMilli(msg.Ts).UTC(),
		IngressTS: time.Now().UTC(),
		Seq:       msg.Data.Seq,
	})
}

func bybitSide(side models.Side) string {
	if side == models.SideSell {
		return "Sell"
	}
	return "Buy"
}

func bybitOrderType(t models.OrderType) string {
	if t == models.OrderTypeLimit {
		return "Limit"
	}
	return "Market"
}

func (b *Bybit) PlaceOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	params := map[string]string{
		"category":  "spot",
		"symbol":    order.Symbol,
		"side":      bybitSide(order.Side),
		"orderType": bybitOrderType(order.Type),
		"qty":       order.RequestedQty.String(),
	}
	if order.Type == models.OrderTypeLimit || order.Type == models.OrderTypeIOC {
		params["price"] = order.RequestedPrice.String()
	}
	if order.Type == models.OrderTypeIOC {
		params["timeInForce"] = "IOC"
	}

	body, err := b.doRequest(ctx, http.MethodPost, "/v5/order/create", params, true)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Result struct {
			OrderId string `json:"orderId"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	placed := *order
	placed.ExchangeOrderID = resp.Result.OrderId
	placed.State = models.OrderOpen

	status, err := b.GetOrderStatus(ctx, order.Symbol, resp.Result.OrderId)
	if err == nil && status != nil {
		placed.State = status.State
		placed.FilledQty = status.FilledQty
		placed.FilledPrice = status.FilledPrice
		if !status.FilledQty.IsZero() {
			now := time.Now().UTC()
			placed.FilledAt = &now
		}
	}
	return &placed, nil
}

func (b *Bybit) CancelOrder(ctx context.Context, symbol, exchangeOrderID string) error {
	params := map[string]string{"category": "spot", "symbol": symbol, "orderId": exchangeOrderID}
	_, err := b.doRequest(ctx, http.MethodPost, "/v5/order/cancel", params, true)
	return err
}

func (b *Bybit) GetOrderStatus(ctx context.Context, symbol, exchangeOrderID string) (*models.Order, error) {
	params := map[string]string{"category": "spot", "symbol": symbol, "orderId": exchangeOrderID}
	body, err := b.doRequest(ctx, http.MethodGet, "/v5/order/realtime", params, true)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Result struct {
			List []struct {
				CumExecQty  string `json:"cumExecQty"`
				AvgPrice    string `json:"avgPrice"`
				OrderStatus string `json:"orderStatus"`
				CumExecFee  string `json:"cumExecFee"`
			} `json:"list"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Result.List) == 0 {
		return nil, fmt.Errorf("order not found: %s", exchangeOrderID)
	}

	o := resp.Result.List[0]
	return &models.Order{
		ExchangeOrderID: exchangeOrderID,
		Symbol:          symbol,
		FilledQty:       parseDecimal(o.CumExecQty),
		FilledPrice:     parseDecimal(o.AvgPrice),
		Fee:             parseDecimal(o.CumExecFee),
		State:           bybitOrderState(o.OrderStatus),
	}, nil
}

func bybitOrderState(status string) models.OrderState {
	switch status {
	case "Filled":
		return models.OrderFilled
	case "PartiallyFilled":
		return models.OrderPartiallyFilled
	case "Cancelled", "Deactivated":
		return models.OrderCancelled
	case "Rejected":
		return models.OrderFailed
	case "New", "Untriggered":
		return models.OrderOpen
	default:
		return models.OrderPending
	}
}

func (b *Bybit) GetTradingFee(ctx context.Context, symbol string) (maker, taker float64, err error) {
	params := map[string]string{"category": "spot", "symbol": symbol}
	body, reqErr := b.doRequest(ctx, http.MethodGet, "/v5/account/fee-rate", params, true)
	if reqErr != nil {
		return 0.001, 0.001, nil
	}

	var resp struct {
		Result struct {
			List []struct {
				MakerFeeRate string `json:"makerFeeRate"`
				TakerFeeRate string `json:"takerFeeRate"`
			} `json:"list"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || len(resp.Result.List) == 0 {
		return 0.001, 0.001, nil
	}

	makerD, _ := parseDecimal(resp.Result.List[0].MakerFeeRate).Float64()
	takerD, _ := parseDecimal(resp.Result.List[0].TakerFeeRate).Float64()
	return makerD, takerD, nil
}

func (b *Bybit) GetLimits(ctx context.Context, symbol string) (*Limits, error) {
	params := map[string]string{"category": "spot", "symbol": symbol}
	body, err := b.doRequest(ctx, http.MethodGet, "/v5/market/instruments-info", params, false)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Result struct {
			List []struct {
				LotSizeFilter struct {
					BasePrecision string `json:"basePrecision"`
					MinOrderQty   string `json:"minOrderQty"`
					MaxOrderQty   string `json:"maxOrderQty"`
					MinOrderAmt   string `json:"minOrderAmt"`
				} `json:"lotSizeFilter"`
				PriceFilter struct {
					TickSize string `json:"tickSize"`
				} `json:"priceFilter"`
			} `json:"list"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Result.List) == 0 {
		return nil, fmt.Errorf("instrument info not found for %s", symbol)
	}

	info := resp.Result.List[0]
	minQty, _ := parseDecimal(info.LotSizeFilter.MinOrderQty).Float64()
	maxQty, _ := parseDecimal(info.LotSizeFilter.MaxOrderQty).Float64()
	step, _ := parseDecimal(info.LotSizeFilter.BasePrecision).Float64()
	minNotional, _ := parseDecimal(info.LotSizeFilter.MinOrderAmt).Float64()
	priceStep, _ := parseDecimal(info.PriceFilter.TickSize).Float64()

	return &Limits{
		Symbol:      symbol,
		MinOrderQty: minQty,
		MaxOrderQty: maxQty,
		QtyStep:     step,
		MinNotional: minNotional,
		PriceStep:   priceStep,
	}, nil
}

func (b *Bybit) Close() error {
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

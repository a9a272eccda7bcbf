package execution

import (
	"context"
	"testing"
	"time"

	"arbot/internal/config"
	"arbot/internal/detector"
	"arbot/internal/marketstate"
	"arbot/internal/models"
	"github.com/shopspring/decimal"
)

func book(exchange, symbol string, bidPx, askPx float64) *models.OrderBook {
	now := time.Now()
	return &models.OrderBook{
		Exchange:  exchange,
		Symbol:    symbol,
		Bids:      []models.PriceLevel{{Price: decimal.NewFromFloat(bidPx), Qty: decimal.NewFromFloat(10)}},
		Asks:      []models.PriceLevel{{Price: decimal.NewFromFloat(askPx), Qty: decimal.NewFromFloat(10)}},
		EventTS:   now,
		IngressTS: now,
	}
}

func twoLegSignal(buyExch, sellExch, symbol string, buyPx, sellPx float64) *models.Signal {
	legs := []models.SignalLeg{
		{Exchange: buyExch, Symbol: symbol, Side: models.SideBuy, TargetPrice: decimal.NewFromFloat(buyPx), MaxQty: decimal.NewFromInt(5)},
		{Exchange: sellExch, Symbol: symbol, Side: models.SideSell, TargetPrice: decimal.NewFromFloat(sellPx), MaxQty: decimal.NewFromInt(5)},
	}
	return models.NewSignal(models.StrategySpatial, symbol, legs)
}

func newTestPaperExecutor() (*PaperExecutor, *marketstate.Store) {
	store := marketstate.New(4)
	fees := detector.NewFeeCache()
	fees.SetFee("bybit", 0.0004)
	fees.SetFee("okx", 0.0004)
	cfg := config.ExecutionConfig{PaperLatencyMs: 1, PaperJitterMs: 0, OrderTimeoutSeconds: 5, EmergencyStopSeconds: 1}
	return NewPaperExecutor(store, fees, cfg), store
}

func TestPaperExecutor_BothFilled(t *testing.T) {
	p, store := newTestPaperExecutor()
	store.Publish(book("bybit", "BTC/USDT", 99, 100))
	store.Publish(book("okx", "BTC/USDT", 101, 102))

	sig := twoLegSignal("bybit", "okx", "BTC/USDT", 100, 101)
	sig.NotionalUSD = decimal.NewFromInt(200)
	decision := &models.RiskDecision{Approved: true, AdjustedNotionalUSD: decimal.NewFromInt(200)}

	record, err := p.Execute(context.Background(), sig, decision)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Outcome != models.OutcomeBothFilled {
		t.Fatalf("expected both_filled, got %s", record.Outcome)
	}
	if record.RealizedPnl.Sign() <= 0 {
		t.Fatalf("expected positive pnl on a profitable spread, got %s", record.RealizedPnl)
	}
}

func TestPaperExecutor_NoLiquidityBothFailed(t *testing.T) {
	p, _ := newTestPaperExecutor() // no books published

	sig := twoLegSignal("bybit", "okx", "BTC/USDT", 100, 101)
	decision := &models.RiskDecision{Approved: true, AdjustedNotionalUSD: decimal.NewFromInt(200)}

	record, err := p.Execute(context.Background(), sig, decision)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Outcome != models.OutcomeBothFailed {
		t.Fatalf("expected both_failed with no book data, got %s", record.Outcome)
	}
}

func TestPaperExecutor_PartialFillWhenDepthThin(t *testing.T) {
	p, store := newTestPaperExecutor()
	thin := book("bybit", "BTC/USDT", 99, 100)
	thin.Asks[0].Qty = decimal.NewFromFloat(0.5)
	store.Publish(thin)
	store.Publish(book("okx", "BTC/USDT", 101, 102))

	sig := twoLegSignal("bybit", "okx", "BTC/USDT", 100, 101)
	decision := &models.RiskDecision{Approved: true, AdjustedNotionalUSD: decimal.NewFromInt(1000)}

	record, err := p.Execute(context.Background(), sig, decision)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Outcome != models.OutcomePartialImbalance && record.Outcome != models.OutcomeBothPartial {
		t.Fatalf("expected a partial outcome when one side's depth is thin, got %s", record.Outcome)
	}
}

func TestClassifyOutcome_AllFailed(t *testing.T) {
	orders := []models.Order{
		{RequestedQty: decimal.NewFromInt(1), FilledQty: decimal.Zero},
		{RequestedQty: decimal.NewFromInt(1), FilledQty: decimal.Zero},
	}
	if got := classifyOutcome(orders); got != models.OutcomeBothFailed {
		t.Fatalf("expected both_failed, got %s", got)
	}
}

func TestClassifyOutcome_OneFilledOneFailed(t *testing.T) {
	orders := []models.Order{
		{RequestedQty: decimal.NewFromInt(1), FilledQty: decimal.NewFromInt(1)},
		{RequestedQty: decimal.NewFromInt(1), FilledQty: decimal.Zero},
	}
	if got := classifyOutcome(orders); got != models.OutcomeOneFilledOneFailed {
		t.Fatalf("expected one_filled_one_failed, got %s", got)
	}
}

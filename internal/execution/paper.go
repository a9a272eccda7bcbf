package execution

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"arbot/internal/config"
	"arbot/internal/detector"
	"arbot/internal/marketstate"
	"arbot/internal/models"
	"arbot/pkg/utils"
	"github.com/shopspring/decimal"
)

// PaperExecutor simulates fills against the live order book instead of
// sending real orders: it walks Bids/Asks from the market state store for a
// VWAP fill (partial if the book is thinner than requested), applies the
// exchange's taker fee, and books the result against an in-memory balance
// ledger. Latency is modeled as a configurable base delay plus jitter so
// downstream latency metrics see realistic numbers in paper mode too.
type PaperExecutor struct {
	store *marketstate.Store
	fees  *detector.FeeCache
	cfg   config.ExecutionConfig

	ledgerMu sync.Mutex
	ledger   map[string]decimal.Decimal // "exchange|asset" -> free balance
}

// NewPaperExecutor wires a paper executor over a market state store and fee
// cache. Call SeedBalance to prime the virtual ledger before trading.
func NewPaperExecutor(store *marketstate.Store, fees *detector.FeeCache, cfg config.ExecutionConfig) *PaperExecutor {
	return &PaperExecutor{
		store:  store,
		fees:   fees,
		cfg:    cfg,
		ledger: make(map[string]decimal.Decimal),
	}
}

func ledgerKey(exchange, asset string) string { return exchange + "|" + asset }

// SeedBalance primes the virtual ledger for one (exchange, asset) pair.
func (p *PaperExecutor) SeedBalance(exchange, asset string, amount decimal.Decimal) {
	p.ledgerMu.Lock()
	p.ledger[ledgerKey(exchange, asset)] = amount
	p.ledgerMu.Unlock()
}

// Balance reads the current virtual balance for (exchange, asset).
func (p *PaperExecutor) Balance(exchange, asset string) decimal.Decimal {
	p.ledgerMu.Lock()
	defer p.ledgerMu.Unlock()
	return p.ledger[ledgerKey(exchange, asset)]
}

func (p *PaperExecutor) adjustBalance(exchange, asset string, delta decimal.Decimal) {
	p.ledgerMu.Lock()
	key := ledgerKey(exchange, asset)
	p.ledger[key] = p.ledger[key].Add(delta)
	p.ledgerMu.Unlock()
}

func (p *PaperExecutor) simulatedLatency() time.Duration {
	base := time.Duration(p.cfg.PaperLatencyMs) * time.Millisecond
	if p.cfg.PaperJitterMs <= 0 {
		return base
	}
	jitter := time.Duration(rand.Intn(p.cfg.PaperJitterMs)) * time.Millisecond
	return base + jitter
}

// fillLeg walks the live book for leg.Symbol on leg.Exchange and returns the
// VWAP fill price/quantity for qty, capped by available depth.
func (p *PaperExecutor) fillLeg(leg models.SignalLeg, qty decimal.Decimal) (price, filled decimal.Decimal, ok bool) {
	ob := p.store.Snapshot(leg.Symbol, leg.Exchange)
	if ob == nil {
		return decimal.Zero, decimal.Zero, false
	}

	var levels []utils.PriceLevelQty
	if leg.Side == models.SideBuy {
		for _, l := range ob.Asks {
			levels = append(levels, utils.PriceLevelQty{Price: l.Price, Qty: l.Qty})
		}
	} else {
		for _, l := range ob.Bids {
			levels = append(levels, utils.PriceLevelQty{Price: l.Price, Qty: l.Qty})
		}
	}

	avgPrice, filledQty := utils.VWAP(levels, qty)
	return avgPrice, filledQty, filledQty.Sign() > 0
}

func symbolAssets(symbol string) (base, quote string) {
	return utils.ExtractBaseCurrency(symbol), utils.ExtractQuoteCurrency(symbol)
}

// Execute simulates every leg concurrently (so the paper engine's timing
// characteristics match the live engine's), applies fees, updates the
// virtual ledger, and reconciles into a TradeRecord.
func (p *PaperExecutor) Execute(ctx context.Context, sig *models.Signal, decision *models.RiskDecision) (*models.TradeRecord, error) {
	shares := splitNotional(sig, decision.AdjustedNotionalUSD)
	results := make(chan legResult, len(sig.Legs))

	for i, leg := range sig.Legs {
		go func(i int, leg models.SignalLeg) {
			select {
			case <-time.After(p.simulatedLatency()):
			case <-ctx.Done():
				results <- legResult{index: i, order: newOrder(sig, leg, qtyForLeg(leg, shares[i]), models.OrderTypeMarket, models.ModePaper), err: ctx.Err()}
				return
			}

			qty := qtyForLeg(leg, shares[i])
			order := newOrder(sig, leg, qty, models.OrderTypeMarket, models.ModePaper)
			order.LatencyMs = int64(p.cfg.PaperLatencyMs)

			price, filled, ok := p.fillLeg(leg, qty)
			if !ok {
				order.State = models.OrderFailed
				order.ErrorMessage = "no liquidity in simulated book"
				results <- legResult{index: i, order: order}
				return
			}

			fee := price.Mul(filled).Mul(decimal.NewFromFloat(p.fees.TakerFee(leg.Exchange)))
			order.FilledQty = filled
			order.FilledPrice = price
			order.Fee = fee
			now := time.Now().UTC()
			order.FilledAt = &now
			if filled.GreaterThanOrEqual(qty) {
				order.State = models.OrderFilled
			} else {
				order.State = models.OrderPartiallyFilled
			}

			base, quote := symbolAssets(leg.Symbol)
			if leg.Side == models.SideBuy {
				p.adjustBalance(leg.Exchange, base, filled)
				p.adjustBalance(leg.Exchange, quote, price.Mul(filled).Add(fee).Neg())
			} else {
				p.adjustBalance(leg.Exchange, base, filled.Neg())
				p.adjustBalance(leg.Exchange, quote, price.Mul(filled).Sub(fee))
			}

			results <- legResult{index: i, order: order}
		}(i, leg)
	}

	orders := make([]models.Order, len(sig.Legs))
	for range sig.Legs {
		r := <-results
		orders[r.index] = *r.order
	}

	record := buildTradeRecord(sig, orders)

	// A partial imbalance in paper mode is hedged by unwinding the
	// over-filled leg back to the under-filled leg's quantity, the same
	// flatten-the-naked-side response the live executor takes.
	if record.Outcome == models.OutcomePartialImbalance || record.Outcome == models.OutcomeOneFilledOneFailed {
		p.hedgeImbalance(sig, orders)
	}

	return record, nil
}

// hedgeImbalance flattens whichever leg filled more than the others by
// simulating an opposite-side market fill for the excess quantity.
func (p *PaperExecutor) hedgeImbalance(sig *models.Signal, orders []models.Order) {
	minFilled := decimal.Zero
	for i, o := range orders {
		if i == 0 || o.FilledQty.LessThan(minFilled) {
			minFilled = o.FilledQty
		}
	}
	for i, o := range orders {
		excess := o.FilledQty.Sub(minFilled)
		if excess.Sign() <= 0 {
			continue
		}
		leg := sig.Legs[i]
		hedgeLeg := leg
		hedgeLeg.Side = oppositeSide(leg.Side)
		price, filled, ok := p.fillLeg(hedgeLeg, excess)
		if !ok || filled.Sign() <= 0 {
			continue
		}
		fee := price.Mul(filled).Mul(decimal.NewFromFloat(p.fees.TakerFee(leg.Exchange)))
		base, quote := symbolAssets(leg.Symbol)
		if hedgeLeg.Side == models.SideBuy {
			p.adjustBalance(leg.Exchange, base, filled)
			p.adjustBalance(leg.Exchange, quote, price.Mul(filled).Add(fee).Neg())
		} else {
			p.adjustBalance(leg.Exchange, base, filled.Neg())
			p.adjustBalance(leg.Exchange, quote, price.Mul(filled).Sub(fee))
		}
	}
}

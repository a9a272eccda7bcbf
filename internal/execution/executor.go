// Package execution turns an approved Signal into orders on the exchanges
// named by its legs, and reconciles whatever actually filled into a
// TradeRecord.
//
// Both executors share the teacher's OrderExecutor shape (internal/bot/
// order.go): legs go out over goroutines at the same instant so total
// latency is max(leg latencies), not their sum, and a failed leg triggers
// an opposite-side order to flatten whatever the other leg already filled.
// What changes is the domain (N spot legs instead of a long/short futures
// pair) and the failure handling, which now follows spec's five-outcome
// reconciliation table instead of an all-or-nothing rollback.
package execution

import (
	"context"
	"time"

	"arbot/internal/models"
	"github.com/shopspring/decimal"
)

// Executor turns an approved Signal into a TradeRecord. Implementations
// never second-guess the Risk Manager's decision; AdjustedNotionalUSD is
// taken as given and split across legs by each leg's TargetPrice.
type Executor interface {
	Execute(ctx context.Context, sig *models.Signal, decision *models.RiskDecision) (*models.TradeRecord, error)
}

// legResult pairs a placed (or attempted) order with its leg index, mirroring
// the teacher's LegResult but generalized from 2 legs to N.
type legResult struct {
	index int
	order *models.Order
	err   error
}

// qtyForLeg converts a notional share (USD) into base-asset quantity at the
// leg's target price, the same split NewSignal's callers already used to
// size MaxQty.
func qtyForLeg(leg models.SignalLeg, notionalShare decimal.Decimal) decimal.Decimal {
	if leg.TargetPrice.Sign() <= 0 {
		return decimal.Zero
	}
	qty := notionalShare.Div(leg.TargetPrice)
	if qty.GreaterThan(leg.MaxQty) && leg.MaxQty.Sign() > 0 {
		qty = leg.MaxQty
	}
	return qty
}

// splitNotional divides a signal's adjusted notional evenly across its legs.
// Spatial and triangular signals both treat every leg as carrying an equal
// share of the position's USD size.
func splitNotional(sig *models.Signal, adjustedNotionalUSD decimal.Decimal) []decimal.Decimal {
	n := len(sig.Legs)
	shares := make([]decimal.Decimal, n)
	if n == 0 {
		return shares
	}
	share := adjustedNotionalUSD.Div(decimal.NewFromInt(int64(n)))
	for i := range shares {
		shares[i] = share
	}
	return shares
}

// classifyOutcome applies spec's reconciliation table to the placed orders:
// every leg filled in full, every leg partially filled to the same degree,
// legs filled to differing degrees (needs a hedge), some legs filled and
// others failed outright, or nothing filled at all.
func classifyOutcome(orders []models.Order) models.TradeOutcome {
	anyFilled := false
	allFullyFilled := true
	allFailed := true
	minRatio, maxRatio := 1.0, 0.0

	for _, o := range orders {
		filled, _ := o.FilledQty.Float64()
		requested, _ := o.RequestedQty.Float64()
		ratio := 0.0
		if requested > 0 {
			ratio = filled / requested
		}
		if filled > 0 {
			anyFilled = true
			allFailed = false
		}
		if ratio < 0.999 {
			allFullyFilled = false
		}
		if ratio < minRatio {
			minRatio = ratio
		}
		if ratio > maxRatio {
			maxRatio = ratio
		}
	}

	switch {
	case allFailed:
		return models.OutcomeBothFailed
	case !anyFilled:
		return models.OutcomeBothFailed
	case allFullyFilled:
		return models.OutcomeBothFilled
	case minRatio == 0 && maxRatio > 0:
		return models.OutcomeOneFilledOneFailed
	case maxRatio-minRatio > 0.05:
		return models.OutcomePartialImbalance
	default:
		return models.OutcomeBothPartial
	}
}

// realizedPnl computes the trade's net result. A spatial signal's two legs
// are sized to equal USD notional, not equal base-asset quantity (the
// detector targets the same dollar size on both sides, since the two legs
// clear at different prices) — so a naive sell-notional-minus-buy-notional
// sum cancels to roughly zero by construction regardless of how good the
// spread was. The quantity that actually crossed both venues is
// min(buyFilled, sellFilled); PnL belongs to that matched size, priced at
// the two legs' fill prices, net of all fees paid (including any hedge
// orders appended to cover the unmatched remainder). A triangular signal's
// three legs chain through different assets entirely, so no such matching
// applies there; its PnL falls back to the signed notional sum, which is
// the same approximation the detector's own EstimatedPnlUSD already uses.
func realizedPnl(sig *models.Signal, orders []models.Order) (pnl, fees decimal.Decimal) {
	fees = decimal.Zero
	for _, o := range orders {
		fees = fees.Add(o.Fee)
	}

	if sig.Strategy == models.StrategySpatial && len(orders) >= 2 {
		buy, sell := orders[0], orders[1]
		if sig.Legs[0].Side == models.SideSell {
			buy, sell = sell, buy
		}
		matched := decimal.Min(buy.FilledQty, sell.FilledQty)
		pnl = matched.Mul(sell.FilledPrice.Sub(buy.FilledPrice)).Sub(fees)
		return pnl, fees
	}

	pnl = decimal.Zero
	for i, o := range orders {
		notional := o.FilledQty.Mul(o.FilledPrice)
		if i < len(sig.Legs) && sig.Legs[i].Side == models.SideSell {
			pnl = pnl.Add(notional)
		} else {
			pnl = pnl.Sub(notional)
		}
	}
	pnl = pnl.Sub(fees)
	return pnl, fees
}

func buildTradeRecord(sig *models.Signal, orders []models.Order) *models.TradeRecord {
	outcome := classifyOutcome(orders)
	pnl, fees := realizedPnl(sig, orders)
	return &models.TradeRecord{
		SignalID:    sig.ID,
		Outcome:     outcome,
		Orders:      orders,
		RealizedPnl: pnl,
		TotalFees:   fees,
		IsLoss:      pnl.Sign() < 0,
		CreatedAt:   time.Now().UTC(),
	}
}

func newOrder(sig *models.Signal, leg models.SignalLeg, qty decimal.Decimal, orderType models.OrderType, mode models.ExecutionMode) *models.Order {
	return &models.Order{
		ID:             newOrderID(),
		SignalID:       sig.ID,
		Exchange:       leg.Exchange,
		Symbol:         leg.Symbol,
		Side:           leg.Side,
		Type:           orderType,
		ExecutionMode:  mode,
		RequestedQty:   qty,
		RequestedPrice: leg.TargetPrice,
		State:          models.OrderPending,
		CreatedAt:      time.Now().UTC(),
	}
}

// oppositeSide is the direction that flattens a filled leg.
func oppositeSide(s models.Side) models.Side {
	if s == models.SideBuy {
		return models.SideSell
	}
	return models.SideBuy
}

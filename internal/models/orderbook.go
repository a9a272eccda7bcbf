package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceLevel is one price/quantity level of an order book side.
type PriceLevel struct {
	Price decimal.Decimal `json:"price"`
	Qty   decimal.Decimal `json:"qty"`
}

// OrderBook is the normalized, canonical order book for one (exchange, symbol).
// Owned exclusively by the connector that produced it; detectors only ever
// see immutable snapshots.
type OrderBook struct {
	Exchange string `json:"exchange"`
	Symbol   string `json:"symbol"`

	// Bids descending by price, Asks ascending by price.
	Bids []PriceLevel `json:"bids"`
	Asks []PriceLevel `json:"asks"`

	// EventTS is taken from the exchange payload when present, else equals IngressTS.
	EventTS time.Time `json:"event_ts"`
	// IngressTS is stamped by the connector at parse completion.
	IngressTS time.Time `json:"ingress_ts"`

	// Seq is the exchange's update sequence number, used to detect gaps.
	Seq int64 `json:"seq"`
}

// Valid reports whether the book satisfies the normalization invariants:
// best_bid < best_ask, both sides non-empty and correctly ordered.
func (ob *OrderBook) Valid() bool {
	if len(ob.Bids) == 0 || len(ob.Asks) == 0 {
		return false
	}
	if !ob.Bids[0].Price.LessThan(ob.Asks[0].Price) {
		return false
	}
	for i := 1; i < len(ob.Bids); i++ {
		if ob.Bids[i].Price.GreaterThan(ob.Bids[i-1].Price) {
			return false
		}
	}
	for i := 1; i < len(ob.Asks); i++ {
		if ob.Asks[i].Price.LessThan(ob.Asks[i-1].Price) {
			return false
		}
	}
	return true
}

// TopOfBook is the derived best-bid/best-ask snapshot overwritten atomically
// on each order book update.
type TopOfBook struct {
	Exchange string `json:"exchange"`
	Symbol   string `json:"symbol"`

	BestBid    decimal.Decimal `json:"best_bid"`
	BestBidQty decimal.Decimal `json:"best_bid_qty"`
	BestAsk    decimal.Decimal `json:"best_ask"`
	BestAskQty decimal.Decimal `json:"best_ask_qty"`

	EventTS   time.Time `json:"event_ts"`
	IngressTS time.Time `json:"ingress_ts"`

	// Version increments on every overwrite so readers can cheaply detect
	// "nothing changed since last read" without re-parsing the book.
	Version uint64 `json:"version"`
}

// TopOfBookFrom derives a TopOfBook from a validated OrderBook.
func TopOfBookFrom(ob *OrderBook, version uint64) TopOfBook {
	return TopOfBook{
		Exchange:   ob.Exchange,
		Symbol:     ob.Symbol,
		BestBid:    ob.Bids[0].Price,
		BestBidQty: ob.Bids[0].Qty,
		BestAsk:    ob.Asks[0].Price,
		BestAskQty: ob.Asks[0].Qty,
		EventTS:    ob.EventTS,
		IngressTS:  ob.IngressTS,
		Version:    version,
	}
}

// Stale reports whether this snapshot should be treated as absent under the
// configured staleness policy. Evaluated at read time, not at write time.
func (t TopOfBook) Stale(now time.Time, staleThreshold, maxLatency time.Duration) bool {
	if now.Sub(t.EventTS) > staleThreshold {
		return true
	}
	if now.Sub(t.IngressTS) > maxLatency {
		return true
	}
	return false
}

// DepthUSD returns the cumulative USD notional available on one side up to
// (and including) levels at or better than limitPrice.
func DepthUSD(levels []PriceLevel, limitPrice decimal.Decimal, isBid bool) decimal.Decimal {
	total := decimal.Zero
	for _, lvl := range levels {
		if isBid && lvl.Price.LessThan(limitPrice) {
			break
		}
		if !isBid && lvl.Price.GreaterThan(limitPrice) {
			break
		}
		total = total.Add(lvl.Price.Mul(lvl.Qty))
	}
	return total
}

// Package detector watches published market state and emits Signals when
// the spatial or triangular arbitrage formulas clear their thresholds.
//
// Grounded on the teacher's ArbitrageDetector/SpreadCalculator
// (internal/bot/arbitrage.go, internal/bot/spread.go): same O(1)-from-
// precomputed-state shape, same fee-cache-over-network-call idea. What's
// new is the symbol/exchange-agnostic Signal output (the teacher emitted
// a long/short futures ArbitrageOpportunity; these detectors emit the
// domain-neutral models.Signal with Legs) and the triangular strategy,
// which the teacher's repo never implemented.
package detector

import (
	"errors"
	"sync"

	"arbot/internal/models"
)

// Detector is implemented by every registered strategy. Detect is called
// once per market-state change cycle and returns zero or more signals.
type Detector interface {
	Strategy() models.Strategy
	Detect() []*models.Signal
}

// ErrNotImplemented is returned by NewStatisticalDetector: the config key
// is parsed and accepted, but there is no statistical/cointegration engine
// in this build. Setting detector.statistical.enabled=true is a fatal
// startup error rather than a silently ignored flag.
var ErrNotImplemented = errors.New("detector: statistical strategy is not implemented in this build")

// NewStatisticalDetector always fails; it exists so callers have a single
// place to route the "enabled" check through instead of special-casing it.
func NewStatisticalDetector() (Detector, error) {
	return nil, ErrNotImplemented
}

// FeeCache holds taker-fee fractions per exchange, refreshed periodically
// out of band (by the exchange service) so the hot detection path never
// makes a network call. Mirrors SpreadCalculator.fees from the teacher.
type FeeCache struct {
	mu   sync.RWMutex
	fees map[string]float64
}

// defaultTakerFee is used for any exchange not yet present in the cache,
// matching the teacher's calculateNetSpread fallback.
const defaultTakerFee = 0.0005

// NewFeeCache creates an empty fee cache; every exchange initially returns
// defaultTakerFee until SetFee populates it.
func NewFeeCache() *FeeCache {
	return &FeeCache{fees: make(map[string]float64)}
}

// SetFee records the taker fee fraction (e.g. 0.0005 = 0.05%) for an exchange.
func (fc *FeeCache) SetFee(exchange string, takerFee float64) {
	fc.mu.Lock()
	fc.fees[exchange] = takerFee
	fc.mu.Unlock()
}

// TakerFee returns the cached taker fee for an exchange, or the default.
func (fc *FeeCache) TakerFee(exchange string) float64 {
	fc.mu.RLock()
	fee, ok := fc.fees[exchange]
	fc.mu.RUnlock()
	if !ok {
		return defaultTakerFee
	}
	return fee
}

package detector

import (
	"sync"
	"time"

	"arbot/internal/config"
	"arbot/internal/marketstate"
	"arbot/internal/metrics"
	"arbot/internal/models"
	"arbot/pkg/utils"
	"github.com/shopspring/decimal"
)

// SpatialDetector finds, for each configured symbol, the best ordered pair
// of exchanges (A, B) where buying on A and selling on B clears the net
// spread threshold with sufficient depth on both sides.
type SpatialDetector struct {
	store   *marketstate.Store
	fees    *FeeCache
	symbols []string
	cfg     config.SpatialDetectorConfig
	maxPositionPerCoinUSD float64

	cooldown   map[string]time.Time // "A|B|symbol" -> cooldown expiry
	cooldownMu sync.Mutex
}

// NewSpatialDetector wires a spatial detector over a market state store and
// fee cache for the given symbol universe.
func NewSpatialDetector(store *marketstate.Store, fees *FeeCache, symbols []string, cfg config.SpatialDetectorConfig, maxPositionPerCoinUSD float64) *SpatialDetector {
	return &SpatialDetector{
		store:   store,
		fees:    fees,
		symbols: symbols,
		cfg:     cfg,
		maxPositionPerCoinUSD: maxPositionPerCoinUSD,
		cooldown: make(map[string]time.Time),
	}
}

func (d *SpatialDetector) Strategy() models.Strategy { return models.StrategySpatial }

// candidate is an evaluated (A,B) pair before the tie-break.
type candidate struct {
	buyExch, sellExch         string
	grossSpreadPct, netSpreadPct float64
	buyPrice, sellPrice       decimal.Decimal
	buyDepthUSD, sellDepthUSD decimal.Decimal
	score                     float64
}

// Detect evaluates every symbol independently and emits at most one Signal
// per symbol per call, per spec's "max one signal per symbol per cycle".
func (d *SpatialDetector) Detect() []*models.Signal {
	if !d.cfg.Enabled {
		return nil
	}

	staleThreshold := time.Duration(d.cfg.StaleThresholdSeconds) * time.Second
	maxLatency := time.Duration(d.cfg.MaxLatencyMs) * time.Millisecond

	var signals []*models.Signal
	for _, symbol := range d.symbols {
		tops := d.store.AllTopOfBook(symbol)
		if len(tops) < 2 {
			continue
		}

		var best *candidate
		now := time.Now()

		for buyExch, buyTop := range tops {
			for sellExch, sellTop := range tops {
				if buyExch == sellExch {
					continue
				}
				if buyTop.Stale(now, staleThreshold, maxLatency) || sellTop.Stale(now, staleThreshold, maxLatency) {
					continue
				}
				if d.onCooldown(buyExch, sellExch, symbol, now) {
					continue
				}

				bestAsk := buyTop.BestAsk
				bestBid := sellTop.BestBid
				if bestAsk.IsZero() || bestAsk.IsNegative() {
					continue
				}

				bestAskF, _ := bestAsk.Float64()
				bestBidF, _ := bestBid.Float64()
				feeBuy := d.fees.TakerFee(buyExch)
				feeSell := d.fees.TakerFee(sellExch)

				// Cheap float64 pre-filter before the decimal-accurate pass:
				// most (A,B) pairs in a wide symbol universe never come close
				// to the threshold, so skip the exact computation for those.
				// Single round trip here (one buy, one sell), not math.go's
				// CalculateNetSpread which assumes an open+close futures pair
				// and would double-count fees.
				fastGross := utils.CalculateSpreadFromPrices(bestAskF, bestBidF)
				fastNet := fastGross - (feeBuy+feeSell)*100
				if !utils.IsSpreadSufficient(fastNet, d.cfg.MinSpreadPct) {
					continue
				}

				grossSpreadPct, _ := bestBid.Sub(bestAsk).Div(bestAsk).Mul(decimal.NewFromInt(100)).Float64()
				if grossSpreadPct <= 0 {
					continue
				}

				netSpreadPct := grossSpreadPct - feeBuy*100 - feeSell*100

				if netSpreadPct < d.cfg.MinSpreadPct {
					continue
				}

				buyDepthUSD := bestAsk.Mul(buyTop.BestAskQty)
				sellDepthUSD := bestBid.Mul(sellTop.BestBidQty)
				minDepth := decimal.NewFromFloat(d.cfg.MinDepthUSD)
				if buyDepthUSD.LessThan(minDepth) || sellDepthUSD.LessThan(minDepth) {
					continue
				}

				shallower := buyDepthUSD
				if sellDepthUSD.LessThan(shallower) {
					shallower = sellDepthUSD
				}
				targetNotional := decimal.NewFromFloat(d.targetNotional())
				availableForScore := decimal.Min(shallower, targetNotional)
				score, _ := decimal.NewFromFloat(netSpreadPct).Mul(availableForScore).Float64()

				if best == nil || score > best.score {
					best = &candidate{
						buyExch: buyExch, sellExch: sellExch,
						grossSpreadPct: grossSpreadPct, netSpreadPct: netSpreadPct,
						buyPrice: bestAsk, sellPrice: bestBid,
						buyDepthUSD: buyDepthUSD, sellDepthUSD: sellDepthUSD,
						score: score,
					}
				}
			}
		}

		if best == nil {
			continue
		}

		d.markCooldown(best.buyExch, best.sellExch, symbol, now)
		metrics.RecordOpportunity(string(models.StrategySpatial), symbol, best.netSpreadPct)
		signals = append(signals, d.buildSignal(symbol, best))
	}

	return signals
}

// targetNotional implements the sizing rule from spec §4.3: starts at
// min(max_position_per_coin_usd, min_depth_usd * 10).
func (d *SpatialDetector) targetNotional() float64 {
	capped := d.cfg.MinDepthUSD * 10
	if d.maxPositionPerCoinUSD > 0 && d.maxPositionPerCoinUSD < capped {
		return d.maxPositionPerCoinUSD
	}
	return capped
}

func (d *SpatialDetector) buildSignal(symbol string, c *candidate) *models.Signal {
	targetNotional := decimal.NewFromFloat(d.targetNotional())
	shallower := c.buyDepthUSD
	if c.sellDepthUSD.LessThan(shallower) {
		shallower = c.sellDepthUSD
	}
	if shallower.LessThan(targetNotional) {
		targetNotional = shallower
	}

	buyQty := targetNotional.Div(c.buyPrice)
	sellQty := targetNotional.Div(c.sellPrice)

	legs := []models.SignalLeg{
		{Exchange: c.buyExch, Symbol: symbol, Side: models.SideBuy, TargetPrice: c.buyPrice, MaxQty: buyQty},
		{Exchange: c.sellExch, Symbol: symbol, Side: models.SideSell, TargetPrice: c.sellPrice, MaxQty: sellQty},
	}

	sig := models.NewSignal(models.StrategySpatial, symbol, legs)
	sig.BuyExchange = c.buyExch
	sig.SellExchange = c.sellExch
	sig.GrossSpreadPct = decimal.NewFromFloat(c.grossSpreadPct)
	sig.NetSpreadPct = decimal.NewFromFloat(c.netSpreadPct)
	sig.NotionalUSD = targetNotional
	sig.OrderbookDepthUSD = shallower
	sig.EstimatedPnlUSD = targetNotional.Mul(decimal.NewFromFloat(c.netSpreadPct)).Div(decimal.NewFromInt(100))
	return sig
}

func cooldownKey(buyExch, sellExch, symbol string) string {
	return buyExch + "|" + sellExch + "|" + symbol
}

func (d *SpatialDetector) onCooldown(buyExch, sellExch, symbol string, now time.Time) bool {
	d.cooldownMu.Lock()
	defer d.cooldownMu.Unlock()
	expiry, ok := d.cooldown[cooldownKey(buyExch, sellExch, symbol)]
	return ok && now.Before(expiry)
}

func (d *SpatialDetector) markCooldown(buyExch, sellExch, symbol string, now time.Time) {
	if d.cfg.PairCooldownSeconds <= 0 {
		return
	}
	d.cooldownMu.Lock()
	d.cooldown[cooldownKey(buyExch, sellExch, symbol)] = now.Add(time.Duration(d.cfg.PairCooldownSeconds) * time.Second)
	d.cooldownMu.Unlock()
}

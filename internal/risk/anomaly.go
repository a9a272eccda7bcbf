package risk

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"arbot/internal/config"
	"arbot/internal/marketstate"
	"arbot/internal/models"
)

const (
	spreadHistoryWindow  = 50
	flashCrashLookback   = 10 * time.Second
)

type pricePoint struct {
	price float64
	at    time.Time
}

// AnomalyDetector rejects signals whose inputs look like bad data or a
// market dislocation rather than a genuine, tradeable opportunity: a leg
// priced far from the cross-exchange median, a spread that's an outlier
// versus its own recent history, or a last-trade price that moved too far
// too fast (flash crash).
type AnomalyDetector struct {
	cfg   config.RiskConfig
	store *marketstate.Store

	mu             sync.Mutex
	spreadHistory  map[string][]float64      // symbol -> recent gross spread observations
	priceHistory   map[string][]pricePoint   // "exchange|symbol" -> recent prices
}

func NewAnomalyDetector(cfg config.RiskConfig) *AnomalyDetector {
	return &AnomalyDetector{
		cfg:           cfg,
		spreadHistory: make(map[string][]float64),
		priceHistory:  make(map[string][]pricePoint),
	}
}

// AttachStore lets the manager wire the market state store after
// construction, since Manager builds all four stages before marketstate
// necessarily exists in cmd/server's startup order.
func (a *AnomalyDetector) AttachStore(store *marketstate.Store) {
	a.mu.Lock()
	a.store = store
	a.mu.Unlock()
}

func (a *AnomalyDetector) Name() string { return "anomaly_detector" }

func (a *AnomalyDetector) Check(_ context.Context, sig *models.Signal, notional float64) (bool, float64, string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if reason := a.checkPriceDeviation(sig); reason != "" {
		return false, 0, reason
	}
	if reason := a.checkSpreadOutlier(sig); reason != "" {
		return false, 0, reason
	}
	if reason := a.checkFlashCrash(sig); reason != "" {
		return false, 0, reason
	}

	a.recordObservations(sig)
	return true, notional, ""
}

func (a *AnomalyDetector) checkPriceDeviation(sig *models.Signal) string {
	if a.store == nil || a.cfg.PriceDeviationThresholdPct <= 0 {
		return ""
	}
	tops := a.store.AllTopOfBook(sig.Symbol)
	if len(tops) < 2 {
		return ""
	}
	mid := make([]float64, 0, len(tops))
	for _, top := range tops {
		bid, _ := top.BestBid.Float64()
		ask, _ := top.BestAsk.Float64()
		if bid > 0 && ask > 0 {
			mid = append(mid, (bid+ask)/2)
		}
	}
	if len(mid) < 2 {
		return ""
	}
	med := median(mid)
	if med <= 0 {
		return ""
	}
	for _, leg := range sig.Legs {
		price, _ := leg.TargetPrice.Float64()
		dev := math.Abs(price-med) / med * 100
		if dev > a.cfg.PriceDeviationThresholdPct {
			return fmt.Sprintf("leg %s@%s deviates %.2f%% from cross-exchange median", leg.Symbol, leg.Exchange, dev)
		}
	}
	return ""
}

func (a *AnomalyDetector) checkSpreadOutlier(sig *models.Signal) string {
	grossSpread, _ := sig.GrossSpreadPct.Float64()

	if a.cfg.MaxSpreadPct > 0 && grossSpread > a.cfg.MaxSpreadPct {
		return fmt.Sprintf("gross spread %.4f%% exceeds max_spread_pct %.4f%%", grossSpread, a.cfg.MaxSpreadPct)
	}

	hist := a.spreadHistory[sig.Symbol]
	if a.cfg.SpreadStdThreshold > 0 && len(hist) >= 5 {
		mean, std := meanStd(hist)
		if std > 0 && math.Abs(grossSpread-mean) > a.cfg.SpreadStdThreshold*std {
			return fmt.Sprintf("gross spread %.4f%% is %.1f std devs from recent mean %.4f%%", grossSpread, math.Abs(grossSpread-mean)/std, mean)
		}
	}
	return ""
}

func (a *AnomalyDetector) checkFlashCrash(sig *models.Signal) string {
	if a.cfg.FlashCrashPct <= 0 {
		return ""
	}
	now := time.Now()
	for _, leg := range sig.Legs {
		key := leg.Exchange + "|" + leg.Symbol
		hist := a.priceHistory[key]
		price, _ := leg.TargetPrice.Float64()
		for _, pt := range hist {
			if now.Sub(pt.at) > flashCrashLookback {
				continue
			}
			if pt.price <= 0 {
				continue
			}
			move := math.Abs(price-pt.price) / pt.price * 100
			if move > a.cfg.FlashCrashPct {
				return fmt.Sprintf("%s@%s moved %.2f%% within %s (flash crash guard)", leg.Symbol, leg.Exchange, move, flashCrashLookback)
			}
		}
	}
	return ""
}

func (a *AnomalyDetector) recordObservations(sig *models.Signal) {
	grossSpread, _ := sig.GrossSpreadPct.Float64()
	hist := append(a.spreadHistory[sig.Symbol], grossSpread)
	if len(hist) > spreadHistoryWindow {
		hist = hist[len(hist)-spreadHistoryWindow:]
	}
	a.spreadHistory[sig.Symbol] = hist

	now := time.Now()
	for _, leg := range sig.Legs {
		key := leg.Exchange + "|" + leg.Symbol
		price, _ := leg.TargetPrice.Float64()
		points := append(a.priceHistory[key], pricePoint{price: price, at: now})
		cutoff := now.Add(-flashCrashLookback)
		trimmed := points[:0]
		for _, pt := range points {
			if pt.at.After(cutoff) {
				trimmed = append(trimmed, pt)
			}
		}
		a.priceHistory[key] = trimmed
	}
}

func median(vals []float64) float64 {
	sorted := append([]float64(nil), vals...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func meanStd(vals []float64) (mean, std float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	mean = sum / float64(len(vals))

	var variance float64
	for _, v := range vals {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(vals))
	return mean, math.Sqrt(variance)
}

package risk

import (
	"context"
	"fmt"
	"sync"

	"arbot/internal/config"
	"arbot/internal/models"
)

// PositionLimits rejects or shrinks a signal's notional to keep exposure
// within the three configured ceilings: per-coin, per-exchange, and total.
// Crossing warning_threshold_pct of any limit still approves the signal
// but emits a warning (handled by Manager, not this stage, since the
// notify channel belongs to the Manager).
type PositionLimits struct {
	cfg config.RiskConfig

	mu                sync.Mutex
	exposureByCoin     map[string]float64
	exposureByExchange map[string]float64
	totalExposure      float64

	advisor NetworkAdvisor

	// WarningRaised is set by the most recent Check so Manager can notify
	// without PositionLimits itself needing a notification channel.
	WarningRaised bool
}

func NewPositionLimits(cfg config.RiskConfig) *PositionLimits {
	return &PositionLimits{
		cfg:                cfg,
		exposureByCoin:     make(map[string]float64),
		exposureByExchange: make(map[string]float64),
		advisor:            NoOpNetworkAdvisor{},
	}
}

// AttachNetworkAdvisor swaps in a real in-transit-balance advisor. Left
// unset, every balance is treated as fully withdrawable.
func (p *PositionLimits) AttachNetworkAdvisor(advisor NetworkAdvisor) {
	p.mu.Lock()
	p.advisor = advisor
	p.mu.Unlock()
}

func (p *PositionLimits) Name() string { return "position_limits" }

// economicMinimumUSD is the floor below which reducing a signal's notional
// stops being worth the round-trip cost; shrinking below it is treated as
// a rejection rather than a tiny execution.
const economicMinimumUSD = 10

func (p *PositionLimits) Check(_ context.Context, sig *models.Signal, notional float64) (bool, float64, string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	coin := baseAsset(sig)
	exchanges := exchangesOf(sig)

	adjusted := notional
	if p.cfg.MaxPositionPerCoinUSD > 0 {
		headroom := p.cfg.MaxPositionPerCoinUSD - p.exposureByCoin[coin]
		if headroom <= 0 {
			return false, 0, fmt.Sprintf("max_position_per_coin_usd reached for %s", coin)
		}
		if headroom < adjusted {
			adjusted = headroom
		}
	}
	for _, ex := range exchanges {
		if p.cfg.MaxPositionPerExchangeUSD > 0 {
			headroom := p.cfg.MaxPositionPerExchangeUSD - p.exposureByExchange[ex]
			if headroom <= 0 {
				return false, 0, fmt.Sprintf("max_position_per_exchange_usd reached for %s", ex)
			}
			if headroom < adjusted {
				adjusted = headroom
			}
		}
	}
	if p.cfg.MaxTotalExposureUSD > 0 {
		headroom := p.cfg.MaxTotalExposureUSD - p.totalExposure
		if headroom <= 0 {
			return false, 0, "max_total_exposure_usd reached"
		}
		if headroom < adjusted {
			adjusted = headroom
		}
	}

	// A network advisor caps the new position to whatever of that exchange's
	// balance isn't currently flagged in-transit, so a fresh position never
	// outsizes what could actually be pulled back off that exchange later.
	for _, ex := range exchanges {
		if withdrawable := p.advisor.WithdrawableBalanceUSD(ex, coin, adjusted); withdrawable < adjusted {
			adjusted = withdrawable
		}
	}

	if adjusted < economicMinimumUSD {
		return false, 0, "adjusted notional below economic minimum after limit shrinkage"
	}

	p.WarningRaised = p.crossesWarningThreshold(coin, exchanges, adjusted)
	return true, adjusted, ""
}

func (p *PositionLimits) crossesWarningThreshold(coin string, exchanges []string, notional float64) bool {
	if p.cfg.WarningThresholdPct <= 0 {
		return false
	}
	threshold := p.cfg.WarningThresholdPct / 100
	if p.cfg.MaxPositionPerCoinUSD > 0 && (p.exposureByCoin[coin]+notional) >= p.cfg.MaxPositionPerCoinUSD*threshold {
		return true
	}
	if p.cfg.MaxTotalExposureUSD > 0 && (p.totalExposure+notional) >= p.cfg.MaxTotalExposureUSD*threshold {
		return true
	}
	for _, ex := range exchanges {
		if p.cfg.MaxPositionPerExchangeUSD > 0 && (p.exposureByExchange[ex]+notional) >= p.cfg.MaxPositionPerExchangeUSD*threshold {
			return true
		}
	}
	return false
}

// Open records notional as newly-opened exposure once Execution confirms a fill.
func (p *PositionLimits) Open(sig *models.Signal, notional float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	coin := baseAsset(sig)
	p.exposureByCoin[coin] += notional
	p.totalExposure += notional
	for _, ex := range exchangesOf(sig) {
		p.exposureByExchange[ex] += notional
	}
}

// Close releases notional once both legs are closed/flattened.
func (p *PositionLimits) Close(sig *models.Signal, notional float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	coin := baseAsset(sig)
	p.exposureByCoin[coin] -= notional
	p.totalExposure -= notional
	for _, ex := range exchangesOf(sig) {
		p.exposureByExchange[ex] -= notional
	}
}

func baseAsset(sig *models.Signal) string {
	for _, leg := range sig.Legs {
		if idx := indexOfSlash(leg.Symbol); idx >= 0 {
			return leg.Symbol[:idx]
		}
	}
	return sig.Symbol
}

func indexOfSlash(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == '/' {
			return i
		}
	}
	return -1
}

func exchangesOf(sig *models.Signal) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, leg := range sig.Legs {
		if _, ok := seen[leg.Exchange]; !ok {
			seen[leg.Exchange] = struct{}{}
			out = append(out, leg.Exchange)
		}
	}
	return out
}

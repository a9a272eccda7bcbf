package risk

import (
	"context"
	"fmt"
	"sync"
	"time"

	"arbot/internal/config"
	"arbot/internal/models"
)

// DrawdownMonitor tracks the equity high-water-mark and today's realized
// PnL, rejecting all new signals once either breaches its configured
// ceiling. Day boundary is 00:00 UTC, per spec.md §4.4.
type DrawdownMonitor struct {
	cfg config.RiskConfig

	mu                 sync.Mutex
	highWaterMark       float64
	currentEquity       float64
	dayStart            time.Time
	startOfDayEquity    float64
	dailyRealizedPnlUSD float64
}

func NewDrawdownMonitor(cfg config.RiskConfig) *DrawdownMonitor {
	return &DrawdownMonitor{cfg: cfg, dayStart: dayBoundary(time.Now().UTC())}
}

func (d *DrawdownMonitor) Name() string { return "drawdown_monitor" }

func dayBoundary(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Update records a new equity mark and realized PnL, resetting the daily
// counters atomically when the UTC day rolls over.
func (d *DrawdownMonitor) Update(equityUSD, realizedPnlUSD float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now().UTC()
	if today := dayBoundary(now); today.After(d.dayStart) {
		d.dayStart = today
		d.startOfDayEquity = equityUSD
		d.dailyRealizedPnlUSD = 0
	}
	if d.startOfDayEquity == 0 {
		d.startOfDayEquity = equityUSD
	}

	d.currentEquity = equityUSD
	d.dailyRealizedPnlUSD += realizedPnlUSD
	if equityUSD > d.highWaterMark {
		d.highWaterMark = equityUSD
	}
}

// SeedEquity primes the high-water-mark at startup from the portfolio
// valuation, before any trade has happened this process lifetime.
func (d *DrawdownMonitor) SeedEquity(equityUSD float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.currentEquity = equityUSD
	d.startOfDayEquity = equityUSD
	if equityUSD > d.highWaterMark {
		d.highWaterMark = equityUSD
	}
}

// DrawdownPct returns the current (HWM - equity) / HWM as a percentage
// (0-100), or 0 if no HWM yet.
func (d *DrawdownMonitor) DrawdownPct() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.drawdownPctLocked()
}

func (d *DrawdownMonitor) drawdownPctLocked() float64 {
	if d.highWaterMark <= 0 {
		return 0
	}
	dd := (d.highWaterMark - d.currentEquity) / d.highWaterMark
	if dd < 0 {
		return 0
	}
	return dd * 100
}

func (d *DrawdownMonitor) Check(_ context.Context, _ *models.Signal, notional float64) (bool, float64, string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cfg.MaxDrawdownPct > 0 {
		if dd := d.drawdownPctLocked(); dd >= d.cfg.MaxDrawdownPct {
			return false, 0, fmt.Sprintf("drawdown %.2f%% >= max_drawdown_pct %.2f%%", dd, d.cfg.MaxDrawdownPct)
		}
	}

	if d.cfg.MaxDailyLossUSD > 0 && d.dailyRealizedPnlUSD <= -d.cfg.MaxDailyLossUSD {
		return false, 0, fmt.Sprintf("daily realized pnl %.2f <= -max_daily_loss_usd %.2f", d.dailyRealizedPnlUSD, d.cfg.MaxDailyLossUSD)
	}
	if d.cfg.MaxDailyLossPct > 0 && d.startOfDayEquity > 0 {
		lossPct := -d.dailyRealizedPnlUSD / d.startOfDayEquity * 100
		if lossPct >= d.cfg.MaxDailyLossPct {
			return false, 0, fmt.Sprintf("daily loss %.2f%% >= max_daily_loss_pct %.2f%%", lossPct, d.cfg.MaxDailyLossPct)
		}
	}

	return true, notional, ""
}

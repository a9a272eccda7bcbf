// Package risk implements the four-stage gate every Signal passes through
// before the execution engine acts on it: Position Limits, Drawdown
// Monitor, Anomaly Detector, Circuit Breaker.
//
// Structurally this follows the teacher's RiskManager (internal/bot/
// risk.go): a config struct, a notification channel for operator-facing
// events, and mutex-protected caches instead of a database round trip on
// the hot path. What changes is the domain: the teacher's RiskManager
// watched margin/liquidation on open futures positions; this one gates
// signals before they ever become an order, per spec's four stages.
package risk

import (
	"context"
	"time"

	"arbot/internal/config"
	"arbot/internal/marketstate"
	"arbot/internal/metrics"
	"arbot/internal/models"
	"github.com/shopspring/decimal"
)

// Stage is one of the four serially-applied checks. A stage may adjust
// the notional (Position Limits shrinking to fit a limit) but never
// increase it.
type Stage interface {
	Name() string
	Check(ctx context.Context, sig *models.Signal, notional float64) (approved bool, adjustedNotional float64, reason string)
}

// Manager runs a Signal through all four stages in order, short-circuiting
// on the first rejection, exactly as spec.md §4.4 requires.
type Manager struct {
	position *PositionLimits
	drawdown *DrawdownMonitor
	anomaly  *AnomalyDetector
	breaker  *CircuitBreaker

	notifyChan chan<- *models.Notification
	mode       string // paper | live, from config.System.ExecutionMode
}

// New wires the four stages from RiskConfig. notifyChan may be nil, in
// which case warning/trip events are simply dropped (unit tests do this).
func New(cfg config.RiskConfig, executionMode string, notifyChan chan<- *models.Notification) *Manager {
	return &Manager{
		position:   NewPositionLimits(cfg),
		drawdown:   NewDrawdownMonitor(cfg),
		anomaly:    NewAnomalyDetector(cfg),
		breaker:    NewCircuitBreaker(cfg),
		notifyChan: notifyChan,
		mode:       executionMode,
	}
}

func (m *Manager) notify(notifType, severity, signalID, message string) {
	if m.notifyChan == nil {
		return
	}
	n := &models.Notification{
		Timestamp: time.Now().UTC(),
		Type:      notifType,
		Severity:  severity,
		SignalID:  signalID,
		Message:   message,
	}
	select {
	case m.notifyChan <- n:
	default:
		// Notification channel is best-effort; a full channel must never
		// block risk evaluation on the hot path.
	}
}

// Evaluate runs sig through the pipeline and returns the resulting decision.
// The starting notional is the detector's proposal (sig.NotionalUSD);
// stages may reduce it but never increase it.
func (m *Manager) Evaluate(ctx context.Context, sig *models.Signal) *models.RiskDecision {
	notional, _ := sig.NotionalUSD.Float64()

	stages := []Stage{m.position, m.drawdown, m.anomaly, m.breaker}
	for _, stage := range stages {
		approved, adjusted, reason := stage.Check(ctx, sig, notional)
		if !approved {
			// Circuit breaker rejections are advisory-only in Paper mode.
			if stage.Name() == "circuit_breaker" && m.mode == "paper" {
				m.notify(models.NotificationTypeCircuitWarning, models.SeverityWarn, sig.ID,
					"circuit breaker would reject in live mode: "+reason)
				continue
			}
			metrics.RecordRiskRejection(string(sig.Strategy), stage.Name())
			m.notify(models.NotificationTypeSignalRejected, models.SeverityWarn, sig.ID, reason)
			return &models.RiskDecision{Approved: false, Reason: reason}
		}
		notional = adjusted
		if stage.Name() == "position_limits" {
			m.position.mu.Lock()
			warn := m.position.WarningRaised
			m.position.mu.Unlock()
			if warn {
				m.notify(models.NotificationTypeMargin, models.SeverityWarn, sig.ID,
					"position limits: warning_threshold_pct crossed")
			}
		}
	}

	metrics.RecordRiskApproval(string(sig.Strategy))
	return &models.RiskDecision{Approved: true, AdjustedNotionalUSD: decimal.NewFromFloat(notional)}
}

// RecordOutcome feeds a closed trade's realized PnL back into the drawdown
// monitor and circuit breaker, per spec.md §4.4/§4.5.
func (m *Manager) RecordOutcome(equityUSD, realizedPnlUSD float64) {
	m.drawdown.Update(equityUSD, realizedPnlUSD)
	if realizedPnlUSD <= 0 {
		if tripped := m.breaker.RecordLoss(); tripped {
			metrics.RecordCircuitTrip("consecutive_loss_limit")
			m.notify(models.NotificationTypeCircuitTripped, models.SeverityError, "",
				"circuit breaker tripped: consecutive loss limit reached")
		}
	} else {
		m.breaker.RecordWin()
	}
}

// State exposes the current circuit breaker snapshot for the control surface.
func (m *Manager) State() models.CircuitState {
	return m.breaker.State()
}

// ResetBreaker is the operator-triggered manual reset (Tripped -> Normal).
func (m *Manager) ResetBreaker() {
	m.breaker.Reset()
}

// AttachMarketStore wires the anomaly detector's cross-exchange median
// check to the live market state store, once one exists.
func (m *Manager) AttachMarketStore(store *marketstate.Store) {
	m.anomaly.AttachStore(store)
}

// SeedEquity primes the drawdown monitor's high-water-mark at startup.
func (m *Manager) SeedEquity(equityUSD float64) {
	m.drawdown.SeedEquity(equityUSD)
}

// AttachNetworkAdvisor wires a real in-transit-balance source into Position
// Limits. Left unattached, every balance is treated as withdrawable.
func (m *Manager) AttachNetworkAdvisor(advisor NetworkAdvisor) {
	m.position.AttachNetworkAdvisor(advisor)
}

// OpenPosition records notional as newly-opened exposure once the execution
// engine confirms a fill; ClosePosition releases it once flattened.
func (m *Manager) OpenPosition(sig *models.Signal, notionalUSD float64) {
	m.position.Open(sig, notionalUSD)
}

func (m *Manager) ClosePosition(sig *models.Signal, notionalUSD float64) {
	m.position.Close(sig, notionalUSD)
}

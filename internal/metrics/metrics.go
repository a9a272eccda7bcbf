// Package metrics exposes the Prometheus gauges, counters, and histograms
// the pipeline, risk, and execution packages update as signals move
// through the system.
//
// Adapted from the teacher's internal/bot/metrics.go: same registration
// style (promauto, arbitrage/trading namespace), retargeted from a
// leveraged-futures position lifecycle to the spot signal pipeline —
// tick_to_order latency becomes signal_to_order latency, active_arbitrages
// becomes active_signals, stop_loss/liquidation counters become circuit
// breaker and risk-rejection counters.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ============ Latency ============

// SignalToOrderLatency is the time from detector emission to order
// submission, broken down by pipeline stage (queued, risk, execution).
var SignalToOrderLatency = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "arbitrage",
		Subsystem: "trading",
		Name:      "signal_to_order_latency_ms",
		Help:      "Latency from signal detection to order submission in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250},
	},
	[]string{"strategy", "stage"},
)

// OrderExecutionLatency is the time an exchange takes to fill or reject
// a submitted order.
var OrderExecutionLatency = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "arbitrage",
		Subsystem: "trading",
		Name:      "order_execution_latency_ms",
		Help:      "Time to execute order on exchange in milliseconds",
		Buckets:   []float64{50, 100, 200, 300, 500, 1000, 2000, 5000},
	},
	[]string{"exchange", "side"},
)

// ============ Signal pipeline counters ============

// SignalsProcessed counts signals by pipeline stage outcome.
var SignalsProcessed = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "arbitrage",
		Subsystem: "trading",
		Name:      "signals_processed_total",
		Help:      "Total number of signals processed, by stage",
	},
	[]string{"strategy", "stage"}, // stage: detected, risk_approved, risk_rejected, executed, failed
)

// QueueDropped counts signals dropped by the drop-oldest queue policy.
var QueueDropped = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "arbitrage",
		Subsystem: "trading",
		Name:      "signal_queue_dropped_total",
		Help:      "Number of signals dropped from the signal queue under backpressure",
	},
	[]string{"strategy"},
)

// RiskRejections counts signals rejected by each risk stage.
var RiskRejections = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "arbitrage",
		Subsystem: "risk",
		Name:      "rejections_total",
		Help:      "Number of signals rejected, by risk stage",
	},
	[]string{"stage"},
)

// CircuitBreakerTrips counts circuit breaker state transitions to tripped.
var CircuitBreakerTrips = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "arbitrage",
		Subsystem: "risk",
		Name:      "circuit_breaker_trips_total",
		Help:      "Number of times the circuit breaker tripped, by reason",
	},
	[]string{"reason"},
)

// TradesTotal counts completed trades by outcome.
var TradesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "arbitrage",
		Subsystem: "trading",
		Name:      "trades_total",
		Help:      "Total number of trades",
	},
	[]string{"symbol", "result"}, // result: both_filled, both_partial, partial_imbalance, one_filled_one_failed, both_failed
)

// PnlTotal is the cumulative realized PnL in USD.
var PnlTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "arbitrage",
		Subsystem: "trading",
		Name:      "pnl_total_usd",
		Help:      "Total realized PnL in USD",
	},
)

// OpportunitiesDetected counts raw detector output before risk gating.
var OpportunitiesDetected = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "arbitrage",
		Subsystem: "trading",
		Name:      "opportunities_detected_total",
		Help:      "Number of arbitrage opportunities detected, by strategy",
	},
	[]string{"strategy", "symbol"},
)

// SpreadObserved histograms the net spread percentage a detector computed.
var SpreadObserved = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "arbitrage",
		Subsystem: "trading",
		Name:      "spread_observed_percent",
		Help:      "Observed net spread values in percent",
		Buckets:   []float64{-1, -0.5, 0, 0.1, 0.2, 0.3, 0.5, 1, 2, 5},
	},
	[]string{"strategy", "symbol"},
)

// ============ Gauges ============

// ActiveSignals is the number of signals currently in flight (queued or
// executing), by state.
var ActiveSignals = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "arbitrage",
		Subsystem: "trading",
		Name:      "active_signals",
		Help:      "Number of signals currently in flight, by state",
	},
	[]string{"state"},
)

// ExchangeConnections reports per-exchange connectivity (1=connected).
var ExchangeConnections = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "arbitrage",
		Subsystem: "exchange",
		Name:      "connection_status",
		Help:      "Exchange connection status (1=connected, 0=disconnected)",
	},
	[]string{"exchange"},
)

// ExchangeBalance reports the last known balance per exchange, in USD.
var ExchangeBalance = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "arbitrage",
		Subsystem: "exchange",
		Name:      "balance_usd",
		Help:      "Exchange balance in USD",
	},
	[]string{"exchange"},
)

// SignalQueueSize is the current depth of the risk-stage handoff queue.
var SignalQueueSize = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "arbitrage",
		Subsystem: "trading",
		Name:      "signal_queue_size",
		Help:      "Current size of the detector-to-risk signal queue",
	},
)

// ============ Helpers ============

// RecordOpportunity records a detector firing, before risk evaluation.
func RecordOpportunity(strategy, symbol string, spreadPct float64) {
	OpportunitiesDetected.WithLabelValues(strategy, symbol).Inc()
	SpreadObserved.WithLabelValues(strategy, symbol).Observe(spreadPct)
	SignalsProcessed.WithLabelValues(strategy, "detected").Inc()
}

// RecordQueueDrop records the drop-oldest policy discarding a signal.
func RecordQueueDrop(strategy string) {
	QueueDropped.WithLabelValues(strategy).Inc()
}

// RecordRiskRejection records a signal rejected at the named risk stage.
func RecordRiskRejection(strategy, stage string) {
	RiskRejections.WithLabelValues(stage).Inc()
	SignalsProcessed.WithLabelValues(strategy, "risk_rejected").Inc()
}

// RecordRiskApproval records a signal clearing all risk stages.
func RecordRiskApproval(strategy string) {
	SignalsProcessed.WithLabelValues(strategy, "risk_approved").Inc()
}

// RecordCircuitTrip records the circuit breaker tripping.
func RecordCircuitTrip(reason string) {
	CircuitBreakerTrips.WithLabelValues(reason).Inc()
}

// RecordTrade records a completed trade and its realized PnL.
func RecordTrade(symbol, result string, pnl float64) {
	TradesTotal.WithLabelValues(symbol, result).Inc()
	PnlTotal.Add(pnl)
}

// Handler returns the HTTP handler serving the process's registered
// Prometheus metrics on the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// UpdateExchangeStatus updates connection and balance gauges for an
// exchange.
func UpdateExchangeStatus(exchange string, connected bool, balance float64) {
	if connected {
		ExchangeConnections.WithLabelValues(exchange).Set(1)
	} else {
		ExchangeConnections.WithLabelValues(exchange).Set(0)
	}
	ExchangeBalance.WithLabelValues(exchange).Set(balance)
}

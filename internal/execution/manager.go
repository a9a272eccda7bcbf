package execution

import (
	"context"
	"errors"
	"sync"
	"time"

	"arbot/internal/config"
	"arbot/internal/exchange"
	"arbot/internal/metrics"
	"arbot/internal/models"
)

// ErrStopped is returned by Manager.Execute once Stop has been called; no
// further signals are accepted after an emergency stop.
var ErrStopped = errors.New("execution: manager is stopped")

// Manager is the single entry point the pipeline hands approved signals to.
// It picks Paper or Live per the execution mode it was built with, remembers
// resting orders so Stop can cancel them, records the exchange order ID of
// every placed order for dedup (the key is the order ID, not a per-fill ID),
// and implements the emergency stop the control surface can trigger.
type Manager struct {
	mode     models.ExecutionMode
	paper    *PaperExecutor
	live     *LiveExecutor
	cfg      config.ExecutionConfig

	mu       sync.RWMutex
	stopped  bool
	seenFill map[string]bool // ExchangeOrderID of orders already recorded in a TradeRecord

	openOrdersMu sync.Mutex
	openOrders   []openOrder
}

type openOrder struct {
	exchange        string
	symbol          string
	exchangeOrderID string
}

// NewManager wires both executors; the unused one is cheap to construct.
// The mode is fixed for the Manager's lifetime: nothing switches it after
// construction.
func NewManager(mode models.ExecutionMode, paper *PaperExecutor, live *LiveExecutor, cfg config.ExecutionConfig) *Manager {
	return &Manager{
		mode:     mode,
		paper:    paper,
		live:     live,
		cfg:      cfg,
		seenFill: make(map[string]bool),
	}
}

// Execute dispatches to the configured executor and records any orders it
// placed so Stop can cancel them if they're still resting.
func (m *Manager) Execute(ctx context.Context, sig *models.Signal, decision *models.RiskDecision) (*models.TradeRecord, error) {
	m.mu.RLock()
	stopped := m.stopped
	m.mu.RUnlock()
	if stopped {
		return nil, ErrStopped
	}

	var record *models.TradeRecord
	var err error
	switch m.mode {
	case models.ModeLive:
		record, err = m.live.Execute(ctx, sig, decision)
	default:
		record, err = m.paper.Execute(ctx, sig, decision)
	}
	if err != nil {
		return nil, err
	}

	m.trackOrders(record)
	m.dedupFills(record)

	pnl, _ := record.RealizedPnl.Float64()
	symbol := sig.Symbol
	metrics.RecordTrade(symbol, string(record.Outcome), pnl)

	return record, nil
}

// trackOrders remembers any order still resting (OPEN/PENDING) so an
// emergency stop can cancel it.
func (m *Manager) trackOrders(record *models.TradeRecord) {
	m.openOrdersMu.Lock()
	defer m.openOrdersMu.Unlock()
	for _, o := range record.Orders {
		if o.State == models.OrderOpen || o.State == models.OrderPending {
			m.openOrders = append(m.openOrders, openOrder{exchange: o.Exchange, symbol: o.Symbol, exchangeOrderID: o.ExchangeOrderID})
		}
	}
}

// dedupFills marks the ExchangeOrderID of each order in the record as seen;
// orders without one (paper orders) are skipped. Dedup is per exchange order
// ID, not per individual fill.
func (m *Manager) dedupFills(record *models.TradeRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range record.Orders {
		if record.Orders[i].ExchangeOrderID == "" {
			continue
		}
		m.seenFill[record.Orders[i].ExchangeOrderID] = true
	}
}

// AlreadySeen reports whether the given ID matches an ExchangeOrderID that
// dedupFills has already recorded from a TradeRecord.
func (m *Manager) AlreadySeen(exchangeFillID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.seenFill[exchangeFillID]
}

// Stop performs the emergency stop: reject every new signal from this
// instant, cancel every order still resting on an exchange, and return once
// that's done or the configured grace period elapses, whichever is first.
func (m *Manager) Stop(ctx context.Context, exchanges map[string]exchange.Exchange) error {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()

	timeout := time.Duration(m.cfg.EmergencyStopSeconds) * time.Second
	stopCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	m.openOrdersMu.Lock()
	orders := m.openOrders
	m.openOrders = nil
	m.openOrdersMu.Unlock()

	var wg sync.WaitGroup
	for _, o := range orders {
		exch, ok := exchanges[o.exchange]
		if !ok || o.exchangeOrderID == "" {
			continue
		}
		wg.Add(1)
		go func(exch exchange.Exchange, symbol, orderID string) {
			defer wg.Done()
			_ = exch.CancelOrder(stopCtx, symbol, orderID)
		}(exch, o.symbol, o.exchangeOrderID)
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()

	select {
	case <-done:
		return nil
	case <-stopCtx.Done():
		return stopCtx.Err()
	}
}

// Stopped reports whether Stop has already been called.
func (m *Manager) Stopped() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stopped
}

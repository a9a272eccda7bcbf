// Package engine runs the detect -> risk -> execute loop and is the
// concrete BotEngine the control-surface API talks to (service.PairService's
// BotEngine interface). Grounded on the teacher's internal/bot/engine.go:
// same per-pair state machine and a dedicated goroutine pumping the queue,
// retargeted from a leveraged-futures position engine onto the spot signal
// pipeline assembled in cmd/server/main.go (marketstate.Store, the two
// detectors, risk.Manager, execution.Manager, pipeline.SignalQueue).
package engine

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"arbot/internal/detector"
	"arbot/internal/execution"
	"arbot/internal/marketstate"
	"arbot/internal/models"
	"arbot/internal/pipeline"
	"arbot/internal/risk"
)

// ErrPairNotTracked is returned by the per-pair control methods when the
// given pair ID hasn't been registered with AddPair.
var ErrPairNotTracked = errors.New("engine: pair is not tracked")

// TradeRecorder persists a completed trade and feeds its outcome back into
// risk. Satisfied by *repository.TradeRepository plus the risk manager.
type TradeRecorder interface {
	Create(record *models.TradeRecord) (int, error)
}

// Notifier is the subset of NotificationService the engine needs; it never
// touches WebSocketBroadcaster or settings directly.
type Notifier interface {
	CreateNotification(notif *models.Notification) error
}

// Broadcaster pushes a pair's runtime state to connected dashboard clients.
type Broadcaster interface {
	BroadcastPairUpdate(pairID int, runtime *models.PairRuntime)
}

// pairState is the engine's live bookkeeping for one tracked symbol.
type pairState struct {
	mu      sync.Mutex
	cfg     *models.PairConfig
	runtime *models.PairRuntime
}

// Engine owns every running pair's state machine and the background
// goroutines driving detection and execution.
type Engine struct {
	store      *marketstate.Store
	detectors  []detector.Detector
	riskMgr    *risk.Manager
	execMgr    *execution.Manager
	queue      *pipeline.SignalQueue
	tradeRepo  TradeRecorder
	notifier   Notifier
	broadcast  Broadcaster

	detectInterval time.Duration
	workers        int

	mu    sync.RWMutex
	pairs map[int]*pairState // pairID -> state
	bySym map[string]int     // symbol -> pairID, for routing a detected Signal

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New assembles the engine from the components wired in cmd/server/main.go.
func New(
	store *marketstate.Store,
	detectors []detector.Detector,
	riskMgr *risk.Manager,
	execMgr *execution.Manager,
	queue *pipeline.SignalQueue,
	tradeRepo TradeRecorder,
	notifier Notifier,
	broadcast Broadcaster,
	detectInterval time.Duration,
	workers int,
) *Engine {
	if workers < 1 {
		workers = 1
	}
	return &Engine{
		store:          store,
		detectors:      detectors,
		riskMgr:        riskMgr,
		execMgr:        execMgr,
		queue:          queue,
		tradeRepo:      tradeRepo,
		notifier:       notifier,
		broadcast:      broadcast,
		detectInterval: detectInterval,
		workers:        workers,
		pairs:          make(map[int]*pairState),
		bySym:          make(map[string]int),
	}
}

// Run starts the detect ticker and the execution workers; it returns once
// ctx is cancelled and every worker has drained.
func (e *Engine) Run(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	e.wg.Add(1)
	go e.detectLoop(runCtx)

	for i := 0; i < e.workers; i++ {
		e.wg.Add(1)
		go e.executeLoop(runCtx)
	}

	<-runCtx.Done()
	e.wg.Wait()
}

// Stop cancels the detect/execute loops and waits for them to exit.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
}

func (e *Engine) detectLoop(ctx context.Context) {
	defer e.wg.Done()
	ticker := time.NewTicker(e.detectInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.detectOnce()
		}
	}
}

// detectOnce runs every configured detector once and enqueues whatever it
// finds for a tracked, READY pair. A signal for an untracked symbol (not
// configured as a pair, or paused) is dropped at the door.
func (e *Engine) detectOnce() {
	for _, d := range e.detectors {
		for _, sig := range d.Detect() {
			pairID, ok := e.routableSymbol(sig.Symbol)
			if !ok {
				continue
			}
			if !e.markEntering(pairID, sig) {
				continue
			}
			e.queue.Enqueue(sig)
		}
	}
}

// routableSymbol reports the pair ID tracking symbol, if any.
func (e *Engine) routableSymbol(symbol string) (int, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	id, ok := e.bySym[symbol]
	return id, ok
}

// markEntering transitions a READY pair to ENTERING and attaches the signal
// it's about to execute; returns false if the pair isn't tracked or isn't
// READY (already has a signal in flight, or paused).
func (e *Engine) markEntering(pairID int, sig *models.Signal) bool {
	e.mu.RLock()
	ps, ok := e.pairs[pairID]
	e.mu.RUnlock()
	if !ok {
		return false
	}
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.runtime.State != models.StateReady {
		return false
	}
	ps.runtime.State = models.StateEntering
	ps.runtime.ActiveSignal = sig
	ps.runtime.LastUpdate = time.Now()
	return true
}

func (e *Engine) executeLoop(ctx context.Context) {
	defer e.wg.Done()
	for {
		sig, ok := e.queue.Dequeue(ctx)
		if !ok {
			return
		}
		e.process(ctx, sig)
	}
}

// process runs one dequeued signal through risk, then execution, then
// persists and broadcasts the outcome, returning the owning pair to READY.
func (e *Engine) process(ctx context.Context, sig *models.Signal) {
	pairID, ok := e.routableSymbol(sig.Symbol)
	if !ok {
		return
	}

	decision := e.riskMgr.Evaluate(ctx, sig)
	if !decision.Approved {
		e.returnToReady(pairID, nil)
		return
	}

	notional, _ := decision.AdjustedNotionalUSD.Float64()
	e.riskMgr.OpenPosition(sig, notional)

	record, err := e.execMgr.Execute(ctx, sig, decision)
	e.riskMgr.ClosePosition(sig, notional)
	if err != nil {
		log.Printf("engine: execution failed for signal %s: %v", sig.ID, err)
		e.notify(models.NotificationTypeError, models.SeverityError, pairID, sig.ID, "execution failed: "+err.Error())
		e.returnToReady(pairID, nil)
		return
	}

	if e.tradeRepo != nil {
		if _, err := e.tradeRepo.Create(record); err != nil {
			log.Printf("engine: failed to persist trade for signal %s: %v", sig.ID, err)
		}
	}

	pnl, _ := record.RealizedPnl.Float64()
	e.riskMgr.RecordOutcome(notional, pnl)

	notifType := models.NotificationTypeClose
	severity := models.SeverityInfo
	if record.IsLoss {
		notifType = models.NotificationTypeSL
		severity = models.SeverityWarn
	}
	e.notify(notifType, severity, pairID, sig.ID, "signal closed: "+string(record.Outcome))

	e.returnToReady(pairID, record)
}

// returnToReady transitions a pair back to READY and folds record's realized
// PnL into the pair's running totals, if present.
func (e *Engine) returnToReady(pairID int, record *models.TradeRecord) {
	e.mu.RLock()
	ps, ok := e.pairs[pairID]
	e.mu.RUnlock()
	if !ok {
		return
	}
	ps.mu.Lock()
	ps.runtime.ActiveSignal = nil
	ps.runtime.FilledParts = 0
	ps.runtime.Legs = nil
	if record != nil {
		pnl, _ := record.RealizedPnl.Float64()
		ps.runtime.RealizedPnl += pnl
		ps.runtime.UnrealizedPnl = 0
	}
	if ps.cfg.Status == models.PairStatusActive {
		ps.runtime.State = models.StateReady
	} else {
		ps.runtime.State = models.StatePaused
	}
	ps.runtime.LastUpdate = time.Now()
	runtimeCopy := *ps.runtime
	ps.mu.Unlock()

	if e.broadcast != nil {
		e.broadcast.BroadcastPairUpdate(pairID, &runtimeCopy)
	}
}

func (e *Engine) notify(notifType, severity string, pairID int, signalID, message string) {
	if e.notifier == nil {
		return
	}
	id := pairID
	if err := e.notifier.CreateNotification(&models.Notification{
		Timestamp: time.Now().UTC(),
		Type:      notifType,
		Severity:  severity,
		PairID:    &id,
		SignalID:  signalID,
		Message:   message,
	}); err != nil {
		log.Printf("engine: failed to create notification: %v", err)
	}
}

// AddPair registers a pair for detection/execution in the PAUSED state; the
// operator must StartPair to begin monitoring it.
func (e *Engine) AddPair(cfg *models.PairConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pairs[cfg.ID] = &pairState{
		cfg: cfg,
		runtime: &models.PairRuntime{
			PairID:     cfg.ID,
			State:      models.StatePaused,
			LastUpdate: time.Now(),
		},
	}
	e.bySym[cfg.Symbol] = cfg.ID
}

// RemovePair stops tracking a pair entirely; any signal already in flight
// for it still runs to completion, but process will no longer find a route.
func (e *Engine) RemovePair(pairID int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ps, ok := e.pairs[pairID]; ok {
		delete(e.bySym, ps.cfg.Symbol)
	}
	delete(e.pairs, pairID)
}

// StartPair moves a pair from PAUSED to READY, making it eligible for
// detection. Returns an error if the pair isn't tracked.
func (e *Engine) StartPair(pairID int) error {
	e.mu.RLock()
	ps, ok := e.pairs[pairID]
	e.mu.RUnlock()
	if !ok {
		return ErrPairNotTracked
	}
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.cfg.Status = models.PairStatusActive
	if ps.runtime.State == models.StatePaused {
		ps.runtime.State = models.StateReady
	}
	ps.runtime.LastUpdate = time.Now()
	return nil
}

// PausePair stops new signals from being entered for a pair without closing
// any position already in flight; it takes effect once that signal resolves.
func (e *Engine) PausePair(pairID int) error {
	e.mu.RLock()
	ps, ok := e.pairs[pairID]
	e.mu.RUnlock()
	if !ok {
		return ErrPairNotTracked
	}
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.cfg.Status = models.PairStatusPaused
	if ps.runtime.State == models.StateReady {
		ps.runtime.State = models.StatePaused
	}
	ps.runtime.LastUpdate = time.Now()
	return nil
}

// GetPairRuntime returns a snapshot of a tracked pair's runtime, or nil if
// the pair isn't tracked.
func (e *Engine) GetPairRuntime(pairID int) *models.PairRuntime {
	e.mu.RLock()
	ps, ok := e.pairs[pairID]
	e.mu.RUnlock()
	if !ok {
		return nil
	}
	ps.mu.Lock()
	defer ps.mu.Unlock()
	runtimeCopy := *ps.runtime
	return &runtimeCopy
}

// UpdatePairConfig swaps in a revised config for a tracked pair. Per
// spec.md's hot-reload rule, a change only takes effect once the pair
// returns to READY; a pair mid-signal keeps running against the old config
// until this one resolves.
func (e *Engine) UpdatePairConfig(pairID int, cfg *models.PairConfig) {
	e.mu.Lock()
	ps, ok := e.pairs[pairID]
	if ok && ps.cfg.Symbol != cfg.Symbol {
		delete(e.bySym, ps.cfg.Symbol)
		e.bySym[cfg.Symbol] = pairID
	}
	e.mu.Unlock()
	if !ok {
		return
	}
	ps.mu.Lock()
	ps.cfg = cfg
	ps.mu.Unlock()
}

// HasOpenPosition reports whether a pair currently has a signal in flight.
func (e *Engine) HasOpenPosition(pairID int) bool {
	e.mu.RLock()
	ps, ok := e.pairs[pairID]
	e.mu.RUnlock()
	if !ok {
		return false
	}
	ps.mu.Lock()
	defer ps.mu.Unlock()
	switch ps.runtime.State {
	case models.StateEntering, models.StateHolding, models.StateExiting:
		return true
	default:
		return false
	}
}

// ForceClosePair returns the pair to READY/PAUSED without waiting for a
// natural resolution. It sends no cancel or flattening orders to the
// exchanges; it only clears the pair's runtime state.
func (e *Engine) ForceClosePair(ctx context.Context, pairID int) error {
	e.mu.RLock()
	ps, ok := e.pairs[pairID]
	e.mu.RUnlock()
	if !ok {
		return ErrPairNotTracked
	}
	ps.mu.Lock()
	ps.runtime.State = models.StateExiting
	ps.mu.Unlock()

	e.returnToReady(pairID, nil)
	return nil
}

// LoadPairs seeds the engine with every persisted pair at startup, in
// whatever status the database has them in.
func (e *Engine) LoadPairs(pairs []*models.PairConfig) {
	for _, cfg := range pairs {
		e.AddPair(cfg)
		if cfg.Status == models.PairStatusActive {
			_ = e.StartPair(cfg.ID)
		}
	}
}

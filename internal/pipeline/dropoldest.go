// Package pipeline implements the cross-stage handoff queues between
// detectors, risk, and execution. Spec's scheduling model calls for a
// bounded multi-producer/single-consumer queue between detectors and risk;
// when it fills, detectors drop the oldest un-consumed signal for the
// (strategy, symbol) pair that just produced a fresh one, not the newest,
// since arbitrage freshness outweighs history.
package pipeline

import (
	"context"
	"sync"

	"arbot/internal/metrics"
	"arbot/internal/models"
)

// SignalQueue is that bounded queue. Any number of detector goroutines may
// Enqueue concurrently, and any number of consumers may Dequeue; the engine
// runs one consumer per execution worker.
type SignalQueue struct {
	mu       sync.Mutex
	items    []*models.Signal
	capacity int
	notify   chan struct{}

	dropped uint64
}

// NewSignalQueue builds a queue holding at most capacity signals.
func NewSignalQueue(capacity int) *SignalQueue {
	if capacity <= 0 {
		capacity = 1
	}
	return &SignalQueue{capacity: capacity, notify: make(chan struct{}, 1)}
}

func pairKey(sig *models.Signal) string {
	return string(sig.Strategy) + "|" + sig.Symbol
}

// Enqueue adds sig, applying the drop-oldest policy if the queue is full.
func (q *SignalQueue) Enqueue(sig *models.Signal) {
	q.mu.Lock()
	if len(q.items) >= q.capacity {
		q.dropForSpaceLocked(sig)
	}
	q.items = append(q.items, sig)
	metrics.SignalQueueSize.Set(float64(len(q.items)))
	q.mu.Unlock()
	q.wake()
}

// dropForSpaceLocked frees one slot before the caller appends the new
// signal. It first looks for an older queued signal sharing the same
// (strategy, symbol) pair and removes that one, preserving every other
// pair's history untouched. If none exists — the queue is saturated with
// other pairs entirely — the globally oldest signal gives way instead,
// since refusing the fresh signal outright would be worse.
func (q *SignalQueue) dropForSpaceLocked(fresh *models.Signal) {
	k := pairKey(fresh)
	for i, item := range q.items {
		if pairKey(item) == k {
			q.items = append(q.items[:i], q.items[i+1:]...)
			q.dropped++
			metrics.RecordQueueDrop(string(item.Strategy))
			return
		}
	}
	oldest := q.items[0]
	q.items = q.items[1:]
	q.dropped++
	metrics.RecordQueueDrop(string(oldest.Strategy))
}

func (q *SignalQueue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *SignalQueue) tryDequeueLocked() (*models.Signal, bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	sig := q.items[0]
	q.items = q.items[1:]
	return sig, true
}

// Dequeue blocks until a signal is available or ctx is cancelled.
func (q *SignalQueue) Dequeue(ctx context.Context) (*models.Signal, bool) {
	for {
		q.mu.Lock()
		sig, ok := q.tryDequeueLocked()
		q.mu.Unlock()
		if ok {
			return sig, true
		}
		select {
		case <-q.notify:
		case <-ctx.Done():
			return nil, false
		}
	}
}

// Len reports the number of signals currently queued.
func (q *SignalQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dropped reports how many signals the drop-oldest policy has discarded
// over this queue's lifetime, for the runtime metrics surface.
func (q *SignalQueue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

package pipeline

import (
	"context"
	"testing"
	"time"

	"arbot/internal/models"
)

func sig(strategy models.Strategy, symbol string) *models.Signal {
	return models.NewSignal(strategy, symbol, nil)
}

func TestSignalQueue_DropsOldestSamePairWhenFull(t *testing.T) {
	q := NewSignalQueue(2)
	first := sig(models.StrategySpatial, "BTC/USDT")
	second := sig(models.StrategySpatial, "ETH/USDT")
	third := sig(models.StrategySpatial, "BTC/USDT")

	q.Enqueue(first)
	q.Enqueue(second)
	q.Enqueue(third) // should evict `first`, same pair as `third`

	if q.Len() != 2 {
		t.Fatalf("expected queue length 2, got %d", q.Len())
	}
	if q.Dropped() != 1 {
		t.Fatalf("expected 1 drop, got %d", q.Dropped())
	}

	ctx := context.Background()
	got, ok := q.Dequeue(ctx)
	if !ok || got.ID != second.ID {
		t.Fatalf("expected second signal (ETH/USDT) to survive first, got %+v", got)
	}
	got, ok = q.Dequeue(ctx)
	if !ok || got.ID != third.ID {
		t.Fatalf("expected third signal to be the fresh BTC/USDT one, got %+v", got)
	}
}

func TestSignalQueue_FallsBackToGlobalOldestWhenNoPairMatch(t *testing.T) {
	q := NewSignalQueue(1)
	first := sig(models.StrategySpatial, "BTC/USDT")
	second := sig(models.StrategyTriangular, "ETH/USDT")

	q.Enqueue(first)
	q.Enqueue(second)

	if q.Len() != 1 {
		t.Fatalf("expected queue length 1, got %d", q.Len())
	}
	got, _ := q.Dequeue(context.Background())
	if got.ID != second.ID {
		t.Fatal("expected the unrelated-pair fresh signal to survive")
	}
}

func TestSignalQueue_DequeueBlocksUntilEnqueue(t *testing.T) {
	q := NewSignalQueue(4)
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	done := make(chan *models.Signal, 1)
	go func() {
		got, ok := q.Dequeue(ctx)
		if ok {
			done <- got
		} else {
			done <- nil
		}
	}()

	time.Sleep(20 * time.Millisecond)
	s := sig(models.StrategySpatial, "BTC/USDT")
	q.Enqueue(s)

	select {
	case got := <-done:
		if got == nil || got.ID != s.ID {
			t.Fatal("expected the enqueued signal to be delivered")
		}
	case <-time.After(time.Second):
		t.Fatal("dequeue did not return after enqueue")
	}
}

func TestSignalQueue_DequeueRespectsCancellation(t *testing.T) {
	q := NewSignalQueue(4)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, ok := q.Dequeue(ctx)
	if ok {
		t.Fatal("expected dequeue to fail on cancelled context with no data")
	}
}

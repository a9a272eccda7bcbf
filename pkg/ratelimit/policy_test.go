package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestNew_TokenBucketPolicy(t *testing.T) {
	l := New(Config{Policy: PolicyTokenBucket, Rate: 10, Burst: 10})
	if !l.Allow() {
		t.Fatal("expected first request to be allowed")
	}
}

func TestNew_WeightPolicyConsumesMultipleTokens(t *testing.T) {
	l := New(Config{Policy: PolicyWeight, Rate: 5, Burst: 5})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := l.WaitWeight(ctx, 5); err != nil {
		t.Fatalf("expected full-burst weight to succeed: %v", err)
	}
	if l.Allow() {
		t.Fatal("bucket should be drained after consuming full burst weight")
	}
}

func TestNew_CountPolicy(t *testing.T) {
	l := New(Config{Policy: PolicyCount, Limit: 2, Window: 50 * time.Millisecond})
	if !l.Allow() || !l.Allow() {
		t.Fatal("expected first two requests within limit to be allowed")
	}
	if l.Allow() {
		t.Fatal("third request should exceed the window limit")
	}

	time.Sleep(60 * time.Millisecond)
	if !l.Allow() {
		t.Fatal("expected limiter to reset after window elapses")
	}
}

func TestWindowLimiter_WaitWeightExceedsLimit(t *testing.T) {
	w := NewWindowLimiter(3, time.Second)
	ctx := context.Background()
	if err := w.WaitWeight(ctx, 10); err == nil {
		t.Fatal("expected error when weight exceeds the window's total limit")
	}
}

func TestWindowLimiter_ZeroDisablesLimiting(t *testing.T) {
	w := NewWindowLimiter(0, 0)
	for i := 0; i < 100; i++ {
		if !w.Allow() {
			t.Fatal("zero limit/window should disable limiting entirely")
		}
	}
}

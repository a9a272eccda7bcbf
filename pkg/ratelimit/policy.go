package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Policy selects which rate-limit algorithm an exchange connector's REST
// client enforces. Exchanges don't agree on one scheme:
//   - token_bucket: smooth refill + burst (Bybit, Bitget, Gate, HTX, BingX)
//   - weight: each endpoint consumes a declared weight out of a shared
//     token-bucket budget (OKX order-placement endpoints cost more than
//     market-data reads)
//   - count: a hard cap on request count within a fixed time window,
//     reset at the window boundary rather than refilled continuously
type Policy string

const (
	PolicyTokenBucket Policy = "token_bucket"
	PolicyWeight      Policy = "weight"
	PolicyCount       Policy = "count"
)

// Limiter is the common interface exchange connectors depend on, so the
// REST client doesn't need to know which Policy backs it.
type Limiter interface {
	Wait(ctx context.Context) error
	WaitWeight(ctx context.Context, weight int) error
	Allow() bool
}

// Config describes one policy's parameters. Which fields apply depends on
// Policy: token_bucket/weight use Rate+Burst, count uses Limit+Window.
type Config struct {
	Policy Policy
	Rate   float64       // token_bucket/weight: tokens per second
	Burst  float64       // token_bucket/weight: bucket capacity
	Limit  int           // count: max requests per Window
	Window time.Duration // count: fixed window size
}

// New builds a Limiter for cfg.Policy. Falls back to token_bucket on an
// unrecognized policy string rather than erroring, since an exchange's
// config-file typo shouldn't take down the whole connector.
func New(cfg Config) Limiter {
	switch cfg.Policy {
	case PolicyCount:
		return NewWindowLimiter(cfg.Limit, cfg.Window)
	case PolicyWeight, PolicyTokenBucket, "":
		return &weightedTokenBucket{rl: NewRateLimiter(cfg.Rate, cfg.Burst)}
	default:
		return &weightedTokenBucket{rl: NewRateLimiter(cfg.Rate, cfg.Burst)}
	}
}

// weightedTokenBucket adapts *RateLimiter to the Limiter interface, treating
// "weight" as a token count (WaitN/AllowN already do this).
type weightedTokenBucket struct {
	rl *RateLimiter
}

func (w *weightedTokenBucket) Wait(ctx context.Context) error { return w.rl.Wait(ctx) }
func (w *weightedTokenBucket) WaitWeight(ctx context.Context, weight int) error {
	if weight <= 0 {
		weight = 1
	}
	return w.rl.WaitN(ctx, weight)
}
func (w *weightedTokenBucket) Allow() bool { return w.rl.Allow() }

// WindowLimiter enforces a hard cap on request count within a fixed,
// non-overlapping time window (e.g. "1200 requests per minute"), resetting
// the counter to zero at each window boundary rather than continuously
// refilling. This matches exchanges that document limits as "N requests
// per M seconds" rather than a steady-state rate.
type WindowLimiter struct {
	limit      int
	window     time.Duration
	mu         sync.Mutex
	count      int
	windowEnds time.Time
}

// NewWindowLimiter creates a count-per-window limiter. A non-positive limit
// or window disables limiting (every call is allowed).
func NewWindowLimiter(limit int, window time.Duration) *WindowLimiter {
	return &WindowLimiter{
		limit:      limit,
		window:     window,
		windowEnds: time.Now().Add(window),
	}
}

func (w *WindowLimiter) resetIfElapsed(now time.Time) {
	if !now.Before(w.windowEnds) {
		w.count = 0
		w.windowEnds = now.Add(w.window)
	}
}

// Allow reports whether a request may proceed without blocking.
func (w *WindowLimiter) Allow() bool {
	if w.limit <= 0 || w.window <= 0 {
		return true
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	w.resetIfElapsed(time.Now())
	if w.count >= w.limit {
		return false
	}
	w.count++
	return true
}

// Wait blocks until a slot opens in the current or next window, or ctx is done.
func (w *WindowLimiter) Wait(ctx context.Context) error {
	return w.WaitWeight(ctx, 1)
}

// WaitWeight blocks until weight slots are available, consuming them atomically.
func (w *WindowLimiter) WaitWeight(ctx context.Context, weight int) error {
	if weight <= 0 {
		weight = 1
	}
	if w.limit > 0 && weight > w.limit {
		return fmt.Errorf("ratelimit: weight %d exceeds window limit %d", weight, w.limit)
	}

	for {
		w.mu.Lock()
		w.resetIfElapsed(time.Now())
		if w.limit <= 0 || w.window <= 0 || w.count+weight <= w.limit {
			w.count += weight
			wait := time.Duration(0)
			w.mu.Unlock()
			_ = wait
			return nil
		}
		untilReset := time.Until(w.windowEnds)
		w.mu.Unlock()

		select {
		case <-time.After(untilReset):
			continue
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

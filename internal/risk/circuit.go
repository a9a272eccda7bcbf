package risk

import (
	"context"
	"sync"
	"time"

	"arbot/internal/config"
	"arbot/internal/models"
)

// CircuitBreaker tracks consecutive closed-loss trades and trips into a
// cooldown once the configured limit is reached. It moves Normal -> Tripped
// on reaching the limit and Tripped -> Normal once cooldownUntil has passed
// or on Reset. State() reports only Normal or Tripped; the CircuitWarning
// and CircuitCooldown values are never set here.
type CircuitBreaker struct {
	cfg config.RiskConfig

	mu                sync.Mutex
	state             models.CircuitBreakerState
	consecutiveLosses int
	trippedAt         *time.Time
	cooldownUntil     *time.Time
	triggerReason     string
}

func NewCircuitBreaker(cfg config.RiskConfig) *CircuitBreaker {
	return &CircuitBreaker{cfg: cfg, state: models.CircuitNormal}
}

func (c *CircuitBreaker) Name() string { return "circuit_breaker" }

// RecordLoss increments the consecutive-loss counter and trips the breaker
// if the limit is reached. Returns true if this call caused a trip.
func (c *CircuitBreaker) RecordLoss() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.consecutiveLosses++
	limit := c.cfg.ConsecutiveLossLimit
	if limit <= 0 {
		limit = 10
	}
	if c.consecutiveLosses >= limit && c.state != models.CircuitTripped {
		now := time.Now().UTC()
		cooldown := time.Duration(c.cfg.CooldownMinutes) * time.Minute
		if cooldown <= 0 {
			cooldown = 30 * time.Minute
		}
		until := now.Add(cooldown)
		c.state = models.CircuitTripped
		c.trippedAt = &now
		c.cooldownUntil = &until
		c.triggerReason = "consecutive loss limit reached"
		return true
	}
	return false
}

// RecordWin resets the consecutive-loss counter on a profitable close.
func (c *CircuitBreaker) RecordWin() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consecutiveLosses = 0
}

// Reset is the operator-triggered manual override back to Normal.
func (c *CircuitBreaker) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = models.CircuitNormal
	c.consecutiveLosses = 0
	c.trippedAt = nil
	c.cooldownUntil = nil
	c.triggerReason = ""
}

func (c *CircuitBreaker) State() models.CircuitState {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resolveCooldownLocked()
	return models.CircuitState{
		State:             c.state,
		ConsecutiveLosses: c.consecutiveLosses,
		TrippedAt:         c.trippedAt,
		CooldownUntil:     c.cooldownUntil,
		TriggerReason:     c.triggerReason,
	}
}

// resolveCooldownLocked auto-resets Tripped -> Normal once cooldown elapses.
func (c *CircuitBreaker) resolveCooldownLocked() {
	if c.state != models.CircuitTripped || c.cooldownUntil == nil {
		return
	}
	if time.Now().UTC().After(*c.cooldownUntil) {
		c.state = models.CircuitNormal
		c.consecutiveLosses = 0
		c.trippedAt = nil
		c.cooldownUntil = nil
		c.triggerReason = ""
	}
}

func (c *CircuitBreaker) Check(_ context.Context, _ *models.Signal, notional float64) (bool, float64, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resolveCooldownLocked()

	if c.state == models.CircuitTripped {
		return false, 0, "circuit breaker tripped, cooldown until " + c.cooldownUntil.Format(time.RFC3339)
	}
	return true, notional, ""
}

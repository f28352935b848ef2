package publisher

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter paces batch dispatch using a token bucket. A nil *RateLimiter
// never blocks.
type RateLimiter struct {
	limiter       *rate.Limiter
	batchesPerSec float64
	burstSize     int
	mu            sync.RWMutex
	waitedCount   int64
}

// NewRateLimiter creates a new rate limiter. A non-positive rate disables
// pacing and returns nil.
func NewRateLimiter(batchesPerSecond float64, burstSize int) *RateLimiter {
	if batchesPerSecond <= 0 {
		return nil
	}
	if burstSize < 1 {
		burstSize = 1
	}
	return &RateLimiter{
		limiter:       rate.NewLimiter(rate.Limit(batchesPerSecond), burstSize),
		batchesPerSec: batchesPerSecond,
		burstSize:     burstSize,
	}
}

// Wait blocks until a batch may be dispatched or ctx is cancelled
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl == nil {
		return nil
	}
	if !rl.limiter.Allow() {
		rl.mu.Lock()
		rl.waitedCount++
		rl.mu.Unlock()
		return rl.limiter.Wait(ctx)
	}
	return nil
}

// GetLimit returns current rate limit settings
func (rl *RateLimiter) GetLimit() (batchesPerSec float64, burstSize int) {
	if rl == nil {
		return 0, 0
	}
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	return rl.batchesPerSec, rl.burstSize
}

// Waited returns how many dispatches had to wait for a token
func (rl *RateLimiter) Waited() int64 {
	if rl == nil {
		return 0
	}
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	return rl.waitedCount
}

package rateLimit

import (
	"context"
	"time"
)

// Counter is satisfied by the redis cache.
type Counter interface {
	IncrWindow(ctx context.Context, key string, period time.Duration) (int64, error)
}

type RateLimiter struct {
	counter Counter
}

func NewRateLimiter(counter Counter) *RateLimiter {
	return &RateLimiter{counter: counter}
}

// Allow fails closed when the counter is unavailable.
func (rl *RateLimiter) Allow(ctx context.Context, key string, rate int, period time.Duration) bool {
	n, err := rl.counter.IncrWindow(ctx, "rl:"+key, period)
	if err != nil {
		return false
	}
	return n <= int64(rate)
}

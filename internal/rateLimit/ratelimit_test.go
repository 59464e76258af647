package rateLimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeCounter struct {
	hits map[string]int64
	err  error
}

func (f *fakeCounter) IncrWindow(ctx context.Context, key string, period time.Duration) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.hits[key]++
	return f.hits[key], nil
}

func TestRateLimiter_Allow(t *testing.T) {
	counter := &fakeCounter{hits: map[string]int64{}}
	rl := NewRateLimiter(counter)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if !rl.Allow(ctx, "10.0.0.1", 3, time.Minute) {
			t.Fatalf("request %d should pass", i+1)
		}
	}
	if rl.Allow(ctx, "10.0.0.1", 3, time.Minute) {
		t.Error("fourth request should be limited")
	}
	if !rl.Allow(ctx, "10.0.0.2", 3, time.Minute) {
		t.Error("limits are per key")
	}

	counter.err = errors.New("connection refused")
	if rl.Allow(ctx, "10.0.0.3", 3, time.Minute) {
		t.Error("expected to fail closed")
	}
}

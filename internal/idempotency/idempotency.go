// Package idempotency replays the stored response of an operator request
// that is retried with the same Idempotency-Key.
package idempotency

import (
	"context"
	"time"

	redisadapter "github.com/robertarktes/reservation-finalizer/internal/adapters/redis"
)

type Response struct {
	Status int
	Result []byte
}

// Store is satisfied by the redis adapter.
type Store interface {
	Get(ctx context.Context, key string) (*redisadapter.IdempResponse, error)
	Set(ctx context.Context, key string, resp redisadapter.IdempResponse, ttl time.Duration) error
}

type Idempotency struct {
	store Store
	ttl   time.Duration
}

func NewIdempotency(store Store, ttl time.Duration) *Idempotency {
	return &Idempotency{store: store, ttl: ttl}
}

// Get returns nil when no response was stored under key.
func (i *Idempotency) Get(ctx context.Context, key string) (*Response, error) {
	stored, err := i.store.Get(ctx, key)
	if err != nil || stored == nil {
		return nil, err
	}
	return &Response{Status: stored.Status, Result: stored.Result}, nil
}

// Set stores resp unless it is a server error, which the caller may retry.
func (i *Idempotency) Set(ctx context.Context, key string, resp Response) error {
	if key == "" || resp.Status >= 500 {
		return nil
	}
	return i.store.Set(ctx, key, redisadapter.IdempResponse{Status: resp.Status, Result: resp.Result}, i.ttl)
}

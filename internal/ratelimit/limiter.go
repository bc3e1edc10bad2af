package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// CounterStore is the narrow contract the limiter needs from its backing
// store: read a counter, increment it, and attach a TTL. Keys absent from
// the store read as zero.
type CounterStore interface {
	Get(ctx context.Context, key string) (int64, error)
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// ErrEmptyKey rejects requests whose caller identity could not be derived.
var ErrEmptyKey = errors.New("rate limit key cannot be empty")

// Limiter enforces a fixed-window request ceiling per caller key.
//
// Semantics: the current count is read first and compared against the
// ceiling; a request at or over the ceiling is rejected without touching the
// counter, so exactly `ceiling` requests pass per window. The read/increment
// pair is not atomic, so concurrent bursts from one caller can transiently
// admit slightly more than the ceiling.
type Limiter struct {
	store   CounterStore
	ceiling int64
	window  time.Duration
}

func NewLimiter(store CounterStore, ceiling int, window time.Duration) *Limiter {
	return &Limiter{
		store:   store,
		ceiling: int64(ceiling),
		window:  window,
	}
}

// Allow reports whether the caller identified by key may proceed. A store
// failure is returned to the caller, which decides the fail direction.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrEmptyKey
	}

	count, err := l.store.Get(ctx, counterKey(key))
	if err != nil {
		return false, fmt.Errorf("read rate counter: %w", err)
	}
	if count >= l.ceiling {
		return false, nil
	}

	next, err := l.store.Incr(ctx, counterKey(key))
	if err != nil {
		return false, fmt.Errorf("increment rate counter: %w", err)
	}
	// First hit in a window creates the counter; start its expiry clock.
	if next == 1 {
		if err := l.store.Expire(ctx, counterKey(key), l.window); err != nil {
			return false, fmt.Errorf("expire rate counter: %w", err)
		}
	}
	return true, nil
}

func counterKey(key string) string {
	return "calls:" + key
}

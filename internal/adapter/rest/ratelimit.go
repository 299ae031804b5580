// ratelimit.go implements smooth token-bucket rate limiting for the
// reference REST adapter's three request categories (order placement,
// cancellation, book reads), refilling continuously rather than in
// fixed windows to avoid bursting into a hard limit.
//
// Grounded verbatim on the teacher's internal/exchange/ratelimit.go,
// generalized from Polymarket-specific category names/limits to
// configurable per-exchange values.
package rest

import (
	"context"
	"sync"
	"time"
)

// TokenBucket is a continuously-refilling rate limiter. Wait blocks
// until a token is available or ctx is cancelled.
type TokenBucket struct {
	mu       sync.Mutex
	tokens   float64
	capacity float64
	rate     float64
	lastTime time.Time
}

// NewTokenBucket creates a bucket with the given burst capacity and
// refill rate (tokens per second).
func NewTokenBucket(capacity, ratePerSecond float64) *TokenBucket {
	return &TokenBucket{
		tokens:   capacity,
		capacity: capacity,
		rate:     ratePerSecond,
		lastTime: time.Now(),
	}
}

// Wait blocks until a token is available or ctx is cancelled.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		tb.mu.Lock()
		now := time.Now()
		elapsed := now.Sub(tb.lastTime).Seconds()
		tb.tokens += elapsed * tb.rate
		if tb.tokens > tb.capacity {
			tb.tokens = tb.capacity
		}
		tb.lastTime = now

		if tb.tokens >= 1 {
			tb.tokens--
			tb.mu.Unlock()
			return nil
		}

		wait := time.Duration((1 - tb.tokens) / tb.rate * float64(time.Second))
		tb.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// RateLimiter groups the buckets a trading adapter needs: order
// placement, cancellation, and book reads each get their own budget so
// a burst of one kind never starves another.
type RateLimiter struct {
	Order  *TokenBucket
	Cancel *TokenBucket
	Book   *TokenBucket
}

// NewRateLimiter builds a RateLimiter from per-category (burst, rate)
// pairs, as read from the adapter's exchange configuration.
func NewRateLimiter(orderBurst, orderRate, cancelBurst, cancelRate, bookBurst, bookRate float64) *RateLimiter {
	return &RateLimiter{
		Order:  NewTokenBucket(orderBurst, orderRate),
		Cancel: NewTokenBucket(cancelBurst, cancelRate),
		Book:   NewTokenBucket(bookBurst, bookRate),
	}
}

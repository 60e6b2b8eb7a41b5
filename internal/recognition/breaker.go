package recognition

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrEngineUnavailable is returned while the breaker is open and the
// external engine is not being called.
var ErrEngineUnavailable = errors.New("recognition engine unavailable")

// Breaker wraps a Recognizer and stops calling it after consecutive
// failures. While open, calls fail fast so documents get a recognition
// failure result immediately instead of waiting out a timeout per upload.
// After the cooldown one probe call is let through; a success closes the
// breaker again.
type Breaker struct {
	inner Recognizer

	mu           sync.Mutex
	open         bool
	failureCount int
	openedAt     time.Time

	failureThreshold int
	cooldown         time.Duration
	now              func() time.Time
}

// BreakerOption configures a Breaker.
type BreakerOption func(*Breaker)

// WithFailureThreshold sets the consecutive failures that open the breaker.
func WithFailureThreshold(n int) BreakerOption {
	return func(b *Breaker) { b.failureThreshold = n }
}

// WithCooldown sets how long the breaker stays open before probing again.
func WithCooldown(d time.Duration) BreakerOption {
	return func(b *Breaker) { b.cooldown = d }
}

// WithBreakerClock overrides the time source for tests.
func WithBreakerClock(now func() time.Time) BreakerOption {
	return func(b *Breaker) { b.now = now }
}

func NewBreaker(inner Recognizer, opts ...BreakerOption) *Breaker {
	b := &Breaker{
		inner:            inner,
		failureThreshold: 5,
		cooldown:         30 * time.Second,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Breaker) Recognize(ctx context.Context, data []byte) (Result, error) {
	if !b.allow() {
		return Result{}, ErrEngineUnavailable
	}

	res, err := b.inner.Recognize(ctx, data)
	if err != nil {
		b.recordFailure()
		return Result{}, err
	}
	b.recordSuccess()
	return res, nil
}

// IsOpen reports whether calls are currently failing fast.
func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

// allow reports whether the next call may reach the engine. An open breaker
// lets a single probe through once the cooldown has passed.
func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return true
	}
	if b.now().Sub(b.openedAt) >= b.cooldown {
		// Probe: push the window forward so concurrent callers keep
		// failing fast while the probe is in flight.
		b.openedAt = b.now()
		return true
	}
	return false
}

func (b *Breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failureCount++
	if !b.open && b.failureCount >= b.failureThreshold {
		b.open = true
		b.openedAt = b.now()
	}
}

func (b *Breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.open = false
	b.failureCount = 0
}

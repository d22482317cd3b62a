package utils

import (
	"context"
	"math/rand/v2"
	"time"
)

// Backoff retries with exponential delays: base * 2^(attempt-1) plus a
// random jitter in [0, maxJitter).
type Backoff struct {
	base        time.Duration
	maxAttempts int
	maxJitter   time.Duration
	jitter      func(limit time.Duration) time.Duration
}

func NewBackoff(base time.Duration, maxAttempts int, maxJitter time.Duration) Backoff {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return Backoff{base: base, maxAttempts: maxAttempts, maxJitter: maxJitter, jitter: randomJitter}
}

// WithJitter replaces the jitter source, mostly for tests.
func (b Backoff) WithJitter(fn func(limit time.Duration) time.Duration) Backoff {
	b.jitter = fn
	return b
}

func (b Backoff) MaxAttempts() int { return b.maxAttempts }

// Delay is the wait after the given failed attempt (1-based).
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := time.Duration(1<<(attempt-1)) * b.base
	if b.maxJitter > 0 && b.jitter != nil {
		d += b.jitter(b.maxJitter)
	}
	return d
}

// Do calls fn until it succeeds or attempts run out and returns the number
// of attempts made with the last error. A cancelled ctx stops the wait
// between attempts and is returned as the error.
func (b Backoff) Do(ctx context.Context, fn func(attempt int) error) (int, error) {
	var err error
	for i := 1; i <= b.maxAttempts; i++ {
		if err = fn(i); err == nil {
			return i, nil
		}
		if i == b.maxAttempts {
			return i, err
		}
		t := time.NewTimer(b.Delay(i))
		select {
		case <-ctx.Done():
			t.Stop()
			return i, ctx.Err()
		case <-t.C:
		}
	}
	return b.maxAttempts, err
}

func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(limit)))
}

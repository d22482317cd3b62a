package loader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AngelCh415/insights-dashboard/internal/utils"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
	DefaultMaxJitter   = time.Second
)

type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxJitter   time.Duration
	// Jitter overrides the random jitter source when set.
	Jitter func(limit time.Duration) time.Duration
	// OnAttempt is called after every attempt with its outcome.
	OnAttempt func(attempt int, err error)
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: DefaultMaxAttempts, BaseDelay: DefaultBaseDelay, MaxJitter: DefaultMaxJitter}
}

func (p RetryPolicy) backoff() utils.Backoff {
	b := utils.NewBackoff(p.BaseDelay, p.MaxAttempts, p.MaxJitter)
	if p.Jitter != nil {
		b = b.WithJitter(p.Jitter)
	}
	return b
}

// ExhaustedError is returned once every attempt has failed.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// WithRetry runs fn under the policy. Panics inside fn count as failed
// attempts.
func WithRetry[T any](ctx context.Context, p RetryPolicy, fn func(context.Context) (T, error)) (T, error) {
	var (
		out     T
		lastErr error
	)
	b := p.backoff()
	n, err := b.Do(ctx, func(attempt int) error {
		v, err := safeCall(ctx, fn)
		if p.OnAttempt != nil {
			p.OnAttempt(attempt, err)
		}
		if err != nil {
			lastErr = err
			return err
		}
		out = v
		return nil
	})
	if err == nil {
		return out, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return out, fmt.Errorf("gave up after %d attempts (%w): %v", n, ctxErr, lastErr)
	}
	return out, &ExhaustedError{Attempts: n, Err: err}
}

func safeCall[T any](ctx context.Context, fn func(context.Context) (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}

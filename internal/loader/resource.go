package loader

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/AngelCh415/insights-dashboard/internal/models"
)

// Result mirrors what a dashboard client receives for one load.
type Result[T any] struct {
	Data    T      `json:"data"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

type Fetcher[T any] func(ctx context.Context) (T, error)

// Resource is a typed handle on one key of a Registry.
type Resource[T any] struct {
	key     string
	reg     *Registry
	fetch   Fetcher[T]
	policy  RetryPolicy
	timeout time.Duration
}

type ResourceOption func(*resourceConfig)

type resourceConfig struct {
	policy  RetryPolicy
	timeout time.Duration
}

func WithPolicy(p RetryPolicy) ResourceOption {
	return func(c *resourceConfig) { c.policy = p }
}

// WithTimeout bounds a whole load, retries and waits included.
func WithTimeout(d time.Duration) ResourceOption {
	return func(c *resourceConfig) { c.timeout = d }
}

func NewResource[T any](reg *Registry, key string, fetch Fetcher[T], opts ...ResourceOption) *Resource[T] {
	cfg := resourceConfig{policy: DefaultRetryPolicy()}
	for _, o := range opts {
		o(&cfg)
	}
	return &Resource[T]{key: key, reg: reg, fetch: fetch, policy: cfg.policy, timeout: cfg.timeout}
}

func (r *Resource[T]) Key() string { return r.key }

func (r *Resource[T]) State() models.LoadingState { return r.reg.State(r.key) }

func (r *Resource[T]) Subscribe(fn func(models.LoadingState)) func() {
	return r.reg.Subscribe(r.key, fn)
}

// Data returns the last successfully loaded value.
func (r *Resource[T]) Data() (T, bool) {
	v, ok := r.reg.Data(r.key)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// Load fetches with retry and publishes the outcome unless a newer load
// of the same key started in the meantime. It never returns an error; the
// failure is in the Result and the resource state.
func (r *Resource[T]) Load(ctx context.Context) Result[T] {
	gen := r.reg.begin(r.key)
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	p := r.policy
	onAttempt := p.OnAttempt
	p.OnAttempt = func(attempt int, err error) {
		r.reg.metrics.attempt(r.key)
		if err != nil {
			r.reg.log.Warn("fetch attempt failed", slog.String("key", r.key), slog.Int("attempt", attempt), slog.String("err", err.Error()))
		}
		if onAttempt != nil {
			onAttempt(attempt, err)
		}
	}

	data, err := WithRetry(ctx, p, r.fetch)
	if err != nil {
		msg := err.Error()
		r.reg.fail(r.key, gen, msg)
		return Result[T]{Data: data, Success: false, Error: msg, Message: "Failed to load " + r.key}
	}
	r.reg.succeed(r.key, gen, data)
	return Result[T]{Data: data, Success: true, Message: "Data fetched successfully"}
}

// Retry clears the current error and loads again.
func (r *Resource[T]) Retry(ctx context.Context) Result[T] {
	r.reg.clearError(r.key)
	return r.Load(ctx)
}

// Reload is Retry reporting failure as an error.
func (r *Resource[T]) Reload(ctx context.Context) error {
	res := r.Retry(ctx)
	if !res.Success {
		return errors.New(res.Error)
	}
	return nil
}

// Poll loads every interval while the resource is idle, until ctx ends.
func (r *Resource[T]) Poll(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if !r.State().IsLoading {
				r.Load(ctx)
			}
		}
	}
}

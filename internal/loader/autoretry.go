package loader

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AngelCh415/insights-dashboard/internal/models"
)

const (
	DefaultAutoRetryDelay = 5 * time.Second
	DefaultAutoRetryMax   = 3
)

// Handle is the untyped view of a Resource.
type Handle interface {
	Key() string
	State() models.LoadingState
	Subscribe(fn func(models.LoadingState)) func()
	Reload(ctx context.Context) error
}

// AutoRetry reloads a resource a fixed delay after it enters an error
// state, up to max times. A successful load resets the count.
type AutoRetry struct {
	h     Handle
	delay time.Duration
	max   int
	log   *slog.Logger

	mu      sync.Mutex
	ctx     context.Context
	count   int
	timer   *time.Timer
	unsub   func()
	stopped bool
	// loading is whether the last observed state was mid-load.
	loading bool
	done    chan struct{}
	wg      sync.WaitGroup
}

func NewAutoRetry(h Handle, delay time.Duration, maxRetries int, log *slog.Logger) *AutoRetry {
	if delay <= 0 {
		delay = DefaultAutoRetryDelay
	}
	if maxRetries < 0 {
		maxRetries = DefaultAutoRetryMax
	}
	if log == nil {
		log = slog.Default()
	}
	return &AutoRetry{h: h, delay: delay, max: maxRetries, log: log, done: make(chan struct{})}
}

// Start watches the resource until Stop or ctx ends.
func (a *AutoRetry) Start(ctx context.Context) {
	a.mu.Lock()
	a.ctx = ctx
	a.mu.Unlock()

	unsub := a.h.Subscribe(a.observe)
	a.mu.Lock()
	a.unsub = unsub
	a.mu.Unlock()

	a.observe(a.h.State())
	go func() {
		select {
		case <-ctx.Done():
			a.Stop()
		case <-a.done:
		}
	}()
}

func (a *AutoRetry) observe(st models.LoadingState) {
	a.mu.Lock()
	defer a.mu.Unlock()
	wasLoading := a.loading
	a.loading = st.IsLoading
	if a.stopped || a.ctx == nil || st.IsLoading {
		return
	}
	if st.Error == "" {
		// Only a finished load resets the budget; clearing an error does not.
		if wasLoading && st.LastUpdated != nil {
			a.count = 0
		}
		return
	}
	if a.timer != nil || a.count >= a.max {
		return
	}
	a.wg.Add(1)
	a.timer = time.AfterFunc(a.delay, a.fire)
}

func (a *AutoRetry) fire() {
	defer a.wg.Done()
	a.mu.Lock()
	a.timer = nil
	if a.stopped {
		a.mu.Unlock()
		return
	}
	a.count++
	n, ctx := a.count, a.ctx
	a.mu.Unlock()

	a.log.Info("auto retry", slog.String("key", a.h.Key()), slog.Int("attempt", n), slog.Int("max", a.max))
	_ = a.h.Reload(ctx)
}

// Retry is the manual retry action; it starts the count over.
func (a *AutoRetry) Retry(ctx context.Context) error {
	a.mu.Lock()
	a.count = 0
	if a.timer != nil && a.timer.Stop() {
		a.timer = nil
		a.wg.Done()
	}
	a.mu.Unlock()
	return a.h.Reload(ctx)
}

func (a *AutoRetry) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count
}

// CanRetry reports whether automatic retries are left.
func (a *AutoRetry) CanRetry() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count < a.max
}

// Message is the text shown for the current error, or "" when there is none.
func (a *AutoRetry) Message() string {
	st := a.h.State()
	if st.Error == "" {
		return ""
	}
	a.mu.Lock()
	exhausted := a.count >= a.max
	a.mu.Unlock()
	if exhausted {
		return fmt.Sprintf("Failed to load %s after %d attempts: %s", a.h.Key(), a.max, st.Error)
	}
	return fmt.Sprintf("Failed to load %s: %s", a.h.Key(), st.Error)
}

// Stop cancels any pending retry and waits for a running one to finish.
func (a *AutoRetry) Stop() {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	a.stopped = true
	close(a.done)
	if a.timer != nil && a.timer.Stop() {
		a.timer = nil
		a.wg.Done()
	}
	unsub := a.unsub
	a.mu.Unlock()
	if unsub != nil {
		unsub()
	}
	a.wg.Wait()
}

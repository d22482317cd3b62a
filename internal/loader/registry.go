package loader

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/AngelCh415/insights-dashboard/internal/models"
)

// Registry holds the shared state of every named resource. Handles created
// with the same key on one Registry see the same state and data.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	log     *slog.Logger
	metrics *Metrics
	now     func() time.Time
}

type entry struct {
	// deliver serializes updates of one key so listeners observe them in
	// the order they were applied.
	deliver   sync.Mutex
	state     models.LoadingState
	data      any
	hasData   bool
	gen       uint64
	listeners map[uint64]func(models.LoadingState)
	nextID    uint64
}

type Option func(*Registry)

func WithLogger(l *slog.Logger) Option { return func(r *Registry) { r.log = l } }
func WithMetrics(m *Metrics) Option    { return func(r *Registry) { r.metrics = m } }
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		entries: make(map[string]*entry),
		log:     slog.Default(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// lookup returns the entry for key, creating it on first use. r.mu must be held.
func (r *Registry) lookup(key string) *entry {
	e, ok := r.entries[key]
	if !ok {
		e = &entry{listeners: make(map[uint64]func(models.LoadingState))}
		r.entries[key] = e
	}
	return e
}

func (r *Registry) State(key string) models.LoadingState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookup(key).state
}

func (r *Registry) Data(key string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.lookup(key)
	return e.data, e.hasData
}

func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Subscribe registers fn for state changes of key. Listeners run
// synchronously and must not start a load of the same key themselves.
func (r *Registry) Subscribe(key string, fn func(models.LoadingState)) (unsubscribe func()) {
	r.mu.Lock()
	e := r.lookup(key)
	id := e.nextID
	e.nextID++
	e.listeners[id] = fn
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(e.listeners, id)
			r.mu.Unlock()
		})
	}
}

// update applies fn to the entry and, when fn reports a change, delivers
// the resulting snapshot to the listeners of key.
func (r *Registry) update(key string, fn func(e *entry) bool) bool {
	r.mu.Lock()
	e := r.lookup(key)
	r.mu.Unlock()

	e.deliver.Lock()
	defer e.deliver.Unlock()

	r.mu.Lock()
	if !fn(e) {
		r.mu.Unlock()
		return false
	}
	snap := e.state
	ids := make([]uint64, 0, len(e.listeners))
	for id := range e.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	ls := make([]func(models.LoadingState), 0, len(ids))
	for _, id := range ids {
		ls = append(ls, e.listeners[id])
	}
	r.mu.Unlock()

	for _, l := range ls {
		l(snap)
	}
	return true
}

// begin starts a load and returns its generation. Any previous error is
// dropped; data and LastUpdated are kept.
func (r *Registry) begin(key string) uint64 {
	var gen uint64
	r.update(key, func(e *entry) bool {
		e.gen++
		gen = e.gen
		e.state.IsLoading = true
		e.state.Error = ""
		return true
	})
	r.metrics.setLoading(key, true)
	return gen
}

// succeed publishes data for generation gen. It reports false when a newer
// load has started since, in which case nothing changes.
func (r *Registry) succeed(key string, gen uint64, data any) bool {
	ok := r.update(key, func(e *entry) bool {
		if e.gen != gen {
			return false
		}
		now := r.now()
		e.data, e.hasData = data, true
		e.state = models.LoadingState{IsLoading: false, LastUpdated: &now}
		return true
	})
	r.settle(key, gen, ok, "success")
	return ok
}

// fail records msg for generation gen; data and LastUpdated are kept.
func (r *Registry) fail(key string, gen uint64, msg string) bool {
	ok := r.update(key, func(e *entry) bool {
		if e.gen != gen {
			return false
		}
		e.state.IsLoading = false
		e.state.Error = msg
		return true
	})
	r.settle(key, gen, ok, "error")
	return ok
}

func (r *Registry) settle(key string, gen uint64, applied bool, outcome string) {
	if !applied {
		r.metrics.staleResult(key)
		r.log.Debug("dropping stale load result", slog.String("key", key), slog.Uint64("gen", gen), slog.String("outcome", outcome))
		return
	}
	r.metrics.setLoading(key, false)
	r.metrics.done(key, outcome)
}

func (r *Registry) clearError(key string) {
	r.update(key, func(e *entry) bool {
		if e.state.Error == "" {
			return false
		}
		e.state.Error = ""
		return true
	})
}

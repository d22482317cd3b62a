package theme

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/AngelCh415/insights-dashboard/internal/store"
)

type Mode string

const (
	Light  Mode = "light"
	Dark   Mode = "dark"
	System Mode = "system"
)

const (
	DefaultStorageKey = "dashboard-theme"
	DefaultMode       = System
)

var ErrInvalidMode = errors.New("invalid theme")

// Modes lists the selectable themes.
var Modes = []Mode{Light, Dark, System}

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case Light, Dark, System:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Manager keeps the theme preference in memory and writes it through to a
// store. Store failures are logged and never reach the caller; the
// in-memory value stays authoritative for this process.
type Manager struct {
	kv  store.KV
	key string
	def Mode
	log *slog.Logger

	mu      sync.RWMutex
	current Mode
}

type Option func(*Manager)

func WithStorageKey(k string) Option {
	return func(m *Manager) {
		if k != "" {
			m.key = k
		}
	}
}

func WithDefault(mode Mode) Option {
	return func(m *Manager) {
		if _, err := ParseMode(string(mode)); err == nil {
			m.def = mode
		}
	}
}

func WithLogger(l *slog.Logger) Option { return func(m *Manager) { m.log = l } }

func NewManager(kv store.KV, opts ...Option) *Manager {
	m := &Manager{kv: kv, key: DefaultStorageKey, def: DefaultMode, log: slog.Default()}
	for _, o := range opts {
		o(m)
	}
	m.current = m.def
	return m
}

func (m *Manager) StorageKey() string { return m.key }

func (m *Manager) Current() Mode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Load hydrates the preference from the store. A missing, unreadable or
// invalid value yields the default.
func (m *Manager) Load(ctx context.Context) Mode {
	mode := m.read(ctx)
	m.mu.Lock()
	m.current = mode
	m.mu.Unlock()
	return mode
}

// Sync re-reads the store so processes sharing it converge. If the store
// cannot be read the current value is kept.
func (m *Manager) Sync(ctx context.Context) Mode {
	v, ok, err := m.get(ctx)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil || !ok {
		return m.current
	}
	if mode, err := ParseMode(v); err == nil {
		m.current = mode
	}
	return m.current
}

func (m *Manager) read(ctx context.Context) Mode {
	v, ok, err := m.get(ctx)
	if err != nil {
		m.log.Warn("theme store unavailable, using default", slog.String("key", m.key), slog.String("err", err.Error()))
		return m.def
	}
	if !ok {
		return m.def
	}
	mode, err := ParseMode(v)
	if err != nil {
		m.log.Warn("ignoring stored theme", slog.String("key", m.key), slog.String("value", v))
		return m.def
	}
	return mode
}

// get shields callers from stores that panic as well as those that fail.
func (m *Manager) get(ctx context.Context) (v string, ok bool, err error) {
	if m.kv == nil {
		return "", false, errors.New("no store")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("store panic: %v", r)
		}
	}()
	return m.kv.Get(ctx, m.key)
}

// Set changes the theme. Only an invalid mode is reported.
func (m *Manager) Set(ctx context.Context, mode Mode) error {
	mode, err := ParseMode(string(mode))
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.current = mode
	m.mu.Unlock()

	if err := m.put(ctx, string(mode)); err != nil {
		m.log.Warn("theme not persisted", slog.String("key", m.key), slog.String("theme", string(mode)), slog.String("err", err.Error()))
	}
	return nil
}

func (m *Manager) put(ctx context.Context, v string) (err error) {
	if m.kv == nil {
		return errors.New("no store")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("store panic: %v", r)
		}
	}()
	return m.kv.Set(ctx, m.key, v)
}

// Resolve turns the preference into the theme actually applied.
func (m *Manager) Resolve(systemPrefersDark bool) Mode {
	return ResolveMode(m.Current(), systemPrefersDark)
}

func ResolveMode(mode Mode, systemPrefersDark bool) Mode {
	switch mode {
	case Light, Dark:
		return mode
	}
	if systemPrefersDark {
		return Dark
	}
	return Light
}

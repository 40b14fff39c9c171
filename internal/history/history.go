// Package history keeps the bounded, most-recent-first list of submitted keyword queries.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/trendlens/internal/models"
	"github.com/hyperjump/trendlens/pkg/utils"
)

const (
	// DefaultKey is the store key holding the JSON-encoded history list.
	DefaultKey = "trendlens.recent_searches"
	// DefaultMaxEntries caps the history length.
	DefaultMaxEntries = 10
)

// Store is a persistent string key/value store.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Deleter is implemented by stores that can remove a key. Clear uses it when available.
type Deleter interface {
	Delete(ctx context.Context, key string) error
}

// Manager owns the recent-search list and persists it through a Store.
type Manager struct {
	store      Store
	key        string
	maxEntries int
	logger     *zap.Logger

	mu      sync.RWMutex
	entries []string
}

// Option configures a Manager.
type Option func(*Manager)

// WithKey sets the store key.
func WithKey(key string) Option {
	return func(m *Manager) {
		if key != "" {
			m.key = key
		}
	}
}

// WithMaxEntries sets the cap on the list length.
func WithMaxEntries(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxEntries = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		m.logger = utils.OrNop(l)
	}
}

// NewManager returns a Manager with an empty list. Call Load to read persisted history.
func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store:      store,
		key:        DefaultKey,
		maxEntries: DefaultMaxEntries,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load reads the persisted list. A missing, unreadable, or malformed value yields an
// empty list; Load never fails.
func (m *Manager) Load(ctx context.Context) []string {
	entries := m.read(ctx)
	m.mu.Lock()
	m.entries = entries
	m.mu.Unlock()
	return append([]string(nil), entries...)
}

func (m *Manager) read(ctx context.Context) []string {
	raw, ok, err := m.store.Get(ctx, m.key)
	if err != nil {
		m.logger.Warn("failed to read history", zap.String("key", m.key), zap.Error(err))
		return []string{}
	}
	if !ok {
		return []string{}
	}
	var entries []string
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		m.logger.Warn("ignoring malformed history", zap.String("key", m.key), zap.Error(err))
		return []string{}
	}
	if len(entries) > m.maxEntries {
		entries = entries[:m.maxEntries]
	}
	return entries
}

// Record joins keywords into one entry, moves it to the front, and persists the list.
// The in-memory list is updated even when persisting fails.
func (m *Manager) Record(ctx context.Context, keywords []string) ([]string, error) {
	entry := models.JoinKeywords(keywords)
	if entry == "" {
		return m.List(), nil
	}
	m.mu.Lock()
	m.entries = Prepend(m.entries, entry, m.maxEntries)
	snapshot := append([]string(nil), m.entries...)
	m.mu.Unlock()

	if err := m.persist(ctx, snapshot); err != nil {
		return snapshot, err
	}
	m.logger.Debug("recorded search", zap.String("entry", entry), zap.Int("entries", len(snapshot)))
	return snapshot, nil
}

// List returns a copy of the list, most recent first.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string{}, m.entries...)
}

// Clear empties the list. The store key is removed when the store is a Deleter;
// otherwise the empty list is persisted.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.entries = []string{}
	m.mu.Unlock()
	if d, ok := m.store.(Deleter); ok {
		if err := d.Delete(ctx, m.key); err != nil {
			return fmt.Errorf("failed to clear history: %w", err)
		}
		return nil
	}
	return m.persist(ctx, []string{})
}

func (m *Manager) persist(ctx context.Context, entries []string) error {
	b, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	if err := m.store.Set(ctx, m.key, string(b)); err != nil {
		return fmt.Errorf("failed to persist history: %w", err)
	}
	return nil
}

// Prepend returns a new list with entry first, later duplicates of entry removed,
// truncated to limit entries.
func Prepend(list []string, entry string, limit int) []string {
	out := make([]string, 0, len(list)+1)
	out = append(out, entry)
	for _, e := range list {
		if e != entry {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

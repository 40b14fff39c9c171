package storage

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hyperjump/trendlens/internal/models"
)

// MemoryStorage is a non-persistent Storage for tests and ephemeral runs.
type MemoryStorage struct {
	mu      sync.RWMutex
	kv      map[string]string
	results []*LoggedResult
	closed  bool
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{kv: make(map[string]string)}
}

func (m *MemoryStorage) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return "", false, ErrClosed
	}
	v, ok := m.kv[key]
	return v, ok, nil
}

func (m *MemoryStorage) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.kv[key] = value
	return nil
}

func (m *MemoryStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.kv, key)
	return nil
}

// SaveResult stores a deep copy of data so later changes by the caller are not visible.
func (m *MemoryStorage) SaveResult(_ context.Context, keyword string, data *models.KeywordData) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	var stored *models.KeywordData
	if err := json.Unmarshal(b, &stored); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return "", ErrClosed
	}
	id := uuid.NewString()
	m.results = append(m.results, &LoggedResult{ID: id, Keyword: keyword, Result: stored, CreatedAt: time.Now()})
	return id, nil
}

func (m *MemoryStorage) ListResults(_ context.Context, keyword string, limit int) ([]*LoggedResult, error) {
	if limit <= 0 {
		limit = 20
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	var out []*LoggedResult
	for i := len(m.results) - 1; i >= 0 && len(out) < limit; i-- {
		if r := m.results[i]; keyword == "" || r.Keyword == keyword {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MemoryStorage) CountResults(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return 0, ErrClosed
	}
	return int64(len(m.results)), nil
}

func (m *MemoryStorage) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Package storage persists key/value strings (search history) and the analysis result log.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hyperjump/trendlens/internal/models"
)

// Drivers accepted by New.
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("storage closed")

// LoggedResult is one stored analysis result.
type LoggedResult struct {
	ID        string              `json:"id"`
	Keyword   string              `json:"keyword"`
	Result    *models.KeywordData `json:"result"`
	CreatedAt time.Time           `json:"created_at"`
}

// Storage defines key/value and result log persistence.
type Storage interface {
	// Key/value operations
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error

	// Result log
	SaveResult(ctx context.Context, keyword string, data *models.KeywordData) (string, error)
	ListResults(ctx context.Context, keyword string, limit int) ([]*LoggedResult, error)

	// Stats
	CountResults(ctx context.Context) (int64, error)

	Close() error
}

// New opens the storage for driver. path is ignored by the memory driver.
func New(driver, path string) (Storage, error) {
	switch driver {
	case "", DriverSQLite:
		return NewSQLiteStorage(path)
	case DriverMemory:
		return NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

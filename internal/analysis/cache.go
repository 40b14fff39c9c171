package analysis

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/hyperjump/trendlens/internal/metrics"
	"github.com/hyperjump/trendlens/internal/models"
	"github.com/hyperjump/trendlens/pkg/utils"
)

// DefaultSharedCallTimeout bounds a merged backend call once it no longer follows
// any caller's context.
const DefaultSharedCallTimeout = 2 * time.Minute

// CachedAnalyzer serves repeated keyword lists from an expiring LRU cache and merges
// identical concurrent requests into one backend call. Failed requests are not cached.
//
// The merged call runs detached from the callers' contexts, so a caller that gives up
// does not fail the others waiting on the same keywords.
type CachedAnalyzer struct {
	next        Analyzer
	cache       *expirable.LRU[string, *models.ResultSet]
	group       singleflight.Group
	callTimeout time.Duration
	logger      *zap.Logger
}

// NewCachedAnalyzer wraps next with a cache of size entries that expire after ttl.
// A zero ttl keeps entries until evicted.
func NewCachedAnalyzer(next Analyzer, size int, ttl time.Duration, logger *zap.Logger) *CachedAnalyzer {
	if size <= 0 {
		size = 1
	}
	return &CachedAnalyzer{
		next:        next,
		cache:       expirable.NewLRU[string, *models.ResultSet](size, nil, ttl),
		callTimeout: DefaultSharedCallTimeout,
		logger:      utils.OrNop(logger),
	}
}

func cacheKey(keywords []string) string {
	return strings.Join(keywords, "\x1f")
}

// Analyze returns a cached result set for the same keyword list, or calls the wrapped analyzer.
// Cancelling ctx abandons this caller's wait only.
func (c *CachedAnalyzer) Analyze(ctx context.Context, keywords []string) (*models.ResultSet, error) {
	keywords, err := models.NormalizeKeywords(keywords)
	if err != nil {
		return nil, err
	}
	key := cacheKey(keywords)
	if rs, ok := c.cache.Get(key); ok {
		metrics.RecordCacheLookup(true)
		return rs, nil
	}
	metrics.RecordCacheLookup(false)

	ch := c.group.DoChan(key, func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.callTimeout)
		defer cancel()
		rs, err := c.next.Analyze(callCtx, keywords)
		if err != nil {
			return nil, err
		}
		c.cache.Add(key, rs)
		return rs, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.logger.Debug("shared in-flight analysis", zap.Strings("keywords", keywords))
		}
		return res.Val.(*models.ResultSet), nil
	case <-ctx.Done():
		c.logger.Debug("abandoned in-flight analysis", zap.Strings("keywords", keywords))
		return nil, ctx.Err()
	}
}

// Len returns the number of cached entries.
func (c *CachedAnalyzer) Len() int {
	return c.cache.Len()
}

// Purge drops all cached entries.
func (c *CachedAnalyzer) Purge() {
	c.cache.Purge()
}

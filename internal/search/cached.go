package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/webcache-io/webcache/internal/cache"
)

// CachedClient fronts a Searcher with the search_cache store. Entries are
// keyed on the canonical JSON of the query and always carry a TTL.
type CachedClient struct {
	inner  Searcher
	db     *cache.DB
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedClient wraps inner with a TTL-bounded cache.
func NewCachedClient(inner Searcher, db *cache.DB, ttl time.Duration, logger *zap.Logger) *CachedClient {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &CachedClient{inner: inner, db: db, ttl: ttl, logger: logger}
}

// CacheKey returns the store key for q.
func CacheKey(queryJSON string) string {
	sum := sha256.Sum256([]byte(queryJSON))
	return hex.EncodeToString(sum[:])
}

// Search implements Searcher, serving fresh cached responses without touching
// the provider. Stale or missing entries go upstream and the answer is
// written back with the configured TTL.
func (c *CachedClient) Search(ctx context.Context, q Query) (*Response, error) {
	queryJSON, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}
	key := CacheKey(string(queryJSON))

	fresh, err := c.db.IsSearchFresh(ctx, key)
	if err != nil {
		return nil, err
	}
	if fresh {
		cached, ok, err := c.db.GetSearch(ctx, key)
		if err != nil {
			return nil, err
		}
		if ok {
			var resp Response
			if err := json.Unmarshal([]byte(cached), &resp); err == nil {
				c.logger.Debug("search cache hit", zap.String("key", key))
				return &resp, nil
			}
			// Undecodable entry: fall through and refetch.
			c.logger.Warn("discarding corrupt search cache entry", zap.String("key", key))
		}
	}

	resp, err := c.inner.Search(ctx, q)
	if err != nil {
		return nil, err
	}

	responseJSON, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("marshal search response: %w", err)
	}
	if err := c.db.PutSearch(ctx, key, string(queryJSON), string(responseJSON), c.ttl); err != nil {
		// A write failure should not discard a good answer.
		c.logger.Warn("search cache write failed", zap.String("key", key), zap.Error(err))
	}
	return resp, nil
}

package websearch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"college-chatbot-platform/internal/logger"
)

// CachedSearcher wraps a Searcher with a Redis TTL cache so repeated
// queries within the window do not hit the paid API. Cache failures
// fall through to the live search.
type CachedSearcher struct {
	inner Searcher
	rdb   *redis.Client
	ttl   time.Duration
}

func NewCachedSearcher(inner Searcher, rdb *redis.Client, ttl time.Duration) *CachedSearcher {
	return &CachedSearcher{inner: inner, rdb: rdb, ttl: ttl}
}

func (c *CachedSearcher) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	key := cacheKey(query, maxResults)

	if cached, err := c.rdb.Get(ctx, key).Result(); err == nil {
		var results []Result
		if err := json.Unmarshal([]byte(cached), &results); err == nil {
			logger.Debug("Web search cache hit", "query", query)
			return results, nil
		}
	}

	results, err := c.inner.Search(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(results); err == nil {
		if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			logger.Warn("Failed to cache web search results", "error", err)
		}
	}

	return results, nil
}

func cacheKey(query string, maxResults int) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(query))))
	return fmt.Sprintf("websearch:%s:%d", hex.EncodeToString(sum[:8]), maxResults)
}

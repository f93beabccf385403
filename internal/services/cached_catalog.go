package services

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"tracksort/internal/cache"
)

// SearchCacheConfig holds search result TTLs
type SearchCacheConfig struct {
	// TTL applies to searches that returned tracks
	TTL time.Duration
	// NegativeTTL applies to searches that returned nothing
	NegativeTTL time.Duration
}

// DefaultSearchCacheConfig returns the default search result TTLs
func DefaultSearchCacheConfig() SearchCacheConfig {
	return SearchCacheConfig{
		TTL:         24 * time.Hour,
		NegativeTTL: time.Hour,
	}
}

// CachedCatalog answers repeated searches from a cache. Failed searches are
// not cached.
type CachedCatalog struct {
	CatalogService
	cache  cache.Cache
	config SearchCacheConfig

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCachedCatalog wraps catalog with a search result cache
func NewCachedCatalog(catalog CatalogService, c cache.Cache, cfg SearchCacheConfig) *CachedCatalog {
	return &CachedCatalog{CatalogService: catalog, cache: c, config: cfg}
}

// SearchCacheKey returns the cache key of a query on a platform
func SearchCacheKey(platform string, query SearchQuery) string {
	raw := strings.Join([]string{
		query.Title,
		query.Artist,
		query.Album,
		query.ISRC,
		query.Query,
		fmt.Sprint(query.Limit),
	}, "\x1f")
	sum := sha1.Sum([]byte(raw))
	return "search:" + platform + ":" + hex.EncodeToString(sum[:])
}

// SearchTrack returns cached results for query or searches the catalog
func (c *CachedCatalog) SearchTrack(ctx context.Context, query SearchQuery) ([]*TrackInfo, error) {
	key := SearchCacheKey(c.GetPlatformName(), query)

	if data, err := c.cache.Get(ctx, key); err == nil && data != nil {
		var tracks []*TrackInfo
		if err := json.Unmarshal(data, &tracks); err == nil {
			c.hits.Add(1)
			slog.Debug("Search cache hit", "platform", c.GetPlatformName(), "title", query.Title, "results", len(tracks))
			return tracks, nil
		}
		slog.Warn("Discarding corrupt search cache entry", "key", key)
	}
	c.misses.Add(1)

	tracks, err := c.CatalogService.SearchTrack(ctx, query)
	if err != nil {
		return nil, err
	}
	if tracks == nil {
		tracks = []*TrackInfo{}
	}

	ttl := c.config.TTL
	if len(tracks) == 0 {
		ttl = c.config.NegativeTTL
	}
	if ttl > 0 {
		if data, err := json.Marshal(tracks); err == nil {
			if err := c.cache.Set(ctx, key, data, ttl); err != nil {
				slog.Warn("Failed to cache search results", "key", key, "error", err)
			}
		}
	}

	return tracks, nil
}

// Stats returns the number of cache hits and misses
func (c *CachedCatalog) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

package lyrics

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync/atomic"

	"tracksort/internal/cache"
)

// Stats counts lookups served by a Service
type Stats struct {
	CacheHits   int64 `json:"cache_hits"`
	Fetched     int64 `json:"fetched"`
	FetchErrors int64 `json:"fetch_errors"`
}

// Service memoizes a Provider in a cache. Values are stored forever; an empty
// string is a valid cached "no lyrics" answer.
type Service struct {
	provider Provider
	cache    cache.Cache

	hits   atomic.Int64
	fetch  atomic.Int64
	errors atomic.Int64
}

// NewService creates a lyric service. A nil provider only serves the cache.
func NewService(provider Provider, c cache.Cache) *Service {
	return &Service{provider: provider, cache: c}
}

// CacheKey returns the cache key of a (title, artist) pair: a JSON array of
// the trimmed strings, written as ["title", "artist"] without escaping
// non-ASCII or HTML characters.
func CacheKey(title, artist string) string {
	return "[" + jsonString(strings.TrimSpace(title)) + ", " + jsonString(strings.TrimSpace(artist)) + "]"
}

func jsonString(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return `""`
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// Lyrics returns the lyrics for title and artist, or "" when none are known.
// Provider failures are logged and cached as "".
func (s *Service) Lyrics(ctx context.Context, title, artist string) string {
	key := CacheKey(title, artist)

	if value, ok := s.cached(ctx, key); ok {
		s.hits.Add(1)
		return value
	}

	// without a provider the key stays absent
	if s.provider == nil || !s.provider.IsEnabled() {
		return ""
	}

	lyrics, err := s.provider.SearchLyrics(ctx, title, artist)
	if err != nil {
		if ctx.Err() != nil {
			return ""
		}
		s.errors.Add(1)
		slog.Warn("Lyrics lookup failed",
			"provider", s.provider.Name(),
			"title", title,
			"artist", artist,
			"error", err)
		lyrics = ""
	} else {
		s.fetch.Add(1)
	}

	lyrics = truncateRunes(lyrics, MaxLyricsRunes)
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, []byte(lyrics), 0); err != nil {
			slog.Warn("Failed to cache lyrics", "key", key, "error", err)
		}
	}

	return lyrics
}

func (s *Service) cached(ctx context.Context, key string) (string, bool) {
	if s.cache == nil {
		return "", false
	}

	data, err := s.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("Lyrics cache read failed", "key", key, "error", err)
		return "", false
	}
	if data != nil {
		return string(data), true
	}

	// some backends cannot tell an empty value from a missing key on Get
	exists, err := s.cache.Exists(ctx, key)
	if err != nil || !exists {
		return "", false
	}
	return "", true
}

// Stats returns lookup counters
func (s *Service) Stats() Stats {
	return Stats{
		CacheHits:   s.hits.Load(),
		Fetched:     s.fetch.Load(),
		FetchErrors: s.errors.Load(),
	}
}

// Flush persists buffered cache writes
func (s *Service) Flush(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return cache.Flush(ctx, s.cache)
}

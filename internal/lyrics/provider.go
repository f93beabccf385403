// Package lyrics looks up song lyrics and memoizes them in a persistent cache.
package lyrics

import "context"

// MaxLyricsRunes caps the stored lyric text
const MaxLyricsRunes = 20000

// Provider defines the interface for fetching lyrics from external services
type Provider interface {
	// SearchLyrics returns the lyrics of the best hit for title and artist,
	// or "" when the service knows no such song
	SearchLyrics(ctx context.Context, title, artist string) (string, error)

	// Name returns the provider name
	Name() string

	// IsEnabled returns whether the provider is configured
	IsEnabled() bool
}

package services

import (
	"context"
	"regexp"
	"strings"
)

// CatalogService defines the interface for music catalog searches
type CatalogService interface {
	// GetPlatformName returns the name of this platform
	GetPlatformName() string

	// SearchTrack searches for tracks on the platform. No hits is an empty
	// slice, not an error.
	SearchTrack(ctx context.Context, query SearchQuery) ([]*TrackInfo, error)

	// Health checks if the platform service is usable
	Health(ctx context.Context) error
}

// PlaylistService defines the user library operations used by import and export
type PlaylistService interface {
	CurrentUserID(ctx context.Context) (string, error)
	ListPlaylists(ctx context.Context) ([]Playlist, error)
	FindPlaylistByName(ctx context.Context, name string) (*Playlist, error)
	CreatePlaylist(ctx context.Context, userID string, req CreatePlaylistRequest) (*Playlist, error)
	AddTracks(ctx context.Context, playlistID string, uris []string) error
	PlaylistTracks(ctx context.Context, playlistID string) ([]*TrackInfo, error)
}

// TrackInfo represents track information from a platform
type TrackInfo struct {
	// Platform identifiers
	Platform   string `json:"platform"`
	ExternalID string `json:"external_id"`
	URI        string `json:"uri"`
	URL        string `json:"url,omitempty"`

	// Core track metadata
	Title    string   `json:"title"`
	Artists  []string `json:"artists"`
	Album    string   `json:"album,omitempty"`
	ISRC     string   `json:"isrc,omitempty"`
	Duration int      `json:"duration_ms,omitempty"` // Duration in milliseconds

	// Additional metadata
	ReleaseDate string `json:"release_date,omitempty"`
	Explicit    bool   `json:"explicit,omitempty"`
	Popularity  int    `json:"popularity,omitempty"`
}

// ArtistString joins the artists the way exported CSVs store them
func (t *TrackInfo) ArtistString() string {
	return strings.Join(t.Artists, ", ")
}

// SearchQuery represents a structured search for tracks. Each platform
// renders it into its own query syntax.
type SearchQuery struct {
	Title  string `json:"title,omitempty"`
	Artist string `json:"artist,omitempty"`
	Album  string `json:"album,omitempty"`
	ISRC   string `json:"isrc,omitempty"`
	Query  string `json:"query,omitempty"` // Free-form search query
	Limit  int    `json:"limit,omitempty"`
}

// Playlist is a user playlist summary
type Playlist struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Public     bool   `json:"public"`
	TrackCount int    `json:"track_count"`
}

// CreatePlaylistRequest carries the attributes of a new playlist
type CreatePlaylistRequest struct {
	Name        string
	Public      bool
	Description string
}

// trackURIPattern recognises track references accepted from input files
type trackURIPattern struct {
	Regex    *regexp.Regexp
	Platform string
}

var trackURIPatterns = []trackURIPattern{
	{
		Regex:    regexp.MustCompile(`^spotify:track:([A-Za-z0-9]{22})$`),
		Platform: "spotify",
	},
	{
		Regex:    regexp.MustCompile(`^(?:https?://)?open\.spotify\.com/(?:intl-[a-z]+/)?track/([A-Za-z0-9]{22})(?:[?#].*)?$`),
		Platform: "spotify",
	},
	{
		Regex:    regexp.MustCompile(`^(?:https?://)?music\.apple\.com/[a-z]{2}/(?:album|song)/(?:[^/]+/)?(\d+)`),
		Platform: "apple_music",
	},
}

// ParseTrackURI extracts the platform and track ID from a track URI or URL
func ParseTrackURI(uri string) (platform string, trackID string, err error) {
	uri = strings.TrimSpace(uri)
	for _, pattern := range trackURIPatterns {
		if matches := pattern.Regex.FindStringSubmatch(uri); len(matches) > 1 {
			return pattern.Platform, matches[1], nil
		}
	}

	return "", "", &PlatformError{
		Platform:  "unknown",
		Operation: "parse_uri",
		Message:   "unsupported track reference",
		URL:       uri,
	}
}

// SpotifyTrackURI returns the canonical spotify:track: URI for any accepted
// Spotify track reference
func SpotifyTrackURI(ref string) (string, bool) {
	platform, id, err := ParseTrackURI(ref)
	if err != nil || platform != "spotify" {
		return "", false
	}
	return "spotify:track:" + id, true
}

// PlatformError represents an error from a platform service
type PlatformError struct {
	Platform   string
	Operation  string
	Message    string
	URL        string
	StatusCode int
	Err        error
}

func (e *PlatformError) Error() string {
	msg := e.Platform + " " + e.Operation + " failed"
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.URL != "" {
		msg += " (URL: " + e.URL + ")"
	}
	if e.Err != nil {
		msg += " - " + e.Err.Error()
	}
	return msg
}

func (e *PlatformError) Unwrap() error {
	return e.Err
}

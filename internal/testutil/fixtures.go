package testutil

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"tracksort/internal/services"

	"github.com/stretchr/testify/require"
)

// TrackInfoBuilder provides a fluent interface for creating test TrackInfo
type TrackInfoBuilder struct {
	track *services.TrackInfo
}

// NewTrackInfoBuilder creates a new TrackInfo builder with default values
func NewTrackInfoBuilder() *TrackInfoBuilder {
	return &TrackInfoBuilder{
		track: &services.TrackInfo{
			Platform:   "spotify",
			ExternalID: SpotifyTrackID1,
			URI:        "spotify:track:" + SpotifyTrackID1,
			Title:      "Test Song",
			Artists:    []string{"Test Artist"},
		},
	}
}

// WithID sets the external ID and derives the Spotify URI from it
func (b *TrackInfoBuilder) WithID(id string) *TrackInfoBuilder {
	b.track.ExternalID = id
	b.track.URI = "spotify:track:" + id
	return b
}

// WithTitle sets the title
func (b *TrackInfoBuilder) WithTitle(title string) *TrackInfoBuilder {
	b.track.Title = title
	return b
}

// WithArtists sets the artists
func (b *TrackInfoBuilder) WithArtists(artists ...string) *TrackInfoBuilder {
	b.track.Artists = artists
	return b
}

// WithAlbum sets the album
func (b *TrackInfoBuilder) WithAlbum(album string) *TrackInfoBuilder {
	b.track.Album = album
	return b
}

// Build returns the constructed TrackInfo
func (b *TrackInfoBuilder) Build() *services.TrackInfo {
	return b.track
}

// Common test data
var (
	// Sample Spotify track IDs
	SpotifyTrackID1 = "7qiZfU4dY1lWllzX7mPBI3"
	SpotifyTrackID2 = "0tgVpDi06FyKpA1z0VMD4v"
)

// WriteCSV writes rows (header first) to dir/name and returns the path
func WriteCSV(t *testing.T, dir, name string, rows [][]string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := csv.NewWriter(f)
	require.NoError(t, w.WriteAll(rows))
	return path
}

// ReadCSV reads every record of a CSV file, stripping a UTF-8 byte order mark
func ReadCSV(t *testing.T, path string) [][]string {
	t.Helper()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	if len(raw) >= 3 && raw[0] == 0xEF && raw[1] == 0xBB && raw[2] == 0xBF {
		raw = raw[3:]
	}

	records, err := csv.NewReader(bytes.NewReader(raw)).ReadAll()
	require.NoError(t, err)
	return records
}

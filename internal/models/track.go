package models

import (
	"strings"

	"tracksort/internal/artist"
)

// SpotifyTrackURIPrefix is the scheme prefix of a Spotify track URI.
const SpotifyTrackURIPrefix = "spotify:track:"

// Track is one track reference parsed from an input row
type Track struct {
	Title string `json:"title"`
	// ArtistField is the artist column exactly as read, e.g. "A feat. B"
	ArtistField string   `json:"artist"`
	Artists     []string `json:"artists"`
	Album       string   `json:"album,omitempty"`
	TrackURI    string   `json:"track_uri,omitempty"`
}

// NewTrack builds a Track, trimming every field and splitting the artist
// field into individual collaborators.
func NewTrack(title, artistField, album, trackURI string) Track {
	artistField = strings.TrimSpace(artistField)
	return Track{
		Title:       strings.TrimSpace(title),
		ArtistField: artistField,
		Artists:     artist.Split(artistField),
		Album:       strings.TrimSpace(album),
		TrackURI:    strings.TrimSpace(trackURI),
	}
}

// MatchArtists returns the artist list used as a catalog search target.
// Only list separators split the field here, see artist.SplitList.
func (t Track) MatchArtists() []string {
	return artist.SplitList(t.ArtistField)
}

// HasSpotifyURI reports whether TrackURI is a usable Spotify track URI.
func (t Track) HasSpotifyURI() bool {
	return strings.HasPrefix(t.TrackURI, SpotifyTrackURIPrefix) && len(t.TrackURI) > len(SpotifyTrackURIPrefix)
}

// SkippedRow records an input row that could not be processed.
type SkippedRow struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

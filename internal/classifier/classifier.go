package classifier

import (
	"context"
	"log/slog"
	"strings"

	"tracksort/internal/artist"
	"tracksort/internal/language"
	"tracksort/internal/models"
)

// Source names the signal that produced a decision
type Source string

const (
	SourceVote      Source = "vote"
	SourceArtistMap Source = "artist_map"
	SourceLyrics    Source = "lyrics"
	SourceText      Source = "text"
	SourceDefault   Source = "default"
)

// Sources returns every source in cascade order
func Sources() []Source {
	return []Source{SourceVote, SourceArtistMap, SourceLyrics, SourceText, SourceDefault}
}

// Decision is the outcome of classifying one track
type Decision struct {
	Label  language.Label `json:"label"`
	Source Source         `json:"source"`
}

// LyricsLookup returns lyrics for a (title, artist) pair, "" when none are
// known. Implementations never fail; lookup errors degrade to "".
type LyricsLookup interface {
	Lyrics(ctx context.Context, title, artist string) string
}

// Classifier runs the label cascade. It holds no per-run state and may be
// shared across sessions.
type Classifier struct {
	artists *artist.Map
	lyrics  LyricsLookup
	rules   []language.Rule
}

// New creates a classifier. A nil lyrics lookup skips the lyric step.
func New(artists *artist.Map, lyrics LyricsLookup) *Classifier {
	if artists == nil {
		artists = artist.NewMap()
	}
	return &Classifier{
		artists: artists,
		lyrics:  lyrics,
		rules:   language.DefaultRules,
	}
}

// Artists returns the artist map in use
func (c *Classifier) Artists() *artist.Map {
	return c.artists
}

// Classify returns the label of track. Artists missing from the map are
// recorded in session, which may be nil. The only error is ctx's: a lyric
// lookup cut short by cancellation leaves the track undecided.
func (c *Classifier) Classify(ctx context.Context, session *Session, track models.Track) (Decision, error) {
	decision, err := c.classify(ctx, session, track)
	if err != nil {
		slog.Debug("Track classification aborted", "title", track.Title, "error", err)
		return Decision{}, err
	}
	if session != nil {
		session.record(decision)
	}

	slog.Debug("Track classified",
		"title", track.Title,
		"artist", track.ArtistField,
		"label", decision.Label,
		"source", decision.Source)

	return decision, nil
}

func (c *Classifier) classify(ctx context.Context, session *Session, track models.Track) (Decision, error) {
	if len(track.Artists) >= 2 {
		if label, ok := c.artists.Vote(track.Artists); ok {
			return Decision{Label: label, Source: SourceVote}, nil
		}
	}

	if label, ok := c.artists.Lookup(track.ArtistField); ok {
		return Decision{Label: label, Source: SourceArtistMap}, nil
	}
	if track.ArtistField != "" && session != nil {
		session.AddUnknown(track.ArtistField)
	}

	if c.lyrics != nil {
		text := c.lyrics.Lyrics(ctx, track.Title, track.ArtistField)
		if err := ctx.Err(); err != nil {
			return Decision{}, err
		}
		if text != "" {
			if label, ok := language.Detect(c.rules, text); ok {
				return Decision{Label: label, Source: SourceLyrics}, nil
			}
		}
	}

	text := strings.Join([]string{track.Title, track.Album, track.ArtistField}, " ")
	if label, ok := language.Detect(c.rules, text); ok {
		return Decision{Label: label, Source: SourceText}, nil
	}

	return Decision{Label: language.Other, Source: SourceDefault}, nil
}

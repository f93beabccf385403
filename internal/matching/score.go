// Package matching resolves loosely specified track references to catalog
// tracks. Queries go from most to least specific and candidates are ranked by
// an additive integer score computed on normalized text.
package matching

import (
	"strings"

	"tracksort/internal/services"
	"tracksort/internal/textnorm"
)

// Weights are the points awarded by each scoring rule
type Weights struct {
	// TitleExact is awarded when the normalized titles are equal
	TitleExact int `json:"title_exact" toml:"title_exact"`
	// TitlePartial is awarded when one title contains the other
	TitlePartial int `json:"title_partial" toml:"title_partial"`
	// ArtistOverlap is awarded once when the artist sets intersect
	ArtistOverlap int `json:"artist_overlap" toml:"artist_overlap"`
	// ArtistPartial is awarded per target artist found inside a candidate artist
	ArtistPartial int `json:"artist_partial" toml:"artist_partial"`
	// Album is awarded when the albums are equal or one contains the other
	Album int `json:"album" toml:"album"`
}

// DefaultWeights returns the standard scoring weights
func DefaultWeights() Weights {
	return Weights{
		TitleExact:    3,
		TitlePartial:  2,
		ArtistOverlap: 3,
		ArtistPartial: 1,
		Album:         1,
	}
}

// Target is the track being looked for
type Target struct {
	Title   string   `json:"title"`
	Artists []string `json:"artists"`
	Album   string   `json:"album,omitempty"`
}

// normalizedTarget holds the comparison forms of a Target
type normalizedTarget struct {
	title   string
	album   string
	artists []string
	weights Weights
}

func (w Weights) normalize(t Target) normalizedTarget {
	return normalizedTarget{
		title:   textnorm.Normalize(t.Title),
		album:   textnorm.Normalize(t.Album),
		artists: uniqueStrings(textnorm.NormalizeAll(t.Artists)),
		weights: w,
	}
}

// Score returns the additive match score of candidate against target
func (w Weights) Score(target Target, candidate *services.TrackInfo) int {
	return w.normalize(target).score(candidate)
}

// MaxScore returns the highest score any candidate can reach for target
func (w Weights) MaxScore(target Target) int {
	return w.normalize(target).maxScore()
}

// Best returns the highest scoring candidate and its score. Ties keep the
// candidate seen first. An empty candidate list returns nil.
func (w Weights) Best(target Target, candidates []*services.TrackInfo) (*services.TrackInfo, int) {
	return w.normalize(target).best(candidates)
}

// Score scores candidate with DefaultWeights
func Score(target Target, candidate *services.TrackInfo) int {
	return DefaultWeights().Score(target, candidate)
}

// MaxScore is MaxScore with DefaultWeights
func MaxScore(target Target) int {
	return DefaultWeights().MaxScore(target)
}

// Best picks a candidate with DefaultWeights
func Best(target Target, candidates []*services.TrackInfo) (*services.TrackInfo, int) {
	return DefaultWeights().Best(target, candidates)
}

func (n normalizedTarget) score(candidate *services.TrackInfo) int {
	if candidate == nil {
		return 0
	}

	w := n.weights
	score := 0

	title := textnorm.Normalize(candidate.Title)
	if n.title != "" {
		if title == n.title {
			score += w.TitleExact
		} else if containsEither(title, n.title) {
			score += w.TitlePartial
		}
	}

	artists := textnorm.NormalizeAll(candidate.Artists)
	if intersects(n.artists, artists) {
		score += w.ArtistOverlap
	}
	for _, want := range n.artists {
		for _, have := range artists {
			if strings.Contains(have, want) {
				score += w.ArtistPartial
				break
			}
		}
	}

	if n.album != "" {
		album := textnorm.Normalize(candidate.Album)
		if album == n.album || containsEither(album, n.album) {
			score += w.Album
		}
	}

	return score
}

func (n normalizedTarget) maxScore() int {
	w := n.weights
	total := 0
	if n.title != "" {
		total += max(w.TitleExact, w.TitlePartial)
	}
	if len(n.artists) > 0 {
		total += w.ArtistOverlap + w.ArtistPartial*len(n.artists)
	}
	if n.album != "" {
		total += w.Album
	}
	return total
}

func (n normalizedTarget) best(candidates []*services.TrackInfo) (*services.TrackInfo, int) {
	var best *services.TrackInfo
	bestScore := -1
	for _, candidate := range candidates {
		if candidate == nil {
			continue
		}
		if s := n.score(candidate); s > bestScore {
			best, bestScore = candidate, s
		}
	}
	if best == nil {
		return nil, 0
	}
	return best, bestScore
}

// containsEither reports whether one non-empty string contains the other
func containsEither(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func intersects(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := values[:0]
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

package matching

import (
	"strings"

	"tracksort/internal/services"
)

// BuildQueries returns the search cascade for a track, most specific first:
// title with first artist and album, title with first artist, title only.
// The album level needs an album and the artist level needs an artist.
func BuildQueries(title string, artists []string, album string) []services.SearchQuery {
	title = strings.TrimSpace(title)
	album = strings.TrimSpace(album)

	mainArtist := ""
	for _, a := range artists {
		if a = strings.TrimSpace(a); a != "" {
			mainArtist = a
			break
		}
	}

	queries := make([]services.SearchQuery, 0, 3)
	if album != "" {
		queries = append(queries, services.SearchQuery{Title: title, Artist: mainArtist, Album: album})
	}
	if mainArtist != "" {
		queries = append(queries, services.SearchQuery{Title: title, Artist: mainArtist})
	}
	queries = append(queries, services.SearchQuery{Title: title})
	return queries
}

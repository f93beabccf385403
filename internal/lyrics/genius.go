package lyrics

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"tracksort/internal/services"
)

const geniusAPIURL = "https://api.genius.com"

// lyricSelectors are tried in order; the first one matching anything wins
var lyricSelectors = []string{
	`div[data-lyrics-container="true"]`,
	"div.Lyrics__Container-sc-1ynbvzw-1",
	"div.lyrics p",
}

var blankLinesPattern = regexp.MustCompile(`\n{3,}`)

// GeniusConfig configures the Genius provider
type GeniusConfig struct {
	Token  string
	APIURL string
}

// GeniusProvider searches the Genius API and scrapes the lyric page of the
// first hit
type GeniusProvider struct {
	client *resty.Client
	pacer  *services.Pacer
	token  string
}

// NewGeniusProvider creates a Genius provider. Without a token the provider
// is disabled.
func NewGeniusProvider(cfg GeniusConfig, pacer *services.Pacer) *GeniusProvider {
	if cfg.APIURL == "" {
		cfg.APIURL = geniusAPIURL
	}
	if pacer == nil {
		pacer = services.NewPacer(0, 0, 0)
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.APIURL, "/")).
		SetRetryCount(0)

	return &GeniusProvider{
		client: client,
		pacer:  pacer,
		token:  cfg.Token,
	}
}

// Name returns the provider name
func (g *GeniusProvider) Name() string {
	return "genius"
}

// IsEnabled reports whether an API token is configured
func (g *GeniusProvider) IsEnabled() bool {
	return g.token != ""
}

// SearchLyrics searches for "title artist" and returns the lyrics of the
// first hit
func (g *GeniusProvider) SearchLyrics(ctx context.Context, title, artist string) (string, error) {
	if !g.IsEnabled() {
		return "", nil
	}

	songURL, err := g.searchSongURL(ctx, strings.TrimSpace(title+" "+artist))
	if err != nil {
		return "", err
	}
	if songURL == "" {
		return "", nil
	}

	resp, err := g.pacer.Do(ctx, func(ctx context.Context) (*resty.Response, error) {
		return g.client.R().SetContext(ctx).Get(songURL)
	})
	if err != nil {
		return "", fmt.Errorf("fetching lyric page %s: %w", songURL, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("fetching lyric page %s: status %d", songURL, resp.StatusCode())
	}

	lyrics, err := ExtractLyrics(resp.Body())
	if err != nil {
		return "", fmt.Errorf("parsing lyric page %s: %w", songURL, err)
	}

	slog.Debug("Lyrics fetched", "title", title, "artist", artist, "url", songURL, "chars", len([]rune(lyrics)))
	return lyrics, nil
}

func (g *GeniusProvider) searchSongURL(ctx context.Context, query string) (string, error) {
	var result geniusSearchResponse
	resp, err := g.pacer.Do(ctx, func(ctx context.Context) (*resty.Response, error) {
		return g.client.R().
			SetContext(ctx).
			SetAuthToken(g.token).
			SetQueryParam("q", query).
			SetResult(&result).
			Get("/search")
	})
	if err != nil {
		return "", fmt.Errorf("genius search: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("genius search: status %d", resp.StatusCode())
	}

	if len(result.Response.Hits) == 0 {
		return "", nil
	}
	return result.Response.Hits[0].Result.URL, nil
}

// ExtractLyrics pulls the lyric text out of a lyric page. Text nodes are
// joined by newlines, runs of blank lines are collapsed and the result is
// capped at MaxLyricsRunes.
func ExtractLyrics(page []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", err
	}

	var parts []string
	for _, selector := range lyricSelectors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			parts = append(parts, textWithSeparator(s, "\n"))
		})
		if len(parts) > 0 {
			break
		}
	}

	lyrics := strings.TrimSpace(strings.Join(parts, "\n"))
	lyrics = blankLinesPattern.ReplaceAllString(lyrics, "\n\n")
	return truncateRunes(lyrics, MaxLyricsRunes), nil
}

// textWithSeparator joins every descendant text node of s with sep
func textWithSeparator(s *goquery.Selection, sep string) string {
	var texts []string
	var walk func(sel *goquery.Selection)
	walk = func(sel *goquery.Selection) {
		sel.Contents().Each(func(_ int, child *goquery.Selection) {
			if goquery.NodeName(child) == "#text" {
				texts = append(texts, child.Text())
				return
			}
			walk(child)
		})
	}
	walk(s)
	return strings.Join(texts, sep)
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}

type geniusSearchResponse struct {
	Response struct {
		Hits []struct {
			Result struct {
				URL   string `json:"url"`
				Title string `json:"title"`
			} `json:"result"`
		} `json:"hits"`
	} `json:"response"`
}

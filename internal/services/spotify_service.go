package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Spotify API endpoints
const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyAPIURL   = "https://api.spotify.com/v1"

	spotifySearchMaxLimit   = 50
	spotifyAddTracksChunk   = 100
	spotifyDescriptionLimit = 300
)

// SpotifyConfig holds Spotify credentials. With a refresh token the service
// acts on behalf of that user and can manage playlists; without one it uses
// the client credentials grant, which only allows catalog search.
type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	Market       string

	// Overridable endpoints
	APIURL   string
	TokenURL string
}

// SpotifyService implements CatalogService and PlaylistService for Spotify
type SpotifyService struct {
	client  *resty.Client
	pacer   *Pacer
	market  string
	hasUser bool

	// fetchToken requests a new access token within ctx
	fetchToken func(ctx context.Context) (*oauth2.Token, error)
	mu         sync.Mutex
	token      *oauth2.Token
}

// NewSpotifyService creates a new Spotify service
func NewSpotifyService(cfg SpotifyConfig, pacer *Pacer) (*SpotifyService, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, &PlatformError{
			Platform:  "spotify",
			Operation: "init",
			Message:   "missing Spotify client credentials",
		}
	}
	if pacer == nil {
		pacer = NewPacer(0, 0, 0)
	}
	if cfg.APIURL == "" {
		cfg.APIURL = spotifyAPIURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = spotifyTokenURL
	}

	var fetchToken func(ctx context.Context) (*oauth2.Token, error)
	if cfg.RefreshToken != "" {
		oauthConfig := &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		}
		refreshToken := cfg.RefreshToken
		fetchToken = func(ctx context.Context) (*oauth2.Token, error) {
			token, err := oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
			if err != nil {
				return nil, err
			}
			// Spotify may rotate the refresh token
			if token.RefreshToken != "" {
				refreshToken = token.RefreshToken
			}
			return token, nil
		}
	} else {
		credentials := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		fetchToken = credentials.Token
	}

	// retries are owned by the pacer
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.APIURL, "/")).
		SetRetryCount(0)

	return &SpotifyService{
		client:     client,
		pacer:      pacer,
		market:     cfg.Market,
		hasUser:    cfg.RefreshToken != "",
		fetchToken: fetchToken,
	}, nil
}

// GetPlatformName returns the platform name
func (s *SpotifyService) GetPlatformName() string {
	return "spotify"
}

// CanManagePlaylists reports whether a user token is configured
func (s *SpotifyService) CanManagePlaylists() bool {
	return s.hasUser
}

// Health checks that a token can be obtained
func (s *SpotifyService) Health(ctx context.Context) error {
	_, err := s.accessToken(ctx)
	return err
}

// SearchTrack searches for tracks on Spotify
func (s *SpotifyService) SearchTrack(ctx context.Context, query SearchQuery) ([]*TrackInfo, error) {
	searchQuery := s.buildSearchQuery(query)
	limit := query.Limit
	if limit <= 0 {
		limit = 10
	}
	if limit > spotifySearchMaxLimit {
		limit = spotifySearchMaxLimit
	}

	params := map[string]string{
		"q":     searchQuery,
		"type":  "track",
		"limit": strconv.Itoa(limit),
	}
	if s.market != "" {
		params["market"] = s.market
	}

	var searchResult SpotifySearchResult
	if err := s.get(ctx, "search", "/search", params, &searchResult); err != nil {
		return nil, err
	}

	tracks := make([]*TrackInfo, 0, len(searchResult.Tracks.Items))
	for i := range searchResult.Tracks.Items {
		tracks = append(tracks, s.convertSpotifyTrack(&searchResult.Tracks.Items[i]))
	}

	slog.Debug("Spotify search", "query", searchQuery, "results", len(tracks))
	return tracks, nil
}

// CurrentUserID returns the ID of the user the refresh token belongs to
func (s *SpotifyService) CurrentUserID(ctx context.Context) (string, error) {
	if err := s.requireUser("current_user"); err != nil {
		return "", err
	}

	var user SpotifyUser
	if err := s.get(ctx, "current_user", "/me", nil, &user); err != nil {
		return "", err
	}
	if user.ID == "" {
		return "", &PlatformError{
			Platform:  "spotify",
			Operation: "current_user",
			Message:   "response carried no user id",
		}
	}
	return user.ID, nil
}

// ListPlaylists returns every playlist of the current user
func (s *SpotifyService) ListPlaylists(ctx context.Context) ([]Playlist, error) {
	if err := s.requireUser("list_playlists"); err != nil {
		return nil, err
	}

	var playlists []Playlist
	const limit = 50
	for offset := 0; ; offset += limit {
		var page SpotifyPlaylistPaging
		params := map[string]string{
			"limit":  strconv.Itoa(limit),
			"offset": strconv.Itoa(offset),
		}
		if err := s.get(ctx, "list_playlists", "/me/playlists", params, &page); err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			playlists = append(playlists, Playlist{
				ID:         item.ID,
				Name:       item.Name,
				Public:     item.Public,
				TrackCount: item.Tracks.Total,
			})
		}

		if page.Next == "" || len(page.Items) == 0 {
			break
		}
	}

	return playlists, nil
}

// FindPlaylistByName returns the first playlist with exactly this name, or
// nil when there is none
func (s *SpotifyService) FindPlaylistByName(ctx context.Context, name string) (*Playlist, error) {
	playlists, err := s.ListPlaylists(ctx)
	if err != nil {
		return nil, err
	}

	for i := range playlists {
		if playlists[i].Name == name {
			return &playlists[i], nil
		}
	}
	return nil, nil
}

// CreatePlaylist creates a playlist owned by userID
func (s *SpotifyService) CreatePlaylist(ctx context.Context, userID string, req CreatePlaylistRequest) (*Playlist, error) {
	if err := s.requireUser("create_playlist"); err != nil {
		return nil, err
	}

	description := req.Description
	if runes := []rune(description); len(runes) > spotifyDescriptionLimit {
		description = string(runes[:spotifyDescriptionLimit])
	}

	body := map[string]interface{}{
		"name":        req.Name,
		"public":      req.Public,
		"description": description,
	}

	var created SpotifyPlaylist
	path := fmt.Sprintf("/users/%s/playlists", userID)
	if err := s.post(ctx, "create_playlist", path, body, &created); err != nil {
		return nil, err
	}

	slog.Info("Spotify playlist created", "name", created.Name, "id", created.ID)

	return &Playlist{
		ID:     created.ID,
		Name:   created.Name,
		Public: created.Public,
	}, nil
}

// AddTracks appends URIs to a playlist in chunks of 100. A failing chunk is
// logged and the remaining chunks are still sent; the first error is returned.
func (s *SpotifyService) AddTracks(ctx context.Context, playlistID string, uris []string) error {
	if err := s.requireUser("add_tracks"); err != nil {
		return err
	}

	var firstErr error
	path := fmt.Sprintf("/playlists/%s/tracks", playlistID)
	for start := 0; start < len(uris); start += spotifyAddTracksChunk {
		end := start + spotifyAddTracksChunk
		if end > len(uris) {
			end = len(uris)
		}

		body := map[string]interface{}{"uris": uris[start:end]}
		if err := s.post(ctx, "add_tracks", path, body, nil); err != nil {
			slog.Error("Failed to add track chunk",
				"playlist_id", playlistID,
				"offset", start,
				"count", end-start,
				"error", err)
			if firstErr == nil {
				firstErr = err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}

	return firstErr
}

// PlaylistTracks returns every track of a playlist in playlist order. Items
// without a track (removed or local episodes) are skipped.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, playlistID string) ([]*TrackInfo, error) {
	if err := s.requireUser("playlist_tracks"); err != nil {
		return nil, err
	}

	var tracks []*TrackInfo
	const limit = 100
	path := fmt.Sprintf("/playlists/%s/tracks", playlistID)
	for offset := 0; ; offset += limit {
		var page SpotifyPlaylistTrackPaging
		params := map[string]string{
			"limit":  strconv.Itoa(limit),
			"offset": strconv.Itoa(offset),
		}
		if err := s.get(ctx, "playlist_tracks", path, params, &page); err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			if item.Track == nil {
				continue
			}
			tracks = append(tracks, s.convertSpotifyTrack(item.Track))
		}

		if page.Next == "" || len(page.Items) == 0 {
			break
		}
	}

	return tracks, nil
}

func (s *SpotifyService) requireUser(operation string) error {
	if s.CanManagePlaylists() {
		return nil
	}
	return &PlatformError{
		Platform:  "spotify",
		Operation: operation,
		Message:   "user authorization required (set SPOTIFY_REFRESH_TOKEN)",
	}
}

// accessToken returns the cached token or fetches a new one, bounded by ctx
// and the pacer's per-call timeout
func (s *SpotifyService) accessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token.Valid() {
		return s.token.AccessToken, nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.pacer.Timeout())
	defer cancel()

	token, err := s.fetchToken(fetchCtx)
	if err != nil {
		return "", &PlatformError{
			Platform:  "spotify",
			Operation: "auth",
			Message:   "failed to get access token",
			Err:       err,
		}
	}
	s.token = token
	slog.Debug("Spotify access token refreshed", "expires_at", token.Expiry)
	return token.AccessToken, nil
}

func (s *SpotifyService) get(ctx context.Context, operation, path string, params map[string]string, result interface{}) error {
	return s.do(ctx, operation, func(req *resty.Request) (*resty.Response, error) {
		return req.SetQueryParams(params).SetResult(result).Get(path)
	})
}

func (s *SpotifyService) post(ctx context.Context, operation, path string, body, result interface{}) error {
	return s.do(ctx, operation, func(req *resty.Request) (*resty.Response, error) {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
		if result != nil {
			req.SetResult(result)
		}
		return req.Post(path)
	})
}

func (s *SpotifyService) do(ctx context.Context, operation string, send func(req *resty.Request) (*resty.Response, error)) error {
	token, err := s.accessToken(ctx)
	if err != nil {
		return err
	}

	resp, err := s.pacer.Do(ctx, func(ctx context.Context) (*resty.Response, error) {
		return send(s.client.R().SetContext(ctx).SetAuthToken(token))
	})
	if err != nil {
		return &PlatformError{
			Platform:  "spotify",
			Operation: operation,
			Message:   "request failed",
			Err:       err,
		}
	}

	if resp.IsError() {
		return &PlatformError{
			Platform:   "spotify",
			Operation:  operation,
			Message:    fmt.Sprintf("API returned status %d", resp.StatusCode()),
			StatusCode: resp.StatusCode(),
		}
	}

	return nil
}

// buildSearchQuery renders a structured query with Spotify field filters
func (s *SpotifyService) buildSearchQuery(query SearchQuery) string {
	if query.ISRC != "" {
		return fmt.Sprintf("isrc:%s", query.ISRC)
	}

	if query.Query != "" {
		return query.Query
	}

	var parts []string
	if query.Title != "" {
		parts = append(parts, fmt.Sprintf("track:\"%s\"", query.Title))
	}
	if query.Artist != "" {
		parts = append(parts, fmt.Sprintf("artist:\"%s\"", query.Artist))
	}
	if query.Album != "" {
		parts = append(parts, fmt.Sprintf("album:\"%s\"", query.Album))
	}

	return strings.Join(parts, " ")
}

// convertSpotifyTrack converts Spotify API response to TrackInfo
func (s *SpotifyService) convertSpotifyTrack(track *SpotifyTrack) *TrackInfo {
	artists := make([]string, 0, len(track.Artists))
	for _, artist := range track.Artists {
		artists = append(artists, artist.Name)
	}

	uri := track.URI
	if uri == "" && track.ID != "" {
		uri = "spotify:track:" + track.ID
	}

	return &TrackInfo{
		Platform:    "spotify",
		ExternalID:  track.ID,
		URI:         uri,
		URL:         track.ExternalURLs.Spotify,
		Title:       track.Name,
		Artists:     artists,
		Album:       track.Album.Name,
		ISRC:        track.ExternalIDs.ISRC,
		Duration:    track.DurationMs,
		ReleaseDate: track.Album.ReleaseDate,
		Explicit:    track.Explicit,
		Popularity:  track.Popularity,
	}
}

// Spotify API response structures
type SpotifyTrack struct {
	ID           string              `json:"id"`
	URI          string              `json:"uri"`
	Name         string              `json:"name"`
	Artists      []SpotifyArtist     `json:"artists"`
	Album        SpotifyAlbum        `json:"album"`
	DurationMs   int                 `json:"duration_ms"`
	Explicit     bool                `json:"explicit"`
	Popularity   int                 `json:"popularity"`
	ExternalIDs  SpotifyExternalIDs  `json:"external_ids"`
	ExternalURLs SpotifyExternalURLs `json:"external_urls"`
}

type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type SpotifyAlbum struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ReleaseDate string `json:"release_date"`
}

type SpotifyExternalIDs struct {
	ISRC string `json:"isrc"`
}

type SpotifyExternalURLs struct {
	Spotify string `json:"spotify"`
}

type SpotifySearchResult struct {
	Tracks SpotifyTracksPaging `json:"tracks"`
}

type SpotifyTracksPaging struct {
	Items []SpotifyTrack `json:"items"`
	Total int            `json:"total"`
}

type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type SpotifyPlaylist struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Public bool   `json:"public"`
	Tracks struct {
		Total int `json:"total"`
	} `json:"tracks"`
}

type SpotifyPlaylistPaging struct {
	Items []SpotifyPlaylist `json:"items"`
	Next  string            `json:"next"`
}

type SpotifyPlaylistItem struct {
	Track *SpotifyTrack `json:"track"`
}

type SpotifyPlaylistTrackPaging struct {
	Items []SpotifyPlaylistItem `json:"items"`
	Next  string                `json:"next"`
}

var (
	_ CatalogService  = (*SpotifyService)(nil)
	_ PlaylistService = (*SpotifyService)(nil)
)

package services

import (
	"context"
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Apple Music API endpoints
const (
	appleMusicAPIURL         = "https://api.music.apple.com/v1"
	appleMusicSearchMaxLimit = 25
)

// AppleMusicConfig holds developer token credentials
type AppleMusicConfig struct {
	KeyID      string
	TeamID     string
	KeyFile    string
	Storefront string

	// Overridable endpoint
	APIURL string
}

// developerTokenLifetime is how long a signed developer token is valid;
// tokens are re-signed developerTokenSkew before they expire
const (
	developerTokenLifetime = time.Hour
	developerTokenSkew     = 5 * time.Minute
)

// AppleMusicService implements CatalogService for the Apple Music catalog
type AppleMusicService struct {
	client     *resty.Client
	pacer      *Pacer
	keyID      string
	teamID     string
	storefront string
	privateKey *ecdsa.PrivateKey
	now        func() time.Time

	mu      sync.Mutex
	token   string
	renewAt time.Time
}

// NewAppleMusicService creates a new Apple Music service. The private key is
// loaded eagerly so that missing credentials fail before a run starts.
func NewAppleMusicService(cfg AppleMusicConfig, pacer *Pacer) (*AppleMusicService, error) {
	if cfg.KeyID == "" || cfg.TeamID == "" || cfg.KeyFile == "" {
		return nil, &PlatformError{
			Platform:  "apple_music",
			Operation: "init",
			Message:   "missing Apple Music API credentials",
		}
	}
	if pacer == nil {
		pacer = NewPacer(0, 0, 0)
	}
	if cfg.APIURL == "" {
		cfg.APIURL = appleMusicAPIURL
	}
	if cfg.Storefront == "" {
		cfg.Storefront = "us"
	}

	privateKey, err := loadPrivateKey(cfg.KeyFile)
	if err != nil {
		return nil, &PlatformError{
			Platform:  "apple_music",
			Operation: "init",
			Message:   "failed to load private key",
			Err:       err,
		}
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.APIURL, "/")).
		SetRetryCount(0)

	return &AppleMusicService{
		client:     client,
		pacer:      pacer,
		keyID:      cfg.KeyID,
		teamID:     cfg.TeamID,
		storefront: cfg.Storefront,
		privateKey: privateKey,
		now:        time.Now,
	}, nil
}

// GetPlatformName returns the platform name
func (s *AppleMusicService) GetPlatformName() string {
	return "apple_music"
}

// SearchTrack searches for tracks on Apple Music
func (s *AppleMusicService) SearchTrack(ctx context.Context, query SearchQuery) ([]*TrackInfo, error) {
	searchQuery := s.buildSearchQuery(query)
	limit := query.Limit
	if limit <= 0 {
		limit = 10
	}
	if limit > appleMusicSearchMaxLimit {
		limit = appleMusicSearchMaxLimit
	}

	token, err := s.developerToken()
	if err != nil {
		return nil, err
	}

	var searchResult appleSearchResponse
	resp, err := s.pacer.Do(ctx, func(ctx context.Context) (*resty.Response, error) {
		return s.client.R().
			SetContext(ctx).
			SetAuthToken(token).
			SetQueryParams(map[string]string{
				"term":  searchQuery,
				"types": "songs",
				"limit": strconv.Itoa(limit),
			}).
			SetResult(&searchResult).
			Get(fmt.Sprintf("/catalog/%s/search", s.storefront))
	})
	if err != nil {
		return nil, &PlatformError{
			Platform:  "apple_music",
			Operation: "search",
			Message:   "request failed",
			Err:       err,
		}
	}

	if resp.IsError() {
		return nil, &PlatformError{
			Platform:   "apple_music",
			Operation:  "search",
			Message:    fmt.Sprintf("API returned status %d", resp.StatusCode()),
			StatusCode: resp.StatusCode(),
		}
	}

	songs := searchResult.Results.Songs.Data
	tracks := make([]*TrackInfo, 0, len(songs))
	for i := range songs {
		tracks = append(tracks, s.trackInfo(&songs[i]))
	}

	slog.Debug("Apple Music search", "query", searchQuery, "results", len(tracks))
	return tracks, nil
}

// BuildURL constructs Apple Music URL from track ID
func (s *AppleMusicService) BuildURL(trackID string) string {
	return fmt.Sprintf("https://music.apple.com/%s/song/%s", s.storefront, trackID)
}

// Health checks that a developer token can be signed
func (s *AppleMusicService) Health(ctx context.Context) error {
	_, err := s.developerToken()
	return err
}

// loadPrivateKey loads the Apple Music private key from a PKCS#8 PEM file
func loadPrivateKey(keyFile string) (*ecdsa.PrivateKey, error) {
	keyData, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}

	block, _ := pem.Decode(keyData)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block from private key")
	}

	privateKey, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	ecdsaKey, ok := privateKey.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is not ECDSA")
	}

	return ecdsaKey, nil
}

// developerToken returns the cached developer token, signing a new one when
// the cached token is within developerTokenSkew of expiry
func (s *AppleMusicService) developerToken() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.token != "" && now.Before(s.renewAt) {
		return s.token, nil
	}

	claims := jwt.RegisteredClaims{
		Issuer:    s.teamID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(developerTokenLifetime)),
	}
	unsigned := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	unsigned.Header["kid"] = s.keyID

	signed, err := unsigned.SignedString(s.privateKey)
	if err != nil {
		return "", &PlatformError{
			Platform:  "apple_music",
			Operation: "auth",
			Message:   "failed to sign developer token",
			Err:       err,
		}
	}

	s.token = signed
	s.renewAt = now.Add(developerTokenLifetime - developerTokenSkew)
	slog.Debug("Apple Music developer token signed", "renew_at", s.renewAt)

	return signed, nil
}

// buildSearchQuery renders a structured query as plain search terms
func (s *AppleMusicService) buildSearchQuery(query SearchQuery) string {
	if query.Query != "" {
		return query.Query
	}

	var parts []string
	for _, part := range []string{query.Title, query.Artist, query.Album, query.ISRC} {
		if part != "" {
			parts = append(parts, part)
		}
	}

	return strings.Join(parts, " ")
}

// trackInfo maps a catalog song resource to a TrackInfo
func (s *AppleMusicService) trackInfo(song *appleSong) *TrackInfo {
	attrs := song.Attributes

	var artists []string
	if attrs.ArtistName != "" {
		artists = []string{attrs.ArtistName}
	}

	link := attrs.URL
	if link == "" {
		link = s.BuildURL(song.ID)
	}

	return &TrackInfo{
		Platform:    "apple_music",
		ExternalID:  song.ID,
		URI:         link,
		URL:         link,
		Title:       attrs.Name,
		Artists:     artists,
		Album:       attrs.AlbumName,
		ISRC:        attrs.ISRC,
		Duration:    attrs.DurationInMillis,
		ReleaseDate: attrs.ReleaseDate,
		Explicit:    attrs.ContentRating == "explicit",
	}
}

// appleSearchResponse is the subset of /catalog/{storefront}/search we read
type appleSearchResponse struct {
	Results struct {
		Songs struct {
			Data []appleSong `json:"data"`
		} `json:"songs"`
	} `json:"results"`
}

type appleSong struct {
	ID         string `json:"id"`
	Attributes struct {
		Name             string `json:"name"`
		ArtistName       string `json:"artistName"`
		AlbumName        string `json:"albumName"`
		ISRC             string `json:"isrc"`
		DurationInMillis int    `json:"durationInMillis"`
		ReleaseDate      string `json:"releaseDate"`
		ContentRating    string `json:"contentRating,omitempty"`
		URL              string `json:"url"`
	} `json:"attributes"`
}

var _ CatalogService = (*AppleMusicService)(nil)

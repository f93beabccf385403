package config

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"tracksort/internal/lyrics"
	"tracksort/internal/matching"
	"tracksort/internal/services"
)

// Catalog names
const (
	CatalogSpotify    = "spotify"
	CatalogAppleMusic = "apple_music"
)

// Lyric cache backends
const (
	CacheFile   = "file"
	CacheValkey = "valkey"
	CacheMongo  = "mongo"
)

// AuthMethod represents different authentication methods platforms can use
type AuthMethod string

const (
	AuthMethodOAuth2 AuthMethod = "oauth2"
	AuthMethodJWT    AuthMethod = "jwt"
)

// PlatformConfig describes one configured catalog
type PlatformConfig struct {
	Name       string     `json:"name"`
	Enabled    bool       `json:"enabled"`
	AuthMethod AuthMethod `json:"auth_method"`
	// ManagesPlaylists is set when user credentials allow playlist operations
	ManagesPlaylists bool `json:"manages_playlists"`
}

// Config holds all configuration for the application
type Config struct {
	// Application settings
	Port      string `envconfig:"PORT" default:"8080"`
	GinMode   string `envconfig:"GIN_MODE" default:"release"`
	LogFormat string `envconfig:"LOG_FORMAT"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	// Catalog used for matching and playlist operations
	Catalog string `envconfig:"CATALOG" default:"spotify"`

	SpotifyClientID     string `envconfig:"SPOTIFY_CLIENT_ID"`
	SpotifyClientSecret string `envconfig:"SPOTIFY_CLIENT_SECRET"`
	SpotifyRefreshToken string `envconfig:"SPOTIFY_REFRESH_TOKEN"`
	SpotifyMarket       string `envconfig:"SPOTIFY_MARKET"`

	AppleMusicKeyID      string `envconfig:"APPLE_MUSIC_KEY_ID"`
	AppleMusicTeamID     string `envconfig:"APPLE_MUSIC_TEAM_ID"`
	AppleMusicKeyFile    string `envconfig:"APPLE_MUSIC_KEY_FILE"`
	AppleMusicStorefront string `envconfig:"APPLE_MUSIC_STOREFRONT" default:"us"`

	GeniusAPIToken string `envconfig:"GENIUS_API_TOKEN"`

	ArtistMapPath string `envconfig:"ARTIST_MAP_PATH" default:"artist_lang_map.yaml"`

	// Lyric cache
	LyricsCache       string `envconfig:"LYRICS_CACHE" default:"file"`
	LyricsCachePath   string `envconfig:"LYRICS_CACHE_PATH" default:"lyrics_cache.json"`
	LyricsCacheL1Size int    `envconfig:"LYRICS_CACHE_L1_SIZE" default:"1000"`
	ValkeyURL         string `envconfig:"VALKEY_URL"`
	MongodbURL        string `envconfig:"MONGODB_URL"`
	MongodbDatabase   string `envconfig:"MONGODB_DATABASE" default:"tracksort"`

	// Catalog search results share the lyric backend when it is valkey or mongo
	SearchCacheTTL         time.Duration `envconfig:"SEARCH_CACHE_TTL" default:"24h"`
	SearchCacheNegativeTTL time.Duration `envconfig:"SEARCH_CACHE_NEGATIVE_TTL" default:"1h"`

	// Pacing of external calls
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"12s"`
	RequestInterval time.Duration `envconfig:"REQUEST_INTERVAL" default:"300ms"`
	RateLimitWait   time.Duration `envconfig:"RATE_LIMIT_WAIT" default:"1s"`

	// Matching
	SearchLimit      int    `envconfig:"SEARCH_LIMIT" default:"10"`
	MatchPolicy      string `envconfig:"MATCH_POLICY" default:"best"`
	MatchMinScore    int    `envconfig:"MATCH_MIN_SCORE" default:"0"`
	MatchWeightsPath string `envconfig:"MATCH_WEIGHTS_PATH"`

	// Platform configurations derived from the credentials above
	Platforms map[string]*PlatformConfig `ignored:"true" json:"-"`

	// Weights loaded from MatchWeightsPath or a well-known location
	Weights matching.Weights `ignored:"true" json:"-"`
}

// Load reads configuration from environment variables. Variables from the
// given .env files are loaded first; without files an optional ./.env is read.
// Variables already set in the environment win.
func Load(envFiles ...string) (*Config, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	cfg.Platforms = make(map[string]*PlatformConfig)
	cfg.loadBuiltinPlatforms()

	weights, err := LoadMatchWeights(cfg.MatchWeightsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load match weights: %w", err)
	}
	cfg.Weights = weights

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func loadEnvFiles(files []string) error {
	if len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			return fmt.Errorf("failed to load env file: %w", err)
		}
		return nil
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// loadBuiltinPlatforms registers the catalogs whose credentials are present
func (c *Config) loadBuiltinPlatforms() {
	if c.SpotifyClientID != "" && c.SpotifyClientSecret != "" {
		c.Platforms[CatalogSpotify] = &PlatformConfig{
			Name:             CatalogSpotify,
			Enabled:          true,
			AuthMethod:       AuthMethodOAuth2,
			ManagesPlaylists: c.SpotifyRefreshToken != "",
		}
	}

	if c.AppleMusicKeyID != "" && c.AppleMusicTeamID != "" && c.AppleMusicKeyFile != "" {
		c.Platforms[CatalogAppleMusic] = &PlatformConfig{
			Name:       CatalogAppleMusic,
			Enabled:    true,
			AuthMethod: AuthMethodJWT,
		}
	}
}

// Validate rejects unknown enum values and inconsistent settings
func (c *Config) Validate() error {
	var problems []string

	switch c.Catalog {
	case CatalogSpotify, CatalogAppleMusic:
	default:
		problems = append(problems, fmt.Sprintf("CATALOG must be %q or %q, got %q", CatalogSpotify, CatalogAppleMusic, c.Catalog))
	}

	switch c.LyricsCache {
	case CacheFile:
		if c.LyricsCachePath == "" {
			problems = append(problems, "LYRICS_CACHE_PATH is required for the file cache")
		}
	case CacheValkey:
		if c.ValkeyURL == "" {
			problems = append(problems, "VALKEY_URL is required for the valkey cache")
		}
	case CacheMongo:
		if c.MongodbURL == "" {
			problems = append(problems, "MONGODB_URL is required for the mongo cache")
		}
	default:
		problems = append(problems, fmt.Sprintf("LYRICS_CACHE must be one of file, valkey, mongo, got %q", c.LyricsCache))
	}

	if _, err := matching.ParsePolicy(c.MatchPolicy); err != nil {
		problems = append(problems, "MATCH_POLICY: "+err.Error())
	}

	switch strings.ToLower(c.LogFormat) {
	case "", "json", "text":
	default:
		problems = append(problems, fmt.Sprintf("LOG_FORMAT must be json or text, got %q", c.LogFormat))
	}

	if c.SearchLimit < 1 || c.SearchLimit > 50 {
		problems = append(problems, fmt.Sprintf("SEARCH_LIMIT must be between 1 and 50, got %d", c.SearchLimit))
	}
	if c.RequestTimeout <= 0 {
		problems = append(problems, "REQUEST_TIMEOUT must be positive")
	}
	if c.RequestInterval < 0 || c.RateLimitWait < 0 {
		problems = append(problems, "REQUEST_INTERVAL and RATE_LIMIT_WAIT must not be negative")
	}
	if c.SearchCacheTTL < 0 || c.SearchCacheNegativeTTL < 0 {
		problems = append(problems, "SEARCH_CACHE_TTL and SEARCH_CACHE_NEGATIVE_TTL must not be negative")
	}
	if err := ValidateWeights(c.Weights); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// GetPlatformConfig returns configuration for a specific platform
func (c *Config) GetPlatformConfig(platform string) (*PlatformConfig, bool) {
	config, exists := c.Platforms[platform]
	return config, exists
}

// GetEnabledPlatforms returns the sorted names of enabled platforms
func (c *Config) GetEnabledPlatforms() []string {
	var platforms []string
	for name, config := range c.Platforms {
		if config.Enabled {
			platforms = append(platforms, name)
		}
	}
	sort.Strings(platforms)
	return platforms
}

// platformCredentials names the variables that enable each catalog
var platformCredentials = map[string]string{
	CatalogSpotify:    "SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET",
	CatalogAppleMusic: "APPLE_MUSIC_KEY_ID, APPLE_MUSIC_TEAM_ID and APPLE_MUSIC_KEY_FILE",
}

// RequirePlatform returns an error naming the missing credentials when
// platform is not enabled
func (c *Config) RequirePlatform(platform string) error {
	if c.IsEnabled(platform) {
		return nil
	}
	if vars, ok := platformCredentials[platform]; ok {
		return fmt.Errorf("%s is not configured: set %s", platform, vars)
	}
	return fmt.Errorf("unknown platform %q", platform)
}

// RequirePlaylistAccess returns an error unless Spotify is configured with
// user credentials
func (c *Config) RequirePlaylistAccess() error {
	if err := c.RequirePlatform(CatalogSpotify); err != nil {
		return err
	}
	if platform, _ := c.GetPlatformConfig(CatalogSpotify); !platform.ManagesPlaylists {
		return errors.New("playlist access needs SPOTIFY_REFRESH_TOKEN")
	}
	return nil
}

// IsEnabled checks if a platform is enabled
func (c *Config) IsEnabled(platform string) bool {
	config, exists := c.GetPlatformConfig(platform)
	return exists && config.Enabled
}

// Spotify returns the Spotify client settings
func (c *Config) Spotify() services.SpotifyConfig {
	return services.SpotifyConfig{
		ClientID:     c.SpotifyClientID,
		ClientSecret: c.SpotifyClientSecret,
		RefreshToken: c.SpotifyRefreshToken,
		Market:       c.SpotifyMarket,
	}
}

// AppleMusic returns the Apple Music client settings
func (c *Config) AppleMusic() services.AppleMusicConfig {
	return services.AppleMusicConfig{
		KeyID:      c.AppleMusicKeyID,
		TeamID:     c.AppleMusicTeamID,
		KeyFile:    c.AppleMusicKeyFile,
		Storefront: c.AppleMusicStorefront,
	}
}

// Genius returns the lyric provider settings
func (c *Config) Genius() lyrics.GeniusConfig {
	return lyrics.GeniusConfig{Token: c.GeniusAPIToken}
}

// Resolver returns the catalog matching settings
func (c *Config) Resolver() matching.ResolverConfig {
	policy, _ := matching.ParsePolicy(c.MatchPolicy)
	return matching.ResolverConfig{
		Policy:   policy,
		MinScore: c.MatchMinScore,
		Limit:    c.SearchLimit,
		Weights:  c.Weights,
	}
}

// SearchCacheEnabled reports whether catalog searches are cached. The file
// backend only holds lyrics.
func (c *Config) SearchCacheEnabled() bool {
	return c.LyricsCache != CacheFile && c.SearchCacheTTL > 0
}

// SearchCache returns the search result TTLs
func (c *Config) SearchCache() services.SearchCacheConfig {
	return services.SearchCacheConfig{
		TTL:         c.SearchCacheTTL,
		NegativeTTL: c.SearchCacheNegativeTTL,
	}
}

// NewPacer builds the pacer shared by all external calls
func (c *Config) NewPacer() *services.Pacer {
	return services.NewPacer(c.RequestInterval, c.RequestTimeout, c.RateLimitWait)
}

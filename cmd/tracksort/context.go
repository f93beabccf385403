package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"tracksort/internal/cache"
	"tracksort/internal/config"
	"tracksort/internal/logging"
	"tracksort/internal/lyrics"
	"tracksort/internal/models"
	"tracksort/internal/services"
)

type commandContext struct {
	envFiles  *[]string
	logFormat *string
	logLevel  *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	pacerOnce sync.Once
	pacer     *services.Pacer
}

func newCommandContext(envFiles *[]string, logFormat, logLevel *string) *commandContext {
	return &commandContext{
		envFiles:  envFiles,
		logFormat: logFormat,
		logLevel:  logLevel,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var files []string
		if c.envFiles != nil {
			files = *c.envFiles
		}
		cfg, err := config.Load(files...)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logFormat != nil && strings.TrimSpace(*c.logFormat) != "" {
			cfg.LogFormat = *c.logFormat
		}
		if c.logLevel != nil && strings.TrimSpace(*c.logLevel) != "" {
			cfg.LogLevel = *c.logLevel
		}
		if _, err := logging.Setup(cfg.LogFormat, cfg.LogLevel); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// sharedPacer returns the pacer every external client of this process uses
func (c *commandContext) sharedPacer() *services.Pacer {
	c.pacerOnce.Do(func() {
		c.pacer = c.config.NewPacer()
	})
	return c.pacer
}

// openLyricCache opens the configured lyric cache backend. The returned
// function releases it.
func (c *commandContext) openLyricCache(ctx context.Context) (cache.Cache, func(), error) {
	cfg := c.config

	switch cfg.LyricsCache {
	case config.CacheFile:
		fc, err := cache.NewFileCache(cfg.LyricsCachePath)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("Using file lyric cache", "path", cfg.LyricsCachePath, "entries", fc.Len())
		return fc, func() { closeQuietly("lyric cache", fc.Close) }, nil

	case config.CacheValkey:
		l2, err := cache.NewValkeyCache(cfg.ValkeyURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize valkey cache: %w", err)
		}
		ml := cache.NewMultiLevelCache(l2, cfg.LyricsCacheL1Size)
		slog.Info("Using valkey lyric cache", "l1_size", cfg.LyricsCacheL1Size)
		return ml, func() { closeQuietly("lyric cache", ml.Close) }, nil

	case config.CacheMongo:
		db, err := models.NewDatabase(ctx, cfg.MongodbURL, cfg.MongodbDatabase)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.CreateIndexes(ctx); err != nil {
			slog.Warn("Failed to create lyric cache indexes", "error", err)
		}
		ml := cache.NewMultiLevelCache(cache.NewMongoCache(db.DB.Collection(models.LyricsCollection)), cfg.LyricsCacheL1Size)
		slog.Info("Using mongo lyric cache", "database", cfg.MongodbDatabase, "l1_size", cfg.LyricsCacheL1Size)
		return ml, func() {
			closeQuietly("lyric cache", ml.Close)
			closeQuietly("database", func() error { return db.Close(context.Background()) })
		}, nil

	default:
		return nil, nil, fmt.Errorf("unknown lyric cache backend %q", cfg.LyricsCache)
	}
}

// openLyrics builds the lyric service over the configured cache. Without a
// Genius token only cached lyrics are served.
func (c *commandContext) openLyrics(ctx context.Context) (*lyrics.Service, cache.Cache, func(), error) {
	store, release, err := c.openLyricCache(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	provider := lyrics.NewGeniusProvider(c.config.Genius(), c.sharedPacer())
	if !provider.IsEnabled() {
		slog.Info("GENIUS_API_TOKEN not set, lyric lookups use the cache only")
	}
	return lyrics.NewService(provider, store), store, release, nil
}

// withSearchCache wraps catalog in a search result cache when the configured
// backend supports expiry. The returned function releases the cache.
func (c *commandContext) withSearchCache(ctx context.Context, catalog services.CatalogService) (services.CatalogService, func(), error) {
	if !c.config.SearchCacheEnabled() {
		return catalog, func() {}, nil
	}
	store, release, err := c.openLyricCache(ctx)
	if err != nil {
		return nil, nil, err
	}
	return services.NewCachedCatalog(catalog, store, c.config.SearchCache()), release, nil
}

// newCatalog builds the configured catalog search client
func (c *commandContext) newCatalog() (services.CatalogService, error) {
	if err := c.config.RequirePlatform(c.config.Catalog); err != nil {
		return nil, err
	}
	if c.config.Catalog == config.CatalogAppleMusic {
		svc, err := services.NewAppleMusicService(c.config.AppleMusic(), c.sharedPacer())
		if err != nil {
			return nil, err
		}
		return svc, nil
	}
	svc, err := c.newSpotify()
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func (c *commandContext) newSpotify() (*services.SpotifyService, error) {
	if err := c.config.RequirePlatform(config.CatalogSpotify); err != nil {
		return nil, err
	}
	return services.NewSpotifyService(c.config.Spotify(), c.sharedPacer())
}

// newPlaylistClient returns a Spotify client authorized for playlist
// operations
func (c *commandContext) newPlaylistClient() (*services.SpotifyService, error) {
	if err := c.config.RequirePlaylistAccess(); err != nil {
		return nil, err
	}
	return c.newSpotify()
}

// logPlatforms reports the catalogs whose credentials are present
func (c *commandContext) logPlatforms() {
	for _, name := range c.config.GetEnabledPlatforms() {
		platform, _ := c.config.GetPlatformConfig(name)
		slog.Info("Catalog credentials found",
			"platform", name,
			"auth_method", platform.AuthMethod,
			"manages_playlists", platform.ManagesPlaylists)
	}
}

func closeQuietly(what string, closeFn func() error) {
	if err := closeFn(); err != nil {
		slog.Warn("Failed to close", "resource", what, "error", err)
	}
}

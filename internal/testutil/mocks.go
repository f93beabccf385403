package testutil

import (
	"context"
	"sync"
	"time"

	"tracksort/internal/services"

	"github.com/stretchr/testify/mock"
)

// MockCatalogService is a mock implementation of services.CatalogService
type MockCatalogService struct {
	mock.Mock
	platformName string
}

// NewMockCatalogService creates a new mock catalog
func NewMockCatalogService(platformName string) *MockCatalogService {
	return &MockCatalogService{
		platformName: platformName,
	}
}

func (m *MockCatalogService) GetPlatformName() string {
	return m.platformName
}

func (m *MockCatalogService) SearchTrack(ctx context.Context, query services.SearchQuery) ([]*services.TrackInfo, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*services.TrackInfo), args.Error(1)
}

func (m *MockCatalogService) Health(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockPlaylistService is a mock implementation of services.PlaylistService
type MockPlaylistService struct {
	mock.Mock
}

func (m *MockPlaylistService) CurrentUserID(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockPlaylistService) ListPlaylists(ctx context.Context) ([]services.Playlist, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]services.Playlist), args.Error(1)
}

func (m *MockPlaylistService) FindPlaylistByName(ctx context.Context, name string) (*services.Playlist, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Playlist), args.Error(1)
}

func (m *MockPlaylistService) CreatePlaylist(ctx context.Context, userID string, req services.CreatePlaylistRequest) (*services.Playlist, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Playlist), args.Error(1)
}

func (m *MockPlaylistService) AddTracks(ctx context.Context, playlistID string, uris []string) error {
	args := m.Called(ctx, playlistID, uris)
	return args.Error(0)
}

func (m *MockPlaylistService) PlaylistTracks(ctx context.Context, playlistID string) ([]*services.TrackInfo, error) {
	args := m.Called(ctx, playlistID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*services.TrackInfo), args.Error(1)
}

// MockLyricsProvider is a mock lyric provider
type MockLyricsProvider struct {
	mock.Mock
	Disabled bool
}

func (m *MockLyricsProvider) SearchLyrics(ctx context.Context, title, artist string) (string, error) {
	args := m.Called(ctx, title, artist)
	return args.String(0), args.Error(1)
}

func (m *MockLyricsProvider) Name() string {
	return "mock"
}

func (m *MockLyricsProvider) IsEnabled() bool {
	return !m.Disabled
}

// StaticLyrics is a lyric provider answering from a fixed table keyed by
// title; unknown titles have no lyrics
type StaticLyrics map[string]string

func (s StaticLyrics) SearchLyrics(ctx context.Context, title, artist string) (string, error) {
	return s[title], nil
}

func (s StaticLyrics) Name() string {
	return "static"
}

func (s StaticLyrics) IsEnabled() bool {
	return true
}

// ExpectSearch sets up a SearchTrack expectation for an exact query
func ExpectSearch(m *MockCatalogService, query services.SearchQuery, tracks []*services.TrackInfo, err error) {
	m.On("SearchTrack", mock.Anything, query).Return(tracks, err)
}

// ExpectLyrics sets up a SearchLyrics expectation
func ExpectLyrics(m *MockLyricsProvider, title, artist, lyrics string, err error) {
	m.On("SearchLyrics", mock.Anything, title, artist).Return(lyrics, err)
}

// MemoryCache is an in-memory cache.Cache for tests
type MemoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemoryCache creates an empty MemoryCache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{data: make(map[string][]byte)}
}

func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.data[key]
	if !ok {
		return nil, nil
	}
	return value, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = append([]byte{}, value...)
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok, nil
}

func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

func (c *MemoryCache) Close() error {
	return nil
}

func (c *MemoryCache) Health(ctx context.Context) error {
	return nil
}

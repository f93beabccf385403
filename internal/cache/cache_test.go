package cache

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockCache implements the Cache interface for testing
type MockCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	gets    int
	flushed int
}

func NewMockCache() *MockCache {
	return &MockCache{
		data: make(map[string][]byte),
	}
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if value, exists := m.data[key]; exists {
		return value, nil
	}
	return nil, nil
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MockCache) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.data[key]
	return exists, nil
}

func (m *MockCache) Flush(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushed++
	return nil
}

func (m *MockCache) Close() error {
	return nil
}

func (m *MockCache) Health(ctx context.Context) error {
	return nil
}

func TestCacheError_Error(t *testing.T) {
	err := &CacheError{
		Operation: "get",
		Key:       "test-key",
		Err:       assert.AnError,
	}

	expectedMessage := "cache get failed for key 'test-key': assert.AnError general error for testing"
	assert.Equal(t, expectedMessage, err.Error())
}

func TestCacheError_Unwrap(t *testing.T) {
	err := &CacheError{Operation: "set", Key: "test-key", Err: assert.AnError}

	assert.ErrorIs(t, err, assert.AnError)
}

func TestFlush_OnlyCallsFlushers(t *testing.T) {
	ctx := context.Background()
	mock := NewMockCache()

	require.NoError(t, Flush(ctx, mock))
	assert.Equal(t, 1, mock.flushed)

	require.NoError(t, Flush(ctx, NewMongoCache(nil)))
}

func TestFileCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "lyrics_cache.json")

	c, err := NewFileCache(path)
	require.NoError(t, err)

	require.NoError(t, c.Set(ctx, `["晴天","周杰倫"]`, []byte("故事的小黃花\n從出生那年就飄著"), 0))
	require.NoError(t, c.Set(ctx, `["Tom & Jerry","<b>"]`, []byte("a < b & c"), 0))
	require.NoError(t, c.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "周杰倫")
	assert.Contains(t, string(raw), "Tom & Jerry")
	assert.NotContains(t, string(raw), `\u0026`)

	reopened, err := NewFileCache(path)
	require.NoError(t, err)
	assert.Equal(t, 2, reopened.Len())

	value, err := reopened.Get(ctx, `["晴天","周杰倫"]`)
	require.NoError(t, err)
	assert.Equal(t, "故事的小黃花\n從出生那年就飄著", string(value))
}

func TestFileCache_EmptyValueIsNotMissing(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(filepath.Join(t.TempDir(), "cache.json"))
	require.NoError(t, err)

	require.NoError(t, c.Set(ctx, "empty", []byte{}, 0))

	value, err := c.Get(ctx, "empty")
	require.NoError(t, err)
	assert.NotNil(t, value)
	assert.Empty(t, value)

	value, err = c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, value)

	exists, err := c.Exists(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFileCache_MergesOnFlush(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.json")

	first, err := NewFileCache(path)
	require.NoError(t, err)
	second, err := NewFileCache(path)
	require.NoError(t, err)

	require.NoError(t, first.Set(ctx, "a", []byte("from first"), 0))
	require.NoError(t, first.Set(ctx, "shared", []byte("first"), 0))
	require.NoError(t, first.Flush(ctx))

	require.NoError(t, second.Set(ctx, "b", []byte("from second"), 0))
	require.NoError(t, second.Set(ctx, "shared", []byte("second"), 0))
	require.NoError(t, second.Flush(ctx))

	merged, err := NewFileCache(path)
	require.NoError(t, err)
	assert.Equal(t, 3, merged.Len())

	value, _ := merged.Get(ctx, "a")
	assert.Equal(t, "from first", string(value))
	value, _ = merged.Get(ctx, "shared")
	assert.Equal(t, "second", string(value))
}

func TestFileCache_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	c, err := NewFileCache(path)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestFileCache_FlushWithoutChangesDoesNotWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")

	c, err := NewFileCache(path)
	require.NoError(t, err)
	require.NoError(t, c.Close())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestFileCache_CreatesParentDirectory(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "dir", "cache.json")

	c, err := NewFileCache(path)
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, c.Flush(ctx))

	_, err = os.Stat(path)
	assert.NoError(t, err)
	assert.NoError(t, c.Health(ctx))
}

func TestFileCache_Delete(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(filepath.Join(t.TempDir(), "cache.json"))
	require.NoError(t, err)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, c.Delete(ctx, "k"))

	exists, err := c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestNewFileCache_RequiresPath(t *testing.T) {
	_, err := NewFileCache("")
	assert.Error(t, err)
}

func TestMultiLevelCache_ReadsThroughToL2(t *testing.T) {
	ctx := context.Background()
	l2 := NewMockCache()
	require.NoError(t, l2.Set(ctx, "k", []byte("v"), 0))

	c := NewMultiLevelCache(l2, 10)

	value, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(value))

	// second read is served by L1
	value, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(value))
	assert.Equal(t, 1, l2.gets)
}

func TestMultiLevelCache_ZeroExpirationStaysInL1(t *testing.T) {
	ctx := context.Background()
	l2 := NewMockCache()
	c := NewMultiLevelCache(l2, 10)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))

	value, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(value))
	assert.Equal(t, 0, l2.gets)
}

func TestMultiLevelCache_MissReturnsNil(t *testing.T) {
	c := NewMultiLevelCache(NewMockCache(), 10)

	value, err := c.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestMultiLevelCache_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c := NewMultiLevelCache(NewMockCache(), 2)

	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Hour))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), time.Hour))

	// touching a makes b the eviction candidate
	_, err := c.Get(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, "c", []byte("3"), time.Hour))

	assert.Equal(t, 2, c.Len())
	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Contains(t, c.items, "a")
	assert.NotContains(t, c.items, "b")
	assert.Contains(t, c.items, "c")
}

func TestMultiLevelCache_ExpiredL1EntryReadsL2(t *testing.T) {
	ctx := context.Background()
	l2 := NewMockCache()
	c := NewMultiLevelCache(l2, 10)
	now := time.Now()
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	now = now.Add(2 * time.Minute)

	value, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(value))
	assert.Equal(t, 1, l2.gets)
}

func TestMultiLevelCache_DeleteAndFlush(t *testing.T) {
	ctx := context.Background()
	l2 := NewMockCache()
	c := NewMultiLevelCache(l2, 10)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, c.Delete(ctx, "k"))

	exists, err := c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, Flush(ctx, c))
	assert.Equal(t, 1, l2.flushed)
}

func TestValkeyClientOption(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		address  string
		username string
		password string
		db       int
		tls      bool
		wantErr  bool
	}{
		{name: "host only", url: "valkey://localhost:6379", address: "localhost:6379"},
		{name: "redis scheme with password", url: "redis://:secret@cache:6380", address: "cache:6380", password: "secret"},
		{name: "acl user and database", url: "redis://app:pw@cache:6379/2", address: "cache:6379", username: "app", password: "pw", db: 2},
		{name: "tls", url: "rediss://cache.example.com:6380", address: "cache.example.com:6380", tls: true},
		{name: "missing host", url: "redis://", wantErr: true},
		{name: "unknown scheme", url: "http://localhost:6379", wantErr: true},
		{name: "bad database", url: "redis://localhost:6379/main", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt, err := valkeyClientOption(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []string{tt.address}, opt.InitAddress)
			assert.Equal(t, tt.username, opt.Username)
			assert.Equal(t, tt.password, opt.Password)
			assert.Equal(t, tt.db, opt.SelectDB)
			assert.Equal(t, tt.tls, opt.TLSConfig != nil)
		})
	}
}

package lyrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracksort/internal/services"
	"tracksort/internal/testutil"
)

func TestCacheKey(t *testing.T) {
	assert.Equal(t, `["晴天", "周杰倫"]`, CacheKey("晴天", "周杰倫"))
	assert.Equal(t, `["Love Story", "Taylor Swift"]`, CacheKey("  Love Story ", "Taylor Swift\t"))
	assert.Equal(t, `["Rock & Roll <live>", "A \"B\""]`, CacheKey("Rock & Roll <live>", `A "B"`))
	assert.Equal(t, `["", ""]`, CacheKey("", ""))
}

func TestExtractLyrics_DataContainers(t *testing.T) {
	page := testutil.GeniusLyricsPage(
		[]string{"[Verse 1]", "故事的小黃花", "從出生那年就飄著"},
		[]string{"[Chorus]", "刮風這天"},
	)

	lyrics, err := ExtractLyrics([]byte(page))
	require.NoError(t, err)
	assert.Equal(t, "[Verse 1]\n故事的小黃花\n從出生那年就飄著\n[Chorus]\n刮風這天", lyrics)
}

func TestExtractLyrics_FallbackSelectors(t *testing.T) {
	page := `<html><body>
<div class="Lyrics__Container-sc-1ynbvzw-1">first<br/>second</div>
<div class="lyrics"><p>ignored</p></div>
</body></html>`
	lyrics, err := ExtractLyrics([]byte(page))
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond", lyrics)

	legacy := `<html><body><div class="lyrics"><p>Old</p><p>Style</p></div></body></html>`
	lyrics, err = ExtractLyrics([]byte(legacy))
	require.NoError(t, err)
	assert.Equal(t, "Old\nStyle", lyrics)
}

func TestExtractLyrics_CollapsesBlankLines(t *testing.T) {
	page := "<div data-lyrics-container=\"true\">a\n\n\n\n\nb</div>"

	lyrics, err := ExtractLyrics([]byte(page))
	require.NoError(t, err)
	assert.Equal(t, "a\n\nb", lyrics)
}

func TestExtractLyrics_NoContainer(t *testing.T) {
	lyrics, err := ExtractLyrics([]byte("<html><body><p>nothing here</p></body></html>"))
	require.NoError(t, err)
	assert.Equal(t, "", lyrics)
}

func TestExtractLyrics_Capped(t *testing.T) {
	page := `<div data-lyrics-container="true">` + strings.Repeat("あ", MaxLyricsRunes+500) + "</div>"

	lyrics, err := ExtractLyrics([]byte(page))
	require.NoError(t, err)
	assert.Equal(t, MaxLyricsRunes, len([]rune(lyrics)))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "héllo", truncateRunes("héllo", 10))
	assert.Equal(t, "hé", truncateRunes("héllo", 2))
	assert.Equal(t, "", truncateRunes("héllo", 0))
}

func newGeniusServer(t *testing.T, page string, searchStatus int) *testutil.MockHTTPServer {
	t.Helper()

	server := testutil.NewMockHTTPServer()
	t.Cleanup(server.Close)

	server.On("/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer genius-token", r.Header.Get("Authorization"))
		assert.Equal(t, "Lemon 米津玄師", r.URL.Query().Get("q"))
		if searchStatus != http.StatusOK {
			w.WriteHeader(searchStatus)
			return
		}
		writeJSON(t, w, testutil.GeniusSearchResponse(server.URL()+"/songs/lemon"))
	})
	server.On("/songs/lemon", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	})

	return server
}

func writeJSON(t *testing.T, w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestGeniusProvider_SearchLyrics(t *testing.T) {
	server := newGeniusServer(t, testutil.GeniusLyricsPage([]string{"夢ならばどれほどよかったでしょう"}), http.StatusOK)

	provider := NewGeniusProvider(GeniusConfig{Token: "genius-token", APIURL: server.URL()},
		services.NewPacer(time.Millisecond, time.Second, 0))
	assert.True(t, provider.IsEnabled())
	assert.Equal(t, "genius", provider.Name())

	lyrics, err := provider.SearchLyrics(context.Background(), "Lemon", "米津玄師")
	require.NoError(t, err)
	assert.Equal(t, "夢ならばどれほどよかったでしょう", lyrics)
	assert.Equal(t, 1, server.Hits("/search"))
	assert.Equal(t, 1, server.Hits("/songs/lemon"))
}

func TestGeniusProvider_NoHits(t *testing.T) {
	server := testutil.NewMockHTTPServer()
	defer server.Close()
	server.On("/search", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, testutil.GeniusSearchResponse(""))
	})

	provider := NewGeniusProvider(GeniusConfig{Token: "genius-token", APIURL: server.URL()},
		services.NewPacer(time.Millisecond, time.Second, 0))

	lyrics, err := provider.SearchLyrics(context.Background(), "Unknown", "Nobody")
	require.NoError(t, err)
	assert.Equal(t, "", lyrics)
}

func TestGeniusProvider_SearchError(t *testing.T) {
	server := newGeniusServer(t, "", http.StatusUnauthorized)

	provider := NewGeniusProvider(GeniusConfig{Token: "genius-token", APIURL: server.URL()},
		services.NewPacer(time.Millisecond, time.Second, 0))

	_, err := provider.SearchLyrics(context.Background(), "Lemon", "米津玄師")
	assert.Error(t, err)
	assert.Zero(t, server.Hits("/songs/lemon"))
}

func TestGeniusProvider_DisabledWithoutToken(t *testing.T) {
	provider := NewGeniusProvider(GeniusConfig{APIURL: "http://127.0.0.1:1"}, nil)
	assert.False(t, provider.IsEnabled())

	lyrics, err := provider.SearchLyrics(context.Background(), "Lemon", "米津玄師")
	require.NoError(t, err)
	assert.Equal(t, "", lyrics)
}

func TestService_FetchesAndCaches(t *testing.T) {
	ctx := context.Background()
	provider := &testutil.MockLyricsProvider{}
	testutil.ExpectLyrics(provider, "Lemon", "米津玄師", "夢ならば", nil)
	store := testutil.NewMemoryCache()

	svc := NewService(provider, store)

	assert.Equal(t, "夢ならば", svc.Lyrics(ctx, "Lemon", "米津玄師"))
	assert.Equal(t, "夢ならば", svc.Lyrics(ctx, "Lemon", "米津玄師"))

	provider.AssertNumberOfCalls(t, "SearchLyrics", 1)
	cached, err := store.Get(ctx, `["Lemon", "米津玄師"]`)
	require.NoError(t, err)
	assert.Equal(t, "夢ならば", string(cached))
	assert.Equal(t, Stats{CacheHits: 1, Fetched: 1}, svc.Stats())
}

func TestService_ErrorCachedAsEmpty(t *testing.T) {
	ctx := context.Background()
	provider := &testutil.MockLyricsProvider{}
	testutil.ExpectLyrics(provider, "Broken", "Artist", "", errors.New("boom"))
	store := testutil.NewMemoryCache()

	svc := NewService(provider, store)

	assert.Equal(t, "", svc.Lyrics(ctx, "Broken", "Artist"))
	assert.Equal(t, "", svc.Lyrics(ctx, "Broken", "Artist"))

	provider.AssertNumberOfCalls(t, "SearchLyrics", 1)
	exists, err := store.Exists(ctx, CacheKey("Broken", "Artist"))
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, int64(1), svc.Stats().FetchErrors)
}

func TestService_CachedEmptyIsNotRefetched(t *testing.T) {
	ctx := context.Background()
	provider := &testutil.MockLyricsProvider{}
	store := testutil.NewMemoryCache()
	require.NoError(t, store.Set(ctx, CacheKey("Instrumental Track", "Band"), []byte{}, 0))

	svc := NewService(provider, store)

	assert.Equal(t, "", svc.Lyrics(ctx, "Instrumental Track", "Band"))
	provider.AssertNotCalled(t, "SearchLyrics")
}

func TestService_DisabledProviderDoesNotCache(t *testing.T) {
	ctx := context.Background()
	provider := &testutil.MockLyricsProvider{Disabled: true}
	store := testutil.NewMemoryCache()

	svc := NewService(provider, store)

	assert.Equal(t, "", svc.Lyrics(ctx, "Lemon", "米津玄師"))
	provider.AssertNotCalled(t, "SearchLyrics")
	assert.Equal(t, 0, store.Len())
}

func TestService_TrimmedPairSharesEntry(t *testing.T) {
	ctx := context.Background()
	provider := &testutil.MockLyricsProvider{}
	testutil.ExpectLyrics(provider, "Lemon", "米津玄師", "夢ならば", nil)

	svc := NewService(provider, testutil.NewMemoryCache())

	assert.Equal(t, "夢ならば", svc.Lyrics(ctx, "Lemon", "米津玄師"))
	assert.Equal(t, "夢ならば", svc.Lyrics(ctx, " Lemon ", "米津玄師 "))
	provider.AssertNumberOfCalls(t, "SearchLyrics", 1)
}

func TestService_NilCache(t *testing.T) {
	svc := NewService(testutil.StaticLyrics{"Lemon": "夢ならば"}, nil)

	assert.Equal(t, "夢ならば", svc.Lyrics(context.Background(), "Lemon", "米津玄師"))
	assert.NoError(t, svc.Flush(context.Background()))
}

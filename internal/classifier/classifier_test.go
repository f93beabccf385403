package classifier

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracksort/internal/artist"
	"tracksort/internal/language"
	"tracksort/internal/lyrics"
	"tracksort/internal/models"
	"tracksort/internal/testutil"
)

// countingLyrics answers from a table keyed by title and counts lookups
type countingLyrics struct {
	mu    sync.Mutex
	texts map[string]string
	calls int
}

func (c *countingLyrics) Lyrics(ctx context.Context, title, artist string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.texts[title]
}

func testMap(t *testing.T) *artist.Map {
	t.Helper()
	m, err := artist.ParseMap([]byte(`
Japanese:
  - 米津玄師
  - YOASOBI
Chinese:
  - 周杰倫
  - Jay Chou
Korean:
  - IU
  - BTS
  - BLACKPINK
English:
  - Ed Sheeran
`))
	require.NoError(t, err)
	return m
}

func TestClassify_ArtistMapEndToEnd(t *testing.T) {
	c := New(testMap(t), nil)

	decision, err := c.Classify(context.Background(), NewSession(), models.NewTrack("告白気球", "米津玄師", "", ""))
	require.NoError(t, err)

	assert.Equal(t, Decision{Label: language.Japanese, Source: SourceArtistMap}, decision)
}

func TestClassify_TextFallbackEnglish(t *testing.T) {
	c := New(testMap(t), nil)
	session := NewSession()

	decision, err := c.Classify(context.Background(), session, models.NewTrack("Love Story", "Taylor Swift", "", ""))
	require.NoError(t, err)

	assert.Equal(t, Decision{Label: language.English, Source: SourceText}, decision)
	assert.Equal(t, []string{"Taylor Swift"}, session.Unknown())
}

func TestClassify_MapBeatsLyrics(t *testing.T) {
	stub := &countingLyrics{texts: map[string]string{"晴天": "夢ならばどれほどよかったでしょう"}}
	c := New(testMap(t), stub)

	decision, err := c.Classify(context.Background(), NewSession(), models.NewTrack("晴天", "周杰倫", "葉惠美", ""))
	require.NoError(t, err)

	assert.Equal(t, Decision{Label: language.Chinese, Source: SourceArtistMap}, decision)
	assert.Equal(t, 0, stub.calls)
}

func TestClassify_MapBeatsTitleScript(t *testing.T) {
	c := New(testMap(t), nil)

	decision, err := c.Classify(context.Background(), NewSession(), models.NewTrack("Love wins all", "IU", "", ""))
	require.NoError(t, err)

	assert.Equal(t, Decision{Label: language.Korean, Source: SourceArtistMap}, decision)
}

func TestClassify_Vote(t *testing.T) {
	c := New(testMap(t), nil)

	tests := []struct {
		name     string
		artists  string
		expected Decision
	}{
		{
			name:     "unanimous collaborators",
			artists:  "BTS feat. IU",
			expected: Decision{Label: language.Korean, Source: SourceVote},
		},
		{
			name:     "majority with unknown collaborator",
			artists:  "BTS, BLACKPINK, Somebody",
			expected: Decision{Label: language.Korean, Source: SourceVote},
		},
		{
			name:     "single known collaborator is unanimous",
			artists:  "Unknown Band & YOASOBI",
			expected: Decision{Label: language.Japanese, Source: SourceVote},
		},
		{
			name:    "tie falls through to full string lookup",
			artists: "Ed Sheeran & 周杰倫",
			// first map entry found inside the whole field wins
			expected: Decision{Label: language.Chinese, Source: SourceArtistMap},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision, err := c.Classify(context.Background(), NewSession(), models.NewTrack("Song", tt.artists, "", ""))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, decision)
		})
	}
}

func TestClassify_LyricsStep(t *testing.T) {
	stub := &countingLyrics{texts: map[string]string{
		"Spring Day":   "보고 싶다 이렇게 말하니까 더 보고 싶다",
		"Despacito":    "Sí, sabes que ya llevo un rato mirándote",
		"Numbers Only": "1 2 3 4 !!!",
	}}
	c := New(testMap(t), stub)

	decision, err := c.Classify(context.Background(), NewSession(), models.NewTrack("Spring Day", "방탄소년단", "", ""))
	require.NoError(t, err)
	assert.Equal(t, Decision{Label: language.Korean, Source: SourceLyrics}, decision)

	decision, err = c.Classify(context.Background(), NewSession(), models.NewTrack("Despacito", "Luis Fonsi", "", ""))
	require.NoError(t, err)
	assert.Equal(t, Decision{Label: language.Spanish, Source: SourceLyrics}, decision)

	// lyrics matching no rule fall back to the text step
	decision, err = c.Classify(context.Background(), NewSession(), models.NewTrack("Numbers Only", "Some Band", "", ""))
	require.NoError(t, err)
	assert.Equal(t, Decision{Label: language.English, Source: SourceText}, decision)
}

func TestClassify_InstrumentalFallback(t *testing.T) {
	stub := &countingLyrics{texts: map[string]string{}}
	c := New(testMap(t), stub)

	decision, err := c.Classify(context.Background(), NewSession(), models.NewTrack("夜に駆ける (Instrumental)", "Someone", "", ""))
	require.NoError(t, err)

	assert.Equal(t, Decision{Label: language.Instrumental, Source: SourceText}, decision)
	assert.Equal(t, 1, stub.calls)
}

func TestClassify_Default(t *testing.T) {
	c := New(nil, nil)
	session := NewSession()

	decision, err := c.Classify(context.Background(), session, models.NewTrack("1999", "", "", ""))
	require.NoError(t, err)

	assert.Equal(t, Decision{Label: language.Other, Source: SourceDefault}, decision)
	assert.Empty(t, session.Unknown())
}

func TestClassify_NilSession(t *testing.T) {
	c := New(testMap(t), nil)

	decision, err := c.Classify(context.Background(), nil, models.NewTrack("Love Story", "Taylor Swift", "", ""))
	require.NoError(t, err)

	assert.Equal(t, language.English, decision.Label)
}

func TestClassify_WithLyricsService(t *testing.T) {
	store := testutil.NewMemoryCache()
	// kana only: Han characters would make the lyrics Chinese
	svc := lyrics.NewService(testutil.StaticLyrics{"Lemon": "ゆめならば どれほど よかったでしょう"}, store)
	c := New(artist.NewMap(), svc)

	decision, err := c.Classify(context.Background(), NewSession(), models.NewTrack("Lemon", "Kenshi Yonezu", "", ""))
	require.NoError(t, err)

	assert.Equal(t, Decision{Label: language.Japanese, Source: SourceLyrics}, decision)
	assert.Equal(t, 1, store.Len())
}

// blockingLyrics waits for the lookup context to end, like a fetch that
// hangs until the run is interrupted
type blockingLyrics struct {
	started chan struct{}
}

func (b *blockingLyrics) Lyrics(ctx context.Context, title, artist string) string {
	close(b.started)
	<-ctx.Done()
	return ""
}

func TestClassify_CancelledDuringLyricsLeavesTrackUndecided(t *testing.T) {
	provider := &blockingLyrics{started: make(chan struct{})}
	c := New(artist.NewMap(), provider)
	session := NewSession()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-provider.started
		cancel()
	}()

	// the text fallback would say Chinese
	decision, err := c.Classify(ctx, session, models.NewTrack("晴天", "周杰倫", "", ""))
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Decision{}, decision)
	assert.Zero(t, session.Total())
	assert.Empty(t, session.SourceCounts())
}

func TestSession_Tallies(t *testing.T) {
	c := New(testMap(t), nil)
	session := NewSession()
	ctx := context.Background()

	c.Classify(ctx, session, models.NewTrack("告白気球", "米津玄師", "", ""))
	c.Classify(ctx, session, models.NewTrack("Love Story", "Taylor Swift", "", ""))
	c.Classify(ctx, session, models.NewTrack("Shake It Off", "Taylor Swift", "", ""))
	c.Classify(ctx, session, models.NewTrack("1999", "", "", ""))

	assert.NotEmpty(t, session.ID)
	assert.Equal(t, 4, session.Total())
	assert.Equal(t, map[language.Label]int{
		language.Japanese: 1,
		language.English:  2,
		language.Other:    1,
	}, session.LabelCounts())
	assert.Equal(t, map[Source]int{
		SourceArtistMap: 1,
		SourceText:      2,
		SourceDefault:   1,
	}, session.SourceCounts())
	assert.Equal(t, []string{"Taylor Swift"}, session.Unknown())
}

func TestSession_ConcurrentUse(t *testing.T) {
	c := New(testMap(t), &countingLyrics{texts: map[string]string{}})
	session := NewSession()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			artistName := fmt.Sprintf("Artist %d", i%5)
			c.Classify(context.Background(), session, models.NewTrack("Song", artistName, "", ""))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 20, session.Total())
	assert.Equal(t, []string{"Artist 0", "Artist 1", "Artist 2", "Artist 3", "Artist 4"}, session.Unknown())
}

func TestSession_UniqueIDs(t *testing.T) {
	assert.NotEqual(t, NewSession().ID, NewSession().ID)
}

package services

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestKey(t *testing.T) (string, *ecdsa.PrivateKey) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "AuthKey.p8")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), 0o600))
	return path, key
}

func TestNewAppleMusicService_MissingCredentials(t *testing.T) {
	_, err := NewAppleMusicService(AppleMusicConfig{KeyID: "k"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing Apple Music API credentials")
}

func TestNewAppleMusicService_BadKeyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.p8")
	require.NoError(t, os.WriteFile(path, []byte("not a key"), 0o600))

	_, err := NewAppleMusicService(AppleMusicConfig{KeyID: "k", TeamID: "t", KeyFile: path}, nil)
	require.Error(t, err)

	var platformErr *PlatformError
	require.ErrorAs(t, err, &platformErr)
	assert.Equal(t, "init", platformErr.Operation)
}

func TestAppleMusicService_SearchTrack(t *testing.T) {
	keyFile, key := writeTestKey(t)

	var gotTerm, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotTerm = r.URL.Query().Get("term")

		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
			assert.Equal(t, "KEY123", token.Header["kid"])
			return &key.PublicKey, nil
		}, jwt.WithValidMethods([]string{"ES256"}))
		if !assert.NoError(t, err) || !token.Valid {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		issuer, _ := token.Claims.GetIssuer()
		assert.Equal(t, "TEAM456", issuer)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":{"songs":{"data":[{"id":"1193701392","type":"songs",
			"attributes":{"name":"Shape of You","artistName":"Ed Sheeran","albumName":"÷ (Deluxe)"}}]}}}`))
	}))
	defer server.Close()

	svc, err := NewAppleMusicService(AppleMusicConfig{
		KeyID:      "KEY123",
		TeamID:     "TEAM456",
		KeyFile:    keyFile,
		Storefront: "jp",
		APIURL:     server.URL,
	}, NewPacer(time.Millisecond, time.Second, 0))
	require.NoError(t, err)
	require.NoError(t, svc.Health(context.Background()))

	tracks, err := svc.SearchTrack(context.Background(), SearchQuery{Title: "Shape of You", Artist: "Ed Sheeran"})
	require.NoError(t, err)
	require.Len(t, tracks, 1)

	assert.Equal(t, "/catalog/jp/search", gotPath)
	assert.Equal(t, "Shape of You Ed Sheeran", gotTerm)
	assert.Equal(t, "apple_music", tracks[0].Platform)
	assert.Equal(t, "https://music.apple.com/jp/song/1193701392", tracks[0].URI)
	assert.Equal(t, []string{"Ed Sheeran"}, tracks[0].Artists)
}

func TestAppleMusicService_SearchTrack_Error(t *testing.T) {
	keyFile, _ := writeTestKey(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	svc, err := NewAppleMusicService(AppleMusicConfig{
		KeyID:   "k",
		TeamID:  "t",
		KeyFile: keyFile,
		APIURL:  server.URL,
	}, NewPacer(time.Millisecond, time.Second, 0))
	require.NoError(t, err)

	_, err = svc.SearchTrack(context.Background(), SearchQuery{Title: "x"})
	require.Error(t, err)

	var platformErr *PlatformError
	require.ErrorAs(t, err, &platformErr)
	assert.Equal(t, http.StatusForbidden, platformErr.StatusCode)
}

func TestAppleMusicService_DeveloperTokenCached(t *testing.T) {
	keyFile, _ := writeTestKey(t)

	svc, err := NewAppleMusicService(AppleMusicConfig{KeyID: "k", TeamID: "t", KeyFile: keyFile}, nil)
	require.NoError(t, err)

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	first, err := svc.developerToken()
	require.NoError(t, err)

	now = now.Add(50 * time.Minute)
	second, err := svc.developerToken()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	now = now.Add(6 * time.Minute)
	third, err := svc.developerToken()
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
}

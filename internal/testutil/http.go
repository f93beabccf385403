package testutil

import (
	"bytes"
	"encoding/json"
	"html"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// HTTPTestHelper provides utilities for HTTP testing
type HTTPTestHelper struct {
	t      *testing.T
	router *gin.Engine
}

// NewHTTPTestHelper creates a new HTTP test helper
func NewHTTPTestHelper(t *testing.T) *HTTPTestHelper {
	gin.SetMode(gin.TestMode)
	return &HTTPTestHelper{
		t:      t,
		router: gin.New(),
	}
}

// SetRouter sets the gin router to use for testing
func (h *HTTPTestHelper) SetRouter(router *gin.Engine) {
	h.router = router
}

// PostJSON sends payload as a JSON body
func (h *HTTPTestHelper) PostJSON(url string, payload interface{}) *httptest.ResponseRecorder {
	body, err := json.Marshal(payload)
	require.NoError(h.t, err, "Failed to marshal JSON payload")
	return h.serve(http.MethodPost, url, bytes.NewReader(body))
}

// GetJSON sends a GET request accepting JSON
func (h *HTTPTestHelper) GetJSON(url string) *httptest.ResponseRecorder {
	return h.serve(http.MethodGet, url, nil)
}

func (h *HTTPTestHelper) serve(method, url string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, body)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	recorder := httptest.NewRecorder()
	h.router.ServeHTTP(recorder, req)
	return recorder
}

// AssertJSONResponse asserts that the response is valid JSON and unmarshals it
func (h *HTTPTestHelper) AssertJSONResponse(recorder *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	require.Equal(h.t, expectedStatus, recorder.Code, "Unexpected status code")
	require.Equal(h.t, "application/json; charset=utf-8", recorder.Header().Get("Content-Type"), "Expected JSON content type")

	err := json.Unmarshal(recorder.Body.Bytes(), target)
	require.NoError(h.t, err, "Failed to unmarshal JSON response")
}

// AssertErrorResponse asserts that the response contains an error
func (h *HTTPTestHelper) AssertErrorResponse(recorder *httptest.ResponseRecorder, expectedStatus int, expectedErrorSubstring string) {
	require.Equal(h.t, expectedStatus, recorder.Code, "Unexpected status code")

	var errorResponse map[string]interface{}
	err := json.Unmarshal(recorder.Body.Bytes(), &errorResponse)
	require.NoError(h.t, err, "Failed to unmarshal error response")

	errorMessage, exists := errorResponse["error"]
	require.True(h.t, exists, "Expected error field in response")
	require.Contains(h.t, errorMessage, expectedErrorSubstring, "Error message should contain expected substring")
}

// MockHTTPServer provides a mock HTTP server for testing external API calls
type MockHTTPServer struct {
	server   *httptest.Server
	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	hits     map[string]int
}

// NewMockHTTPServer creates a new mock HTTP server
func NewMockHTTPServer() *MockHTTPServer {
	mock := &MockHTTPServer{
		handlers: make(map[string]http.HandlerFunc),
		hits:     make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", mock.routeRequest)

	mock.server = httptest.NewServer(mux)
	return mock
}

// URL returns the mock server URL
func (m *MockHTTPServer) URL() string {
	return m.server.URL
}

// Close closes the mock server
func (m *MockHTTPServer) Close() {
	m.server.Close()
}

// On registers a handler for a specific path
func (m *MockHTTPServer) On(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// Hits returns how many requests reached path
func (m *MockHTTPServer) Hits(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits[path]
}

// routeRequest dispatches by exact path; unknown paths get 404
func (m *MockHTTPServer) routeRequest(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.hits[r.URL.Path]++
	handler, exists := m.handlers[r.URL.Path]
	m.mu.Unlock()

	if !exists {
		http.NotFound(w, r)
		return
	}
	handler(w, r)
}

// GeniusSearchResponse creates a Genius search response whose first hit
// points at songURL
func GeniusSearchResponse(songURL string) map[string]interface{} {
	hits := []map[string]interface{}{}
	if songURL != "" {
		hits = append(hits, map[string]interface{}{
			"result": map[string]interface{}{
				"title": "Test Song",
				"url":   songURL,
			},
		})
	}
	return map[string]interface{}{
		"response": map[string]interface{}{
			"hits": hits,
		},
	}
}

// GeniusLyricsPage renders a lyric page with one lyrics container per
// stanza, lines separated by <br/>
func GeniusLyricsPage(stanzas ...[]string) string {
	var b strings.Builder
	b.WriteString("<html><body><div id=\"lyrics-root\">")
	for _, lines := range stanzas {
		b.WriteString(`<div data-lyrics-container="true">`)
		for i, line := range lines {
			if i > 0 {
				b.WriteString("<br/>")
			}
			b.WriteString(html.EscapeString(line))
		}
		b.WriteString("</div>")
	}
	b.WriteString("</div></body></html>")
	return b.String()
}

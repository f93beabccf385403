package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"tracksort/internal/lyrics"
)

const healthCheckTimeout = 5 * time.Second

// HealthChecker is a dependency probed by GET /health
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status string            `json:"status"`
	Time   string            `json:"time"`
	Checks map[string]string `json:"checks,omitempty"`
	Lyrics *lyrics.Stats     `json:"lyrics,omitempty"`
}

// HealthHandler reports the state of the server's dependencies
type HealthHandler struct {
	checks map[string]HealthChecker
	lyrics *lyrics.Service
}

// NewHealthHandler creates a health handler. lyricsService may be nil.
func NewHealthHandler(checks map[string]HealthChecker, lyricsService *lyrics.Service) *HealthHandler {
	return &HealthHandler{checks: checks, lyrics: lyricsService}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	response := HealthResponse{
		Status: "healthy",
		Time:   time.Now().UTC().Format(time.RFC3339),
		Checks: make(map[string]string, len(h.checks)),
	}

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := h.checks[name].Health(ctx); err != nil {
			response.Checks[name] = err.Error()
			response.Status = "degraded"
			continue
		}
		response.Checks[name] = "ok"
	}

	if h.lyrics != nil {
		stats := h.lyrics.Stats()
		response.Lyrics = &stats
	}

	status := http.StatusOK
	if response.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, response)
}

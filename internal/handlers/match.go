package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"tracksort/internal/matching"
	"tracksort/internal/models"
	"tracksort/internal/services"
)

// MatchRequest represents the request to find a track in the catalog
type MatchRequest struct {
	Title  string `json:"title" binding:"required"`
	Artist string `json:"artist,omitempty"`
	Album  string `json:"album,omitempty"`
}

// MatchResponse describes the winning catalog track
type MatchResponse struct {
	Track    *services.TrackInfo  `json:"track"`
	Score    int                  `json:"score"`
	MaxScore int                  `json:"max_score"`
	Level    int                  `json:"level"`
	Query    services.SearchQuery `json:"query"`
	Policy   matching.Policy      `json:"policy"`
}

// MatchHandler resolves tracks against the configured catalog
type MatchHandler struct {
	resolver *matching.Resolver
	weights  matching.Weights
}

// NewMatchHandler creates a match handler. weights must be the resolver's.
func NewMatchHandler(resolver *matching.Resolver, weights matching.Weights) *MatchHandler {
	if weights == (matching.Weights{}) {
		weights = matching.DefaultWeights()
	}
	return &MatchHandler{resolver: resolver, weights: weights}
}

// Match handles POST /api/v1/match
func (h *MatchHandler) Match(c *gin.Context) {
	var req MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	track := models.NewTrack(req.Title, req.Artist, req.Album, "")
	target := matching.Target{
		Title:   track.Title,
		Artists: track.MatchArtists(),
		Album:   track.Album,
	}

	match, err := h.resolver.Resolve(c.Request.Context(), target)
	if err != nil {
		if errors.Is(err, matching.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "No matching track found",
				"details": err.Error(),
			})
			return
		}
		slog.Error("Failed to match track", "title", req.Title, "artist", req.Artist, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Catalog lookup failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, MatchResponse{
		Track:    match.Track,
		Score:    match.Score,
		MaxScore: h.weights.MaxScore(target),
		Level:    match.Level,
		Query:    match.Query,
		Policy:   h.resolver.Policy(),
	})
}

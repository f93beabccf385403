package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"tracksort/internal/classifier"
	"tracksort/internal/csvio"
	"tracksort/internal/language"
	"tracksort/internal/models"
)

// MaxClassifyBatch caps the tracks accepted by one classify request
const MaxClassifyBatch = 500

// TrackInput is one track row as sent by clients
type TrackInput struct {
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Album    string `json:"album,omitempty"`
	TrackURI string `json:"track_uri,omitempty"`
}

// ClassifyRequest represents the request to classify a batch of tracks
type ClassifyRequest struct {
	Tracks []TrackInput `json:"tracks" binding:"required,min=1"`
}

// ClassifiedTrack is the decision for one input track
type ClassifiedTrack struct {
	Title   string            `json:"title"`
	Artist  string            `json:"artist"`
	Label   language.Label    `json:"label,omitempty"`
	Source  classifier.Source `json:"source,omitempty"`
	Skipped bool              `json:"skipped,omitempty"`
	Reason  string            `json:"reason,omitempty"`
}

// ClassifyResponse lists decisions in request order
type ClassifyResponse struct {
	SessionID string                 `json:"session_id"`
	Results   []ClassifiedTrack      `json:"results"`
	Counts    map[language.Label]int `json:"counts"`
}

// UnknownArtistsResponse is the body of GET /api/v1/unknown-artists
type UnknownArtistsResponse struct {
	SessionID string   `json:"session_id"`
	Count     int      `json:"count"`
	Artists   []string `json:"artists"`
}

// ClassifyHandler serves classification requests. All requests share one
// session, so unknown artists accumulate for the server's lifetime.
type ClassifyHandler struct {
	classifier *classifier.Classifier
	session    *classifier.Session
}

// NewClassifyHandler creates a classify handler
func NewClassifyHandler(c *classifier.Classifier, session *classifier.Session) *ClassifyHandler {
	if session == nil {
		session = classifier.NewSession()
	}
	return &ClassifyHandler{classifier: c, session: session}
}

// Labels handles GET /api/v1/labels
func (h *ClassifyHandler) Labels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"labels": language.Labels()})
}

// Classify handles POST /api/v1/classify
func (h *ClassifyHandler) Classify(c *gin.Context) {
	var req ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}
	if len(req.Tracks) > MaxClassifyBatch {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": "Too many tracks in one request",
			"limit": MaxClassifyBatch,
		})
		return
	}

	response := ClassifyResponse{
		SessionID: h.session.ID,
		Results:   make([]ClassifiedTrack, 0, len(req.Tracks)),
		Counts:    make(map[language.Label]int),
	}

	ctx := c.Request.Context()
	for _, in := range req.Tracks {
		track := models.NewTrack(in.Title, in.Artist, in.Album, in.TrackURI)
		result := ClassifiedTrack{Title: track.Title, Artist: track.ArtistField}

		if track.Title == "" {
			result.Skipped = true
			result.Reason = csvio.StatusNoTitle
			response.Results = append(response.Results, result)
			continue
		}

		decision, err := h.classifier.Classify(ctx, h.session, track)
		if err != nil {
			slog.Warn("Classify request cancelled", "classified", len(response.Results), "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":   "Request cancelled before all tracks were classified",
				"details": err.Error(),
			})
			return
		}
		result.Label = decision.Label
		result.Source = decision.Source
		response.Counts[decision.Label]++
		response.Results = append(response.Results, result)
	}

	c.JSON(http.StatusOK, response)
}

// UnknownArtists handles GET /api/v1/unknown-artists
func (h *ClassifyHandler) UnknownArtists(c *gin.Context) {
	artists := h.session.Unknown()
	c.JSON(http.StatusOK, UnknownArtistsResponse{
		SessionID: h.session.ID,
		Count:     len(artists),
		Artists:   artists,
	})
}

// Package handlers exposes the classifier and the catalog matcher over HTTP.
package handlers

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// RouterConfig wires handlers into a router. A nil Match handler leaves
// POST /api/v1/match unregistered.
type RouterConfig struct {
	Health   *HealthHandler
	Classify *ClassifyHandler
	Match    *MatchHandler
}

// NewRouter builds the HTTP API
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger())

	router.GET("/health", cfg.Health.Health)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/labels", cfg.Classify.Labels)
		v1.POST("/classify", cfg.Classify.Classify)
		v1.GET("/unknown-artists", cfg.Classify.UnknownArtists)
		if cfg.Match != nil {
			v1.POST("/match", cfg.Match.Match)
		}
	}

	return router
}

// RequestLogger logs one line per request
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= 500 {
			level = slog.LevelError
		}
		slog.Log(c.Request.Context(), level, "HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client_ip", c.ClientIP())
	}
}

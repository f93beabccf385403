package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"tracksort/internal/artist"
	"tracksort/internal/classifier"
	"tracksort/internal/handlers"
	"tracksort/internal/matching"
	"tracksort/internal/services"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the classifier and matcher over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if port == "" {
				port = cfg.Port
			}
			gin.SetMode(cfg.GinMode)
			ctx.logPlatforms()

			artists, err := artist.LoadMap(cfg.ArtistMapPath)
			if err != nil {
				return err
			}

			lyricsService, store, release, err := ctx.openLyrics(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			session := classifier.NewSession()
			checks := map[string]handlers.HealthChecker{"lyrics_cache": store}
			routes := handlers.RouterConfig{
				Health:   handlers.NewHealthHandler(checks, lyricsService),
				Classify: handlers.NewClassifyHandler(classifier.New(artists, lyricsService), session),
			}

			catalog, err := ctx.newCatalog()
			if err != nil {
				slog.Warn("Catalog unavailable, /api/v1/match is disabled", "catalog", cfg.Catalog, "error", err)
			} else {
				checks["catalog"] = catalog
				if cfg.SearchCacheEnabled() {
					catalog = services.NewCachedCatalog(catalog, store, cfg.SearchCache())
				}
				resolverCfg := cfg.Resolver()
				routes.Match = handlers.NewMatchHandler(matching.NewResolver(catalog, resolverCfg), resolverCfg.Weights)
			}

			server := &http.Server{
				Addr:              net.JoinHostPort("", port),
				Handler:           handlers.NewRouter(routes),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				slog.Info("HTTP server listening", "addr", server.Addr, "session_id", session.ID, "artists", artists.Len())
				errCh <- server.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			case <-cmd.Context().Done():
				slog.Info("Shutting down HTTP server")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("HTTP server shutdown failed", "error", err)
				}
			}

			if err := lyricsService.Flush(context.Background()); err != nil {
				slog.Error("Failed to save lyric cache", "error", err)
			}
			slog.Info("HTTP server stopped", "classified", session.Total(), "unknown_artists", len(session.Unknown()))
			return nil
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "Listen port (overrides PORT)")
	return cmd
}

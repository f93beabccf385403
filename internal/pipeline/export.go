package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"tracksort/internal/csvio"
	"tracksort/internal/models"
	"tracksort/internal/services"
)

// ExportOptions configures an export run
type ExportOptions struct {
	OutputDir string
	// All exports every playlist and ignores Selectors
	All bool
	// Selectors are playlist names or 1-based positions in the listing
	Selectors []string
}

// ExportResult describes one exported playlist
type ExportResult struct {
	Playlist services.Playlist
	File     string
	Tracks   int
}

// ExportRunner writes playlists to CSV files
type ExportRunner struct {
	playlists services.PlaylistService
}

// NewExportRunner creates an export runner
func NewExportRunner(playlists services.PlaylistService) *ExportRunner {
	return &ExportRunner{playlists: playlists}
}

var fileNameReplacer = strings.NewReplacer(
	" ", "_",
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
)

// ExportFileName returns the CSV file name of a playlist
func ExportFileName(name string) string {
	return fileNameReplacer.Replace(name) + ".csv"
}

// List returns the user's playlists in catalog order
func (r *ExportRunner) List(ctx context.Context) ([]services.Playlist, error) {
	return r.playlists.ListPlaylists(ctx)
}

// Run exports the selected playlists with Title, Artist, Album and TrackURI
func (r *ExportRunner) Run(ctx context.Context, opts ExportOptions) ([]ExportResult, error) {
	playlists, err := r.playlists.ListPlaylists(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing playlists: %w", err)
	}

	selected, err := selectPlaylists(playlists, opts)
	if err != nil {
		return nil, err
	}

	var results []ExportResult
	for _, playlist := range selected {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		tracks, err := r.playlists.PlaylistTracks(ctx, playlist.ID)
		if err != nil {
			return results, fmt.Errorf("reading playlist %q: %w", playlist.Name, err)
		}

		rows := make([]models.Track, 0, len(tracks))
		for _, t := range tracks {
			rows = append(rows, models.NewTrack(t.Title, t.ArtistString(), t.Album, t.URI))
		}

		path, err := csvio.WriteTracks(filepath.Join(opts.OutputDir, ExportFileName(playlist.Name)), rows)
		if err != nil {
			return results, fmt.Errorf("writing playlist %q: %w", playlist.Name, err)
		}

		slog.Info("Playlist exported", "playlist", playlist.Name, "tracks", len(rows), "file", path)
		results = append(results, ExportResult{Playlist: playlist, File: path, Tracks: len(rows)})
	}
	return results, nil
}

func selectPlaylists(playlists []services.Playlist, opts ExportOptions) ([]services.Playlist, error) {
	if opts.All {
		return playlists, nil
	}
	if len(opts.Selectors) == 0 {
		return nil, errors.New("no playlists selected")
	}

	var (
		selected []services.Playlist
		missing  []string
	)
	seen := make(map[string]bool)
	for _, sel := range opts.Selectors {
		sel = strings.TrimSpace(sel)
		playlist, ok := findPlaylist(playlists, sel)
		if !ok {
			missing = append(missing, sel)
			continue
		}
		if seen[playlist.ID] {
			continue
		}
		seen[playlist.ID] = true
		selected = append(selected, playlist)
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("playlists not found: %s", strings.Join(missing, ", "))
	}
	return selected, nil
}

func findPlaylist(playlists []services.Playlist, selector string) (services.Playlist, bool) {
	for _, p := range playlists {
		if p.Name == selector {
			return p, true
		}
	}
	if n, err := strconv.Atoi(selector); err == nil && n >= 1 && n <= len(playlists) {
		return playlists[n-1], true
	}
	return services.Playlist{}, false
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"tracksort/internal/csvio"
	"tracksort/internal/matching"
	"tracksort/internal/services"
)

// DefaultImportProgressEvery is the import progress interval in rows
const DefaultImportProgressEvery = 10

// DefaultPlaylistDescription is used when no description is given
const DefaultPlaylistDescription = "Imported via CSV"

// ImportOptions configures an import run
type ImportOptions struct {
	PlaylistPrefix string
	PlaylistSuffix string
	Public         bool
	Description    string
	// DryRun searches but never creates playlists or adds tracks
	DryRun bool
	// UseURI trusts the TrackURI column instead of searching
	UseURI bool
	// ReportDir defaults to the directory of each input file
	ReportDir     string
	ProgressEvery int
}

// ImportResult summarizes the import of one file
type ImportResult struct {
	File       string
	Playlist   string
	PlaylistID string
	Reused     bool
	Rows       int
	Found      int
	Added      int
	Report     []csvio.ReportRow
	ReportFile string
	// AddErr is set when adding tracks to the playlist failed
	AddErr      error
	Interrupted bool
	Elapsed     time.Duration
}

// ImportRunner creates playlists from CSV files
type ImportRunner struct {
	resolver  *matching.Resolver
	playlists services.PlaylistService
}

// NewImportRunner creates an import runner. resolver may be nil when only
// URI imports are run.
func NewImportRunner(resolver *matching.Resolver, playlists services.PlaylistService) *ImportRunner {
	return &ImportRunner{resolver: resolver, playlists: playlists}
}

// PlaylistName derives the playlist name of an input file
func PlaylistName(file, prefix, suffix string) string {
	stem := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	return prefix + stem + suffix
}

// Run imports every file into its own playlist. A cancelled ctx stops the
// current file after adding the tracks found so far; later files are not
// started.
func (r *ImportRunner) Run(ctx context.Context, files []string, opts ImportOptions) ([]*ImportResult, error) {
	if opts.Description == "" {
		opts.Description = DefaultPlaylistDescription
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = DefaultImportProgressEvery
	}
	if !opts.UseURI && r.resolver == nil {
		return nil, errors.New("import needs a catalog to search")
	}

	var userID string
	if !opts.DryRun {
		if r.playlists == nil {
			return nil, errors.New("import needs playlist access")
		}
		id, err := r.playlists.CurrentUserID(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolving current user: %w", err)
		}
		userID = id
	}

	var results []*ImportResult
	for _, file := range files {
		if ctx.Err() != nil {
			break
		}
		result, err := r.importFile(ctx, userID, file, opts)
		if result != nil {
			results = append(results, result)
		}
		if err != nil {
			return results, err
		}
		if result.Interrupted {
			break
		}
	}
	return results, nil
}

func (r *ImportRunner) importFile(ctx context.Context, userID, file string, opts ImportOptions) (*ImportResult, error) {
	records, err := csvio.ReadFile(file)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{
		File:     file,
		Playlist: PlaylistName(file, opts.PlaylistPrefix, opts.PlaylistSuffix),
		Rows:     len(records),
	}
	logger := slog.With("file", file, "playlist", result.Playlist)

	if len(records) == 0 {
		logger.Warn("Input file has no rows, skipping")
		return result, nil
	}

	if err := r.ensurePlaylist(ctx, userID, result, opts); err != nil {
		return result, err
	}

	progress := NewProgress("import", len(records), opts.ProgressEvery)
	var uris []string

	for i, record := range records {
		if ctx.Err() != nil {
			result.Interrupted = true
			break
		}

		track := record.Track
		switch {
		case track.Title == "" && !opts.UseURI:
			result.Report = append(result.Report, csvio.ReportRow{Track: track, Status: csvio.StatusNoTitle})
		case opts.UseURI:
			if uri, ok := services.SpotifyTrackURI(track.TrackURI); ok {
				uris = append(uris, uri)
			} else {
				result.Report = append(result.Report, csvio.ReportRow{Track: track, Status: csvio.StatusInvalidURI})
			}
		default:
			match, err := r.resolver.Resolve(ctx, matching.Target{
				Title:   track.Title,
				Artists: track.MatchArtists(),
				Album:   track.Album,
			})
			if err != nil {
				if ctx.Err() != nil {
					result.Interrupted = true
					break
				}
				logger.Debug("Track not found", "title", track.Title, "artist", track.ArtistField, "error", err)
				result.Report = append(result.Report, csvio.ReportRow{Track: track, Status: csvio.StatusNotFound})
			} else {
				uris = append(uris, match.Track.URI)
			}
		}
		if result.Interrupted {
			break
		}

		if progress.Due(i + 1) {
			progress.Tick(i+1, "found", len(uris), "not_found", len(result.Report))
		}
	}
	result.Found = len(uris)

	if result.Interrupted {
		logger.Warn("Import interrupted, adding the tracks found so far", "found", result.Found)
	}

	// tracks found before an interrupt are still added
	writeCtx := context.WithoutCancel(ctx)
	if opts.DryRun {
		logger.Info("Dry run, not adding tracks", "found", result.Found)
	} else if len(uris) > 0 {
		if err := r.playlists.AddTracks(writeCtx, result.PlaylistID, uris); err != nil {
			result.AddErr = err
			logger.Error("Failed to add tracks", "error", err)
		} else {
			result.Added = len(uris)
		}
	}

	reportDir := opts.ReportDir
	if reportDir == "" {
		reportDir = filepath.Dir(file)
	}
	reportPath := filepath.Join(reportDir, fmt.Sprintf("import_report_%s.csv", result.Playlist))
	written, err := csvio.WriteReport(reportPath, result.Report)
	if err != nil {
		return result, fmt.Errorf("writing import report: %w", err)
	}
	result.ReportFile = written

	result.Elapsed = progress.Elapsed()
	logger.Info("Import finished",
		"rows", result.Rows,
		"found", result.Found,
		"added", result.Added,
		"not_found", len(result.Report),
		"report", written,
		"elapsed", FormatDuration(result.Elapsed))
	return result, nil
}

// ensurePlaylist reuses a playlist with the same name or creates one
func (r *ImportRunner) ensurePlaylist(ctx context.Context, userID string, result *ImportResult, opts ImportOptions) error {
	if opts.DryRun {
		slog.Info("Dry run, would create or reuse playlist", "playlist", result.Playlist)
		return nil
	}

	existing, err := r.playlists.FindPlaylistByName(ctx, result.Playlist)
	if err != nil {
		return fmt.Errorf("looking up playlist %q: %w", result.Playlist, err)
	}
	if existing != nil {
		result.PlaylistID = existing.ID
		result.Reused = true
		slog.Info("Reusing existing playlist", "playlist", result.Playlist, "playlist_id", existing.ID)
		return nil
	}

	created, err := r.playlists.CreatePlaylist(ctx, userID, services.CreatePlaylistRequest{
		Name:        result.Playlist,
		Public:      opts.Public,
		Description: opts.Description,
	})
	if err != nil {
		return fmt.Errorf("creating playlist %q: %w", result.Playlist, err)
	}
	result.PlaylistID = created.ID
	slog.Info("Created playlist", "playlist", result.Playlist, "playlist_id", created.ID)
	return nil
}

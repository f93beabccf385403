package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"tracksort/internal/config"
	"tracksort/internal/matching"
	"tracksort/internal/pipeline"
	"tracksort/internal/services"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var opts pipeline.ImportOptions

	cmd := &cobra.Command{
		Use:   "import FILE...",
		Short: "Create or update one playlist per CSV file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Catalog != config.CatalogSpotify {
				slog.Info("Playlists live on Spotify, searching Spotify instead of the configured catalog", "catalog", cfg.Catalog)
			}

			var spotify *services.SpotifyService
			if opts.DryRun {
				spotify, err = ctx.newSpotify()
			} else {
				spotify, err = ctx.newPlaylistClient()
			}
			if err != nil {
				return err
			}

			var resolver *matching.Resolver
			if !opts.UseURI {
				catalog, release, err := ctx.withSearchCache(cmd.Context(), spotify)
				if err != nil {
					return err
				}
				defer release()
				resolver = matching.NewResolver(catalog, cfg.Resolver())
			}

			var playlists services.PlaylistService
			if !opts.DryRun {
				playlists = spotify
			}

			results, err := pipeline.NewImportRunner(resolver, playlists).Run(cmd.Context(), args, opts)

			out := cmd.OutOrStdout()
			if len(results) > 0 {
				fmt.Fprintln(out, renderTable(
					[]string{"Playlist", "Rows", "Found", "Added", "Missed", "Report"},
					importSummaryRows(results),
					[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft}))
			}
			for _, r := range results {
				if r.AddErr != nil {
					fmt.Fprintf(out, "%s: adding tracks failed: %v\n", r.Playlist, r.AddErr)
				}
				if r.Interrupted {
					fmt.Fprintf(out, "%s: interrupted; found tracks were added\n", r.Playlist)
				}
			}
			return err
		},
	}

	cmd.Flags().StringVar(&opts.PlaylistPrefix, "prefix", "", "Text prepended to every playlist name")
	cmd.Flags().StringVar(&opts.PlaylistSuffix, "suffix", "", "Text appended to every playlist name")
	cmd.Flags().BoolVar(&opts.Public, "public", false, "Create public playlists")
	cmd.Flags().StringVar(&opts.Description, "description", pipeline.DefaultPlaylistDescription, "Description of created playlists (truncated to 300 characters)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Search only; do not create playlists or add tracks")
	cmd.Flags().BoolVar(&opts.UseURI, "use-uri", false, "Add the TrackURI column as-is instead of searching")
	cmd.Flags().StringVar(&opts.ReportDir, "report-dir", "", "Directory for import reports (default: next to each input)")

	return cmd
}

func importSummaryRows(results []*pipeline.ImportResult) [][]string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		name := r.Playlist
		if r.Reused {
			name += " (existing)"
		}
		rows = append(rows, []string{
			name,
			strconv.Itoa(r.Rows),
			strconv.Itoa(r.Found),
			strconv.Itoa(r.Added),
			strconv.Itoa(len(r.Report)),
			r.ReportFile,
		})
	}
	return rows
}

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"tracksort/internal/pipeline"
	"tracksort/internal/services"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var opts pipeline.ExportOptions

	cmd := &cobra.Command{
		Use:   "export [NAME|INDEX...]",
		Short: "Write playlists to CSV files",
		Long: "Write the selected playlists to <name>.csv. Playlists are selected by name or by\n" +
			"the index shown when export runs without arguments, or all at once with --all.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := ctx.ensureConfig(); err != nil {
				return err
			}
			spotify, err := ctx.newPlaylistClient()
			if err != nil {
				return err
			}
			runner := pipeline.NewExportRunner(spotify)
			out := cmd.OutOrStdout()

			if len(args) == 0 && !opts.All {
				playlists, err := runner.List(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(out, renderTable([]string{"#", "Playlist", "Tracks"}, playlistRows(playlists),
					[]columnAlignment{alignRight, alignLeft, alignRight}))
				fmt.Fprintln(out, "Pass names or indexes to export, or --all")
				return nil
			}

			opts.Selectors = args
			results, err := runner.Run(cmd.Context(), opts)
			if len(results) > 0 {
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					rows = append(rows, []string{r.Playlist.Name, strconv.Itoa(r.Tracks), r.File})
				}
				fmt.Fprintln(out, renderTable([]string{"Playlist", "Tracks", "File"}, rows,
					[]columnAlignment{alignLeft, alignRight, alignLeft}))
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&opts.All, "all", false, "Export every playlist")
	cmd.Flags().StringVarP(&opts.OutputDir, "output-dir", "o", ".", "Directory for exported files")

	return cmd
}

func playlistRows(playlists []services.Playlist) [][]string {
	rows := make([][]string, 0, len(playlists))
	for i, p := range playlists {
		rows = append(rows, []string{strconv.Itoa(i + 1), p.Name, strconv.Itoa(p.TrackCount)})
	}
	return rows
}

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"tracksort/internal/artist"
	"tracksort/internal/classifier"
	"tracksort/internal/language"
	"tracksort/internal/pipeline"
)

func newClassifyCommand(ctx *commandContext) *cobra.Command {
	var outputDir string
	var artistMap string
	var noLyrics bool

	cmd := &cobra.Command{
		Use:   "classify FILE...",
		Short: "Classify CSV rows into one playlist file per language",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if artistMap == "" {
				artistMap = cfg.ArtistMapPath
			}

			artists, err := artist.LoadMap(artistMap)
			if err != nil {
				return err
			}

			var lookup classifier.LyricsLookup
			var flusher pipeline.Flusher
			if !noLyrics {
				svc, _, release, err := ctx.openLyrics(cmd.Context())
				if err != nil {
					return err
				}
				defer release()
				lookup, flusher = svc, svc
			}

			runner := pipeline.NewClassifyRunner(classifier.New(artists, lookup), flusher)
			result, err := runner.Run(cmd.Context(), args, pipeline.ClassifyOptions{OutputDir: outputDir})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Label", "Tracks", "File"}, classifySummaryRows(result), []columnAlignment{alignLeft, alignRight, alignLeft}))
			fmt.Fprintf(out, "Classified %d of %d rows in %s (%d skipped)\n",
				result.Session.Total(), result.Total, pipeline.FormatDuration(result.Elapsed), len(result.Skipped))
			fmt.Fprintf(out, "Decided by: %s\n", sourceSummary(result.Session.SourceCounts()))
			for _, row := range result.Skipped {
				fmt.Fprintf(out, "  skipped %s:%d: %s\n", row.File, row.Line, row.Reason)
			}
			if result.UnknownFile != "" {
				fmt.Fprintf(out, "Unknown artists: %d (see %s)\n", len(result.Session.Unknown()), result.UnknownFile)
			}
			if result.Interrupted {
				fmt.Fprintln(out, "Run interrupted; partial results were written")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", ".", "Directory for bucket files and the unknown artist report")
	cmd.Flags().StringVar(&artistMap, "artist-map", "", "Artist map file (overrides ARTIST_MAP_PATH)")
	cmd.Flags().BoolVar(&noLyrics, "no-lyrics", false, "Skip lyric lookups")

	return cmd
}

// classifySummaryRows lists every label in display order, including empty ones
func classifySummaryRows(result *pipeline.ClassifyResult) [][]string {
	rows := make([][]string, 0, len(language.Labels()))
	for _, label := range language.Labels() {
		rows = append(rows, []string{
			string(label),
			strconv.Itoa(len(result.Buckets[label])),
			result.Files[label],
		})
	}
	return rows
}

// sourceSummary renders the decision count of every source in cascade order
func sourceSummary(counts map[classifier.Source]int) string {
	parts := make([]string, 0, len(classifier.Sources()))
	for _, source := range classifier.Sources() {
		parts = append(parts, fmt.Sprintf("%s %d", source, counts[source]))
	}
	return strings.Join(parts, ", ")
}

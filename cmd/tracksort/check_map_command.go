package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"tracksort/internal/artist"
	"tracksort/internal/language"
)

func newCheckMapCommand(ctx *commandContext) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "check-map",
		Short: "Validate the artist map and show entries per label",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if path == "" {
				path = cfg.ArtistMapPath
			}
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("artist map %s: %w", path, err)
			}

			m, err := artist.LoadMap(path)
			if err != nil {
				return err
			}
			if m.Len() == 0 {
				return errors.New("artist map has no entries")
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Label", "Artists"}, mapCountRows(m), []columnAlignment{alignLeft, alignRight}))
			fmt.Fprintf(out, "%s: %d artists OK\n", path, m.Len())
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "artist-map", "", "Artist map file (overrides ARTIST_MAP_PATH)")
	return cmd
}

func mapCountRows(m *artist.Map) [][]string {
	counts := m.Counts()
	rows := make([][]string, 0, len(counts))
	for _, label := range language.Labels() {
		if n := counts[label]; n > 0 {
			rows = append(rows, []string{string(label), strconv.Itoa(n)})
		}
	}
	return rows
}

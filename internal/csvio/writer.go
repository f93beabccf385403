package csvio

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"tracksort/internal/models"
)

// ReportRow is one line of an import report
type ReportRow struct {
	Track  models.Track
	Status string
}

// Import report statuses
const (
	StatusNoTitle    = "No title"
	StatusNotFound   = "Not found"
	StatusInvalidURI = "Invalid or missing URI"
)

var trackHeader = []string{ColumnTitle, ColumnArtist, ColumnAlbum, ColumnTrackURI}

// WriteTracks writes tracks with the Title, Artist, Album and TrackURI
// columns. When path cannot be written the next free "name (n).csv" is used.
// The path actually written is returned.
func WriteTracks(path string, tracks []models.Track) (string, error) {
	rows := make([][]string, 0, len(tracks))
	for _, t := range tracks {
		rows = append(rows, []string{t.Title, t.ArtistField, t.Album, t.TrackURI})
	}
	return writeWithFallback(path, func(p string) error { return writeCSV(p, trackHeader, rows) })
}

// WriteReport writes an import report with a trailing Status column
func WriteReport(path string, rows []ReportRow) (string, error) {
	header := append(append([]string{}, trackHeader...), "Status")
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{r.Track.Title, r.Track.ArtistField, r.Track.Album, r.Track.TrackURI, r.Status})
	}
	return writeWithFallback(path, func(p string) error { return writeCSV(p, header, out) })
}

// WriteLines writes the deduplicated, sorted lines separated by newlines,
// falling back like WriteTracks. The path actually written is returned.
func WriteLines(path string, lines []string) (string, error) {
	seen := make(map[string]bool, len(lines))
	unique := make([]string, 0, len(lines))
	for _, l := range lines {
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		unique = append(unique, l)
	}
	sort.Strings(unique)

	data := []byte(strings.Join(unique, "\n"))
	return writeWithFallback(path, func(p string) error { return os.WriteFile(p, data, 0o644) })
}

// NextAvailablePath returns path itself when nothing exists there, otherwise
// the first "stem (n)ext" that does not exist
func NextAvailablePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, i, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

func writeWithFallback(path string, write func(path string) error) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}

	err := write(path)
	if err == nil {
		return path, nil
	}

	alt := NextAvailablePath(path)
	slog.Warn("Output file not writable, using alternate path",
		"path", path,
		"alternate", alt,
		"error", err)
	if err := write(alt); err != nil {
		return "", fmt.Errorf("writing %s: %w", alt, err)
	}
	return alt, nil
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	if _, err := f.WriteString(bom); err != nil {
		f.Close()
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

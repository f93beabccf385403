// Package csvio reads track lists from CSV exports and writes bucket,
// report and export files in a spreadsheet friendly form (UTF-8 with BOM).
package csvio

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"tracksort/internal/models"
)

const bom = "\ufeff"

// Column names of written track files
const (
	ColumnTitle    = "Title"
	ColumnArtist   = "Artist"
	ColumnAlbum    = "Album"
	ColumnTrackURI = "TrackURI"
)

// headerAliases maps lower-cased header names to columns. Exports from
// other tools name the columns differently.
var headerAliases = map[string]string{
	"title":          ColumnTitle,
	"track name":     ColumnTitle,
	"artist":         ColumnArtist,
	"artist name(s)": ColumnArtist,
	"album":          ColumnAlbum,
	"album name":     ColumnAlbum,
	"trackuri":       ColumnTrackURI,
	"track uri":      ColumnTrackURI,
}

var requiredColumns = []string{ColumnTitle, ColumnArtist}

// ErrMissingColumns is returned when the header lacks a required column
var ErrMissingColumns = errors.New("missing required columns")

// Record is one data row of an input file
type Record struct {
	File string
	// Line is the 1-based line of the row in File, the header being line 1
	Line  int
	Track models.Track
}

// ReadFile reads every data row of a CSV file
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := Read(f, path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// Read parses CSV data with a header row. A leading byte order mark is
// ignored and header names match case-insensitively. Rows are returned in
// input order, including rows without a title.
func Read(r io.Reader, name string) ([]Record, error) {
	br := bufio.NewReader(r)
	if prefix, err := br.Peek(len(bom)); err == nil && string(prefix) == bom {
		_, _ = br.Discard(len(bom))
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty file", ErrMissingColumns)
	}
	if err != nil {
		return nil, err
	}

	index, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	var records []Record
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := reader.FieldPos(0)

		if isBlank(fields) {
			continue
		}

		get := func(column string) string {
			i, ok := index[column]
			if !ok || i >= len(fields) {
				return ""
			}
			return fields[i]
		}

		records = append(records, Record{
			File:  name,
			Line:  line,
			Track: models.NewTrack(get(ColumnTitle), get(ColumnArtist), get(ColumnAlbum), get(ColumnTrackURI)),
		})
	}

	return records, nil
}

// columnIndex maps each known column to its position; the first matching
// header wins
func columnIndex(header []string) (map[string]int, error) {
	index := make(map[string]int)
	for i, h := range header {
		column, ok := headerAliases[strings.ToLower(strings.TrimSpace(h))]
		if !ok {
			continue
		}
		if _, seen := index[column]; !seen {
			index[column] = i
		}
	}

	var missing []string
	for _, column := range requiredColumns {
		if _, ok := index[column]; !ok {
			missing = append(missing, column)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s (found %s)", ErrMissingColumns, strings.Join(missing, ", "), strings.Join(header, ", "))
	}
	return index, nil
}

func isBlank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

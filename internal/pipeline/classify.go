package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"tracksort/internal/classifier"
	"tracksort/internal/csvio"
	"tracksort/internal/language"
	"tracksort/internal/models"
)

// DefaultClassifyProgressEvery is the classify progress interval in rows
const DefaultClassifyProgressEvery = 50

// UnknownArtistsFile is the name of the unknown artist report
const UnknownArtistsFile = "unknown_artists.txt"

// ErrNoRows is returned when the inputs contain no data rows
var ErrNoRows = errors.New("no input rows")

// Flusher persists buffered state, such as a lyric cache
type Flusher interface {
	Flush(ctx context.Context) error
}

// ClassifyOptions configures a classify run
type ClassifyOptions struct {
	OutputDir     string
	ProgressEvery int
}

// ClassifyResult summarizes a classify run
type ClassifyResult struct {
	Session *classifier.Session
	Buckets map[language.Label][]models.Track
	// Files maps each written bucket to its path
	Files       map[language.Label]string
	UnknownFile string
	Skipped     []models.SkippedRow
	// Total is the number of rows read, Processed the number visited
	Total       int
	Processed   int
	Interrupted bool
	Elapsed     time.Duration
}

// BucketFileName returns the bucket file name of a label
func BucketFileName(label language.Label) string {
	return fmt.Sprintf("playlist_%s.csv", label)
}

// ReadInputs reads and concatenates the rows of every file in order
func ReadInputs(files []string) ([]csvio.Record, error) {
	var records []csvio.Record
	for _, file := range files {
		rows, err := csvio.ReadFile(file)
		if err != nil {
			return nil, err
		}
		slog.Info("Read input file", "file", file, "rows", len(rows))
		records = append(records, rows...)
	}
	if len(records) == 0 {
		return nil, ErrNoRows
	}
	return records, nil
}

// ClassifyRunner buckets input rows by language
type ClassifyRunner struct {
	classifier *classifier.Classifier
	flusher    Flusher
}

// NewClassifyRunner creates a runner. flusher may be nil.
func NewClassifyRunner(c *classifier.Classifier, flusher Flusher) *ClassifyRunner {
	return &ClassifyRunner{classifier: c, flusher: flusher}
}

// Run classifies every row of files in input order and writes one bucket
// file per non-empty label, plus the unknown artist report. Cancelling ctx
// stops between rows; what was classified so far is still written and the
// result is marked interrupted.
func (r *ClassifyRunner) Run(ctx context.Context, files []string, opts ClassifyOptions) (*ClassifyResult, error) {
	records, err := ReadInputs(files)
	if err != nil {
		return nil, err
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = DefaultClassifyProgressEvery
	}

	session := classifier.NewSession()
	result := &ClassifyResult{
		Session: session,
		Buckets: make(map[language.Label][]models.Track),
		Files:   make(map[language.Label]string),
		Total:   len(records),
	}

	slog.Info("Classify run started", "session_id", session.ID, "files", len(files), "rows", len(records))
	progress := NewProgress("classify", len(records), opts.ProgressEvery)

	for i, record := range records {
		if ctx.Err() != nil {
			result.Interrupted = true
			slog.Warn("Classify run interrupted, writing partial results", "processed", result.Processed)
			break
		}

		if record.Track.Title == "" {
			result.Skipped = append(result.Skipped, models.SkippedRow{File: record.File, Line: record.Line, Reason: csvio.StatusNoTitle})
		} else {
			decision, err := r.classifier.Classify(ctx, session, record.Track)
			if err != nil {
				// the row in flight stays unprocessed
				result.Interrupted = true
				slog.Warn("Classify run interrupted, writing partial results", "processed", result.Processed)
				break
			}
			result.Buckets[decision.Label] = append(result.Buckets[decision.Label], record.Track)
		}

		result.Processed = i + 1
		if progress.Due(result.Processed) {
			progress.Tick(result.Processed, "unknown_artists", len(session.Unknown()))
		}
	}

	// the run context may be cancelled; outputs are written regardless
	writeCtx := context.WithoutCancel(ctx)
	if err := r.writeOutputs(writeCtx, result, opts.OutputDir); err != nil {
		return result, err
	}

	result.Elapsed = progress.Elapsed()
	slog.Info("Classify run finished",
		"session_id", session.ID,
		"processed", result.Processed,
		"skipped", len(result.Skipped),
		"unknown_artists", len(session.Unknown()),
		"interrupted", result.Interrupted,
		"elapsed", FormatDuration(result.Elapsed))
	return result, nil
}

func (r *ClassifyRunner) writeOutputs(ctx context.Context, result *ClassifyResult, dir string) error {
	for _, label := range language.Labels() {
		tracks := result.Buckets[label]
		if len(tracks) == 0 {
			continue
		}
		path, err := csvio.WriteTracks(filepath.Join(dir, BucketFileName(label)), tracks)
		if err != nil {
			return fmt.Errorf("writing %s bucket: %w", label, err)
		}
		result.Files[label] = path
		slog.Info("Bucket written", "label", label, "tracks", len(tracks), "file", path)
	}

	if unknown := result.Session.Unknown(); len(unknown) > 0 {
		path, err := csvio.WriteLines(filepath.Join(dir, UnknownArtistsFile), unknown)
		if err != nil {
			return fmt.Errorf("writing unknown artists: %w", err)
		}
		result.UnknownFile = path
		slog.Info("Unknown artists written", "count", len(unknown), "file", path)
	}

	if r.flusher != nil {
		if err := r.flusher.Flush(ctx); err != nil {
			slog.Error("Failed to save lyric cache", "error", err)
			return fmt.Errorf("saving lyric cache: %w", err)
		}
	}
	return nil
}

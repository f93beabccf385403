// Package pipeline runs the batch jobs: classifying CSV rows into language
// buckets, importing CSV files into playlists and exporting playlists.
package pipeline

import (
	"fmt"
	"log/slog"
	"time"
)

// Progress logs periodic progress lines with elapsed time and an ETA
type Progress struct {
	run   string
	total int
	every int
	start time.Time
	now   func() time.Time
}

// NewProgress starts tracking a run over total rows, logging every n rows
// and at the last row
func NewProgress(run string, total, every int) *Progress {
	if every <= 0 {
		every = 1
	}
	return &Progress{run: run, total: total, every: every, start: time.Now(), now: time.Now}
}

// Elapsed returns the time since the run started
func (p *Progress) Elapsed() time.Duration {
	return p.now().Sub(p.start)
}

// ETA estimates the remaining time from the average rate so far
func (p *Progress) ETA(done int) time.Duration {
	elapsed := p.Elapsed()
	if done <= 0 || elapsed <= 0 || done >= p.total {
		return 0
	}
	perRow := elapsed / time.Duration(done)
	return perRow * time.Duration(p.total-done)
}

// Due reports whether a progress line is due after done rows
func (p *Progress) Due(done int) bool {
	return done == p.total || done%p.every == 0
}

// Tick logs a progress line when one is due. Extra attributes are appended.
func (p *Progress) Tick(done int, attrs ...any) {
	if !p.Due(done) {
		return
	}

	percent := 0.0
	if p.total > 0 {
		percent = float64(done) / float64(p.total) * 100
	}

	args := []any{
		"run", p.run,
		"done", done,
		"total", p.total,
		"percent", fmt.Sprintf("%.1f", percent),
		"elapsed", FormatDuration(p.Elapsed()),
		"eta", FormatDuration(p.ETA(done)),
	}
	slog.Info("Progress", append(args, attrs...)...)
}

// FormatDuration renders d as "1h 2m 3s", "2m 3s" or "3s"
func FormatDuration(d time.Duration) string {
	seconds := int(d / time.Second)
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

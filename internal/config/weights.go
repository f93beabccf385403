package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"

	"tracksort/internal/matching"
)

// weightsFile mirrors the TOML layout of a match weights file. Pointers tell
// an explicit zero apart from an absent key.
type weightsFile struct {
	TitleExact    *int `toml:"title_exact"`
	TitlePartial  *int `toml:"title_partial"`
	ArtistOverlap *int `toml:"artist_overlap"`
	ArtistPartial *int `toml:"artist_partial"`
	Album         *int `toml:"album"`
}

// LoadMatchWeights returns the scoring weights. An explicit path must exist;
// without one the well-known locations are searched and the defaults are
// used when none exists. Keys missing from the file keep their defaults.
func LoadMatchWeights(path string) (matching.Weights, error) {
	weights := matching.DefaultWeights()

	if path != "" {
		file, err := loadWeightsFromPath(path)
		if err != nil {
			return weights, err
		}
		if file == nil {
			return weights, fmt.Errorf("match weights file %s: %w", path, fs.ErrNotExist)
		}
		mergeWeights(&weights, file)
		return weights, nil
	}

	for _, p := range candidateWeightsPaths() {
		file, err := loadWeightsFromPath(p)
		if err != nil {
			slog.Warn("Ignoring unreadable match weights file", "path", p, "error", err)
			continue
		}
		if file != nil {
			slog.Debug("Loaded match weights", "path", p)
			mergeWeights(&weights, file)
			break
		}
	}
	return weights, nil
}

// ValidateWeights rejects negative weights
func ValidateWeights(w matching.Weights) error {
	if w.TitleExact < 0 || w.TitlePartial < 0 || w.ArtistOverlap < 0 || w.ArtistPartial < 0 || w.Album < 0 {
		return fmt.Errorf("match weights must not be negative: %+v", w)
	}
	return nil
}

func loadWeightsFromPath(path string) (*weightsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var file weightsFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &file, nil
}

func mergeWeights(base *matching.Weights, override *weightsFile) {
	if override.TitleExact != nil {
		base.TitleExact = *override.TitleExact
	}
	if override.TitlePartial != nil {
		base.TitlePartial = *override.TitlePartial
	}
	if override.ArtistOverlap != nil {
		base.ArtistOverlap = *override.ArtistOverlap
	}
	if override.ArtistPartial != nil {
		base.ArtistPartial = *override.ArtistPartial
	}
	if override.Album != nil {
		base.Album = *override.Album
	}
}

// candidateWeightsPaths returns common locations to auto-discover match weights
func candidateWeightsPaths() []string {
	paths := []string{
		"match_weights.toml",
		filepath.Join("config", "match_weights.toml"),
	}

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "tracksort", "match_weights.toml"))
	}

	if home := os.Getenv("HOME"); home != "" {
		paths = append(paths, filepath.Join(home, ".config", "tracksort", "match_weights.toml"))
	}

	return paths
}

package artist

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"tracksort/internal/language"
)

// LoadError reports every invalid entry found in an artist map file.
type LoadError struct {
	Path   string
	Issues []string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("artist map %s: %d invalid entries: %s", e.Path, len(e.Issues), strings.Join(e.Issues, "; "))
}

// LoadMap reads an artist map from a YAML file of the form
//
//	Japanese:
//	  - YOASOBI
//	  - 米津玄師
//	Korean:
//	  - BTS
//
// Keys are label names (see language.ParseLabel). Document order is
// preserved and decides which entry wins when keys overlap. A missing file
// yields an empty map.
func LoadMap(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Info("Artist map not found, classification will rely on heuristics", "path", path)
			return NewMap(), nil
		}
		return nil, fmt.Errorf("failed to read artist map: %w", err)
	}

	m, err := ParseMap(data)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			loadErr.Path = path
		}
		return nil, err
	}

	slog.Info("Artist map loaded", "path", path, "entries", m.Len())
	return m, nil
}

// ParseMap parses the YAML artist map format described in LoadMap.
func ParseMap(data []byte) (*Map, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse artist map: %w", err)
	}

	m := NewMap()
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return m, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("failed to parse artist map: expected a mapping of label to artist list at line %d", root.Line)
	}

	loadErr := &LoadError{}
	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode, valueNode := root.Content[i], root.Content[i+1]

		label, err := language.ParseLabel(keyNode.Value)
		if err != nil {
			loadErr.Issues = append(loadErr.Issues, fmt.Sprintf("line %d: %v", keyNode.Line, err))
			continue
		}

		if valueNode.Kind != yaml.SequenceNode {
			// "Korean:" with nothing under it is an empty list, not a mistake
			if valueNode.Kind == yaml.ScalarNode && valueNode.Tag == "!!null" {
				continue
			}
			loadErr.Issues = append(loadErr.Issues, fmt.Sprintf("line %d: %s must be a list of artist names", valueNode.Line, keyNode.Value))
			continue
		}

		for _, item := range valueNode.Content {
			if item.Kind != yaml.ScalarNode || item.Tag == "!!null" {
				loadErr.Issues = append(loadErr.Issues, fmt.Sprintf("line %d: artist under %s must be a string", item.Line, keyNode.Value))
				continue
			}
			m.Add(item.Value, label)
		}
	}

	if len(loadErr.Issues) > 0 {
		return nil, loadErr
	}
	return m, nil
}

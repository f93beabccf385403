package language

import (
	"fmt"
	"strings"
)

// Label is the language category assigned to a track.
type Label string

const (
	Chinese      Label = "Chinese"
	Japanese     Label = "Japanese"
	Korean       Label = "Korean"
	English      Label = "English"
	Spanish      Label = "Spanish"
	Instrumental Label = "Instrumental"
	Other        Label = "Other"
)

// labels in bucket output order
var labels = []Label{Chinese, Japanese, Korean, English, Spanish, Instrumental, Other}

// legacy category names accepted in artist map files
var aliases = map[string]Label{
	"中文":   Chinese,
	"日文":   Japanese,
	"韓文":   Korean,
	"韩文":   Korean,
	"英文":   English,
	"西班牙語": Spanish,
	"西班牙语": Spanish,
	"伴奏":   Instrumental,
	"其他":   Other,
}

// Labels returns every label in bucket order. Other is always last.
func Labels() []Label {
	out := make([]Label, len(labels))
	copy(out, labels)
	return out
}

// ParseLabel converts a label name to a Label. English names are matched
// case-insensitively; the legacy category names are accepted as aliases.
func ParseLabel(name string) (Label, error) {
	trimmed := strings.TrimSpace(name)
	for _, l := range labels {
		if strings.EqualFold(trimmed, string(l)) {
			return l, nil
		}
	}
	if l, ok := aliases[trimmed]; ok {
		return l, nil
	}
	return "", fmt.Errorf("unknown language label %q", name)
}

// Valid reports whether l is one of the fixed labels.
func (l Label) Valid() bool {
	for _, known := range labels {
		if l == known {
			return true
		}
	}
	return false
}

func (l Label) String() string {
	return string(l)
}

// Slug is the lower-case form used in file names and API payloads.
func (l Label) Slug() string {
	return strings.ToLower(string(l))
}

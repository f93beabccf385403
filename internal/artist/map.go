// Package artist holds the authoritative artist-to-language map and the
// helpers that split combined artist fields and vote across collaborators.
package artist

import (
	"strings"

	"tracksort/internal/language"
)

// Entry is one artist name mapped to a label.
type Entry struct {
	Name  string         `json:"name"`
	Label language.Label `json:"label"`
}

type entry struct {
	Entry
	folded string
}

// Map is an ordered artist-name to language lookup table. Lookups match a
// key anywhere inside the queried name, case-insensitively, and the first
// entry in load order wins.
//
// A Map is read-only once loaded and safe for concurrent lookups.
type Map struct {
	entries []entry
	index   map[string]int
}

// NewMap returns an empty map.
func NewMap() *Map {
	return &Map{index: make(map[string]int)}
}

// Add appends name to the map. Re-adding an existing name changes its label
// but keeps its original position.
func (m *Map) Add(name string, label language.Label) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	if i, ok := m.index[name]; ok {
		m.entries[i].Label = label
		return
	}
	m.index[name] = len(m.entries)
	m.entries = append(m.entries, entry{
		Entry:  Entry{Name: name, Label: label},
		folded: strings.ToLower(name),
	})
}

// Lookup returns the label of the first entry whose name occurs inside
// artist. The boolean is false when no entry matches; callers continue with
// other signals rather than treating that as Other.
func (m *Map) Lookup(artist string) (language.Label, bool) {
	if m == nil || len(m.entries) == 0 {
		return "", false
	}
	folded := strings.ToLower(artist)
	for _, e := range m.entries {
		if strings.Contains(folded, e.folded) {
			return e.Label, true
		}
	}
	return "", false
}

// Vote resolves a label for a collaboration. Artists without a map entry do
// not vote. A unanimous vote wins; otherwise the most frequent label wins only
// when it has at least two votes and more votes than all other labels
// combined. In every other case Vote abstains.
func (m *Map) Vote(artists []string) (language.Label, bool) {
	var votes []language.Label
	for _, a := range artists {
		if label, ok := m.Lookup(a); ok {
			votes = append(votes, label)
		}
	}
	if len(votes) == 0 {
		return "", false
	}

	counts := make(map[language.Label]int, len(votes))
	var top language.Label
	for _, v := range votes {
		counts[v]++
		if counts[v] > counts[top] {
			top = v
		}
	}

	if len(counts) == 1 {
		return votes[0], true
	}
	n := counts[top]
	if n >= 2 && n > len(votes)-n {
		return top, true
	}
	return "", false
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Entries returns the entries in load order.
func (m *Map) Entries() []Entry {
	if m == nil {
		return nil
	}
	out := make([]Entry, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Entry
	}
	return out
}

// Counts returns the number of entries per label.
func (m *Map) Counts() map[language.Label]int {
	counts := make(map[language.Label]int)
	for _, e := range m.Entries() {
		counts[e.Label]++
	}
	return counts
}

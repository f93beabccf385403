package classifier

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tracksort/internal/language"
)

// Session is the state of one classification run: the artists that had no
// map entry and the tally of decisions. It is safe for concurrent use.
type Session struct {
	ID        string
	StartedAt time.Time

	mu      sync.Mutex
	unknown map[string]struct{}
	labels  map[language.Label]int
	sources map[Source]int
}

// NewSession starts a session with a fresh run ID
func NewSession() *Session {
	return &Session{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		unknown:   make(map[string]struct{}),
		labels:    make(map[language.Label]int),
		sources:   make(map[Source]int),
	}
}

// AddUnknown records an artist string that matched no map entry
func (s *Session) AddUnknown(name string) {
	if name == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unknown[name] = struct{}{}
}

// Unknown returns the recorded artists, sorted
func (s *Session) Unknown() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.unknown))
	for name := range s.unknown {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// LabelCounts returns how many decisions ended in each label
func (s *Session) LabelCounts() map[language.Label]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[language.Label]int, len(s.labels))
	for k, v := range s.labels {
		out[k] = v
	}
	return out
}

// SourceCounts returns how many decisions each source produced
func (s *Session) SourceCounts() map[Source]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[Source]int, len(s.sources))
	for k, v := range s.sources {
		out[k] = v
	}
	return out
}

// Total returns the number of decisions recorded
func (s *Session) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, n := range s.labels {
		total += n
	}
	return total
}

func (s *Session) record(d Decision) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.labels[d.Label]++
	s.sources[d.Source]++
}

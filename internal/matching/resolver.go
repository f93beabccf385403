package matching

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"tracksort/internal/services"
)

// DefaultSearchLimit is the number of candidates requested per query
const DefaultSearchLimit = 10

// ErrNotFound is returned when no candidate satisfies a target
var ErrNotFound = errors.New("no matching track found")

// Policy selects how the query cascade is evaluated
type Policy string

const (
	// PolicyBest evaluates every level and keeps the best candidate overall
	PolicyBest Policy = "best"
	// PolicyFirst returns the best candidate of the first level with results
	PolicyFirst Policy = "first"
)

// ParsePolicy parses a policy name; "" selects PolicyBest
func ParsePolicy(name string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(name))) {
	case "", PolicyBest:
		return PolicyBest, nil
	case PolicyFirst:
		return PolicyFirst, nil
	default:
		return "", fmt.Errorf("unknown match policy %q (want %q or %q)", name, PolicyBest, PolicyFirst)
	}
}

// Match is a resolved catalog track
type Match struct {
	Track *services.TrackInfo  `json:"track"`
	Score int                  `json:"score"`
	Query services.SearchQuery `json:"query"`
	// Level is the zero-based cascade level that produced Track
	Level int `json:"level"`
}

// ResolverConfig configures a Resolver
type ResolverConfig struct {
	Policy   Policy
	MinScore int
	Limit    int
	// Weights defaults to DefaultWeights when zero
	Weights Weights
}

// Resolver looks targets up in a catalog through the query cascade
type Resolver struct {
	catalog  services.CatalogService
	policy   Policy
	minScore int
	limit    int
	weights  Weights
}

// NewResolver creates a resolver over catalog
func NewResolver(catalog services.CatalogService, cfg ResolverConfig) *Resolver {
	if cfg.Policy == "" {
		cfg.Policy = PolicyBest
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultSearchLimit
	}
	if cfg.Weights == (Weights{}) {
		cfg.Weights = DefaultWeights()
	}
	return &Resolver{
		catalog:  catalog,
		policy:   cfg.Policy,
		minScore: cfg.MinScore,
		limit:    cfg.Limit,
		weights:  cfg.Weights,
	}
}

// Policy returns the configured policy
func (r *Resolver) Policy() Policy {
	return r.policy
}

// Resolve searches the catalog for target and returns the winning candidate.
// A level whose search fails is logged and skipped.
func (r *Resolver) Resolve(ctx context.Context, target Target) (Match, error) {
	norm := r.weights.normalize(target)
	maxScore := norm.maxScore()
	queries := BuildQueries(target.Title, target.Artists, target.Album)

	var (
		best    Match
		found   bool
		failed  int
		lastErr error
	)

	for level, query := range queries {
		if err := ctx.Err(); err != nil {
			return Match{}, err
		}

		query.Limit = r.limit
		candidates, err := r.catalog.SearchTrack(ctx, query)
		if err != nil {
			if ctx.Err() != nil {
				return Match{}, ctx.Err()
			}
			failed++
			lastErr = err
			slog.Warn("Catalog search failed",
				"platform", r.catalog.GetPlatformName(),
				"title", target.Title,
				"level", level,
				"error", err)
			continue
		}

		candidate, score := norm.best(candidates)
		if candidate == nil {
			continue
		}

		slog.Debug("Catalog candidates scored",
			"title", target.Title,
			"level", level,
			"candidates", len(candidates),
			"best_score", score)

		if !found || score > best.Score {
			best = Match{Track: candidate, Score: score, Query: query, Level: level}
			found = true
		}

		if r.policy == PolicyFirst || best.Score >= maxScore {
			break
		}
	}

	if !found {
		if failed == len(queries) && lastErr != nil {
			return Match{}, fmt.Errorf("%w: %w", ErrNotFound, lastErr)
		}
		return Match{}, ErrNotFound
	}
	if best.Score < r.minScore {
		return Match{}, fmt.Errorf("%w: best score %d below minimum %d", ErrNotFound, best.Score, r.minScore)
	}
	return best, nil
}

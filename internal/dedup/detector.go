package dedup

import (
	"context"
	"sort"

	"github.com/batiprix/batiprix/internal/naming"
)

const (
	// SimilarityThreshold is the minimum score for a candidate to be reported.
	SimilarityThreshold = 0.3
	// MaxResults caps the number of reported candidates.
	MaxResults = 5
)

// Candidate is an active, non-template product eligible for matching.
type Candidate struct {
	ID       int64  `json:"id"`
	Name     string `json:"nom"`
	Category string `json:"categorie"`
	Key      string `json:"cle"`
}

// Match is a candidate whose key scored above the threshold.
type Match struct {
	ID       int64   `json:"id"`
	Name     string  `json:"nom"`
	Category string  `json:"categorie"`
	Score    float64 `json:"score"`
}

// CandidateSource lists matching candidates, optionally restricted to one
// category. An empty category means no restriction.
type CandidateSource interface {
	MatchCandidates(ctx context.Context, category string) ([]Candidate, error)
}

// Detector scores a candidate name against the catalog.
type Detector struct {
	source CandidateSource
	cache  *KeyCache
}

// NewDetector constructs a Detector. cache may be nil.
func NewDetector(source CandidateSource, cache *KeyCache) *Detector {
	return &Detector{source: source, cache: cache}
}

// FindSimilar returns up to MaxResults products whose normalized key overlaps
// the candidate name's key with a trigram similarity of at least
// SimilarityThreshold, ordered by descending score. A name that normalizes to
// an empty key yields no results.
func (d *Detector) FindSimilar(ctx context.Context, name, category string) ([]Match, error) {
	key := naming.Key(name)
	if key == "" {
		return nil, nil
	}

	candidates, err := d.candidates(ctx, category)
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, MaxResults)
	for _, c := range candidates {
		score := Similarity(key, c.Key)
		if score < SimilarityThreshold {
			continue
		}
		matches = append(matches, Match{ID: c.ID, Name: c.Name, Category: c.Category, Score: score})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > MaxResults {
		matches = matches[:MaxResults]
	}
	return matches, nil
}

func (d *Detector) candidates(ctx context.Context, category string) ([]Candidate, error) {
	if d.cache == nil {
		return d.source.MatchCandidates(ctx, category)
	}
	return d.cache.Candidates(ctx, category, d.source)
}

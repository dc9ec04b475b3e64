package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/batiprix/batiprix/internal/naming"
)

type staticSource struct {
	candidates []Candidate
	calls      int
}

func (s *staticSource) MatchCandidates(ctx context.Context, category string) ([]Candidate, error) {
	s.calls++
	if category == "" {
		return s.candidates, nil
	}
	var filtered []Candidate
	for _, c := range s.candidates {
		if c.Category == category {
			filtered = append(filtered, c)
		}
	}
	return filtered, nil
}

func candidate(id int64, name, category string) Candidate {
	return Candidate{ID: id, Name: name, Category: category, Key: naming.Key(name)}
}

func TestSimilarity(t *testing.T) {
	require.Equal(t, 1.0, Similarity("32mm pvc tube", "32mm pvc tube"))
	require.Equal(t, 0.0, Similarity("", ""))
	require.Equal(t, 0.0, Similarity("ab", "cd"))
	require.InDelta(t, 0.0, Similarity("abcdef", "uvwxyz"), 1e-9)

	score := Similarity("32mm pvc tube", "32 mm pvc tube")
	require.Greater(t, score, 0.3)
	require.Less(t, score, 1.0)
}

func TestFindSimilarReportsNearDuplicates(t *testing.T) {
	source := &staticSource{candidates: []Candidate{
		candidate(1, "Tube PVC 32mm", "plomberie"),
		candidate(2, "tube pvc32 mm", "plomberie"),
		candidate(3, "Peinture Blanche 10L", "peinture"),
	}}
	detector := NewDetector(source, nil)

	matches, err := detector.FindSimilar(context.Background(), "Tube Pvc 32 Mm", "")
	require.NoError(t, err)
	require.Len(t, matches, 2)
	for _, m := range matches {
		require.GreaterOrEqual(t, m.Score, SimilarityThreshold)
	}
	require.GreaterOrEqual(t, matches[0].Score, matches[1].Score)
}

func TestFindSimilarEmptyKey(t *testing.T) {
	source := &staticSource{candidates: []Candidate{candidate(1, "Tube PVC 32mm", "plomberie")}}
	detector := NewDetector(source, nil)

	matches, err := detector.FindSimilar(context.Background(), "!!! ???", "")
	require.NoError(t, err)
	require.Empty(t, matches)
	require.Zero(t, source.calls)
}

func TestFindSimilarCategoryFilter(t *testing.T) {
	source := &staticSource{candidates: []Candidate{
		candidate(1, "Tube PVC 32mm", "plomberie"),
		candidate(2, "Tube PVC 32mm", "electricite"),
	}}
	detector := NewDetector(source, nil)

	matches, err := detector.FindSimilar(context.Background(), "tube pvc 32mm", "plomberie")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, int64(1), matches[0].ID)
}

func TestFindSimilarCapsResults(t *testing.T) {
	source := &staticSource{}
	for i := int64(1); i <= 8; i++ {
		source.candidates = append(source.candidates, candidate(i, "Tube PVC 32mm", "plomberie"))
	}
	detector := NewDetector(source, nil)

	matches, err := detector.FindSimilar(context.Background(), "tube pvc 32mm", "")
	require.NoError(t, err)
	require.Len(t, matches, MaxResults)
}

func TestKeyCacheServesAndInvalidates(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	source := &staticSource{candidates: []Candidate{candidate(1, "Tube PVC 32mm", "plomberie")}}
	cache := NewKeyCache(client, time.Minute)
	detector := NewDetector(source, cache)

	ctx := context.Background()
	_, err := detector.FindSimilar(ctx, "tube pvc", "")
	require.NoError(t, err)
	_, err = detector.FindSimilar(ctx, "tube pvc", "")
	require.NoError(t, err)
	require.Equal(t, 1, source.calls)

	require.NoError(t, cache.Invalidate(ctx))
	_, err = detector.FindSimilar(ctx, "tube pvc", "")
	require.NoError(t, err)
	require.Equal(t, 2, source.calls)
}

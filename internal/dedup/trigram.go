// Package dedup surfaces likely-duplicate product names before creation.
// Matching is advisory: the caller decides whether to proceed.
package dedup

// Trigrams returns the set of contiguous 3-rune substrings of s.
func Trigrams(s string) map[string]struct{} {
	runes := []rune(s)
	set := make(map[string]struct{})
	for i := 0; i+3 <= len(runes); i++ {
		set[string(runes[i:i+3])] = struct{}{}
	}
	return set
}

// Similarity computes the Jaccard overlap of the trigram sets of a and b,
// in [0,1]. Strings too short to produce trigrams only match exactly.
func Similarity(a, b string) float64 {
	if a == b {
		if a == "" {
			return 0
		}
		return 1
	}
	ta := Trigrams(a)
	tb := Trigrams(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	shared := 0
	for t := range ta {
		if _, ok := tb[t]; ok {
			shared++
		}
	}
	union := len(ta) + len(tb) - shared
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union)
}

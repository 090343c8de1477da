package match

import (
	"sort"
)

// MinSimilarity is the similarity a candidate needs to be suggested.
const MinSimilarity = 0.6

// Suggest returns up to limit candidates that look like name, closest first.
// Candidates equal to name after normalization rank first.
func Suggest(name string, candidates []string, limit int) []string {
	type scored struct {
		name  string
		score float64
	}

	var ranked []scored

	for _, c := range candidates {
		if s := Similarity(name, c); s >= MinSimilarity {
			ranked = append(ranked, scored{c, s})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.name
	}

	return out
}

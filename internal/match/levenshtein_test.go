package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"source", "source", 0},
		{"source", "sorce", 1},
		{"sources", "source", 1},
		{"kitten", "sitting", 3},
		{"format", "fromat", 2},
		{"Müller", "Muller", 1},
		{"required", "requierd", 2},
	}

	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, Levenshtein(tt.a, tt.b))
			assert.Equal(t, tt.want, Levenshtein(tt.b, tt.a), "symmetry")
		})
	}
}

func TestSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, Similarity("source_filters", "sourceFilters"), 1e-9)
	assert.InDelta(t, 1.0, Similarity("", ""), 1e-9)
	assert.Greater(t, Similarity("sorce", "source"), 0.8)
	assert.Less(t, Similarity("expression", "type"), 0.3)
}

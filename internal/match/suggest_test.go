package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuggest(t *testing.T) {
	keys := []string{"source", "sources", "format", "output_format", "required", "validation", "expression"}

	assert.Equal(t, []string{"source", "sources"}, Suggest("sorce", keys, 3))
	assert.Equal(t, []string{"required"}, Suggest("requried", keys, 3))
	assert.Equal(t, []string{"output_format"}, Suggest("outputFormat", keys, 1))
	assert.Empty(t, Suggest("zzz", keys, 3))
}

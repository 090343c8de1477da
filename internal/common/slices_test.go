package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFirst(t *testing.T) {
	v, ok := First([]string{"a", "b"})
	assert.True(t, ok)
	assert.Equal(t, "a", v)

	_, ok = First([]int(nil))
	assert.False(t, ok)
}

func TestCoalesce(t *testing.T) {
	assert.Equal(t, "b", Coalesce("", "b", "c"))
	assert.Equal(t, "", Coalesce[string]())
	assert.Equal(t, 3, Coalesce(0, 3))
}

func TestIndex(t *testing.T) {
	s := []string{"x", "y"}
	assert.Equal(t, "x", Index(s, 1))
	assert.Equal(t, "y", Index(s, 2))
	assert.Equal(t, "", Index(s, 0))
	assert.Equal(t, "", Index(s, 3))
}

package fault

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Format(t *testing.T) {
	err := New(CoercionError, "value %q does not match %s", "x", "YYYYMMDD").
		WithRule("patient.date_of_birth").
		WithPath("PID.8")

	assert.Equal(t, `[CoercionError] patient.date_of_birth (PID.8): value "x" does not match YYYYMMDD`, err.Error())
}

func TestWrap_KeepsExistingKind(t *testing.T) {
	inner := New(ExpressionError, "boom")
	wrapped := fmt.Errorf("context: %w", inner)

	got := Wrap(ConfigError, wrapped)
	assert.Equal(t, ExpressionError, got.Kind)
	assert.Nil(t, Wrap(ConfigError, nil))
}

func TestIs(t *testing.T) {
	list := List{New(ConfigError, "a"), New(FilterError, "b")}

	assert.True(t, Is(list, FilterError))
	assert.True(t, Is(fmt.Errorf("wrapped: %w", list), ConfigError))
	assert.False(t, Is(list, CoercionError))
	assert.False(t, Is(errors.New("plain"), ConfigError))
	assert.False(t, Is(nil, ConfigError))
}

func TestList(t *testing.T) {
	var empty List
	require.NoError(t, empty.Err())

	list := List{New(ConfigError, "a"), New(FilterError, "b")}
	require.Error(t, list.Err())
	assert.Equal(t, "2 errors: [ConfigError]: a; [FilterError]: b", list.Error())
	assert.Len(t, list.Unwrap(), 2)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "MalformedMessageError", MalformedMessageError.String())
	assert.Equal(t, "FilterError", FilterError.String())
	assert.Equal(t, "Kind(0)", Kind(0).String())
}

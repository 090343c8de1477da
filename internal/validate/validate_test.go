package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hl7bridge/internal/coerce"
	"hl7bridge/internal/fault"
)

func ptr[T any](v T) *T { return &v }

func TestSpec_Check(t *testing.T) {
	tests := []struct {
		name string
		def  Definition
		in   coerce.Value
		ok   bool
	}{
		{"regex pass", Definition{Regex: `^\d{9}$`}, coerce.StringValue("123456789"), true},
		{"regex fail", Definition{Regex: `^\d{9}$`}, coerce.StringValue("12345"), false},
		{"min length", Definition{MinLength: ptr(2)}, coerce.StringValue("A"), false},
		{"max length", Definition{MaxLength: ptr(3)}, coerce.StringValue("ABCD"), false},
		{"length rune count", Definition{MaxLength: ptr(4)}, coerce.StringValue("Müll"), true},
		{"range pass", Definition{Min: ptr(30.0), Max: ptr(250.0)}, coerce.Value{Kind: coerce.Integer, Int: 72}, true},
		{"range below", Definition{Min: ptr(30.0)}, coerce.Value{Kind: coerce.Integer, Int: 12}, false},
		{"range above string", Definition{Max: ptr(10.0)}, coerce.StringValue("10.5"), false},
		{"range not numeric", Definition{Min: ptr(1.0)}, coerce.StringValue("high"), false},
		{"empty", Definition{}, coerce.StringValue("anything"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Compile(tt.def)
			require.NoError(t, err)

			res := s.Check(tt.in)
			assert.Equal(t, tt.ok, res.OK, res.Message)

			if tt.ok {
				assert.NoError(t, res.Err())
			} else {
				assert.NotEmpty(t, res.Message)
				assert.True(t, fault.Is(res.Err(), fault.ValidationError))
			}
		})
	}
}

func TestCompile_Errors(t *testing.T) {
	_, err := Compile(Definition{Regex: "(["})
	assert.True(t, fault.Is(err, fault.ConfigError))

	_, err = Compile(Definition{MinLength: ptr(5), MaxLength: ptr(2)})
	assert.Error(t, err)

	_, err = Compile(Definition{Min: ptr(5.0), Max: ptr(2.0)})
	assert.Error(t, err)
}

func TestCheck_DoesNotMutate(t *testing.T) {
	s, err := Compile(Definition{MaxLength: ptr(1)})
	require.NoError(t, err)

	v := coerce.StringValue("long")
	_ = s.Check(v)
	assert.Equal(t, "long", v.Str)
}

package coerce

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hl7bridge/internal/fault"
)

var reference = time.Date(2006, time.January, 2, 15, 4, 5, 0, time.UTC)

func TestParsePattern(t *testing.T) {
	tests := []struct {
		in     string
		layout string
	}{
		{"YYYYMMDD", "20060102"},
		{"YYYY-MM-DD", "2006-01-02"},
		{"YYYYMMDDHHMM", "200601021504"},
		{"YYYYMMDDHHMMSS", "20060102150405"},
		{"YYYY-MM-DDTHH:mm:SS", "2006-01-02T15:04:05"},
		{"DD/MM/YY", "02/01/06"},
		{"2006-01-02", "2006-01-02"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p, err := ParsePattern(tt.in)
			require.NoError(t, err)
			// the reference time rendered with its own layout is the layout
			assert.Equal(t, tt.layout, p.Format(reference))
			assert.Equal(t, tt.in, p.String())
		})
	}

	_, err := ParsePattern("")
	require.Error(t, err)

	_, err = ParsePattern("nothing here")
	require.Error(t, err)
	assert.True(t, fault.Is(err, fault.ConfigError))
}

func TestStrategy_Date(t *testing.T) {
	s := Strategy{Kind: Date, Input: MustPattern("YYYYMMDD")}

	v, err := s.Coerce("19800101")
	require.NoError(t, err)
	assert.Equal(t, Date, v.Kind)
	assert.Equal(t, time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC), v.Time)
	assert.Equal(t, "1980-01-01", s.Render(v))

	s.Output = MustPattern("DD.MM.YYYY")
	assert.Equal(t, "01.01.1980", s.Render(v))

	_, err = s.Coerce("1980-01-01")
	require.Error(t, err)
	assert.True(t, fault.Is(err, fault.CoercionError))
}

func TestStrategy_DateTime(t *testing.T) {
	s := Strategy{Kind: DateTime, Input: MustPattern("YYYYMMDDHHMM")}

	v, err := s.Coerce("202403151230")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-15T12:30:00", s.Render(v))

	_, err = (Strategy{Kind: DateTime}).Coerce("202403151230")
	assert.Error(t, err)
}

func TestStrategy_Integer(t *testing.T) {
	s := Strategy{Kind: Integer}

	v, err := s.Coerce(" 72 ")
	require.NoError(t, err)
	assert.Equal(t, int64(72), v.Int)
	assert.Equal(t, "72", s.Render(v))

	_, err = s.Coerce("7.2")
	assert.True(t, fault.Is(err, fault.CoercionError))
}

func TestStrategy_Boolean(t *testing.T) {
	values := map[string]bool{"Y": true, "N": false}
	s := Strategy{Kind: Boolean, Booleans: values}

	v, err := s.Coerce("Y")
	require.NoError(t, err)
	assert.True(t, v.Bool)
	assert.Equal(t, "true", s.Render(v))

	// no implicit truthiness
	_, err = s.Coerce("true")
	require.Error(t, err)

	reverse := Strategy{Kind: Boolean, Booleans: values, Canonical: true, Labels: InvertBooleans(values)}

	v, err = reverse.Coerce("false")
	require.NoError(t, err)
	assert.Equal(t, "N", reverse.Render(v))

	_, err = reverse.Coerce("1")
	assert.Error(t, err)
}

func TestStrategy_FromNative(t *testing.T) {
	v, err := Strategy{Kind: Integer}.FromNative(int64(5))
	require.NoError(t, err)
	assert.Equal(t, int64(5), v.Int)

	v, err = Strategy{Kind: Integer}.FromNative(float64(6))
	require.NoError(t, err)
	assert.Equal(t, int64(6), v.Int)

	_, err = Strategy{Kind: Integer}.FromNative(6.5)
	assert.Error(t, err)

	v, err = Strategy{Kind: Boolean}.FromNative(true)
	require.NoError(t, err)
	assert.True(t, v.Bool)

	v, err = Strategy{Kind: String}.FromNative(int64(42))
	require.NoError(t, err)
	assert.Equal(t, "42", v.Str)

	ts := time.Date(2020, 2, 3, 4, 5, 6, 0, time.UTC)
	v, err = Strategy{Kind: Date}.FromNative(ts)
	require.NoError(t, err)
	assert.Equal(t, "2020-02-03", v.Canonical())

	v, err = Strategy{Kind: Date, Input: MustPattern("YYYYMMDD")}.FromNative("20200203")
	require.NoError(t, err)
	assert.Equal(t, ts.Truncate(24*time.Hour), v.Time)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, String, k)

	k, err = ParseKind("DateTime")
	require.NoError(t, err)
	assert.Equal(t, DateTime, k)
	assert.True(t, k.Temporal())
	assert.Equal(t, "datetime", k.String())

	_, err = ParseKind("decimal")
	assert.True(t, fault.Is(err, fault.ConfigError))
}

func TestAgeYears(t *testing.T) {
	now := time.Date(2024, time.June, 15, 10, 0, 0, 0, time.UTC)
	born := time.Date(2000, time.June, 16, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 23, AgeYears(born, now))
	assert.Equal(t, 24, AgeYears(born, now.AddDate(0, 0, 1)))
}

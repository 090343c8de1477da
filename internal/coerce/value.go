package coerce

import (
	"strconv"
	"time"
)

// Value is a coerced, typed value. Only the member matching Kind is set.
type Value struct {
	Kind Kind
	Str  string
	Int  int64
	Bool bool
	Time time.Time
}

// StringValue wraps s as a string value.
func StringValue(s string) Value {
	return Value{Kind: String, Str: s}
}

// Canonical renders the value in its document-form representation.
func (v Value) Canonical() string {
	switch v.Kind {
	case Integer:
		return strconv.FormatInt(v.Int, 10)
	case Boolean:
		return strconv.FormatBool(v.Bool)
	case Date:
		return v.Time.Format(isoDate)
	case DateTime:
		return v.Time.Format(isoDateTime)
	default:
		return v.Str
	}
}

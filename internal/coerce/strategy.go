package coerce

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"hl7bridge/internal/fault"
)

// Strategy is the resolved coercion for one rule. It is built once when a
// mapping is compiled so that message-time coercion is a direct dispatch.
type Strategy struct {
	Kind Kind
	// Input parses temporal source values.
	Input Pattern
	// Output renders temporal values. Zero means ISO.
	Output Pattern
	// Booleans maps raw source text to a boolean.
	Booleans map[string]bool
	// Canonical additionally accepts "true"/"false", used when the source is
	// a document whose leaves are already canonical.
	Canonical bool
	// Labels renders booleans, inverted from Booleans for wire output.
	Labels map[bool]string
}

// Coerce converts a raw, unescaped source value.
func (s Strategy) Coerce(raw string) (Value, error) {
	switch s.Kind {
	case Integer:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return Value{}, fault.New(fault.CoercionError, "%q is not an integer", raw)
		}

		return Value{Kind: Integer, Int: n}, nil

	case Boolean:
		if b, ok := s.Booleans[raw]; ok {
			return Value{Kind: Boolean, Bool: b}, nil
		}

		if s.Canonical {
			if b, err := strconv.ParseBool(raw); err == nil && (raw == "true" || raw == "false") {
				return Value{Kind: Boolean, Bool: b}, nil
			}
		}

		return Value{}, fault.New(fault.CoercionError, "%q has no boolean mapping", raw)

	case Date, DateTime:
		if s.Input.IsZero() {
			return Value{}, fault.New(fault.CoercionError, "%s value %q without format", s.Kind, raw)
		}

		t, err := s.Input.Parse(strings.TrimSpace(raw))
		if err != nil {
			return Value{}, err
		}

		return Value{Kind: s.Kind, Time: t}, nil

	case Composite:
		return Value{Kind: Composite, Str: raw}, nil

	default:
		return StringValue(raw), nil
	}
}

// FromNative adopts an expression result. Strings go through Coerce; other
// natives are accepted when they fit the declared kind.
func (s Strategy) FromNative(v any) (Value, error) {
	if str, ok := v.(string); ok {
		return s.Coerce(str)
	}

	switch s.Kind {
	case String, Composite:
		return Value{Kind: s.Kind, Str: s.nativeText(v)}, nil

	case Integer:
		switch n := v.(type) {
		case int64:
			return Value{Kind: Integer, Int: n}, nil
		case int:
			return Value{Kind: Integer, Int: int64(n)}, nil
		case uint64:
			if n > math.MaxInt64 {
				break
			}

			return Value{Kind: Integer, Int: int64(n)}, nil
		case float64:
			if n == math.Trunc(n) {
				return Value{Kind: Integer, Int: int64(n)}, nil
			}
		}

	case Boolean:
		if b, ok := v.(bool); ok {
			return Value{Kind: Boolean, Bool: b}, nil
		}

	case Date, DateTime:
		if t, ok := v.(time.Time); ok {
			return Value{Kind: s.Kind, Time: t.UTC()}, nil
		}
	}

	return Value{}, fault.New(fault.CoercionError, "expression result %v (%T) is not a %s", v, v, s.Kind)
}

func (s Strategy) nativeText(v any) string {
	switch n := v.(type) {
	case bool:
		return strconv.FormatBool(n)
	case time.Time:
		return n.UTC().Format(isoDateTime)
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(n)
	}
}

// Render produces the output text for v.
func (s Strategy) Render(v Value) string {
	switch v.Kind {
	case Date, DateTime:
		if !s.Output.IsZero() {
			return s.Output.Format(v.Time)
		}

		return v.Canonical()

	case Boolean:
		if label, ok := s.Labels[v.Bool]; ok {
			return label
		}

		return v.Canonical()

	default:
		return v.Canonical()
	}
}

// InvertBooleans builds render labels from a raw-to-boolean mapping. The
// lexically first raw value wins when several map to the same boolean.
func InvertBooleans(m map[string]bool) map[bool]string {
	labels := make(map[bool]string, 2)

	for raw, b := range m {
		if cur, ok := labels[b]; !ok || raw < cur {
			labels[b] = raw
		}
	}

	return labels
}

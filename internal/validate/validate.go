// Package validate checks coerced values against a rule's validation block.
// Checks never modify the value; the outcome is handed to the error policy.
package validate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"hl7bridge/internal/coerce"
	"hl7bridge/internal/fault"
)

// Definition is a validation block as written in configuration.
type Definition struct {
	Regex     string
	MinLength *int
	MaxLength *int
	Min       *float64
	Max       *float64
	// Severity overrides the policy action for failures of this rule.
	Severity string
}

// Spec is a compiled validation block.
type Spec struct {
	regex     *regexp.Regexp
	minLength *int
	maxLength *int
	min       *float64
	max       *float64
	Severity  string
}

// Result is the outcome of a check.
type Result struct {
	OK      bool
	Message string
}

// Compile prepares def. The regex is anchored as written.
func Compile(def Definition) (*Spec, error) {
	s := &Spec{
		minLength: def.MinLength,
		maxLength: def.MaxLength,
		min:       def.Min,
		max:       def.Max,
		Severity:  def.Severity,
	}

	if def.Regex != "" {
		re, err := regexp.Compile(def.Regex)
		if err != nil {
			return nil, fault.New(fault.ConfigError, "validation regex %q: %v", def.Regex, err)
		}

		s.regex = re
	}

	if s.minLength != nil && s.maxLength != nil && *s.minLength > *s.maxLength {
		return nil, fault.New(fault.ConfigError, "validation min_length %d exceeds max_length %d", *s.minLength, *s.maxLength)
	}

	if s.min != nil && s.max != nil && *s.min > *s.max {
		return nil, fault.New(fault.ConfigError, "validation min %v exceeds max %v", *s.min, *s.max)
	}

	return s, nil
}

// Check runs every configured check against v and reports the first failure.
func (s *Spec) Check(v coerce.Value) Result {
	text := v.Canonical()

	if s.regex != nil && !s.regex.MatchString(text) {
		return fail("value %q does not match %s", text, s.regex)
	}

	n := utf8.RuneCountInString(text)

	if s.minLength != nil && n < *s.minLength {
		return fail("value %q is shorter than %d", text, *s.minLength)
	}

	if s.maxLength != nil && n > *s.maxLength {
		return fail("value %q is longer than %d", text, *s.maxLength)
	}

	if s.min == nil && s.max == nil {
		return Result{OK: true}
	}

	num, ok := numeric(v)
	if !ok {
		return fail("value %q is not numeric", text)
	}

	if s.min != nil && num < *s.min {
		return fail("value %v is below minimum %v", num, *s.min)
	}

	if s.max != nil && num > *s.max {
		return fail("value %v is above maximum %v", num, *s.max)
	}

	return Result{OK: true}
}

// Err converts a failed result into a ValidationError.
func (r Result) Err() error {
	if r.OK {
		return nil
	}

	return fault.New(fault.ValidationError, "%s", r.Message)
}

func numeric(v coerce.Value) (float64, bool) {
	if v.Kind == coerce.Integer {
		return float64(v.Int), true
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(v.Canonical()), 64)

	return f, err == nil
}

func fail(format string, args ...any) Result {
	return Result{Message: fmt.Sprintf(format, args...)}
}

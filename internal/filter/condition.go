// Package filter evaluates filter conditions over resolved values. A
// condition is compiled once from its configuration and is a pure predicate
// afterwards.
package filter

import (
	"cmp"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"hl7bridge/internal/coerce"
	"hl7bridge/internal/fault"
)

// Kind is a condition kind.
type Kind string

const (
	Equals             Kind = "equals"
	NotEquals          Kind = "not_equals"
	StartsWith         Kind = "starts_with"
	NotStartsWith      Kind = "not_starts_with"
	Contains           Kind = "contains"
	NotContains        Kind = "not_contains"
	GreaterThan        Kind = "greater_than"
	LessThan           Kind = "less_than"
	DateAgeGreaterThan Kind = "date_age_greater_than"
	DateAgeLessThan    Kind = "date_age_less_than"
	RegexMatch         Kind = "regex_match"
	RegexNotMatch      Kind = "regex_not_match"
)

// negations maps each negative kind to the positive kind it inverts.
var negations = map[Kind]Kind{
	NotEquals:     Equals,
	NotStartsWith: StartsWith,
	NotContains:   Contains,
	RegexNotMatch: RegexMatch,
}

var knownKinds = []Kind{
	Equals, NotEquals, StartsWith, NotStartsWith, Contains, NotContains,
	GreaterThan, LessThan, DateAgeGreaterThan, DateAgeLessThan,
	RegexMatch, RegexNotMatch,
}

// Kinds lists every condition kind name.
func Kinds() []string {
	out := make([]string, len(knownKinds))
	for i, k := range knownKinds {
		out[i] = string(k)
	}

	return out
}

func (k Kind) valid() bool {
	for _, known := range knownKinds {
		if k == known {
			return true
		}
	}

	return false
}

// dateFallbacks are tried in order when a date_age condition has no format.
var dateFallbacks = []coerce.Pattern{
	coerce.MustPattern("YYYYMMDD"),
	coerce.MustPattern("YYYYMMDDHHMM"),
	coerce.MustPattern("YYYYMMDDHHMMSS"),
	coerce.MustPattern("YYYY-MM-DD"),
}

// Definition is a condition as written in configuration.
type Definition struct {
	Field     string
	Condition string
	Values    []string
	Format    string
}

// Condition is a compiled Definition.
type Condition struct {
	Field   string
	Kind    Kind
	Values  []string
	numbers []float64
	regexps []*regexp.Regexp
	format  *coerce.Pattern
}

// Compile validates def and prepares its operands.
func Compile(def Definition) (*Condition, error) {
	kind := Kind(strings.TrimSpace(def.Condition))
	if !kind.valid() {
		return nil, fault.New(fault.FilterError, "unknown condition %q", def.Condition)
	}

	if def.Field == "" {
		return nil, fault.New(fault.FilterError, "condition %q has no field", kind)
	}

	c := &Condition{Field: def.Field, Kind: kind, Values: def.Values}
	if len(c.Values) == 0 {
		c.Values = []string{""}
	}

	switch kind {
	case RegexMatch, RegexNotMatch:
		for _, v := range c.Values {
			re, err := regexp.Compile(v)
			if err != nil {
				return nil, fault.New(fault.FilterError, "condition %s: bad regex %q: %v", kind, v, err)
			}

			c.regexps = append(c.regexps, re)
		}

	case DateAgeGreaterThan, DateAgeLessThan:
		for _, v := range c.Values {
			n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, fault.New(fault.FilterError, "condition %s: age %q is not a number", kind, v)
			}

			c.numbers = append(c.numbers, n)
		}

		if def.Format != "" {
			p, err := coerce.ParsePattern(def.Format)
			if err != nil {
				return nil, fault.New(fault.FilterError, "condition %s: %v", kind, err)
			}

			c.format = &p
		}
	}

	return c, nil
}

// Lookup resolves a field path to its values in the current scope.
type Lookup func(field string) []string

// Eval applies the condition to the values of its field. A field resolving
// to nothing is evaluated as a single empty value.
func (c *Condition) Eval(lookup Lookup, now time.Time) bool {
	values := lookup(c.Field)
	if len(values) == 0 {
		values = []string{""}
	}

	if positive, ok := negations[c.Kind]; ok {
		inner := *c
		inner.Kind = positive

		return !inner.any(values, now)
	}

	return c.any(values, now)
}

func (c *Condition) any(values []string, now time.Time) bool {
	for _, v := range values {
		for i, operand := range c.Values {
			if c.test(v, i, operand, now) {
				return true
			}
		}
	}

	return false
}

func (c *Condition) test(v string, i int, operand string, now time.Time) bool {
	switch c.Kind {
	case Equals:
		return v == operand
	case StartsWith:
		return strings.HasPrefix(v, operand)
	case Contains:
		return strings.Contains(v, operand)
	case RegexMatch:
		return c.regexps[i].MatchString(v)
	case GreaterThan, LessThan:
		order, ok := compare(v, operand)
		if !ok {
			return false
		}

		if c.Kind == GreaterThan {
			return order > 0
		}

		return order < 0
	case DateAgeGreaterThan, DateAgeLessThan:
		born, ok := c.parseDate(v)
		if !ok {
			return false
		}

		age := float64(coerce.AgeYears(born, now))
		if c.Kind == DateAgeGreaterThan {
			return age > c.numbers[i]
		}

		return age < c.numbers[i]
	default:
		return false
	}
}

func (c *Condition) parseDate(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}

	if c.format != nil {
		t, err := c.format.Parse(v)
		return t, err == nil
	}

	for _, p := range dateFallbacks {
		if t, err := p.Parse(v); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

// compare orders v against operand, numerically when the operand is a
// number and lexically otherwise. An empty value, or a non-numeric value
// against a numeric operand, is not comparable.
func compare(v, operand string) (int, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}

	y, err := strconv.ParseFloat(strings.TrimSpace(operand), 64)
	if err != nil {
		return strings.Compare(v, operand), true
	}

	x, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}

	return cmp.Compare(x, y), true
}

func (c *Condition) String() string {
	return fmt.Sprintf("%s %s %v", c.Field, c.Kind, c.Values)
}

// Package coerce converts raw string values into typed values and renders
// typed values back into text for either output form.
package coerce

import (
	"fmt"
	"strings"

	"hl7bridge/internal/fault"
)

// Kind is the closed set of semantic types a mapping rule can declare.
type Kind int

const (
	String Kind = iota
	Integer
	Boolean
	Date
	DateTime
	Composite
)

var kindNames = map[Kind]string{
	String:    "string",
	Integer:   "integer",
	Boolean:   "boolean",
	Date:      "date",
	DateTime:  "datetime",
	Composite: "composite",
}

var kindAliases = map[string]Kind{
	"":          String,
	"string":    String,
	"str":       String,
	"integer":   Integer,
	"int":       Integer,
	"boolean":   Boolean,
	"bool":      Boolean,
	"date":      Date,
	"datetime":  DateTime,
	"timestamp": DateTime,
	"composite": Composite,
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("Kind(%d)", int(k))
}

// Temporal reports whether values of this kind carry a time.
func (k Kind) Temporal() bool {
	return k == Date || k == DateTime
}

// ParseKind resolves a type tag. The empty tag is a string.
func ParseKind(s string) (Kind, error) {
	k, ok := kindAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return String, fault.New(fault.ConfigError, "unknown type %q", s)
	}

	return k, nil
}

// KindNames lists the canonical type tags.
func KindNames() []string {
	return []string{"string", "integer", "boolean", "date", "datetime", "composite"}
}

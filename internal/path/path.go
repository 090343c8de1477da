// Package path implements the two addressing grammars used by mapping rules:
// wire paths into parsed messages and document paths into tree documents.
//
// Wire paths have the form
//
//	SEGMENT[occurrence].field[repetition].component.subcomponent
//
// where everything after the field is optional and all indices are 1-based.
// Document paths are dot-separated element names, each optionally indexed,
// e.g. "Patient.Identifiers.Identifier[2].Value". A leading "/" anchors a
// document path at the root instead of the current scope.
package path

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"hl7bridge/internal/fault"
)

// Path is either a Wire or a Document path.
type Path interface {
	String() string
	isPath()
}

// Wire addresses values inside a parsed wire-form message.
type Wire struct {
	Segment string
	// Occurrence selects one occurrence of a repeating segment; 0 means
	// every occurrence in encounter order.
	Occurrence int
	Field      int
	// Repetition selects a field repetition; 0 means the first.
	Repetition int
	// Component and Subcomponent are 0 when the address stops above them.
	Component    int
	Subcomponent int

	raw string
}

func (w Wire) String() string { return w.raw }

func (Wire) isPath() {}

// Document addresses elements of a tree document.
type Document struct {
	Absolute bool
	Steps    []Step

	raw string
}

// Step is one element name in a document path. Index 0 selects every
// sibling with that name.
type Step struct {
	Name  string
	Index int
}

func (d Document) String() string { return d.raw }

func (Document) isPath() {}

var (
	segmentRe  = regexp.MustCompile(`^([A-Z][A-Z0-9]{1,3})(?:\[(\d+)\])?$`)
	fieldRe    = regexp.MustCompile(`^(\d+)(?:\[(\d+)\])?$`)
	indexRe    = regexp.MustCompile(`^\d+$`)
	stepRe     = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_\-]*)(?:\[(\d+)\])?$`)
	bareTagRe  = regexp.MustCompile(`^[A-Z][A-Z0-9]{1,3}$`)
	wireHintRe = regexp.MustCompile(`^[A-Z][A-Z0-9]{1,3}(\[\d+\])?\.\d`)
)

// IsSegmentTag reports whether s is a bare segment tag such as "OBX".
func IsSegmentTag(s string) bool {
	return bareTagRe.MatchString(s)
}

// LooksLikeWire reports whether s starts like a wire path ("PID.3...").
func LooksLikeWire(s string) bool {
	return wireHintRe.MatchString(s)
}

// ParseWire parses a wire path such as "PID.6.1" or "OBX[2].5".
func ParseWire(s string) (Wire, error) {
	parts := strings.Split(s, ".")
	if len(parts) < 2 || len(parts) > 4 {
		return Wire{}, invalid(s, "expected SEGMENT.field[.component[.subcomponent]]")
	}

	w := Wire{raw: s}

	m := segmentRe.FindStringSubmatch(parts[0])
	if m == nil {
		return Wire{}, invalid(s, fmt.Sprintf("invalid segment %q", parts[0]))
	}

	w.Segment = m[1]

	var err error
	if w.Occurrence, err = optionalIndex(m[2]); err != nil {
		return Wire{}, invalid(s, "occurrence must be >= 1")
	}

	m = fieldRe.FindStringSubmatch(parts[1])
	if m == nil {
		return Wire{}, invalid(s, fmt.Sprintf("invalid field %q", parts[1]))
	}

	if w.Field, err = positive(m[1]); err != nil {
		return Wire{}, invalid(s, "field must be >= 1")
	}

	if w.Repetition, err = optionalIndex(m[2]); err != nil {
		return Wire{}, invalid(s, "repetition must be >= 1")
	}

	if len(parts) > 2 {
		if w.Component, err = positiveIndex(parts[2]); err != nil {
			return Wire{}, invalid(s, fmt.Sprintf("invalid component %q", parts[2]))
		}
	}

	if len(parts) > 3 {
		if w.Subcomponent, err = positiveIndex(parts[3]); err != nil {
			return Wire{}, invalid(s, fmt.Sprintf("invalid subcomponent %q", parts[3]))
		}
	}

	return w, nil
}

// ParseDocument parses a document path such as "Patient.PatientId". Steps
// are separated by "." or "/"; a leading "/" makes the path absolute.
func ParseDocument(s string) (Document, error) {
	d := Document{raw: s}

	body := s
	if strings.HasPrefix(body, "/") {
		d.Absolute = true
		body = body[1:]
	}

	if body == "" {
		return Document{}, invalid(s, "empty path")
	}

	for _, part := range strings.Split(strings.ReplaceAll(body, "/", "."), ".") {
		m := stepRe.FindStringSubmatch(part)
		if m == nil {
			return Document{}, invalid(s, fmt.Sprintf("invalid element step %q", part))
		}

		idx, err := optionalIndex(m[2])
		if err != nil {
			return Document{}, invalid(s, "index must be >= 1")
		}

		d.Steps = append(d.Steps, Step{Name: m[1], Index: idx})
	}

	return d, nil
}

func invalid(s, reason string) error {
	return fault.New(fault.PathResolutionError, "invalid path %q: %s", s, reason)
}

func optionalIndex(s string) (int, error) {
	if s == "" {
		return 0, nil
	}

	return positive(s)
}

func positiveIndex(s string) (int, error) {
	if !indexRe.MatchString(s) {
		return 0, fmt.Errorf("not a number: %q", s)
	}

	return positive(s)
}

func positive(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}

	if n < 1 {
		return 0, fmt.Errorf("index %d out of range", n)
	}

	return n, nil
}

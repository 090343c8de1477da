package hl7

import "strings"

// DefaultTerminator ends every encoded segment.
const DefaultTerminator = "\r"

// OutSegment is a segment being assembled for output. Fields[i] holds
// position i+1, so Fields[0] is the tag.
type OutSegment struct {
	Fields []string
}

// NewOutSegment starts an output segment with the given tag.
func NewOutSegment(tag string) *OutSegment {
	return &OutSegment{Fields: []string{tag}}
}

// Tag returns the segment tag.
func (s *OutSegment) Tag() string {
	return s.Fields[0]
}

// Set places an already-encoded value at a 1-based position (>= 2), growing
// the segment with empty fields as needed.
func (s *OutSegment) Set(position int, value string) {
	if position < 2 {
		return
	}

	for len(s.Fields) < position {
		s.Fields = append(s.Fields, "")
	}

	s.Fields[position-1] = value
}

// Get returns the value at a 1-based position, or "".
func (s *OutSegment) Get(position int) string {
	if position < 1 || position > len(s.Fields) {
		return ""
	}

	return s.Fields[position-1]
}

// Encode renders one segment. Header segments get their encoding characters
// at position 2 when it is not governed explicitly; trailing empty fields are
// dropped.
func (s *OutSegment) Encode(d Delimiters) string {
	fields := s.Fields
	if headerTags[s.Tag()] && s.Get(2) == "" {
		s.Set(2, d.EncodingCharacters())
		fields = s.Fields
	}

	last := len(fields)
	for last > 1 && fields[last-1] == "" {
		last--
	}

	return strings.Join(fields[:last], string(d.Field))
}

// Encode renders segments in order, each followed by terminator. An empty
// terminator means DefaultTerminator.
func Encode(segments []*OutSegment, d Delimiters, terminator string) []byte {
	if terminator == "" {
		terminator = DefaultTerminator
	}

	var b strings.Builder

	for _, s := range segments {
		b.WriteString(s.Encode(d))
		b.WriteString(terminator)
	}

	return []byte(b.String())
}

package hl7

import "hl7bridge/internal/common"

// Message is a parsed wire-form message. Segments keep their encounter order;
// repeated tags are never merged or reordered.
type Message struct {
	Delimiters Delimiters
	Segments   []*Segment
	// Malformed holds one MalformedMessageError per segment that could not be
	// parsed. Those segments are absent from Segments.
	Malformed []error

	byTag map[string][]*Segment
}

// Segment is one tagged record. Fields[0] is the tag itself (position 1).
type Segment struct {
	Tag string
	// Position is the 1-based line number of the segment within the message.
	Position int
	Fields   []*Field
	Raw      string
}

// Field is the value at one position of a segment.
type Field struct {
	Raw         string
	Repetitions []*Repetition
}

// Repetition is one occurrence of a repeating field.
type Repetition struct {
	Raw        string
	Components []*Component
}

// Component is one component of a repetition.
type Component struct {
	Raw           string
	Subcomponents []string
}

// All returns every segment with the given tag in encounter order.
func (m *Message) All(tag string) []*Segment {
	return m.byTag[tag]
}

// First returns the first segment with the given tag, or nil.
func (m *Message) First(tag string) *Segment {
	seg, _ := common.First(m.byTag[tag])
	return seg
}

// Header returns the header segment.
func (m *Message) Header() *Segment {
	if len(m.Segments) == 0 {
		return nil
	}

	return m.Segments[0]
}

// Unescape decodes escape sequences using the message's own delimiters.
func (m *Message) Unescape(s string) string {
	return m.Delimiters.Unescape(s)
}

// ToMap exposes the message as nested plain values: tag -> occurrences ->
// raw field strings, where list index i holds position i+1.
func (m *Message) ToMap() map[string]any {
	out := make(map[string]any, len(m.byTag))

	for _, seg := range m.Segments {
		fields := make([]any, len(seg.Fields))
		for i, f := range seg.Fields {
			fields[i] = f.Raw
		}

		occ, _ := out[seg.Tag].([]any)
		out[seg.Tag] = append(occ, fields)
	}

	return out
}

// Field returns the field at a 1-based position, or nil when the segment is
// shorter.
func (s *Segment) Field(position int) *Field {
	return common.Index(s.Fields, position)
}

// Repetition returns the 1-based repetition, or nil.
func (f *Field) Repetition(n int) *Repetition {
	if f == nil {
		return nil
	}

	return common.Index(f.Repetitions, n)
}

// Component returns the 1-based component, or nil.
func (r *Repetition) Component(n int) *Component {
	if r == nil {
		return nil
	}

	return common.Index(r.Components, n)
}

// Subcomponent returns the 1-based subcomponent and whether it exists.
func (c *Component) Subcomponent(n int) (string, bool) {
	if c == nil || n < 1 || n > len(c.Subcomponents) {
		return "", false
	}

	return c.Subcomponents[n-1], true
}

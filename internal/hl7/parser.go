package hl7

import (
	"strings"

	"hl7bridge/internal/fault"
)

const (
	mllpStart = 0x0b
	mllpEnd   = 0x1c
)

var headerTags = map[string]bool{"MSH": true, "FHS": true, "BHS": true}

// Parse tokenizes raw wire-form text. Delimiters are read from the header
// segment before anything else is interpreted.
//
// A missing or truncated header is fatal. Any other segment that cannot be
// parsed is recorded in Message.Malformed and parsing continues.
func Parse(data []byte) (*Message, error) {
	text := strings.Map(func(r rune) rune {
		if r == mllpStart || r == mllpEnd {
			return -1
		}

		return r
	}, string(data))

	lines := splitSegments(text)
	if len(lines) == 0 {
		return nil, fault.New(fault.MalformedMessageError, "empty message: header segment absent")
	}

	d, err := readDelimiters(lines[0])
	if err != nil {
		return nil, err
	}

	msg := &Message{
		Delimiters: d,
		byTag:      make(map[string][]*Segment),
	}

	for i, line := range lines {
		seg, err := d.parseSegment(line, i+1, i == 0)
		if err != nil {
			msg.Malformed = append(msg.Malformed, err)
			continue
		}

		msg.Segments = append(msg.Segments, seg)
		msg.byTag[seg.Tag] = append(msg.byTag[seg.Tag], seg)
	}

	return msg, nil
}

// splitSegments splits on \r, \n or \r\n and drops blank lines.
func splitSegments(text string) []string {
	raw := strings.FieldsFunc(text, func(r rune) bool {
		return r == '\r' || r == '\n'
	})

	lines := make([]string, 0, len(raw))

	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}

	return lines
}

func readDelimiters(header string) (Delimiters, error) {
	if len(header) < 3 || !headerTags[header[:3]] {
		return Delimiters{}, fault.New(fault.MalformedMessageError,
			"header segment absent: message starts with %q", truncate(header, 8))
	}

	if len(header) < 4 {
		return Delimiters{}, fault.New(fault.MalformedMessageError,
			"header segment %q too short to declare delimiters", header)
	}

	fieldSep := header[3]
	enc := header[4:]

	if i := strings.IndexByte(enc, fieldSep); i >= 0 {
		enc = enc[:i]
	}

	if len(enc) < 4 {
		return Delimiters{}, fault.New(fault.MalformedMessageError,
			"header segment declares %d encoding characters, need 4", len(enc))
	}

	d := Delimiters{
		Field:        fieldSep,
		Component:    enc[0],
		Repetition:   enc[1],
		Escape:       enc[2],
		Subcomponent: enc[3],
	}

	if err := d.validate(); err != nil {
		return Delimiters{}, fault.Wrap(fault.MalformedMessageError, err)
	}

	return d, nil
}

func (d Delimiters) parseSegment(line string, position int, header bool) (*Segment, error) {
	parts := strings.Split(line, string(d.Field))
	tag := parts[0]

	if !validTag(tag) {
		return nil, fault.New(fault.MalformedMessageError,
			"segment %d: invalid tag %q", position, tag).WithPath(truncate(line, 20))
	}

	seg := &Segment{
		Tag:      tag,
		Position: position,
		Fields:   make([]*Field, len(parts)),
		Raw:      line,
	}

	for i, p := range parts {
		// The tag and the header's encoding characters are opaque scalars.
		if i == 0 || (header && i == 1) {
			seg.Fields[i] = scalarField(p)
			continue
		}

		seg.Fields[i] = d.splitField(p)
	}

	return seg, nil
}

func (d Delimiters) splitField(raw string) *Field {
	f := &Field{Raw: raw}

	for _, rep := range splitIfContains(raw, d.Repetition) {
		r := &Repetition{Raw: rep}

		for _, comp := range splitIfContains(rep, d.Component) {
			r.Components = append(r.Components, &Component{
				Raw:           comp,
				Subcomponents: splitIfContains(comp, d.Subcomponent),
			})
		}

		f.Repetitions = append(f.Repetitions, r)
	}

	return f
}

func scalarField(raw string) *Field {
	return &Field{
		Raw: raw,
		Repetitions: []*Repetition{{
			Raw:        raw,
			Components: []*Component{{Raw: raw, Subcomponents: []string{raw}}},
		}},
	}
}

func splitIfContains(s string, sep byte) []string {
	if strings.IndexByte(s, sep) < 0 {
		return []string{s}
	}

	return strings.Split(s, string(sep))
}

// validTag accepts 2 to 4 alphanumerics starting with a letter.
func validTag(tag string) bool {
	if len(tag) < 2 || len(tag) > 4 {
		return false
	}

	if !(tag[0] >= 'A' && tag[0] <= 'Z') && !(tag[0] >= 'a' && tag[0] <= 'z') {
		return false
	}

	for i := 1; i < len(tag); i++ {
		if !isAlnum(tag[i]) {
			return false
		}
	}

	return true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n] + "..."
}

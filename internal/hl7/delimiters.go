package hl7

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Delimiters are the separator characters declared by a message header.
type Delimiters struct {
	Field        byte
	Component    byte
	Repetition   byte
	Escape       byte
	Subcomponent byte
}

// DefaultDelimiters is the conventional |^~\& set.
var DefaultDelimiters = Delimiters{
	Field:        '|',
	Component:    '^',
	Repetition:   '~',
	Escape:       '\\',
	Subcomponent: '&',
}

// ParseDelimiters reads a field separator followed by the four encoding
// characters, e.g. `|^~\&`.
func ParseDelimiters(s string) (Delimiters, error) {
	if len(s) < 5 {
		return Delimiters{}, fmt.Errorf("delimiters %q: need field separator and 4 encoding characters", s)
	}

	d := Delimiters{
		Field:        s[0],
		Component:    s[1],
		Repetition:   s[2],
		Escape:       s[3],
		Subcomponent: s[4],
	}

	if err := d.validate(); err != nil {
		return Delimiters{}, err
	}

	return d, nil
}

func (d Delimiters) validate() error {
	chars := []byte{d.Field, d.Component, d.Repetition, d.Escape, d.Subcomponent}
	seen := make(map[byte]bool, len(chars))

	for _, c := range chars {
		if isAlnum(c) || c == ' ' || c == '\r' || c == '\n' {
			return fmt.Errorf("invalid delimiter %q", c)
		}

		if seen[c] {
			return fmt.Errorf("delimiter %q declared twice", c)
		}

		seen[c] = true
	}

	return nil
}

// EncodingCharacters returns the header value for position 2, e.g. `^~\&`.
func (d Delimiters) EncodingCharacters() string {
	return string([]byte{d.Component, d.Repetition, d.Escape, d.Subcomponent})
}

// String returns the field separator followed by the encoding characters.
func (d Delimiters) String() string {
	return string(d.Field) + d.EncodingCharacters()
}

// Unescape decodes the escape sequences \F\ \S\ \T\ \R\ \E\ and \Xhh..\ in s.
// Unknown sequences and an unterminated escape are kept verbatim.
func (d Delimiters) Unescape(s string) string {
	if strings.IndexByte(s, d.Escape) < 0 {
		return s
	}

	var b strings.Builder

	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != d.Escape {
			b.WriteByte(c)
			continue
		}

		end := strings.IndexByte(s[i+1:], d.Escape)
		if end < 0 {
			b.WriteString(s[i:])
			break
		}

		seq := s[i+1 : i+1+end]
		if decoded, ok := d.decodeSequence(seq); ok {
			b.WriteString(decoded)
		} else {
			b.WriteString(s[i : i+end+2])
		}

		i += end + 1
	}

	return b.String()
}

func (d Delimiters) decodeSequence(seq string) (string, bool) {
	switch seq {
	case "F":
		return string(d.Field), true
	case "S":
		return string(d.Component), true
	case "T":
		return string(d.Subcomponent), true
	case "R":
		return string(d.Repetition), true
	case "E":
		return string(d.Escape), true
	case ".br":
		return "\n", true
	}

	if len(seq) > 1 && seq[0] == 'X' {
		raw, err := hex.DecodeString(seq[1:])
		if err == nil {
			return string(raw), true
		}
	}

	return "", false
}

// EscapeText encodes every delimiter character in s so that s can be written as a
// single leaf value.
func (d Delimiters) EscapeText(s string) string {
	if !strings.ContainsAny(s, string([]byte{d.Field, d.Component, d.Repetition, d.Escape, d.Subcomponent})) {
		return s
	}

	var b strings.Builder

	b.Grow(len(s) + 8)

	for i := 0; i < len(s); i++ {
		c := s[i]

		var code byte

		switch c {
		case d.Field:
			code = 'F'
		case d.Component:
			code = 'S'
		case d.Subcomponent:
			code = 'T'
		case d.Repetition:
			code = 'R'
		case d.Escape:
			code = 'E'
		default:
			b.WriteByte(c)
			continue
		}

		b.WriteByte(d.Escape)
		b.WriteByte(code)
		b.WriteByte(d.Escape)
	}

	return b.String()
}

func isAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"hl7bridge/internal/coerce"
	"hl7bridge/internal/fault"
)

// MarshalJSON renders n as {"<name>": {...}} keeping child order. Repeated
// sibling names, and items marked Repeated, become arrays at the position of
// their first occurrence; integer and boolean leaves are written as JSON
// numbers and booleans.
func MarshalJSON(n *Node, indent string) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')
	writeString(&buf, n.Name)
	buf.WriteByte(':')

	if err := writeValue(&buf, n); err != nil {
		return nil, err
	}

	buf.WriteByte('}')

	if indent == "" {
		return buf.Bytes(), nil
	}

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", indent); err != nil {
		return nil, err
	}

	out.WriteByte('\n')

	return out.Bytes(), nil
}

func writeValue(buf *bytes.Buffer, n *Node) error {
	if n.leaf {
		return writeLeaf(buf, n)
	}

	groups := make(map[string][]*Node)

	var order []string

	for _, c := range n.Children {
		if _, ok := groups[c.Name]; !ok {
			order = append(order, c.Name)
		}

		groups[c.Name] = append(groups[c.Name], c)
	}

	buf.WriteByte('{')

	for i, name := range order {
		if i > 0 {
			buf.WriteByte(',')
		}

		writeString(buf, name)
		buf.WriteByte(':')

		members := groups[name]
		if len(members) == 1 && !members[0].Repeated {
			if err := writeValue(buf, members[0]); err != nil {
				return err
			}

			continue
		}

		buf.WriteByte('[')

		for j, m := range members {
			if j > 0 {
				buf.WriteByte(',')
			}

			if err := writeValue(buf, m); err != nil {
				return err
			}
		}

		buf.WriteByte(']')
	}

	buf.WriteByte('}')

	return nil
}

func writeLeaf(buf *bytes.Buffer, n *Node) error {
	switch n.Kind {
	case coerce.Integer, coerce.Boolean:
		if n.Text != "" && json.Valid([]byte(n.Text)) {
			buf.WriteString(n.Text)
			return nil
		}
	}

	writeString(buf, n.Text)

	return nil
}

// writeString quotes s without HTML escaping, so & < > stay literal.
func writeString(buf *bytes.Buffer, s string) {
	var quoted bytes.Buffer

	enc := json.NewEncoder(&quoted)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)

	buf.Write(bytes.TrimSuffix(quoted.Bytes(), []byte("\n")))
}

// ParseJSON reads a JSON document into a tree. A top-level object with a
// single object member is that member's element; any other object is wrapped
// in an element named rootName. Arrays become repeated siblings.
func ParseJSON(r io.Reader, rootName string) (*Node, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, malformedJSON(err)
	}

	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fault.New(fault.MalformedMessageError, "json: document must be an object")
	}

	top := NewGroup(rootName)
	if err := readObject(dec, top); err != nil {
		return nil, err
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fault.New(fault.MalformedMessageError, "json: trailing data after document")
	}

	if len(top.Children) == 1 && !top.Children[0].leaf {
		return top.Children[0], nil
	}

	return top, nil
}

// readObject consumes members up to and including the closing brace.
func readObject(dec *json.Decoder, parent *Node) error {
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return malformedJSON(err)
		}

		name, ok := tok.(string)
		if !ok {
			return fault.New(fault.MalformedMessageError, "json: expected member name, got %v", tok)
		}

		if err := readMember(dec, parent, name); err != nil {
			return err
		}
	}

	_, err := dec.Token()
	if err != nil {
		return malformedJSON(err)
	}

	return nil
}

func readMember(dec *json.Decoder, parent *Node, name string) error {
	tok, err := dec.Token()
	if err != nil {
		return malformedJSON(err)
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			child := NewGroup(name)
			parent.Add(child)

			return readObject(dec, child)
		case '[':
			first := len(parent.Children)

			for dec.More() {
				if err := readMember(dec, parent, name); err != nil {
					return err
				}
			}

			for _, item := range parent.Children[first:] {
				item.Repeated = true
			}

			if _, err := dec.Token(); err != nil {
				return malformedJSON(err)
			}

			return nil
		default:
			return fault.New(fault.MalformedMessageError, "json: unexpected %v", t)
		}
	case string:
		parent.Add(NewLeaf(name, t, coerce.String))
	case json.Number:
		parent.Add(NewLeaf(name, t.String(), coerce.String))
	case bool:
		parent.Add(NewLeaf(name, fmt.Sprint(t), coerce.String))
	case nil:
		parent.Add(NewLeaf(name, "", coerce.String))
	}

	return nil
}

func malformedJSON(err error) error {
	return fault.New(fault.MalformedMessageError, "json: %v", err)
}

package document

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"hl7bridge/internal/fault"
)

// EncodeXML writes n as an indented XML document.
func EncodeXML(w io.Writer, n *Node, indent string) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", indent)

	if err := encodeElement(enc, n); err != nil {
		return err
	}

	if err := enc.Flush(); err != nil {
		return err
	}

	_, err := io.WriteString(w, "\n")

	return err
}

// MarshalXML renders n with EncodeXML into memory.
func MarshalXML(n *Node, indent string) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeXML(&buf, n, indent); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func encodeElement(enc *xml.Encoder, n *Node) error {
	start := xml.StartElement{Name: xml.Name{Local: n.Name}}

	if err := enc.EncodeToken(start); err != nil {
		return err
	}

	if n.leaf {
		if n.Text != "" {
			if err := enc.EncodeToken(xml.CharData(n.Text)); err != nil {
				return err
			}
		}
	} else {
		for _, c := range n.Children {
			if err := encodeElement(enc, c); err != nil {
				return err
			}
		}
	}

	return enc.EncodeToken(start.End())
}

// ParseXML reads an XML document. Elements without child elements become
// leaves; attributes, comments and processing instructions are ignored.
func ParseXML(r io.Reader) (*Node, error) {
	dec := xml.NewDecoder(r)

	var (
		root  *Node
		stack []*Node
		texts []*strings.Builder
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fault.New(fault.MalformedMessageError, "xml: %v", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Name: t.Name.Local}

			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			} else if root != nil {
				return nil, fault.New(fault.MalformedMessageError, "xml: multiple root elements")
			} else {
				root = n
			}

			stack = append(stack, n)
			texts = append(texts, &strings.Builder{})

		case xml.CharData:
			if len(texts) > 0 {
				texts[len(texts)-1].Write(t)
			}

		case xml.EndElement:
			n := stack[len(stack)-1]
			if len(n.Children) == 0 {
				n.leaf = true
				n.Text = texts[len(texts)-1].String()
			}

			stack = stack[:len(stack)-1]
			texts = texts[:len(texts)-1]
		}
	}

	if root == nil {
		return nil, fault.New(fault.MalformedMessageError, "xml: no root element")
	}

	return root, nil
}

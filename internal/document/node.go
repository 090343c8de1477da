// Package document is the tree form of a message: an ordered tree of named
// elements whose leaves hold text. It has no attributes and keeps sibling
// order exactly as built or read.
package document

import (
	"hl7bridge/internal/coerce"
)

// Node is one element. Groups have children; leaves have text.
type Node struct {
	Name     string
	Text     string
	Kind     coerce.Kind
	Children []*Node
	// Repeated marks an item of a list. JSON renders it inside an array even
	// when it has no siblings of the same name.
	Repeated bool

	leaf bool
}

// NewGroup returns an empty container element.
func NewGroup(name string) *Node {
	return &Node{Name: name}
}

// NewLeaf returns a text element. Kind drives typed JSON rendering.
func NewLeaf(name, text string, kind coerce.Kind) *Node {
	return &Node{Name: name, Text: text, Kind: kind, leaf: true}
}

// IsLeaf reports whether n holds text rather than children.
func (n *Node) IsLeaf() bool {
	return n.leaf
}

// Add appends children in order and returns n.
func (n *Node) Add(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

// Child returns the first child with the given name.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}

	return nil
}

// ChildrenNamed returns every child with the given name in order.
func (n *Node) ChildrenNamed(name string) []*Node {
	var out []*Node

	for _, c := range n.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}

	return out
}

// ToMap exposes the node's content as nested maps for expressions. Leaves are
// strings; repeated sibling names and Repeated items become lists.
func (n *Node) ToMap() map[string]any {
	counts := make(map[string]int, len(n.Children))
	for _, c := range n.Children {
		counts[c.Name]++
	}

	out := make(map[string]any, len(counts))

	for _, c := range n.Children {
		var v any
		if c.leaf {
			v = c.Text
		} else {
			v = c.ToMap()
		}

		if counts[c.Name] == 1 && !c.Repeated {
			out[c.Name] = v
			continue
		}

		list, _ := out[c.Name].([]any)
		out[c.Name] = append(list, v)
	}

	return out
}

// Package resolve locates values addressed by field paths, either inside a
// parsed wire message or inside a tree document. Resolution never fails: an
// absent segment or element yields no values and a missing level yields an
// empty string.
package resolve

import (
	"hl7bridge/internal/document"
	"hl7bridge/internal/hl7"
	"hl7bridge/internal/path"
)

// Source resolves a textual field path in the current scope. Unparsable
// paths yield nothing; paths are checked when a mapping is compiled.
type Source interface {
	Lookup(field string) []string
}

// First returns the first non-empty value.
func First(values []string) (string, bool) {
	for _, v := range values {
		if v != "" {
			return v, true
		}
	}

	return "", false
}

// Wire resolves wire paths. When Scope is set, paths naming the scope's tag
// without an occurrence selector read from the scope segment only.
type Wire struct {
	Msg   *hl7.Message
	Scope *hl7.Segment
}

// In returns a copy of w scoped to seg.
func (w Wire) In(seg *hl7.Segment) Wire {
	return Wire{Msg: w.Msg, Scope: seg}
}

// Lookup implements Source.
func (w Wire) Lookup(field string) []string {
	p, err := path.ParseWire(field)
	if err != nil {
		return nil
	}

	return w.Values(p)
}

// Segments returns the segments p addresses in encounter order.
func (w Wire) Segments(p path.Wire) []*hl7.Segment {
	if w.Scope != nil && p.Occurrence == 0 && w.Scope.Tag == p.Segment {
		return []*hl7.Segment{w.Scope}
	}

	all := w.Msg.All(p.Segment)
	if p.Occurrence == 0 {
		return all
	}

	if p.Occurrence > len(all) {
		return nil
	}

	return all[p.Occurrence-1 : p.Occurrence]
}

// Values returns one unescaped value per addressed segment.
func (w Wire) Values(p path.Wire) []string {
	segs := w.Segments(p)
	out := make([]string, 0, len(segs))

	for _, seg := range segs {
		out = append(out, w.leaf(seg, p))
	}

	return out
}

func (w Wire) leaf(seg *hl7.Segment, p path.Wire) string {
	f := seg.Field(p.Field)
	if f == nil {
		return ""
	}

	// the encoding characters are literal
	if p.Field == 2 && seg == w.Msg.Header() {
		return f.Raw
	}

	rep := p.Repetition
	if rep == 0 {
		rep = 1
	}

	r := f.Repetition(rep)
	if r == nil {
		return ""
	}

	if p.Component == 0 {
		return w.Msg.Unescape(r.Raw)
	}

	c := r.Component(p.Component)
	if c == nil {
		return ""
	}

	if p.Subcomponent == 0 {
		return w.Msg.Unescape(c.Raw)
	}

	s, _ := c.Subcomponent(p.Subcomponent)

	return w.Msg.Unescape(s)
}

// Tree resolves document paths. Relative paths start at Scope, or at Root
// when no scope is set; absolute paths always start at Root.
type Tree struct {
	Root  *document.Node
	Scope *document.Node
}

// In returns a copy of t scoped to n.
func (t Tree) In(n *document.Node) Tree {
	return Tree{Root: t.Root, Scope: n}
}

// Lookup implements Source.
func (t Tree) Lookup(field string) []string {
	p, err := path.ParseDocument(field)
	if err != nil {
		return nil
	}

	return t.Values(p)
}

// Nodes returns the elements p addresses in document order.
func (t Tree) Nodes(p path.Document) []*document.Node {
	start := t.Scope
	if start == nil || p.Absolute {
		start = t.Root
	}

	if start == nil {
		return nil
	}

	steps := p.Steps

	// "/HealthcareMessage.Patient" may name the root itself
	if p.Absolute && len(steps) > 0 && steps[0].Name == start.Name && start.Child(steps[0].Name) == nil {
		if steps[0].Index > 1 {
			return nil
		}

		steps = steps[1:]
	}

	current := []*document.Node{start}

	for _, step := range steps {
		var next []*document.Node

		for _, n := range current {
			matched := n.ChildrenNamed(step.Name)

			if step.Index > 0 {
				if step.Index > len(matched) {
					continue
				}

				matched = matched[step.Index-1 : step.Index]
			}

			next = append(next, matched...)
		}

		if len(next) == 0 {
			return nil
		}

		current = next
	}

	return current
}

// Values returns the text of every addressed element. Containers have no
// text and yield "".
func (t Tree) Values(p path.Document) []string {
	nodes := t.Nodes(p)
	out := make([]string, len(nodes))

	for i, n := range nodes {
		if n.IsLeaf() {
			out[i] = n.Text
		}
	}

	return out
}

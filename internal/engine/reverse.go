package engine

import (
	"bytes"
	"strings"

	"hl7bridge/internal/coerce"
	"hl7bridge/internal/document"
	"hl7bridge/internal/hl7"
	"hl7bridge/internal/mapping"
	"hl7bridge/internal/path"
	"hl7bridge/internal/resolve"
)

// Generated header values, used when no block maps the MSH segment.
const (
	headerApplication = "HL7BRIDGE"
	headerProcessing  = "P"
	headerVersion     = "2.5"
	maxControlID      = 20
)

var headerTimestamp = coerce.MustPattern("YYYYMMDDHHmmSS")

func (c *transformContext) reverse(raw []byte, res *Result) error {
	var (
		root *document.Node
		err  error
	)

	if c.plan.InputFormat == mapping.FormatJSON {
		root, err = document.ParseJSON(bytes.NewReader(raw), c.plan.RootElement)
	} else {
		root, err = document.ParseXML(bytes.NewReader(raw))
	}

	if err != nil {
		return err
	}

	tree := treeScope{resolve.Tree{Root: root}}

	if cond, ok := c.plan.GlobalFilters.FirstFailure(tree.Lookup, c.now); !ok {
		res.Excluded = true
		res.ExcludedBy = cond.String()

		return nil
	}

	c.message = root.ToMap()
	c.escape = c.plan.Delimiters.EscapeText

	var segments []*hl7.OutSegment

	for _, b := range c.plan.Segments {
		segs, err := c.buildBlock(b, tree)
		if err != nil {
			return err
		}

		segments = append(segments, segs...)
	}

	if !hasHeader(segments) {
		segments = append([]*hl7.OutSegment{c.generatedHeader(res)}, segments...)
	}

	res.Segments = segments
	res.Output = hl7.Encode(segments, c.plan.Delimiters, c.plan.Terminator)

	return nil
}

// buildBlock emits one segment for the block, or one per repeat node that
// passes the block filter.
func (c *transformContext) buildBlock(b *mapping.SegmentBlock, tree treeScope) ([]*hl7.OutSegment, error) {
	if cond, ok := b.SourceFilters.FirstFailure(tree.Lookup, c.now); !ok {
		c.log.Debug("segment block filtered", "block", b.Key, "condition", cond.String())
		return nil, nil
	}

	scopes := []treeScope{tree}

	if b.Repeat != nil {
		scopes = scopes[:0]
		for _, n := range tree.Nodes(*b.Repeat) {
			scopes = append(scopes, treeScope{tree.In(n)})
		}
	}

	var out []*hl7.OutSegment

	for _, sc := range scopes {
		if !b.Filter.All(sc.Lookup, c.now) {
			continue
		}

		seg := hl7.NewOutSegment(b.Segment)

		for _, f := range b.Fields {
			text, ok, err := c.renderField(f.Rule, sc)
			if err != nil {
				return nil, err
			}

			if ok {
				seg.Set(f.Position, text)
			}
		}

		out = append(out, seg)
	}

	return out, nil
}

// renderField produces the encoded text of one positioned rule.
func (c *transformContext) renderField(r mapping.Rule, sc treeScope) (string, bool, error) {
	switch rule := r.(type) {
	case *mapping.Scalar:
		val, ok, err := c.resolveValue(&rule.Value, rule, sc, nil)
		if err != nil || !ok {
			return "", false, err
		}

		return c.escape(rule.Strategy.Render(val)), true, nil

	case *mapping.Composite:
		// placeholder values are escaped as they are rendered
		val, ok, err := c.resolveValue(&rule.Value, rule, sc, c.treeComposite(rule, sc))
		if err != nil || !ok {
			return "", false, err
		}

		return rule.Strategy.Render(val), true, nil
	}

	return "", false, nil
}

// treeComposite renders a composite template. Placeholders name a sub-field,
// a child of the rule's source element, or a document path.
func (c *transformContext) treeComposite(r *mapping.Composite, sc treeScope) rawFunc {
	return func() (string, bool, error) {
		var (
			filled bool
			err    error
		)

		source := c.sourceNode(r, sc)

		text := r.Template.Render(func(name string) (string, bool) {
			if err != nil {
				return "", false
			}

			var v string

			if f := subField(r, name); f != nil {
				val, ok, ferr := c.resolveValue(&f.Value, f, sc, nil)
				if ferr != nil {
					err = ferr
					return "", false
				}

				if ok {
					v = f.Strategy.Render(val)
				}
			} else if child := childOf(source, name); child != nil {
				v = child.Text
			} else if p, perr := path.ParseDocument(name); perr == nil && strings.ContainsAny(name, "./") {
				v, _ = resolve.First(sc.Values(p))
			}

			filled = filled || v != ""

			return c.escape(v), v != ""
		})

		if err != nil {
			return "", false, err
		}

		return text, filled, nil
	}
}

func (c *transformContext) sourceNode(r *mapping.Composite, sc treeScope) *document.Node {
	for _, src := range r.Sources {
		p, ok := src.Path.(path.Document)
		if !ok || !src.Filters.All(sc.Lookup, c.now) {
			continue
		}

		if nodes := sc.Nodes(p); len(nodes) > 0 {
			return nodes[0]
		}
	}

	return nil
}

func childOf(n *document.Node, name string) *document.Node {
	if n == nil {
		return nil
	}

	return n.Child(name)
}

func hasHeader(segments []*hl7.OutSegment) bool {
	for _, s := range segments {
		if s.Tag() == "MSH" {
			return true
		}
	}

	return false
}

// generatedHeader builds a minimal MSH for configurations that do not map
// one. The control id is derived from the result id.
func (c *transformContext) generatedHeader(res *Result) *hl7.OutSegment {
	control := strings.ToUpper(strings.ReplaceAll(res.ID.String(), "-", ""))[:maxControlID]

	msh := hl7.NewOutSegment("MSH")
	msh.Set(3, headerApplication)
	msh.Set(7, headerTimestamp.Format(c.now))
	msh.Set(10, control)
	msh.Set(11, headerProcessing)
	msh.Set(12, headerVersion)

	return msh
}

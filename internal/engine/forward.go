package engine

import (
	"strconv"

	"hl7bridge/internal/document"
	"hl7bridge/internal/fault"
	"hl7bridge/internal/hl7"
	"hl7bridge/internal/mapping"
	"hl7bridge/internal/path"
	"hl7bridge/internal/resolve"
	"hl7bridge/internal/validate"
)

func (c *transformContext) forward(raw []byte, res *Result) error {
	msg, err := hl7.Parse(raw)
	if err != nil {
		return err
	}

	for _, bad := range msg.Malformed {
		if err := c.report(mapping.MalformedSegment, fault.Wrap(fault.MalformedMessageError, bad)); err != nil {
			return err
		}
	}

	findings, err := validate.Structure(msg)
	if err != nil {
		return err
	}

	for _, f := range findings {
		if err := c.report(mapping.InvalidStructure, f); err != nil {
			return err
		}
	}

	root := wireScope{resolve.Wire{Msg: msg}}

	if cond, ok := c.plan.GlobalFilters.FirstFailure(root.Lookup, c.now); !ok {
		res.Excluded = true
		res.ExcludedBy = cond.String()

		return nil
	}

	c.message = msg.ToMap()

	doc := document.NewGroup(c.plan.RootElement)
	if err := c.buildRules(doc, c.plan.Rules, root); err != nil {
		return err
	}

	res.Document = doc

	switch c.plan.OutputFormat {
	case mapping.FormatJSON:
		res.Output, err = document.MarshalJSON(doc, c.indent)
	default:
		res.Output, err = document.MarshalXML(doc, c.indent)
	}

	return err
}

// buildRules appends one node per rule to parent, in declaration order.
func (c *transformContext) buildRules(parent *document.Node, rules []mapping.Rule, sc wireScope) error {
	for _, r := range rules {
		if err := c.buildRule(parent, r, sc); err != nil {
			return err
		}
	}

	return nil
}

func (c *transformContext) buildRule(parent *document.Node, r mapping.Rule, sc wireScope) error {
	switch rule := r.(type) {
	case *mapping.Scalar:
		val, ok, err := c.resolveValue(&rule.Value, rule, sc, nil)
		if err != nil || !ok {
			return err
		}

		parent.Add(document.NewLeaf(rule.Element(), rule.Strategy.Render(val), val.Kind))

	case *mapping.Composite:
		val, ok, err := c.resolveValue(&rule.Value, rule, sc, c.wireComposite(rule, sc))
		if err != nil || !ok {
			return err
		}

		parent.Add(document.NewLeaf(rule.Element(), rule.Strategy.Render(val), val.Kind))

	case *mapping.Group:
		if cond, ok := rule.Filters.FirstFailure(sc.Lookup, c.now); !ok {
			c.log.Debug("group filtered", "rule", rule.Path(), "condition", cond.String())
			return nil
		}

		group := document.NewGroup(rule.Element())
		parent.Add(group)

		return c.buildRules(group, rule.Children, sc)

	case *mapping.Repeated:
		container := document.NewGroup(rule.Element())
		parent.Add(container)

		for _, seg := range sc.Msg.All(rule.Segment) {
			item := wireScope{sc.In(seg)}
			if !rule.Filter.All(item.Lookup, c.now) {
				continue
			}

			node := document.NewGroup(rule.ItemElement)
			node.Repeated = true
			container.Add(node)

			if err := c.buildRules(node, rule.Fields, item); err != nil {
				return err
			}
		}
	}

	return nil
}

// wireComposite renders a composite template. Placeholders name a sub-field,
// a component (or subcomponent) of the rule's source field, or a wire path.
func (c *transformContext) wireComposite(r *mapping.Composite, sc wireScope) rawFunc {
	return func() (string, bool, error) {
		var (
			filled bool
			err    error
		)

		source, hasSource := c.compositeSource(r, sc)

		text := r.Template.Render(func(name string) (string, bool) {
			if err != nil {
				return "", false
			}

			if f := subField(r, name); f != nil {
				val, ok, ferr := c.resolveValue(&f.Value, f, sc, nil)
				if ferr != nil {
					err = ferr
					return "", false
				}

				if ok {
					s := f.Strategy.Render(val)
					filled = filled || s != ""

					return s, ok
				}

				return "", false
			}

			var v string

			if n, convErr := strconv.Atoi(name); convErr == nil && hasSource {
				v, _ = resolve.First(sc.Values(narrow(source, n)))
			} else if p, perr := path.ParseWire(name); perr == nil {
				v, _ = resolve.First(sc.Values(p))
			}

			filled = filled || v != ""

			return v, v != ""
		})

		if err != nil {
			return "", false, err
		}

		return text, filled, nil
	}
}

// compositeSource picks the first source whose filters hold and which
// resolves to something.
func (c *transformContext) compositeSource(r *mapping.Composite, sc wireScope) (path.Wire, bool) {
	for _, src := range r.Sources {
		p, ok := src.Path.(path.Wire)
		if !ok || !src.Filters.All(sc.Lookup, c.now) {
			continue
		}

		if _, found := resolve.First(sc.Values(p)); found {
			return p, true
		}
	}

	return path.Wire{}, false
}

// narrow addresses the n-th part one level below p.
func narrow(p path.Wire, n int) path.Wire {
	switch {
	case p.Component == 0:
		p.Component = n
	case p.Subcomponent == 0:
		p.Subcomponent = n
	}

	return p
}

func subField(r *mapping.Composite, name string) *mapping.Scalar {
	for _, f := range r.Fields {
		if f.Key() == name || f.Element() == name {
			return f
		}
	}

	return nil
}

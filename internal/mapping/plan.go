package mapping

import (
	"fmt"
	"strings"

	"hl7bridge/internal/coerce"
	"hl7bridge/internal/expr"
	"hl7bridge/internal/filter"
	"hl7bridge/internal/hl7"
	"hl7bridge/internal/path"
	"hl7bridge/internal/validate"
)

// Direction of a transformation.
type Direction int

const (
	// Forward reads wire form and builds a document.
	Forward Direction = iota
	// Reverse reads a document and builds wire form.
	Reverse
)

func (d Direction) String() string {
	if d == Reverse {
		return "document-to-wire"
	}

	return "wire-to-document"
}

// Format is an input or output encoding.
type Format string

const (
	FormatHL7  Format = "hl7"
	FormatXML  Format = "xml"
	FormatJSON Format = "json"
)

// DefaultRootElement names the document root when none is configured.
const DefaultRootElement = "HealthcareMessage"

// Plan is a compiled mapping configuration. Every rule has been resolved to
// a closed variant with its paths parsed, its coercion strategy chosen and
// its expressions type-checked. A Plan is read-only and safe to share.
type Plan struct {
	Name         string
	MessageType  string
	Direction    Direction
	InputFormat  Format
	OutputFormat Format
	RootElement  string
	Delimiters   hl7.Delimiters
	Terminator   string

	GlobalFilters filter.Set
	Policy        Policy
	Functions     *expr.Registry

	// Rules drive the forward direction, Segments the reverse one.
	Rules    []Rule
	Segments []*SegmentBlock
}

// Rule is one compiled forward rule: *Scalar, *Composite, *Repeated or *Group.
type Rule interface {
	// Key is the mapping key the rule was declared under.
	Key() string
	// Element is the output element name.
	Element() string
	// Path is the dotted location of the rule in the configuration.
	Path() string

	isRule()
}

type ruleBase struct {
	key     string
	element string
	path    string
}

func (r ruleBase) Key() string     { return r.key }
func (r ruleBase) Element() string { return r.element }
func (r ruleBase) Path() string    { return r.path }
func (ruleBase) isRule()           {}

// Source is one candidate source of a value, tried in declaration order.
type Source struct {
	// Path is a path.Wire or a path.Document depending on the direction.
	Path    path.Path
	Filters filter.Set
}

// Value holds what every value-producing rule shares.
type Value struct {
	Sources    []Source
	Static     *string
	Default    *string
	Expression *expr.Program
	Strategy   coerce.Strategy
	Validation *validate.Spec
	Required   bool
	// Config is the rule's own configuration, exposed to expressions.
	Config map[string]any
}

// Scalar resolves to a single typed value.
type Scalar struct {
	ruleBase
	Value
}

// Composite renders a template whose placeholders are resolved against its
// sub-object fields, then the children of its source element, then as paths.
type Composite struct {
	ruleBase
	Value
	Template Template
	Fields   []*Scalar
}

// Repeated emits one item per occurrence of a segment that passes Filter.
type Repeated struct {
	ruleBase
	Segment     string
	Filter      filter.Set
	Fields      []Rule
	ItemElement string
}

// Group is a named container of child rules.
type Group struct {
	ruleBase
	Filters  filter.Set
	Children []Rule
}

// SegmentBlock builds one wire segment, or one per node when Repeat is set.
type SegmentBlock struct {
	Key           string
	Segment       string
	Repeat        *path.Document
	Filter        filter.Set
	SourceFilters filter.Set
	Fields        []PositionedRule
}

// PositionedRule places a rule's rendered value at a 1-based field position.
type PositionedRule struct {
	Position int
	Rule     Rule
}

// Describe returns a one-line summary of the plan's rules, for logs and
// the validate command.
func (p *Plan) Describe() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s (%s -> %s, %s)", p.Name, p.InputFormat, p.OutputFormat, p.Direction)

	if p.MessageType != "" {
		fmt.Fprintf(&b, " for %s", p.MessageType)
	}

	if p.Direction == Forward {
		counts := map[string]int{}
		for _, r := range p.Rules {
			countRules(r, counts)
		}

		fmt.Fprintf(&b, ": %d scalar, %d composite, %d repeated, %d group",
			counts["scalar"], counts["composite"], counts["repeated"], counts["group"])
	} else {
		fmt.Fprintf(&b, ": %d segment blocks", len(p.Segments))
	}

	if p.Functions != nil {
		if names := p.Functions.Functions(); len(names) > 0 {
			fmt.Fprintf(&b, "; functions %s", strings.Join(names, ", "))
		}
	}

	return b.String()
}

func countRules(r Rule, counts map[string]int) {
	switch rule := r.(type) {
	case *Scalar:
		counts["scalar"]++
	case *Composite:
		counts["composite"]++
	case *Repeated:
		counts["repeated"]++

		for _, c := range rule.Fields {
			countRules(c, counts)
		}
	case *Group:
		counts["group"]++

		for _, c := range rule.Children {
			countRules(c, counts)
		}
	}
}

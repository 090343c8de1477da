package mapping

import (
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"hl7bridge/internal/coerce"
	"hl7bridge/internal/diagnostic"
	"hl7bridge/internal/expr"
	"hl7bridge/internal/fault"
	"hl7bridge/internal/filter"
	"hl7bridge/internal/hl7"
	"hl7bridge/internal/match"
	"hl7bridge/internal/naming"
	"hl7bridge/internal/path"
	"hl7bridge/internal/validate"
)

var elementRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.-]*$`)

// Load parses and compiles configuration text in one step.
func Load(data []byte) (*Plan, diagnostic.Diagnostics, error) {
	f, err := Parse(data)
	if err != nil {
		return nil, diagnostic.Diagnostics{}, err
	}

	plan, diags := Compile(f)

	return plan, diags, diags.Err()
}

// Compile turns a parsed File into a Plan. Every problem is collected into
// the returned diagnostics; the plan is nil when there is any error.
func Compile(f *File) (*Plan, diagnostic.Diagnostics) {
	c := &compiler{file: f, active: make(map[*yaml.Node]bool)}

	plan := c.compile()
	if c.diags.HasErrors() {
		return nil, c.diags
	}

	return plan, c.diags
}

type compiler struct {
	file   *File
	dir    Direction
	reg    *expr.Registry
	diags  diagnostic.Diagnostics
	active map[*yaml.Node]bool
	// exprs collects every expression text, for the unused-function check.
	exprs []string
}

func (c *compiler) compile() *Plan {
	f := c.file

	plan := &Plan{
		Name:         f.ConfigName,
		MessageType:  f.MessageType,
		InputFormat:  Format(f.InputFormat),
		OutputFormat: Format(f.OutputFormat),
		RootElement:  f.RootElement,
		Terminator:   hl7.DefaultTerminator,
	}

	switch {
	case plan.InputFormat == FormatHL7 && (plan.OutputFormat == FormatXML || plan.OutputFormat == FormatJSON):
		c.dir = Forward
	case (plan.InputFormat == FormatXML || plan.InputFormat == FormatJSON) && plan.OutputFormat == FormatHL7:
		c.dir = Reverse
	default:
		c.diags.AddError(fault.ConfigError, CodeDirection,
			fmt.Sprintf("unsupported transformation %s -> %s", plan.InputFormat, plan.OutputFormat), "", "")
	}

	plan.Direction = c.dir

	if !elementRe.MatchString(plan.RootElement) {
		c.diags.AddError(fault.ConfigError, CodeElement,
			fmt.Sprintf("invalid root element name %q", plan.RootElement), "", "")
	}

	plan.Delimiters = c.delimiters(f.Delimiters)

	if f.SegmentTerminator != "" {
		plan.Terminator = f.SegmentTerminator
	}

	policy, errs := buildPolicy(f.ErrorHandling)
	for _, err := range errs {
		c.diags.AddErr(fault.ConfigError, CodePolicy, err, "error_handling", "")
	}

	plan.Policy = policy

	c.functions(f.CustomFunctions)

	plan.GlobalFilters = c.filters(f.GlobalFilters, "global_filters")

	mappings := resolveAlias(&f.Mappings)
	if mappings == nil || mappings.Kind != yaml.MappingNode {
		c.diags.AddError(fault.ConfigError, CodeShape, "mappings must be a mapping of rules", "mappings", "")
		return plan
	}

	if c.reg == nil {
		// function errors are already reported; keep checking rules
		// against the built-ins only
		c.reg, _ = expr.NewRegistry(nil)
	}

	if c.dir == Reverse {
		plan.Segments = c.segmentBlocks(mappings)
	} else {
		plan.Rules = c.children(mappings, "", nil)
	}

	plan.Functions = c.reg
	c.unusedFunctions(f.CustomFunctions)

	return plan
}

func (c *compiler) delimiters(s string) hl7.Delimiters {
	switch len(s) {
	case 0:
		return hl7.DefaultDelimiters
	case 4:
		s = "|" + s
	}

	d, err := hl7.ParseDelimiters(s)
	if err != nil {
		c.diags.AddErr(fault.ConfigError, CodeDelimiters, err, "delimiters", "")
		return hl7.DefaultDelimiters
	}

	return d
}

func (c *compiler) functions(defs FunctionList) {
	fns := make([]expr.Function, len(defs))
	for i, d := range defs {
		fns[i] = expr.Function{Name: d.Name, Params: d.Params, Expression: d.Expression, Description: d.Description}
		c.exprs = append(c.exprs, d.Expression)
	}

	reg, err := expr.NewRegistry(fns)
	if err != nil {
		c.diags.AddErr(fault.ExpressionError, CodeFunction, err, "custom_functions", "")
		return
	}

	c.reg = reg
}

func (c *compiler) unusedFunctions(defs FunctionList) {
	for _, d := range defs {
		used := false

		for _, src := range c.exprs {
			if src != d.Expression && strings.Contains(src, d.Name+"(") {
				used = true
				break
			}
		}

		if !used {
			c.diags.AddWarning(CodeUnusedFunction,
				fmt.Sprintf("custom function %q is never called", d.Name), "custom_functions."+d.Name, "")
		}
	}
}

// --- paths and filters ---

// parsePath parses a path for the compiled direction.
func (c *compiler) parsePath(s, rule string) (path.Path, bool) {
	var (
		p   path.Path
		err error
	)

	if c.dir == Reverse {
		p, err = path.ParseDocument(s)
	} else {
		p, err = path.ParseWire(s)
	}

	if err != nil {
		c.diags.AddErr(fault.PathResolutionError, CodePath, err, rule, s)
		return nil, false
	}

	return p, true
}

func (c *compiler) filters(defs FilterList, rule string) filter.Set {
	var set filter.Set

	for _, d := range defs {
		if _, ok := c.parsePath(d.Field, rule); !ok {
			continue
		}

		cond, err := filter.Compile(filter.Definition{
			Field:     d.Field,
			Condition: d.Condition,
			Values:    d.Values,
			Format:    d.Format,
		})
		if err != nil {
			var hints []string
			if !slices.Contains(filter.Kinds(), d.Condition) {
				hints = match.Suggest(d.Condition, filter.Kinds(), 2)
			}

			c.diags.AddErr(fault.FilterError, CodeFilter, err, rule, d.Field, hints...)

			continue
		}

		set = append(set, cond)
	}

	return set
}

// --- rule tree ---

// enter guards against a node being compiled inside itself.
func (c *compiler) enter(node *yaml.Node, rule string) bool {
	if c.active[node] {
		c.diags.AddError(fault.ConfigError, CodeSelfReference,
			"rule refers to its own containing group", rule, "")

		return false
	}

	c.active[node] = true

	return true
}

func (c *compiler) leave(node *yaml.Node) {
	delete(c.active, node)
}

// children compiles the child rules of a group-like mapping node. Keys in
// reserved are skipped.
func (c *compiler) children(node *yaml.Node, prefix string, reserved []string) []Rule {
	var rules []Rule

	seen := make(map[string]bool)

	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		value := resolveAlias(node.Content[i+1])
		rule := joinRule(prefix, key)

		if contains(reserved, key) {
			continue
		}

		if seen[key] {
			c.diags.AddError(fault.ConfigError, CodeDuplicateKey, fmt.Sprintf("duplicate rule %q", key), rule, "")
			continue
		}

		seen[key] = true

		if r := c.rule(key, value, rule); r != nil {
			rules = append(rules, r)
		}
	}

	return rules
}

// rule dispatches on the shape of a rule node.
func (c *compiler) rule(key string, node *yaml.Node, rule string) Rule {
	if !c.enter(node, rule) {
		return nil
	}
	defer c.leave(node)

	switch node.Kind {
	case yaml.ScalarNode:
		// shorthand: "patient_id: PID.3.1"
		return c.scalar(key, &fieldDef{Source: node.Value}, node, rule)

	case yaml.MappingNode:
	default:
		c.diags.AddError(fault.ConfigError, CodeShape, "rule must be a path or a mapping", rule, "")
		return nil
	}

	var def fieldDef

	switch {
	case c.isRepeated(node):
		if !c.decode(node, &def, repeatedKeys, rule) {
			return nil
		}

		return c.repeated(key, &def, node, rule)

	case isComposite(node):
		if !c.decode(node, &def, compositeKeys, rule) {
			return nil
		}

		return c.composite(key, &def, node, rule)

	case hasAnyKey(node, valueKeys) && !c.isGroupShaped(node):
		if !c.decode(node, &def, scalarKeys, rule) {
			return nil
		}

		return c.scalar(key, &def, node, rule)

	default:
		return c.group(key, node, rule)
	}
}

func (c *compiler) isRepeated(node *yaml.Node) bool {
	src, ok := mappingValue(node, "source")
	if !ok || !mappingHasKey(node, "fields") || isComposite(node) {
		return false
	}

	return src.Kind == yaml.ScalarNode && path.IsSegmentTag(src.Value)
}

// isGroupShaped reports whether a mapping that carries value keys is a group
// whose children share those names, e.g. {type: AL1.3.1, allergen: AL1.4.2}.
// Every value key must then hold a wire path or a nested rule, and at least
// one entry must be unable to serve as a rule attribute.
func (c *compiler) isGroupShaped(node *yaml.Node) bool {
	if c.dir == Reverse {
		return false
	}

	childOnly := false

	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i].Value, resolveAlias(node.Content[i+1])

		switch {
		case contains(valueKeys, key):
			if !childShaped(value) {
				return false
			}

			// a wire path is never a type tag
			if key == "type" {
				childOnly = true
			}

		case !contains(scalarKeys, key) && childShaped(value):
			childOnly = true
		}
	}

	return childOnly
}

func childShaped(n *yaml.Node) bool {
	if n == nil {
		return false
	}

	return n.Kind == yaml.MappingNode || (n.Kind == yaml.ScalarNode && path.LooksLikeWire(n.Value))
}

func isComposite(node *yaml.Node) bool {
	t, ok := mappingValue(node, "type")
	return ok && strings.EqualFold(t.Value, coerce.Composite.String())
}

func hasAnyKey(node *yaml.Node, keys []string) bool {
	for _, k := range keys {
		if mappingHasKey(node, k) {
			return true
		}
	}

	return false
}

func (c *compiler) decode(node *yaml.Node, def *fieldDef, allowed []string, rule string) bool {
	before := len(c.diags.Errors)

	checkKeys(node, allowed, rule, &c.diags)

	if err := node.Decode(def); err != nil {
		c.diags.AddError(fault.ConfigError, CodeShape, err.Error(), rule, "")
	}

	return len(c.diags.Errors) == before
}

func (c *compiler) element(key, override, rule string) string {
	name := override
	if name == "" {
		name = naming.Element(key)
	}

	// reverse rules are keyed by field position and never name an element
	if c.dir == Reverse && override == "" {
		return key
	}

	if !elementRe.MatchString(name) {
		c.diags.AddError(fault.ConfigError, CodeElement,
			fmt.Sprintf("%q is not a valid element name", name), rule, "")
	}

	return name
}

func (c *compiler) group(key string, node *yaml.Node, rule string) *Group {
	g := &Group{ruleBase: ruleBase{key: key, path: rule}}

	override := ""
	if el, ok := mappingValue(node, "element"); ok && el.Kind == yaml.ScalarNode {
		override = el.Value
	}

	g.element = c.element(key, override, rule)

	if sf, ok := mappingValue(node, "source_filters"); ok {
		var defs FilterList
		if err := sf.Decode(&defs); err != nil {
			c.diags.AddError(fault.FilterError, CodeFilter, err.Error(), rule, "source_filters")
		} else {
			g.Filters = c.filters(defs, rule+".source_filters")
		}
	}

	g.Children = c.children(node, rule, groupReserved)

	if len(g.Children) == 0 {
		c.diags.AddWarning(CodeEmptyGroup, "group has no rules", rule, "")
	}

	return g
}

func (c *compiler) repeated(key string, def *fieldDef, node *yaml.Node, rule string) *Repeated {
	r := &Repeated{
		ruleBase: ruleBase{key: key, path: rule},
		Segment:  def.Source,
	}

	r.element = c.element(key, def.Element, rule)

	if def.Type != "" && !strings.EqualFold(def.Type, repeatedType) {
		c.diags.AddError(fault.ConfigError, CodeType,
			fmt.Sprintf("repeated group type must be %q, got %q", repeatedType, def.Type), rule, "")
	}

	item := def.ItemElement
	if item == "" {
		item = naming.Singular(r.element)
	}

	r.ItemElement = c.element(key, item, rule)
	r.Filter = c.filters(def.Filter, rule+".filter")

	fields, _ := mappingValue(node, "fields")
	if fields = resolveAlias(fields); fields == nil || fields.Kind != yaml.MappingNode {
		c.diags.AddError(fault.ConfigError, CodeShape, "fields must be a mapping of rules", rule, "")
		return r
	}

	r.Fields = c.children(fields, rule+".fields", nil)

	return r
}

func (c *compiler) composite(key string, def *fieldDef, node *yaml.Node, rule string) *Composite {
	r := &Composite{ruleBase: ruleBase{key: key, path: rule}}
	r.element = c.element(key, def.Element, rule)
	r.Value = c.value(def, node, rule)

	tmpl, err := ParseTemplate(def.Template)
	if err != nil {
		c.diags.AddErr(fault.ConfigError, CodeTemplate, err, rule, "")
		return r
	}

	if def.Template == "" {
		c.diags.AddError(fault.ConfigError, CodeTemplate, "composite rule needs a template", rule, "")
	}

	r.Template = tmpl

	if fields, ok := mappingValue(node, "fields"); ok {
		fields = resolveAlias(fields)
		if fields.Kind != yaml.MappingNode {
			c.diags.AddError(fault.ConfigError, CodeShape, "fields must be a mapping of rules", rule, "")
			return r
		}

		for _, child := range c.children(fields, rule+".fields", nil) {
			s, ok := child.(*Scalar)
			if !ok {
				c.diags.AddError(fault.ConfigError, CodeShape,
					"composite fields must be scalar rules", child.Path(), "")

				continue
			}

			r.Fields = append(r.Fields, s)
		}
	}

	c.checkPlaceholders(r, rule)

	return r
}

// checkPlaceholders warns about placeholders that can only ever render
// empty.
func (c *compiler) checkPlaceholders(r *Composite, rule string) {
	names := make([]string, 0, 2*len(r.Fields))
	for _, f := range r.Fields {
		names = append(names, f.Key(), f.Element())
	}

	for _, ph := range r.Template.Placeholders() {
		if contains(names, ph) {
			continue
		}

		if c.dir == Forward {
			if _, err := strconv.Atoi(ph); err == nil && len(r.Sources) > 0 {
				continue
			}

			if _, err := path.ParseWire(ph); err == nil {
				continue
			}
		} else {
			// children of the source node are only known per message
			if len(r.Sources) > 0 {
				continue
			}

			if _, err := path.ParseDocument(ph); err == nil && strings.ContainsAny(ph, "/.") {
				continue
			}
		}

		c.diags.AddWarning(CodePlaceholder,
			fmt.Sprintf("placeholder {%s} matches no field and will render empty", ph), rule, "")
	}
}

func (c *compiler) scalar(key string, def *fieldDef, node *yaml.Node, rule string) *Scalar {
	s := &Scalar{ruleBase: ruleBase{key: key, path: rule}}
	s.element = c.element(key, def.Element, rule)
	s.Value = c.value(def, node, rule)

	if s.Strategy.Kind == coerce.Composite {
		c.diags.AddError(fault.ConfigError, CodeType, "composite rules need a template", rule, "")
	}

	return s
}

// value compiles what scalar and composite rules share.
func (c *compiler) value(def *fieldDef, node *yaml.Node, rule string) Value {
	v := Value{
		Static:   def.Value,
		Default:  def.Default,
		Required: def.Required,
		Config:   configMap(node),
	}

	if def.Required && def.Default != nil {
		c.diags.AddWarning(CodeRequiredDefault, "required rule has a default and can never be missing", rule, "")
	}

	refs := def.Sources
	if def.Source != "" {
		refs = append([]SourceRef{{Path: def.Source}}, refs...)
	}

	for _, ref := range refs {
		p, ok := c.parsePath(ref.Path, rule)
		if !ok {
			continue
		}

		v.Sources = append(v.Sources, Source{Path: p, Filters: c.filters(ref.Filters, rule)})
	}

	if def.Expression != "" {
		c.exprs = append(c.exprs, def.Expression)

		prog, err := c.reg.Compile(def.Expression)
		if err != nil {
			c.diags.AddErr(fault.ExpressionError, CodeExpression, err, rule, "")
		}

		v.Expression = prog
	}

	v.Strategy = c.strategy(def, rule)

	if def.Validation != nil {
		spec, err := validate.Compile(validate.Definition{
			Regex:     def.Validation.Regex,
			MinLength: def.Validation.MinLength,
			MaxLength: def.Validation.MaxLength,
			Min:       def.Validation.Min,
			Max:       def.Validation.Max,
			Severity:  def.Validation.Severity,
		})
		if err != nil {
			c.diags.AddErr(fault.ConfigError, CodeValidation, err, rule, "")
		}

		if def.Validation.Severity != "" {
			if _, err := ParseAction(def.Validation.Severity); err != nil {
				c.diags.AddErr(fault.ConfigError, CodeValidation, err, rule, "")
			}
		}

		v.Validation = spec
	}

	return v
}

// strategy resolves the type tag once, so coercion at message time is a
// direct dispatch.
func (c *compiler) strategy(def *fieldDef, rule string) coerce.Strategy {
	kind, err := coerce.ParseKind(def.Type)
	if err != nil {
		c.diags.AddError(fault.ConfigError, CodeType, err.Error(), rule, "", suggestKinds(def.Type)...)
		return coerce.Strategy{}
	}

	s := coerce.Strategy{Kind: kind}

	switch {
	case kind.Temporal():
		if def.Format == "" {
			c.diags.AddError(fault.ConfigError, CodeType,
				fmt.Sprintf("%s rule needs a format", kind), rule, "")

			return s
		}

		s.Input = c.pattern(def.Format, rule)

		if def.OutputFormat != "" {
			s.Output = c.pattern(def.OutputFormat, rule)
		} else if c.dir == Reverse {
			c.diags.AddError(fault.ConfigError, CodeType,
				fmt.Sprintf("%s rule writing wire form needs an output_format", kind), rule, "")
		}

	case kind == coerce.Boolean:
		if len(def.Values) == 0 && def.Expression == "" {
			c.diags.AddError(fault.ConfigError, CodeType,
				"boolean rule needs values or an expression", rule, "")
		}

		s.Booleans = def.Values

		if c.dir == Reverse {
			s.Canonical = true
			s.Labels = coerce.InvertBooleans(def.Values)
		}

	default:
		if def.Format != "" || def.OutputFormat != "" {
			c.diags.AddWarning(CodeIgnoredKey,
				fmt.Sprintf("format is ignored for %s rules", kind), rule, "")
		}
	}

	if len(def.Values) > 0 && kind != coerce.Boolean {
		c.diags.AddWarning(CodeIgnoredKey,
			fmt.Sprintf("values is ignored for %s rules", kind), rule, "")
	}

	return s
}

func (c *compiler) pattern(s, rule string) coerce.Pattern {
	p, err := coerce.ParsePattern(s)
	if err != nil {
		c.diags.AddErr(fault.ConfigError, CodeType, err, rule, "")
	}

	return p
}

func suggestKinds(t string) []string {
	var out []string

	for _, k := range coerce.KindNames() {
		if strings.HasPrefix(k, strings.ToLower(t)) || strings.HasPrefix(strings.ToLower(t), k) {
			out = append(out, k)
		}
	}

	return out
}

func joinRule(prefix, key string) string {
	if prefix == "" {
		return key
	}

	return prefix + "." + key
}

// configMap exposes a rule's configuration to expressions as plain values.
func configMap(node *yaml.Node) map[string]any {
	v, err := nodeToJSON(node, nil)
	if err != nil {
		return map[string]any{}
	}

	m, ok := plainNumbers(v).(map[string]any)
	if !ok {
		return map[string]any{"source": node.Value}
	}

	return m
}

func plainNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := strconv.ParseInt(t.String(), 10, 64); err == nil {
			return i
		}

		f, _ := t.Float64()

		return f
	case map[string]any:
		for k, item := range t {
			t[k] = plainNumbers(item)
		}

		return t
	case []any:
		for i, item := range t {
			t[i] = plainNumbers(item)
		}

		return t
	default:
		return v
	}
}

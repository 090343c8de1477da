package engine

import (
	"log/slog"
	"time"

	"hl7bridge/internal/coerce"
	"hl7bridge/internal/expr"
	"hl7bridge/internal/fault"
	"hl7bridge/internal/mapping"
	"hl7bridge/internal/path"
	"hl7bridge/internal/resolve"
)

// transformContext is the per-message state. It is created by Transform and
// discarded when the call returns.
type transformContext struct {
	plan   *mapping.Plan
	now    time.Time
	log    *slog.Logger
	indent string

	// message is the input as exposed to expressions.
	message  map[string]any
	warnings []error

	// escape is applied to rendered values in wire output.
	escape func(string) string
}

// scope resolves paths for the current position in the input.
type scope interface {
	Lookup(field string) []string
	values(p path.Path) []string
}

type wireScope struct{ resolve.Wire }

func (s wireScope) values(p path.Path) []string {
	if w, ok := p.(path.Wire); ok {
		return s.Values(w)
	}

	return nil
}

type treeScope struct{ resolve.Tree }

func (s treeScope) values(p path.Path) []string {
	if d, ok := p.(path.Document); ok {
		return s.Values(d)
	}

	return nil
}

// report routes err through the policy for its category.
func (c *transformContext) report(cat mapping.Category, err *fault.Error) error {
	return c.apply(c.plan.Policy.Action(cat), cat, err)
}

// apply carries out action for err. A non-nil return aborts the message.
func (c *transformContext) apply(action mapping.Action, cat mapping.Category, err *fault.Error) error {
	switch action {
	case mapping.ActionError:
		return err
	case mapping.ActionWarn:
		c.warnings = append(c.warnings, err)
		c.log.Warn("transform warning", "category", cat.String(), "rule", err.Rule, "error", err.Err)
	default:
		c.log.Debug("skipped", "category", cat.String(), "rule", err.Rule, "error", err.Err)
	}

	return nil
}

// rawFunc produces a rule's raw text before coercion, and whether there is
// one.
type rawFunc func() (string, bool, error)

// resolveValue runs the shared value pipeline of a rule: raw text, then the
// expression, the default, coercion and validation. ok is false when the
// rule produces no value.
func (c *transformContext) resolveValue(v *mapping.Value, r mapping.Rule, sc scope, raw rawFunc) (val coerce.Value, ok bool, err error) {
	text, found := "", false

	switch {
	case v.Static != nil:
		text, found = *v.Static, true
	case raw != nil:
		if text, found, err = raw(); err != nil {
			return coerce.Value{}, false, err
		}
	default:
		text, found = c.firstSource(v.Sources, sc)
	}

	var (
		typed    coerce.Value
		hasTyped bool
	)

	if v.Expression != nil {
		out, evalErr := v.Expression.Eval(expr.Input{Value: text, Message: c.message, Field: v.Config})

		switch {
		case evalErr != nil:
			fe := fault.Wrap(fault.ExpressionError, evalErr).WithRule(r.Path())
			if err := c.report(mapping.ExpressionFail, fe); err != nil {
				return coerce.Value{}, false, err
			}

			found = false

		case out == nil || out == "":
			found = false

		default:
			typed, err = v.Strategy.FromNative(out)
			if err != nil {
				return c.coercionFailed(v, r, err)
			}

			hasTyped, found = true, true
		}
	}

	if !found && v.Default != nil {
		text, found = *v.Default, true
	}

	if !found {
		if v.Required {
			fe := fault.New(mapping.MissingRequired.Kind(), "required value missing").
				WithRule(r.Path()).WithPath(sourcePaths(v.Sources))

			return coerce.Value{}, false, c.report(mapping.MissingRequired, fe)
		}

		return coerce.Value{}, false, nil
	}

	if !hasTyped {
		typed, err = v.Strategy.Coerce(text)
		if err != nil {
			return c.coercionFailed(v, r, err)
		}
	}

	if typed.Kind == coerce.String && typed.Str == "" && !v.Required {
		return coerce.Value{}, false, nil
	}

	return c.validate(v, r, typed)
}

// firstSource returns the first non-empty value among sources whose filters
// hold. Later sources are not consulted once one yields a value.
func (c *transformContext) firstSource(sources []mapping.Source, sc scope) (string, bool) {
	for _, src := range sources {
		if !src.Filters.All(sc.Lookup, c.now) {
			continue
		}

		if v, ok := resolve.First(sc.values(src.Path)); ok {
			return v, true
		}
	}

	return "", false
}

// coercionFailed applies the policy and falls back to the declared default.
func (c *transformContext) coercionFailed(v *mapping.Value, r mapping.Rule, cause error) (coerce.Value, bool, error) {
	fe := fault.Wrap(fault.CoercionError, cause).WithRule(r.Path())
	if err := c.report(mapping.CoercionFail, fe); err != nil {
		return coerce.Value{}, false, err
	}

	if v.Default == nil {
		return coerce.Value{}, false, nil
	}

	def, err := v.Strategy.Coerce(*v.Default)
	if err != nil {
		return coerce.Value{}, false, nil
	}

	return def, true, nil
}

func (c *transformContext) validate(v *mapping.Value, r mapping.Rule, val coerce.Value) (coerce.Value, bool, error) {
	if v.Validation == nil {
		return val, true, nil
	}

	res := v.Validation.Check(val)
	if res.OK {
		return val, true, nil
	}

	action := c.plan.Policy.Action(mapping.ValidationFail)
	if v.Validation.Severity != "" {
		if a, err := mapping.ParseAction(v.Validation.Severity); err == nil {
			action = a
		}
	}

	fe := fault.Wrap(fault.ValidationError, res.Err()).WithRule(r.Path())
	if err := c.apply(action, mapping.ValidationFail, fe); err != nil {
		return coerce.Value{}, false, err
	}

	// warn keeps the value, flagged; skip drops it
	return val, action == mapping.ActionWarn, nil
}

func sourcePaths(sources []mapping.Source) string {
	if len(sources) == 0 {
		return ""
	}

	out := sources[0].Path.String()
	for _, s := range sources[1:] {
		out += "|" + s.Path.String()
	}

	return out
}

package mapping

import (
	"fmt"
	"log/slog"
	"strings"

	"hl7bridge/internal/fault"
)

// Action is what the engine does when a per-message error occurs.
type Action int

const (
	// ActionError aborts the message and returns the error.
	ActionError Action = iota
	// ActionWarn records a warning and continues with the field omitted,
	// defaulted or, for validation failures, retained and flagged.
	ActionWarn
	// ActionSkip omits the affected field silently.
	ActionSkip
)

func (a Action) String() string {
	switch a {
	case ActionError:
		return "error"
	case ActionWarn:
		return "warn"
	case ActionSkip:
		return "skip"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// ParseAction reads an action name.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return ActionError, nil
	case "warn", "warning":
		return ActionWarn, nil
	case "skip":
		return ActionSkip, nil
	default:
		return ActionError, fault.New(fault.ConfigError, "unknown error handling action %q (want error, warn or skip)", s)
	}
}

// Category is a per-message error category governed by the policy.
type Category int

const (
	MissingRequired Category = iota
	ValidationFail
	ExpressionFail
	CoercionFail
	MalformedSegment
	InvalidStructure
)

var categoryKinds = map[Category]fault.Kind{
	MissingRequired:  fault.PathResolutionError,
	ValidationFail:   fault.ValidationError,
	ExpressionFail:   fault.ExpressionError,
	CoercionFail:     fault.CoercionError,
	MalformedSegment: fault.MalformedMessageError,
	InvalidStructure: fault.MalformedMessageError,
}

// Kind is the error kind reported for the category.
func (c Category) Kind() fault.Kind {
	return categoryKinds[c]
}

func (c Category) String() string {
	switch c {
	case MissingRequired:
		return "missing_required"
	case ValidationFail:
		return "validation_fail"
	case ExpressionFail:
		return "expression_error"
	case CoercionFail:
		return "coercion_error"
	case MalformedSegment:
		return "malformed_segment"
	case InvalidStructure:
		return "invalid_structure"
	default:
		return fmt.Sprintf("Category(%d)", int(c))
	}
}

// Policy is the effective error-handling policy of a compiled mapping.
type Policy struct {
	actions [InvalidStructure + 1]Action
	// LogLevel is the minimum level the engine logs at.
	LogLevel slog.Level
	// Silent disables engine logging entirely (log_level: skip).
	Silent bool
}

// DefaultPolicy errors on missing required fields and expression failures
// and warns on everything else.
func DefaultPolicy() Policy {
	var p Policy

	p.actions[MissingRequired] = ActionError
	p.actions[ValidationFail] = ActionWarn
	p.actions[ExpressionFail] = ActionError
	p.actions[CoercionFail] = ActionWarn
	p.actions[MalformedSegment] = ActionWarn
	p.actions[InvalidStructure] = ActionWarn
	p.LogLevel = slog.LevelInfo

	return p
}

// Action returns the configured action for c.
func (p Policy) Action(c Category) Action {
	return p.actions[c]
}

// With returns a copy of p with c set to a.
func (p Policy) With(c Category, a Action) Policy {
	p.actions[c] = a
	return p
}

// ParseLogLevel reads debug, info, warn(ing), error or skip.
func ParseLogLevel(s string) (level slog.Level, silent bool, err error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, false, nil
	case "", "info":
		return slog.LevelInfo, false, nil
	case "warn", "warning":
		return slog.LevelWarn, false, nil
	case "error":
		return slog.LevelError, false, nil
	case "skip", "none", "off":
		return slog.LevelError, true, nil
	default:
		return slog.LevelInfo, false, fault.New(fault.ConfigError, "unknown log_level %q", s)
	}
}

// buildPolicy applies an error_handling block on top of the defaults.
func buildPolicy(eh ErrorHandling) (Policy, []error) {
	p := DefaultPolicy()

	var errs []error

	set := func(c Category, value string) {
		if value == "" {
			return
		}

		a, err := ParseAction(value)
		if err != nil {
			errs = append(errs, err)
			return
		}

		p = p.With(c, a)
	}

	set(MissingRequired, eh.OnMissingRequired)
	set(ValidationFail, eh.OnValidationFail)
	set(ExpressionFail, eh.OnExpressionError)
	set(CoercionFail, eh.OnCoercionError)
	set(MalformedSegment, eh.OnMalformedSegment)
	set(InvalidStructure, eh.OnInvalidStructure)

	level, silent, err := ParseLogLevel(eh.LogLevel)
	if err != nil {
		errs = append(errs, err)
	}

	p.LogLevel, p.Silent = level, silent

	return p, errs
}

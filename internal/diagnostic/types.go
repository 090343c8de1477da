package diagnostic

import (
	"errors"
	"fmt"
	"strings"

	"hl7bridge/internal/fault"
)

// Diagnostics holds every diagnostic produced for one configuration.
type Diagnostics struct {
	Errors   []Diagnostic
	Warnings []Diagnostic
}

// Diagnostic represents a single diagnostic message.
type Diagnostic struct {
	// Severity of the diagnostic.
	Severity Severity
	// Code is a unique identifier for this type of diagnostic.
	Code string
	// Kind is the error kind the diagnostic surfaces as.
	Kind fault.Kind
	// Message is the human-readable description.
	Message string
	// Rule is the dotted path of the mapping rule (if any).
	Rule string
	// Path is the field path concerned (if any).
	Path string
	// Suggestions are potential fixes or alternatives.
	Suggestions []string
}

// Severity represents the severity level of a diagnostic.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// AddError adds an error diagnostic.
func (d *Diagnostics) AddError(kind fault.Kind, code, message, rule, path string, suggestions ...string) {
	d.Errors = append(d.Errors, Diagnostic{
		Severity:    SeverityError,
		Code:        code,
		Kind:        kind,
		Message:     message,
		Rule:        rule,
		Path:        path,
		Suggestions: suggestions,
	})
}

// AddErr records err as an error diagnostic. The kind is taken from err when
// it is a *fault.Error, otherwise kind is used.
func (d *Diagnostics) AddErr(kind fault.Kind, code string, err error, rule, path string, suggestions ...string) {
	var fe *fault.Error
	if errors.As(err, &fe) {
		kind = fe.Kind
		err = fe.Err
	}

	d.AddError(kind, code, err.Error(), rule, path, suggestions...)
}

// AddWarning adds a warning diagnostic.
func (d *Diagnostics) AddWarning(code, message, rule, path string) {
	d.Warnings = append(d.Warnings, Diagnostic{
		Severity: SeverityWarning,
		Code:     code,
		Kind:     fault.ConfigError,
		Message:  message,
		Rule:     rule,
		Path:     path,
	})
}

// HasErrors returns true if there are any error diagnostics.
func (d *Diagnostics) HasErrors() bool {
	return len(d.Errors) > 0
}

// Merge merges another Diagnostics instance into this one.
func (d *Diagnostics) Merge(other Diagnostics) {
	d.Errors = append(d.Errors, other.Errors...)
	d.Warnings = append(d.Warnings, other.Warnings...)
}

// Err returns the errors as a fault.List, or nil when there are none.
func (d *Diagnostics) Err() error {
	if !d.HasErrors() {
		return nil
	}

	list := make(fault.List, 0, len(d.Errors))
	for _, e := range d.Errors {
		list = append(list, &fault.Error{
			Kind: e.Kind,
			Rule: e.Rule,
			Path: e.Path,
			Err:  errors.New(e.detail()),
		})
	}

	return list
}

func (d Diagnostic) detail() string {
	msg := d.Message
	if d.Code != "" {
		msg = fmt.Sprintf("[%s] %s", d.Code, msg)
	}

	if len(d.Suggestions) > 0 {
		msg += " (did you mean " + quoteJoin(d.Suggestions) + "?)"
	}

	return msg
}

// String returns a formatted diagnostic string.
func (d Diagnostic) String() string {
	var prefix []string
	if d.Rule != "" {
		prefix = append(prefix, "["+d.Rule+"]")
	}

	if d.Path != "" {
		prefix = append(prefix, d.Path)
	}

	if len(prefix) > 0 {
		return strings.Join(prefix, " ") + ": " + d.detail()
	}

	return d.detail()
}

func quoteJoin(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}

	return strings.Join(quoted, " or ")
}

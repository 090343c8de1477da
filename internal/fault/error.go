package fault

import (
	"errors"
	"fmt"
	"strings"
)

// Error is a classified transformation error. Rule names the mapping rule the
// error belongs to (dotted config path) and Path the field address involved;
// both are optional.
type Error struct {
	Kind Kind
	Rule string
	Path string
	Err  error
}

// New creates an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Wrap classifies err. An err that already is an *Error keeps its own kind
// and context.
func Wrap(kind Kind, err error) *Error {
	if err == nil {
		return nil
	}

	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}

	return &Error{Kind: kind, Err: err}
}

// WithRule returns a copy of e bound to the named rule.
func (e *Error) WithRule(rule string) *Error {
	c := *e
	c.Rule = rule

	return &c
}

// WithPath returns a copy of e bound to the given field address.
func (e *Error) WithPath(path string) *Error {
	c := *e
	c.Path = path

	return &c
}

func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString("[")
	b.WriteString(e.Kind.String())
	b.WriteString("]")

	if e.Rule != "" {
		b.WriteString(" ")
		b.WriteString(e.Rule)
	}

	if e.Path != "" {
		_, _ = fmt.Fprintf(&b, " (%s)", e.Path)
	}

	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}

	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether any error in err's tree is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}

	var fe *Error
	if errors.As(err, &fe) && fe.Kind == kind {
		return true
	}

	if multi, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range multi.Unwrap() {
			if Is(e, kind) {
				return true
			}
		}
	}

	return false
}

// List is an ordered collection of errors reported together, such as every
// problem found in one configuration.
type List []*Error

func (l List) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	}

	parts := make([]string, len(l))
	for i, e := range l {
		parts[i] = e.Error()
	}

	return fmt.Sprintf("%d errors: %s", len(l), strings.Join(parts, "; "))
}

func (l List) Unwrap() []error {
	errs := make([]error, len(l))
	for i, e := range l {
		errs[i] = e
	}

	return errs
}

// Err returns l as an error, or nil when l is empty.
func (l List) Err() error {
	if len(l) == 0 {
		return nil
	}

	return l
}

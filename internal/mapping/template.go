package mapping

import (
	"strings"

	"hl7bridge/internal/fault"
)

// Template is a composite template such as "{LastName}^{FirstName}".
type Template struct {
	raw   string
	parts []templatePart
}

type templatePart struct {
	literal     string
	placeholder string
}

// ParseTemplate splits a template into literals and {Name} placeholders.
// "{{" and "}}" stand for literal braces.
func ParseTemplate(s string) (Template, error) {
	t := Template{raw: s}

	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			t.parts = append(t.parts, templatePart{literal: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(s); i++ {
		switch {
		case strings.HasPrefix(s[i:], "{{"), strings.HasPrefix(s[i:], "}}"):
			lit.WriteByte(s[i])
			i++

		case s[i] == '{':
			end := strings.IndexByte(s[i:], '}')
			if end < 0 {
				return Template{}, fault.New(fault.ConfigError, "template %q: unclosed placeholder", s)
			}

			name := strings.TrimSpace(s[i+1 : i+end])
			if name == "" || strings.ContainsRune(name, '{') {
				return Template{}, fault.New(fault.ConfigError, "template %q: empty or nested placeholder", s)
			}

			flush()
			t.parts = append(t.parts, templatePart{placeholder: name})
			i += end

		case s[i] == '}':
			return Template{}, fault.New(fault.ConfigError, "template %q: unmatched }", s)

		default:
			lit.WriteByte(s[i])
		}
	}

	flush()

	return t, nil
}

func (t Template) String() string { return t.raw }

// Placeholders returns placeholder names in order of appearance.
func (t Template) Placeholders() []string {
	var out []string

	for _, p := range t.parts {
		if p.placeholder != "" {
			out = append(out, p.placeholder)
		}
	}

	return out
}

// Render fills each placeholder with lookup's result. A placeholder without
// a value renders as the empty string.
func (t Template) Render(lookup func(name string) (string, bool)) string {
	var b strings.Builder

	for _, p := range t.parts {
		if p.placeholder == "" {
			b.WriteString(p.literal)
			continue
		}

		if v, ok := lookup(p.placeholder); ok {
			b.WriteString(v)
		}
	}

	return b.String()
}

package coerce

import (
	"strings"
	"time"

	"hl7bridge/internal/fault"
)

const (
	isoDate     = "2006-01-02"
	isoDateTime = "2006-01-02T15:04:05"
)

// Pattern is a date pattern such as "YYYYMMDD" compiled to a Go layout.
// Go reference layouts ("2006-01-02") are accepted as they are.
type Pattern struct {
	raw    string
	layout string
}

// ISODate and ISODateTime are the default document renderings.
var (
	ISODate     = Pattern{raw: "YYYY-MM-DD", layout: isoDate}
	ISODateTime = Pattern{raw: "YYYY-MM-DDTHH:mm:SS", layout: isoDateTime}
)

var patternTokens = []struct {
	token  string
	layout string
}{
	{"YYYY", "2006"},
	{"YY", "06"},
	{"MM", "01"},
	{"DD", "02"},
	{"HH", "15"},
	{"mm", "04"},
	{"SS", "05"},
	{"ss", "05"},
}

// ParsePattern compiles a date pattern. "MM" following an "HH" token is
// read as minutes, so "YYYYMMDDHHMM" works as expected.
func ParsePattern(p string) (Pattern, error) {
	if p == "" {
		return Pattern{}, fault.New(fault.ConfigError, "empty date format")
	}

	if strings.Contains(p, "2006") || strings.Contains(p, "15:04") {
		return Pattern{raw: p, layout: p}, nil
	}

	var (
		b        strings.Builder
		sawHour  bool
		sawToken bool
	)

	for i := 0; i < len(p); {
		matched := false

		for _, t := range patternTokens {
			if !strings.HasPrefix(p[i:], t.token) {
				continue
			}

			layout := t.layout

			switch {
			case t.token == "HH":
				sawHour = true
			case t.token == "MM" && sawHour:
				layout = "04"
			}

			b.WriteString(layout)
			i += len(t.token)
			matched = true
			sawToken = true

			break
		}

		if !matched {
			b.WriteByte(p[i])
			i++
		}
	}

	if !sawToken {
		return Pattern{}, fault.New(fault.ConfigError, "date format %q has no date tokens", p)
	}

	return Pattern{raw: p, layout: b.String()}, nil
}

// MustPattern is ParsePattern for patterns known at compile time.
func MustPattern(p string) Pattern {
	pat, err := ParsePattern(p)
	if err != nil {
		panic(err)
	}

	return pat
}

func (p Pattern) String() string { return p.raw }

// IsZero reports whether the pattern was never set.
func (p Pattern) IsZero() bool { return p.layout == "" }

// Parse reads s in UTC.
func (p Pattern) Parse(s string) (time.Time, error) {
	t, err := time.ParseInLocation(p.layout, s, time.UTC)
	if err != nil {
		return time.Time{}, fault.New(fault.CoercionError, "%q does not match date format %q", s, p.raw)
	}

	return t, nil
}

// Format renders t with the pattern.
func (p Pattern) Format(t time.Time) string {
	return t.Format(p.layout)
}

// AgeYears counts whole years elapsed from born to now.
func AgeYears(born, now time.Time) int {
	years := now.Year() - born.Year()
	if now.Month() < born.Month() || (now.Month() == born.Month() && now.Day() < born.Day()) {
		years--
	}

	return years
}

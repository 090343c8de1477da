package match

import (
	"strings"
	"unicode"
)

// Tokens splits an identifier on separators and case changes:
//
//	"patient_id"   -> [patient id]
//	"dateOfBirth"  -> [date Of Birth]
//	"HL7Version"   -> [HL7 Version]
//	"item-element" -> [item element]
func Tokens(s string) []string {
	var (
		tokens  []string
		current []rune
	)

	flush := func() {
		if len(current) > 0 {
			tokens = append(tokens, string(current))
			current = current[:0]
		}
	}

	runes := []rune(s)
	for i, r := range runes {
		if isSeparator(r) {
			flush()
			continue
		}

		if i > 0 && startsToken(runes, i) {
			flush()
		}

		current = append(current, r)
	}

	flush()

	return tokens
}

// NormalizeIdent lowercases an identifier and drops its separators, so that
// "sourceFilters", "source-filters" and "source_filters" compare equal.
func NormalizeIdent(s string) string {
	return strings.ToLower(strings.Join(Tokens(s), ""))
}

func isSeparator(r rune) bool {
	return r == '_' || r == '-' || r == ' ' || r == '.'
}

// startsToken reports whether runes[i] begins a new token: a lower-to-upper
// transition, or the last capital of an acronym followed by a lowercase.
func startsToken(runes []rune, i int) bool {
	r, prev := runes[i], runes[i-1]

	if !unicode.IsUpper(r) || isSeparator(prev) {
		return false
	}

	if !unicode.IsUpper(prev) {
		return true
	}

	return i+1 < len(runes) && unicode.IsLower(runes[i+1])
}

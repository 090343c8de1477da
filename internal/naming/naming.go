// Package naming derives document element names from mapping keys.
package naming

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"hl7bridge/internal/match"
)

// Element converts a mapping key to an element name: "patient_id" becomes
// "PatientId" and "dateOfBirth" becomes "DateOfBirth". Each token keeps only
// its first letter capitalised.
func Element(key string) string {
	var b strings.Builder

	// Casers keep state, so each call gets its own.
	title := cases.Title(language.Und)

	for _, tok := range match.Tokens(key) {
		b.WriteString(title.String(tok))
	}

	return b.String()
}

// Singular names one item of a repeated group: a trailing "s" is dropped,
// names without one are used as they are.
func Singular(element string) string {
	if len(element) > 1 && strings.HasSuffix(element, "s") {
		return element[:len(element)-1]
	}

	return element
}

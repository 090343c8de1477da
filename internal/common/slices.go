// Package common holds small generic helpers shared across packages.
package common

// First returns the first element of the slice and true, or the zero value and false if empty.
func First[S ~[]E, E any](s S) (E, bool) {
	if len(s) == 0 {
		var zero E
		return zero, false
	}

	return s[0], true
}

// Coalesce returns the first argument that is not the zero value.
func Coalesce[T comparable](values ...T) T {
	var zero T

	for _, v := range values {
		if v != zero {
			return v
		}
	}

	return zero
}

// Index returns the 1-based element i of s, or the zero value when i is out
// of range.
func Index[S ~[]E, E any](s S, i int) E {
	if i < 1 || i > len(s) {
		var zero E
		return zero
	}

	return s[i-1]
}

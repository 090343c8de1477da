package filter

import "time"

// Set is an ordered list of conditions combined with AND.
type Set []*Condition

// All reports whether every condition holds. An empty set admits.
func (s Set) All(lookup Lookup, now time.Time) bool {
	_, ok := s.FirstFailure(lookup, now)
	return ok
}

// FirstFailure returns the first condition that does not hold.
func (s Set) FirstFailure(lookup Lookup, now time.Time) (*Condition, bool) {
	for _, c := range s {
		if !c.Eval(lookup, now) {
			return c, false
		}
	}

	return nil, true
}
